package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log" json:"log"`
	Gateway GatewayConfig `mapstructure:"gateway" json:"gateway"`
	Stream  StreamConfig  `mapstructure:"stream" json:"stream"`
	Replay  ReplayConfig  `mapstructure:"replay" json:"replay"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	Development bool   `mapstructure:"development" json:"development"`
}

// GatewayConfig controls the WebSocket gateway.
type GatewayConfig struct {
	Host           string        `mapstructure:"host" json:"host"`
	Port           int           `mapstructure:"port" json:"port"`
	Path           string        `mapstructure:"path" json:"path"`
	EnableAuth     bool          `mapstructure:"enable_auth" json:"enable_auth"`
	AuthToken      string        `mapstructure:"auth_token" json:"auth_token"`
	PingInterval   time.Duration `mapstructure:"ping_interval" json:"ping_interval"`
	PongTimeout    time.Duration `mapstructure:"pong_timeout" json:"pong_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	MaxMessageSize int64         `mapstructure:"max_message_size" json:"max_message_size"`
}

// StreamConfig controls the mediation core.
type StreamConfig struct {
	// ChannelPrefix names per-thread event channels.
	ChannelPrefix string `mapstructure:"channel_prefix" json:"channel_prefix"`
	// EventBuffer sets channel buffering for in-process subscribers.
	EventBuffer int `mapstructure:"event_buffer" json:"event_buffer"`
	// Workdir is reported as the workspace base path when a snapshot
	// carries none. Empty means the process working directory.
	Workdir string `mapstructure:"workdir" json:"workdir"`
}

// ReplayConfig points the serve command at a snapshot script when no live
// runtime is attached.
type ReplayConfig struct {
	Script string `mapstructure:"script" json:"script"`
}
