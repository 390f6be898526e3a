package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from configPath, or from the default search
// paths when it is empty, with environment overrides applied.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// 1) ./.agentbridge/config.json
		v.AddConfigPath(filepath.Join(".", ".agentbridge"))
		// 2) ./config.json
		v.AddConfigPath(".")
		// 3) ~/.agentbridge/config.json
		v.AddConfigPath(filepath.Join(home, ".agentbridge"))
		v.SetConfigName("config")
		v.SetConfigType("json")
	}

	v.SetEnvPrefix("AGENTBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file; defaults and environment apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("gateway.host", "127.0.0.1")
	v.SetDefault("gateway.port", 18790)
	v.SetDefault("gateway.path", "/ws")
	v.SetDefault("gateway.enable_auth", false)
	// Use time.Duration defaults; plain integers would become nanoseconds
	// when unmarshaled.
	v.SetDefault("gateway.ping_interval", 30*time.Second)
	v.SetDefault("gateway.pong_timeout", 60*time.Second)
	v.SetDefault("gateway.read_timeout", 60*time.Second)
	v.SetDefault("gateway.write_timeout", 10*time.Second)
	v.SetDefault("gateway.max_message_size", int64(10*1024*1024))

	v.SetDefault("stream.channel_prefix", "agent-stream:")
	v.SetDefault("stream.event_buffer", 100)
	v.SetDefault("stream.workdir", "")

	v.SetDefault("replay.script", "")
}
