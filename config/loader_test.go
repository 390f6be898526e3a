package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Log.Level)
	}
	if cfg.Gateway.Host != "127.0.0.1" || cfg.Gateway.Port != 18790 {
		t.Errorf("unexpected gateway defaults: %s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	}
	if cfg.Gateway.PingInterval != 30*time.Second {
		t.Errorf("expected 30s ping interval, got %v", cfg.Gateway.PingInterval)
	}
	if cfg.Stream.ChannelPrefix != "agent-stream:" {
		t.Errorf("unexpected channel prefix %q", cfg.Stream.ChannelPrefix)
	}
	if cfg.Stream.EventBuffer != 100 {
		t.Errorf("expected event buffer 100, got %d", cfg.Stream.EventBuffer)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"log": {"level": "debug"},
		"gateway": {"port": 9000, "enable_auth": true, "auth_token": "secret"},
		"stream": {"channel_prefix": "custom:"},
		"replay": {"script": "/tmp/session.jsonl"}
	}`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Log.Level)
	}
	if cfg.Gateway.Port != 9000 || !cfg.Gateway.EnableAuth || cfg.Gateway.AuthToken != "secret" {
		t.Errorf("gateway overrides not applied: %+v", cfg.Gateway)
	}
	if cfg.Stream.ChannelPrefix != "custom:" {
		t.Errorf("expected custom prefix, got %q", cfg.Stream.ChannelPrefix)
	}
	if cfg.Replay.Script != "/tmp/session.jsonl" {
		t.Errorf("replay script not applied: %q", cfg.Replay.Script)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected an error for a missing explicit config file")
	}
}
