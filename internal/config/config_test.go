// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, environment overrides, config files and validation
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// isolate runs the test away from any real config file
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Provider.Kind != "websocket" || !cfg.Provider.Discover {
		t.Errorf("unexpected provider defaults %+v", cfg.Provider)
	}
	if cfg.Playback.PollInterval != 100*time.Millisecond {
		t.Errorf("expected 100ms poll interval, got %v", cfg.Playback.PollInterval)
	}
	if cfg.Playback.BufferThreshold != 5 || cfg.Playback.LookAhead != 0.3 {
		t.Errorf("unexpected playback defaults %+v", cfg.Playback)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.BaseDelay != time.Second {
		t.Errorf("unexpected retry defaults %+v", cfg.Retry)
	}
	if cfg.Export.Bitrate != 128000 {
		t.Errorf("expected 128000 bitrate, got %d", cfg.Export.Bitrate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("STUDIO_PROVIDER_KIND", "tone")
	t.Setenv("STUDIO_PROVIDER_API_KEY", "secret")
	t.Setenv("STUDIO_RETRY_BASE_DELAY", "250ms")

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Provider.Kind != "tone" || cfg.Provider.APIKey != "secret" {
		t.Errorf("environment not applied: %+v", cfg.Provider)
	}
	if cfg.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.Retry.BaseDelay)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)

	yaml := "export:\n  format: wav\nbus:\n  embedded: true\n  subject: lab\n"
	if err := os.WriteFile(filepath.Join(dir, "studio.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Export.Format != "wav" || !cfg.Bus.Embedded || cfg.Bus.Subject != "lab" {
		t.Errorf("config file not applied: %+v %+v", cfg.Export, cfg.Bus)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown provider", func(c *Config) { c.Provider.Kind = "carrier-pigeon" }, "provider.kind"},
		{"unknown backend", func(c *Config) { c.Playback.Backend = "alsa" }, "playback.backend"},
		{"unknown format", func(c *Config) { c.Export.Format = "mp3" }, "export.format"},
		{"zero bitrate", func(c *Config) { c.Export.Bitrate = 0 }, "export.bitrate"},
		{"zero threshold", func(c *Config) { c.Playback.BufferThreshold = 0 }, "playback.buffer_threshold"},
		{"no attempts", func(c *Config) { c.Retry.Attempts = 0 }, "retry.attempts"},
		{"bus without subject", func(c *Config) { c.Bus.Embedded = true; c.Bus.Subject = "" }, "bus.subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			cfg, err := Load(viper.New())
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}
}
