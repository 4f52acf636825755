// ABOUTME: Studio configuration loaded through viper
// ABOUTME: Defaults, config file search paths, STUDIO_ environment overrides and validation
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Playback  PlaybackConfig  `mapstructure:"playback"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Export    ExportConfig    `mapstructure:"export"`
	Library   LibraryConfig   `mapstructure:"library"`
	Bus       BusConfig       `mapstructure:"bus"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
	File   string `mapstructure:"file"`
}

// ProviderConfig selects and configures the TTS provider
type ProviderConfig struct {
	Kind     string `mapstructure:"kind"` // websocket, gtts or tone
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	Voice    string `mapstructure:"voice"`
	Style    string `mapstructure:"style"`
	Discover bool   `mapstructure:"discover"`
}

// PlaybackConfig holds output and scheduler settings
type PlaybackConfig struct {
	Backend         string        `mapstructure:"backend"` // oto, speaker or null
	LookAhead       float64       `mapstructure:"lookahead"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	BufferThreshold float64       `mapstructure:"buffer_threshold"`
}

// RetryConfig controls stream acquisition retries
type RetryConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
}

// ExportConfig selects the export encoder
type ExportConfig struct {
	Format  string `mapstructure:"format"` // opus or wav
	Bitrate int    `mapstructure:"bitrate"`
}

// LibraryConfig locates the recording database
type LibraryConfig struct {
	Path string `mapstructure:"path"`
}

// BusConfig configures the NATS state bus
type BusConfig struct {
	URL      string `mapstructure:"url"`
	Embedded bool   `mapstructure:"embedded"`
	Subject  string `mapstructure:"subject"`
}

// TelemetryConfig configures metrics and tracing
type TelemetryConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
	Tracing     bool   `mapstructure:"tracing"`
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "resonate-studio.log")

	v.SetDefault("provider.kind", "websocket")
	v.SetDefault("provider.url", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.voice", "en-US")
	v.SetDefault("provider.style", "")
	v.SetDefault("provider.discover", true)

	v.SetDefault("playback.backend", "oto")
	v.SetDefault("playback.lookahead", 0.3)
	v.SetDefault("playback.poll_interval", "100ms")
	v.SetDefault("playback.buffer_threshold", 5.0)

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.base_delay", "1s")

	v.SetDefault("export.format", "opus")
	v.SetDefault("export.bitrate", 128000)

	v.SetDefault("library.path", defaultLibraryPath())

	v.SetDefault("bus.url", "")
	v.SetDefault("bus.embedded", false)
	v.SetDefault("bus.subject", "studio")

	v.SetDefault("telemetry.metrics_addr", "")
	v.SetDefault("telemetry.tracing", false)
}

func defaultLibraryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "library.db"
	}
	return filepath.Join(home, ".resonate-studio", "library.db")
}

// LoadConfig loads configuration into the global viper instance
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load reads configuration from file and environment variables
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetConfigName("studio")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.resonate-studio")
	v.AddConfigPath("/etc/resonate-studio")

	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		slog.Debug("No config file found, using defaults and environment variables")
	} else {
		slog.Info("Using config file", slog.String("file", v.ConfigFileUsed()))
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration for values the studio cannot run with
func (c *Config) Validate() error {
	switch c.Provider.Kind {
	case "websocket", "gtts", "tone":
	default:
		return &ConfigError{Field: "provider.kind", Message: "must be websocket, gtts or tone"}
	}
	switch c.Playback.Backend {
	case "oto", "speaker", "null":
	default:
		return &ConfigError{Field: "playback.backend", Message: "must be oto, speaker or null"}
	}
	switch c.Export.Format {
	case "opus", "wav":
	default:
		return &ConfigError{Field: "export.format", Message: "must be opus or wav"}
	}
	if c.Export.Bitrate <= 0 {
		return &ConfigError{Field: "export.bitrate", Message: "must be positive"}
	}
	if c.Playback.LookAhead <= 0 {
		return &ConfigError{Field: "playback.lookahead", Message: "must be positive"}
	}
	if c.Playback.BufferThreshold <= 0 {
		return &ConfigError{Field: "playback.buffer_threshold", Message: "must be positive"}
	}
	if c.Playback.PollInterval <= 0 {
		return &ConfigError{Field: "playback.poll_interval", Message: "must be positive"}
	}
	if c.Retry.Attempts < 1 {
		return &ConfigError{Field: "retry.attempts", Message: "must be at least 1"}
	}
	if (c.Bus.URL != "" || c.Bus.Embedded) && c.Bus.Subject == "" {
		return &ConfigError{Field: "bus.subject", Message: "required when the bus is enabled"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
