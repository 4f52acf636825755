// ABOUTME: Root cobra command for the studio CLI
// ABOUTME: Binds global flags onto viper and loads configuration before every command
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Resonate-Protocol/resonate-studio/internal/config"
	"github.com/Resonate-Protocol/resonate-studio/internal/logger"
)

// rootOptions is shared by every subcommand
type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	cfg     *config.Config
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree with its own viper instance
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "studio",
		Short: "A streaming text-to-speech audio studio",
		Long: `Studio streams synthesized speech from a TTS provider, plays it back while
it is still being generated, and keeps every recording in a local library.

Recordings can be replayed with seeking, trimmed, merged and exported.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./studio.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.String("provider", "websocket", "tts provider (websocket, gtts, tone)")
	flags.String("url", "", "websocket provider URL (discovered over mDNS when empty)")
	flags.String("api-key", "", "websocket provider API key")
	flags.String("voice", "en-US", "voice name")
	flags.String("backend", "oto", "audio backend (oto, speaker, null)")
	flags.String("format", "opus", "export format (opus, wav)")
	flags.String("library", "", "library database path")
	flags.String("log-file", "", "log file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	bind := map[string]string{
		"provider.kind":    "provider",
		"provider.url":     "url",
		"provider.api_key": "api-key",
		"provider.voice":   "voice",
		"playback.backend": "backend",
		"export.format":    "format",
		"library.path":     "library",
		"logging.file":     "log-file",
		"logging.level":    "log-level",
		"logging.format":   "log-format",
	}
	for key, name := range bind {
		opts.v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newSpeakCmd(opts),
		newPlayCmd(opts),
		newTrimCmd(opts),
		newMergeCmd(opts),
		newLibraryCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads configuration from file, environment and flags
func (o *rootOptions) load() error {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	}
	if o.verbose {
		o.v.Set("logging.level", "debug")
	}

	cfg, err := config.Load(o.v)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	o.cfg = cfg
	return nil
}

// setupLogging points the global logger at the log file, and at stdout unless quiet
func (o *rootOptions) setupLogging(quiet bool) (io.Writer, io.Closer, error) {
	w, closer, err := logger.OpenFile(o.cfg.Logging.File, quiet)
	if err != nil {
		return nil, nil, err
	}
	logger.Setup(w, o.cfg.Logging.Level, o.cfg.Logging.Format)
	return w, closer, nil
}
