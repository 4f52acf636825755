// ABOUTME: config subcommands
// ABOUTME: Validate and display the effective configuration
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Validate configuration",
			Long:  "Validate the current configuration file, environment variables and flags.",
			RunE: func(cmd *cobra.Command, args []string) error {
				// load already validated
				fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration is valid")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show current configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := opts.cfg
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Current Configuration:")
				fmt.Fprintf(out, "  Provider:\n")
				fmt.Fprintf(out, "    Kind: %s\n", cfg.Provider.Kind)
				fmt.Fprintf(out, "    URL: %s\n", cfg.Provider.URL)
				fmt.Fprintf(out, "    API Key: %s\n", maskToken(cfg.Provider.APIKey))
				fmt.Fprintf(out, "    Voice: %s\n", cfg.Provider.Voice)
				fmt.Fprintf(out, "  Playback:\n")
				fmt.Fprintf(out, "    Backend: %s\n", cfg.Playback.Backend)
				fmt.Fprintf(out, "    Buffer Threshold: %.1fs\n", cfg.Playback.BufferThreshold)
				fmt.Fprintf(out, "  Export:\n")
				fmt.Fprintf(out, "    Format: %s (%d bps)\n", cfg.Export.Format, cfg.Export.Bitrate)
				fmt.Fprintf(out, "  Library: %s\n", cfg.Library.Path)
				fmt.Fprintf(out, "  Logging:\n")
				fmt.Fprintf(out, "    Level: %s\n", cfg.Logging.Level)
				fmt.Fprintf(out, "    Format: %s\n", cfg.Logging.Format)
				return nil
			},
		},
	)
	return cmd
}

// maskToken masks an API key for display
func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}
