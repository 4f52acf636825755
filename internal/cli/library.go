// ABOUTME: library subcommands
// ABOUTME: List, export, delete and rename stored recordings
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLibraryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage stored recordings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recordings, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, done, err := openEditor(cmd.Context(), opts, true)
				if err != nil {
					return err
				}
				defer done()

				recs, err := a.store.List(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tVOICE\tSTYLE\tDURATION\tCREATED")
				for _, r := range recs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1fs\t%s\n",
						r.ID, r.Title, r.Voice, r.Style, r.Duration, r.Timestamp.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "export <id> <file>",
			Short: "Write a recording to a file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, done, err := openEditor(cmd.Context(), opts, true)
				if err != nil {
					return err
				}
				defer done()

				rec, err := a.store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := os.WriteFile(args[1], rec.Blob, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:     "rm <id>",
			Aliases: []string{"delete"},
			Short:   "Delete a recording",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, done, err := openEditor(cmd.Context(), opts, true)
				if err != nil {
					return err
				}
				defer done()
				return a.store.Delete(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "rename <id> <title>",
			Short: "Rename a recording",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, done, err := openEditor(cmd.Context(), opts, true)
				if err != nil {
					return err
				}
				defer done()
				return a.store.Rename(cmd.Context(), args[0], args[1])
			},
		},
	)
	return cmd
}
