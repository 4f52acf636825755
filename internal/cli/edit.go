// ABOUTME: trim and merge commands
// ABOUTME: Offline edits of recording files, optionally stored in the library
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/edit"
)

// editOutput writes an edit result and optionally saves it to the library
type editOutput struct {
	save string
}

func (o *editOutput) flags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.save, "save", "", "also store the result in the library under this title")
}

func (o *editOutput) write(ctx context.Context, cmd *cobra.Command, opts *rootOptions, a *app, path string, blob []byte, buf *audio.Buffer) error {
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%.2fs)\n", path, buf.Duration())

	if o.save == "" {
		return nil
	}
	rec, err := a.engine.SaveBuffer(ctx, buf, o.save, opts.cfg.Provider.Voice, "Edited")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", rec.ID)
	return nil
}

// openEditor sets up logging and an engine without a device
func openEditor(ctx context.Context, opts *rootOptions, withLibrary bool) (*app, func(), error) {
	logOut, closer, err := opts.setupLogging(true)
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(ctx, opts.cfg, logOut, appOptions{library: withLibrary})
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return a, func() { a.Close(); closer.Close() }, nil
}

func newTrimCmd(opts *rootOptions) *cobra.Command {
	var (
		start, end float64
		out        editOutput
	)

	cmd := &cobra.Command{
		Use:   "trim <in> <out>",
		Short: "Keep the part of a recording between --start and --end",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			a, done, err := openEditor(ctx, opts, out.save != "")
			if err != nil {
				return err
			}
			defer done()

			blob, buf, err := a.engine.TrimBlob(ctx, data, start, end)
			if err != nil {
				return err
			}
			return out.write(ctx, cmd, opts, a, args[1], blob, buf)
		},
	}

	cmd.Flags().Float64Var(&start, "start", 0, "start time in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "end time in seconds")
	cmd.MarkFlagRequired("end")
	out.flags(cmd)
	return cmd
}

func newMergeCmd(opts *rootOptions) *cobra.Command {
	var (
		mode       string
		transition float64
		out        editOutput
	)

	cmd := &cobra.Command{
		Use:   "merge <out> <in> <in>...",
		Short: "Join recordings with a gap or a crossfade",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := edit.ParseMode(mode)
			if err != nil {
				return err
			}

			blobs := make([][]byte, 0, len(args)-1)
			for _, path := range args[1:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				blobs = append(blobs, data)
			}

			a, done, err := openEditor(ctx, opts, out.save != "")
			if err != nil {
				return err
			}
			defer done()

			blob, buf, err := a.engine.MergeBlobs(ctx, blobs, m, transition)
			if err != nil {
				return err
			}
			return out.write(ctx, cmd, opts, a, args[0], blob, buf)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(edit.ModeGap), "join mode (gap, crossfade)")
	cmd.Flags().Float64Var(&transition, "transition", edit.DefaultTransition, "gap or crossfade length in seconds")
	out.flags(cmd)
	return cmd
}
