// ABOUTME: speak and play commands
// ABOUTME: Stream synthesis or replay a recording, with or without the TUI
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/resonate-studio/internal/provider"
	"github.com/Resonate-Protocol/resonate-studio/internal/ui"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studio"
)

func newSpeakCmd(opts *rootOptions) *cobra.Command {
	var (
		style     string
		reference string
		out       string
		noTUI     bool
		noSave    bool
	)

	cmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "Synthesize text and play it while it streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := provider.Request{
				Text:  args[0],
				Voice: opts.cfg.Provider.Voice,
				Style: style,
			}
			if req.Style == "" {
				req.Style = opts.cfg.Provider.Style
			}
			if reference != "" {
				data, err := os.ReadFile(reference)
				if err != nil {
					return fmt.Errorf("failed to read reference audio: %w", err)
				}
				req.ReferenceAudio = data
			}

			return runPlayback(cmd, opts, &playbackRun{
				title:  req.Text,
				tui:    !noTUI,
				saveTo: out,
				store:  !noSave,
				start: func(ctx context.Context, e *studio.Engine) error {
					return e.Generate(ctx, req)
				},
				provider: true,
			})
		},
	}

	cmd.Flags().StringVar(&style, "style", "", "speaking style for voice cloning")
	cmd.Flags().StringVar(&reference, "reference", "", "reference audio file enabling voice cloning")
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the recording to this file")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the TUI and stream logs instead")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the recording in the library")
	return cmd
}

func newPlayCmd(opts *rootOptions) *cobra.Command {
	var (
		fromLibrary bool
		noTUI       bool
	)

	cmd := &cobra.Command{
		Use:   "play <file|id>",
		Short: "Play a recording with seeking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run := playbackRun{title: args[0], tui: !noTUI, store: fromLibrary}
			run.start = func(ctx context.Context, e *studio.Engine) error {
				data, err := run.load(ctx, args[0])
				if err != nil {
					return err
				}
				return e.LoadBlob(ctx, data)
			}
			return runPlayback(cmd, opts, &run)
		},
	}

	cmd.Flags().BoolVar(&fromLibrary, "id", false, "treat the argument as a library recording id")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the TUI and stream logs instead")
	return cmd
}

type playbackRun struct {
	title    string
	tui      bool
	provider bool
	store    bool
	saveTo   string
	start    func(ctx context.Context, e *studio.Engine) error

	a *app
}

// load reads a recording from the library when one is open, otherwise from disk
func (r *playbackRun) load(ctx context.Context, arg string) ([]byte, error) {
	if r.a.store != nil {
		rec, err := r.a.store.Get(ctx, arg)
		if err != nil {
			return nil, err
		}
		return rec.Blob, nil
	}
	return os.ReadFile(arg)
}

func runPlayback(cmd *cobra.Command, opts *rootOptions, run *playbackRun) error {
	logOut, closer, err := opts.setupLogging(run.tui)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var feed *ui.Feed
	appOpts := appOptions{
		provider: run.provider,
		playback: true,
		library:  run.store,
		saveTo:   run.saveTo,
	}
	if run.tui {
		feed = ui.NewFeed()
		appOpts.observers = append(appOpts.observers, feed)
	}

	a, err := newApp(ctx, opts.cfg, logOut, appOpts)
	if err != nil {
		return err
	}
	defer a.Close()
	run.a = a

	errCh := make(chan error, 1)
	go func() { errCh <- run.start(ctx, a.engine) }()

	if run.tui {
		uiErr := ui.Run(a.engine, feed, run.title)
		a.engine.Stop()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return uiErr
	}

	for {
		select {
		case err := <-errCh:
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			errCh = nil
		case <-a.idle.Done():
			if errCh != nil {
				if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Playback finished")
			return nil
		case <-ctx.Done():
			a.engine.Stop()
			return nil
		}
	}
}
