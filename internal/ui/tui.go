// ABOUTME: TUI initialization and snapshot feed
// ABOUTME: Wraps the bubbletea program for the studio player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-studio/pkg/studio"
)

// Feed hands engine snapshots to the TUI without blocking the engine
type Feed struct {
	ch chan studio.Snapshot
}

// NewFeed creates a feed holding up to 16 pending snapshots
func NewFeed() *Feed {
	return &Feed{ch: make(chan studio.Snapshot, 16)}
}

// Publish queues s, discarding the oldest pending snapshot when full
func (f *Feed) Publish(s studio.Snapshot) {
	for {
		select {
		case f.ch <- s:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// Next waits for the next snapshot
func (f *Feed) Next() tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		return StatusMsg{<-f.ch}
	}
}

// NewModel creates a new TUI model
func NewModel(controls Controls, feed *Feed, title string) Model {
	return Model{
		controls: controls,
		feed:     feed,
		title:    title,
		state:    studio.Idle.String(),
		volume:   100,
	}
}

// Run shows the TUI until the user quits
func Run(controls Controls, feed *Feed, title string) error {
	p := tea.NewProgram(NewModel(controls, feed, title), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
