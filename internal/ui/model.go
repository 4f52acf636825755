// ABOUTME: Bubbletea model for the studio TUI
// ABOUTME: Renders engine snapshots and maps keys onto transport controls
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studio"
)

const (
	seekStep = 5.0

	meterInterval = 100 * time.Millisecond
	meterBands    = 16
)

var spectrumGlyphs = []rune(" ▁▂▃▄▅▆▇█")

// Controls is the engine surface driven from the keyboard
type Controls interface {
	Play() error
	Pause()
	Stop()
	Seek(t float64) error
	SetVolume(volume int)
	SetMuted(muted bool)
	Levels() output.Levels
	FrequencyData(bands int) []float64
}

// Model represents the TUI state
type Model struct {
	controls Controls
	feed     *Feed
	title    string

	// Engine
	state      string
	playing    bool
	buffering  bool
	generating bool
	loaded     bool
	progress   float64
	duration   float64

	// Output
	volume   int
	muted    bool
	levels   output.Levels
	spectrum []float64

	lastErr string

	// Dimensions
	width  int
	height int
}

// StatusMsg carries a new engine snapshot
type StatusMsg struct {
	studio.Snapshot
}

type errMsg struct{ err error }

// meterMsg carries one reading of the output analyser
type meterMsg struct {
	levels   output.Levels
	spectrum []float64
}

// Init starts listening for snapshots and polling the meter
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.feed.Next(), m.meter())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
		return m, m.feed.Next()
	case meterMsg:
		m.levels = msg.levels
		m.spectrum = msg.spectrum
		return m, m.meter()
	case errMsg:
		m.lastErr = msg.err.Error()
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderProgress())
	b.WriteString(m.renderControls())
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.title
	if title == "" {
		title = "(untitled)"
	}

	var flags []string
	if m.generating {
		flags = append(flags, "generating")
	}
	if m.buffering {
		flags = append(flags, "buffering")
	}
	status := m.state
	if len(flags) > 0 {
		status += " [" + strings.Join(flags, ", ") + "]"
	}

	return fmt.Sprintf(`┌─ Resonate Studio ────────────────────────────────────┐
│ Title:  %-44s │
│ State:  %-44s │
├──────────────────────────────────────────────────────┤
`, truncate(title, 44), truncate(status, 44))
}

func (m Model) renderProgress() string {
	icon := "⏸"
	if m.playing {
		icon = "▶"
	}
	return fmt.Sprintf("│ %s [%s] %s / %s │\n",
		icon, renderBar(m.progress, m.duration, 30), formatTime(m.progress), formatTime(m.duration))
}

func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " 🔇"
	}

	s := fmt.Sprintf("│ Volume: [%s] %3d%%%s%-27s │\n",
		renderBar(float64(m.volume), 100, 10), m.volume, muteIcon, "")
	s += fmt.Sprintf("│ Level:  [%s] %s%-15s │\n",
		renderBar(m.levels.Peak, 1, 10), renderSpectrum(m.spectrum, meterBands), "")
	if m.lastErr != "" {
		s += fmt.Sprintf("│ Error:  %-44s │\n", truncate(m.lastErr, 44))
	}
	return s
}

func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Play/Pause  s:Stop  ←/→:Seek  ↑/↓:Volume  q:Quit │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "space":
		if m.playing {
			return m, m.do(func(c Controls) error { c.Pause(); return nil })
		}
		return m, m.do(func(c Controls) error { return c.Play() })
	case "s":
		return m, m.do(func(c Controls) error { c.Stop(); return nil })
	case "left":
		target := max(0, m.progress-seekStep)
		return m, m.do(func(c Controls) error { return c.Seek(target) })
	case "right":
		target := min(m.duration, m.progress+seekStep)
		return m, m.do(func(c Controls) error { return c.Seek(target) })
	case "up":
		m.volume = min(100, m.volume+5)
		volume := m.volume
		return m, m.do(func(c Controls) error { c.SetVolume(volume); return nil })
	case "down":
		m.volume = max(0, m.volume-5)
		volume := m.volume
		return m, m.do(func(c Controls) error { c.SetVolume(volume); return nil })
	case "m":
		m.muted = !m.muted
		muted := m.muted
		return m, m.do(func(c Controls) error { c.SetMuted(muted); return nil })
	}

	return m, nil
}

// do runs a control call off the update loop, since engine calls take its lock
func (m Model) do(fn func(Controls) error) tea.Cmd {
	if m.controls == nil {
		return nil
	}
	c := m.controls
	return func() tea.Msg {
		if err := fn(c); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// meter reads the analyser after meterInterval
func (m Model) meter() tea.Cmd {
	if m.controls == nil {
		return nil
	}
	c := m.controls
	return tea.Tick(meterInterval, func(time.Time) tea.Msg {
		return meterMsg{levels: c.Levels(), spectrum: c.FrequencyData(meterBands)}
	})
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.state = msg.State
	m.playing = msg.IsPlaying
	m.buffering = msg.IsBuffering
	m.generating = msg.IsGenerating
	m.loaded = msg.Transport.Loaded()
	m.progress = msg.Progress
	m.duration = msg.Duration
	if msg.IsPlaying {
		m.lastErr = ""
	}
}

func renderBar(value, total float64, width int) string {
	filled := 0
	if total > 0 {
		filled = int(value / total * float64(width))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// renderSpectrum draws one glyph per band, padded to width
func renderSpectrum(bands []float64, width int) string {
	top := len(spectrumGlyphs) - 1
	var b strings.Builder
	for i := range width {
		level := 0
		if i < len(bands) {
			level = min(max(int(bands[i]*float64(top)+0.5), 0), top)
		}
		b.WriteRune(spectrumGlyphs[level])
	}
	return b.String()
}

func formatTime(seconds float64) string {
	s := int(max(seconds, 0))
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
