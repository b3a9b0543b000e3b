// ABOUTME: Bubbletea model for the tone player TUI
// ABOUTME: Defines display state and update logic
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Stream
	backend string
	device  string
	format  string
	chord   string
	freqs   []float64

	// Playback
	state    string
	duration time.Duration
	played   time.Duration

	// Stats
	frames       uint64
	callbacks    uint64
	clamped      uint64
	streamErrors uint64
	lastError    string

	// Debug
	showDebug  bool
	goroutines int
	memAlloc   uint64

	ctrl *Control

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StreamMsg:
		m.applyStream(msg)
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderProgress()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

func (m Model) renderHeader() string {
	return fmt.Sprintf(`┌─ Tone Generator ─────────────────────────────────────┐
│ State:   %-43s │
├──────────────────────────────────────────────────────┤
`, m.state)
}

func (m Model) renderStreamInfo() string {
	if m.backend == "" {
		return "│ No stream                                            │\n"
	}

	s := fmt.Sprintf("│ Output:  %-43s │\n", truncate(m.backend+" / "+m.device, 43))
	s += fmt.Sprintf("│ Format:  %-43s │\n", truncate(m.format, 43))
	s += fmt.Sprintf("│ Chord:   %-43s │\n", truncate(m.chord, 43))
	s += fmt.Sprintf("│ Freqs:   %-43s │\n", truncate(formatFreqs(m.freqs), 43))
	return s
}

func (m Model) renderProgress() string {
	total := m.duration.Milliseconds()
	if total <= 0 {
		total = 1
	}
	played := min(m.played.Milliseconds(), total)

	return fmt.Sprintf("│                                                      │\n"+
		"│ [%s] %5.1fs / %4.1fs  │\n",
		renderBar(int(played), int(total), 30), m.played.Seconds(), m.duration.Seconds())
}

func (m Model) renderStats() string {
	s := fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Frames: %-10d Callbacks: %-8d Clamped: %-6d │
│ Errors: %-44d │
`, m.frames, m.callbacks, m.clamped, m.streamErrors)
	if m.lastError != "" {
		s += fmt.Sprintf("│   last: %-44s │\n", truncate(m.lastError, 44))
	}
	return s
}

func (m Model) renderHelp() string {
	return `│ d:Debug  q:Quit                                      │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Goroutines: %-38d │
│   Heap: %-44s │
`, m.goroutines, formatBytes(m.memAlloc))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.ctrl != nil {
			select {
			case m.ctrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// StreamMsg describes the opened stream; sent once after setup
type StreamMsg struct {
	Backend string
	Device  string
	Format  string
	Chord   string
	Freqs   []float64
}

func (m *Model) applyStream(msg StreamMsg) {
	m.backend = msg.Backend
	m.device = msg.Device
	m.format = msg.Format
	m.chord = msg.Chord
	m.freqs = msg.Freqs
}

// StatusMsg carries periodic playback statistics
type StatusMsg struct {
	State        string
	PlayedFor    time.Duration
	Frames       uint64
	Callbacks    uint64
	Clamped      uint64
	StreamErrors uint64
	LastError    string
	Goroutines   int
	MemAlloc     uint64
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.PlayedFor != 0 {
		m.played = msg.PlayedFor
	}
	if msg.Frames != 0 {
		m.frames = msg.Frames
		m.callbacks = msg.Callbacks
		m.clamped = msg.Clamped
	}
	if msg.StreamErrors != 0 {
		m.streamErrors = msg.StreamErrors
	}
	if msg.LastError != "" {
		m.lastError = msg.LastError
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatFreqs(freqs []float64) string {
	parts := make([]string, len(freqs))
	for i, f := range freqs {
		parts[i] = fmt.Sprintf("%.3f", f)
	}
	return strings.Join(parts, " ") + " Hz"
}

func formatBytes(b uint64) string {
	const mb = 1024 * 1024
	return fmt.Sprintf("%.1f MB", float64(b)/mb)
}
