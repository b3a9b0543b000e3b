// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the tone player UI
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// QuitMsg is sent on Control.Quit when the user leaves the TUI
type QuitMsg struct{}

// Control holds channels for communication from the TUI to the player
type Control struct {
	Quit chan QuitMsg
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Quit: make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control, duration time.Duration) Model {
	return Model{
		state:    "idle",
		duration: duration,
		ctrl:     ctrl,
	}
}

// Run creates the TUI program; the caller starts it with Run
func Run(ctrl *Control, duration time.Duration) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl, duration), tea.WithAltScreen())
	return p, nil
}
