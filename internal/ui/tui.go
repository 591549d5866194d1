// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channel feeding it external events
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/barosc/barosc-go/internal/calibrate"
)

// Events carries updates from outside the TUI (oscillator callbacks, remote
// control) into the bubbletea loop
type Events struct {
	ch chan tea.Msg
}

// NewEvents creates an event channel
func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, 16)}
}

// Send queues msg without blocking; updates are dropped when the TUI lags
// because each one triggers a full refresh anyway
func (e *Events) Send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	default:
	}
}

// wait returns a command that delivers the next event
func (e *Events) wait() tea.Cmd {
	return func() tea.Msg {
		return <-e.ch
	}
}

// Run creates the TUI program for ctrl
func Run(ctrl Controller, walker *calibrate.Walker, events *Events) *tea.Program {
	return tea.NewProgram(NewModel(ctrl, walker, events), tea.WithAltScreen())
}
