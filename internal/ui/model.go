// ABOUTME: Bubbletea model for the oscillator menu
// ABOUTME: Start/stop, volume and frequency sliders, wave selection and octave walks
package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/barosc/barosc-go/internal/calibrate"
	"github.com/barosc/barosc-go/internal/display"
	"github.com/barosc/barosc-go/pkg/oscillator"
	"github.com/barosc/barosc-go/pkg/waveform"
)

// Slider steps
const (
	volumeStep     = 0.05
	volumeFineStep = 0.01
	// one hundredth of the 20 Hz - 20 kHz slider
	frequencyStep     = 997.0
	frequencyFineStep = 100.0
)

// Controller is the oscillator as seen by the menu
type Controller interface {
	calibrate.Tuner
	SetAmplitude(a float64) error
}

// item is one menu row
type item int

const (
	itemPlay item = iota
	itemVolume
	itemSine
	itemSquare
	itemWhite
	itemPink
	itemFrequency
	itemOctaveWalk
	itemThirdOctaveWalk
	itemQuit
	itemCount
)

// StateMsg tells the model the oscillator state changed; the model reloads
// everything from the controller
type StateMsg struct {
	State oscillator.State
}

// ErrorMsg reports an error to show in the status line
type ErrorMsg struct {
	Err error
}

// StepMsg reports the octave walk step now playing
type StepMsg calibrate.Step

// WalkDoneMsg reports the end of an octave walk
type WalkDoneMsg struct {
	Err error
}

// Model represents the TUI state
type Model struct {
	ctrl   Controller
	walker *calibrate.Walker
	events *Events

	cursor item
	state  oscillator.State
	params oscillator.Parameters

	walkMode calibrate.Mode
	status   string
	err      error

	quitting bool
	width    int
	height   int
}

// NewModel creates a menu over ctrl
func NewModel(ctrl Controller, walker *calibrate.Walker, events *Events) Model {
	if events == nil {
		events = NewEvents()
	}
	m := Model{
		ctrl:   ctrl,
		walker: walker,
		events: events,
	}
	m.refresh()
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.events.wait()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StateMsg:
		m.refresh()

	case ErrorMsg:
		m.refresh()
		m.err = msg.Err

	case StepMsg:
		m.refresh()
		m.status = fmt.Sprintf("%s: %s", msg.Mode, display.FrequencyTitle(msg.Frequency))

	case WalkDoneMsg:
		m.refresh()
		m.status = ""
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
	}

	return m, m.events.wait()
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping oscillator...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	cursorStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	disabledStyle := lipgloss.NewStyle().Faint(true)

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("220"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("Bar Osc"))
	b.WriteString("\n")

	for i := item(0); i < itemCount; i++ {
		if i == itemSine || i == itemFrequency || i == itemOctaveWalk || i == itemQuit {
			b.WriteString("\n")
		}

		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		label := m.label(i)
		if !m.enabled(i) {
			label = disabledStyle.Render(label)
		}
		b.WriteString(prefix + label + "\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(disabledStyle.Render("↑/↓:Select  ←/→:Adjust  shift:Fine  enter:Choose  q:Quit"))
	b.WriteString("\n")

	return b.String()
}

// label renders the text of a menu row
func (m Model) label(i item) string {
	switch i {
	case itemPlay:
		if m.state == oscillator.Playing {
			return "Stop"
		}
		return "Start"
	case itemVolume:
		return fmt.Sprintf("%s  [%s]", display.AmplitudeTitle(m.params.Amplitude),
			renderBar(m.params.Amplitude, 20))
	case itemSine, itemSquare, itemWhite, itemPink:
		w := waveOf(i)
		if w == m.params.WaveType {
			return "• " + w.Title()
		}
		return "  " + w.Title()
	case itemFrequency:
		pos := (display.FrequencyToSlider(m.params.Frequency) - display.SliderMin) /
			(display.SliderMax - display.SliderMin)
		return fmt.Sprintf("%s  [%s]", display.FrequencyTitle(m.params.Frequency), renderBar(pos, 20))
	case itemOctaveWalk:
		if m.walking() && m.walkMode == calibrate.Octaves {
			return "Stop " + calibrate.Octaves.String()
		}
		return calibrate.Octaves.String()
	case itemThirdOctaveWalk:
		if m.walking() && m.walkMode == calibrate.ThirdOctaves {
			return "Stop " + calibrate.ThirdOctaves.String()
		}
		return calibrate.ThirdOctaves.String()
	case itemQuit:
		return "Quit"
	}
	return ""
}

// enabled reports whether a row can be chosen
func (m Model) enabled(i item) bool {
	switch i {
	case itemSine, itemSquare, itemWhite, itemPink:
		return !m.walking() && waveOf(i) != m.params.WaveType
	case itemPlay, itemFrequency:
		return !m.walking()
	case itemOctaveWalk:
		return !m.walking() || m.walkMode == calibrate.Octaves
	case itemThirdOctaveWalk:
		return !m.walking() || m.walkMode == calibrate.ThirdOctaves
	}
	return true
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()
	case "up", "k":
		m.cursor = (m.cursor + itemCount - 1) % itemCount
	case "down", "j":
		m.cursor = (m.cursor + 1) % itemCount
	case "left":
		m.adjust(-1, false)
	case "right":
		m.adjust(1, false)
	case "shift+left":
		m.adjust(-1, true)
	case "shift+right":
		m.adjust(1, true)
	case "enter", " ":
		if !m.enabled(m.cursor) {
			return m, nil
		}
		return m.choose()
	}
	return m, nil
}

// adjust moves the slider under the cursor
func (m *Model) adjust(dir float64, fine bool) {
	if !m.enabled(m.cursor) {
		return
	}

	switch m.cursor {
	case itemVolume:
		step := volumeStep
		if fine {
			step = volumeFineStep
		}
		// round to the step grid so repeated presses land on clean values
		a := math.Round((m.params.Amplitude+dir*step)/volumeFineStep) * volumeFineStep
		a = min(max(a, oscillator.MinAmplitude), oscillator.MaxAmplitude)
		m.setErr(m.ctrl.SetAmplitude(a))

	case itemFrequency:
		step := frequencyStep
		if fine {
			step = frequencyFineStep
		}
		pos := display.FrequencyToSlider(m.params.Frequency) + dir*step
		pos = min(max(pos, display.SliderMin), display.SliderMax)
		m.setErr(m.ctrl.SetFrequency(display.SliderToFrequency(pos)))
	}
	m.refresh()
}

// choose activates the row under the cursor
func (m Model) choose() (tea.Model, tea.Cmd) {
	switch m.cursor {
	case itemPlay:
		if m.state == oscillator.Playing {
			m.ctrl.Stop()
			m.err = nil
		} else {
			m.setErr(m.ctrl.Start())
		}
	case itemSine, itemSquare, itemWhite, itemPink:
		m.setErr(m.ctrl.SetWaveType(waveOf(m.cursor)))
	case itemOctaveWalk:
		m.toggleWalk(calibrate.Octaves)
	case itemThirdOctaveWalk:
		m.toggleWalk(calibrate.ThirdOctaves)
	case itemQuit:
		return m.quit()
	}
	m.refresh()
	return m, nil
}

func (m *Model) toggleWalk(mode calibrate.Mode) {
	if m.walker == nil {
		return
	}
	if m.walker.Running() {
		m.walker.Cancel()
		m.status = ""
		return
	}

	events := m.events
	err := m.walker.Begin(calibrate.Config{
		Mode:   mode,
		OnStep: func(s calibrate.Step) { events.Send(StepMsg(s)) },
	}, func(err error) {
		events.Send(WalkDoneMsg{Err: err})
	})
	if err != nil {
		m.err = err
		return
	}
	m.walkMode = mode
	m.err = nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.walker != nil {
		m.walker.Cancel()
	}
	m.ctrl.Stop()
	m.quitting = true
	return m, tea.Quit
}

// refresh reloads state and parameters from the controller
func (m *Model) refresh() {
	m.state = m.ctrl.State()
	m.params = m.ctrl.Parameters()
}

func (m *Model) setErr(err error) {
	m.err = err
}

func (m Model) walking() bool {
	return m.walker != nil && m.walker.Running()
}

func waveOf(i item) waveform.WaveType {
	return waveform.WaveTypes[i-itemSine]
}

// renderBar draws a fill bar for a value in [0, 1]
func renderBar(value float64, width int) string {
	filled := int(math.Round(value * float64(width)))
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
