// Package ui implements the live tuner's Bubbletea terminal display.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwbudde/algo-tuner/tuner"
)

// Snapshot is one processed frame as delivered to the display.
type Snapshot struct {
	Reading    tuner.Reading
	Samples    []float32
	SampleRate float64
}

// ErrMsg reports a fatal error from the capture loop.
type ErrMsg struct{ Err error }

type sourceDoneMsg struct{}

// Model is the Bubbletea model for the tuner display.
type Model struct {
	snapshots <-chan Snapshot
	spectrum  *Spectrum
	bands     [numBands]float64
	last      tuner.Reading
	held      tuner.Reading // last detected reading, kept through silent frames
	seen      bool
	err       error
	quitting  bool
	width     int
}

// NewModel creates a Model that renders every Snapshot received on ch. The
// program quits when ch is closed.
func NewModel(ch <-chan Snapshot) Model {
	return Model{
		snapshots: ch,
		spectrum:  NewSpectrum(),
	}
}

// Init starts waiting for the first snapshot.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.snapshots), tea.WindowSize())
}

func waitForSnapshot(ch <-chan Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return sourceDoneMsg{}
		}
		return s
	}
}

// Update handles key presses, resizes, snapshots and errors.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case Snapshot:
		m.last = msg.Reading
		m.seen = true
		if msg.Reading.Estimate.Detected {
			m.held = msg.Reading
		}
		m.bands = m.spectrum.Analyze(msg.Samples, msg.SampleRate)
		return m, waitForSnapshot(m.snapshots)

	case ErrMsg:
		m.err = msg.Err
		return m, tea.Quit

	case sourceDoneMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// Err returns the error that stopped the display, if any.
func (m Model) Err() error { return m.err }
