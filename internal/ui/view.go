package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cwbudde/algo-tuner/note"
	"github.com/cwbudde/algo-tuner/tuner"
)

const (
	panelWidth = 60
	gaugeWidth = 45 // odd so the center tick sits on a column

	frameOverhead = 6 // border (2) + padding (2x2)

	inTuneHz = 0.5
	closeHz  = 5.0
)

// View renders the display.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		titleStyle.Render("TUNER"),
		"",
		m.renderNote(),
		"",
		m.renderGauge(),
		"",
		renderSpectrum(m.bands, m.spectrumWidth()),
		"",
		m.renderStatus(),
	}
	return frameStyle.Render(strings.Join(sections, "\n"))
}

// spectrumWidth shrinks the strip on terminals narrower than the frame.
func (m Model) spectrumWidth() int {
	if m.width <= 0 {
		return panelWidth
	}
	return max(numBands, min(panelWidth, m.width-frameOverhead))
}

func (m Model) renderNote() string {
	if !m.seen {
		return dimStyle.Render("waiting for audio...")
	}
	if !m.held.Estimate.Detected {
		return dimStyle.Render("listening")
	}
	r := m.held
	if !m.last.Estimate.Detected {
		return lipgloss.JoinHorizontal(lipgloss.Center,
			noteStyle.Foreground(colorDim).Render(r.Match.Note.Name),
			"  ",
			dimStyle.Render(readingText(r)+"  (held)"),
		)
	}
	style := noteStyle.Foreground(tuneColor(r.Match.DeviationHz))
	return lipgloss.JoinHorizontal(lipgloss.Center,
		style.Render(r.Match.Note.Name),
		"  ",
		textStyle.Render(readingText(r)),
	)
}

func (m Model) renderGauge() string {
	deflection := 0.0
	color := colorDim
	if m.held.Estimate.Detected {
		deflection = m.held.Match.DeflectionDegrees
		if m.last.Estimate.Detected {
			color = tuneColor(m.held.Match.DeviationHz)
		}
	}
	line := lipgloss.NewStyle().Foreground(color).Render(needleLine(deflection, gaugeWidth))
	scale := gaugeScale(gaugeWidth)
	return lipgloss.JoinVertical(lipgloss.Center, line, dimStyle.Render(scale))
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("error: " + m.err.Error())
	}
	rms := fmt.Sprintf("frame %d  rms %.3f", m.last.Seq, m.last.Estimate.RMS)
	return dimStyle.Render(rms) + "   " + helpStyle.Render("q quit")
}

// readingText formats the detected frequency and deviation from the matched
// reference.
func readingText(r tuner.Reading) string {
	return fmt.Sprintf("%7.2f Hz  %+6.2f Hz  %+5.0f cents",
		r.Estimate.FrequencyHz, r.Match.DeviationHz, r.Match.Cents)
}

// needleLine draws a horizontal gauge of width columns with a marker at the
// position of deflection degrees, from -MaxDeflection at the left edge to
// +MaxDeflection at the right edge.
func needleLine(deflection float64, width int) string {
	if width < 3 {
		return ""
	}
	if width%2 == 0 {
		width--
	}
	center := width / 2
	if math.IsNaN(deflection) {
		deflection = 0
	}
	deflection = max(-note.MaxDeflection, min(note.MaxDeflection, deflection))
	pos := center + int(math.Round(deflection/note.MaxDeflection*float64(center)))

	cells := make([]rune, width)
	for i := range cells {
		cells[i] = '─'
	}
	cells[center] = '┼'
	cells[pos] = '█'
	return string(cells)
}

// gaugeScale labels both ends and the center of a gauge of width columns.
func gaugeScale(width int) string {
	if width%2 == 0 {
		width--
	}
	left := fmt.Sprintf("-%.0f", note.MaxDeflection)
	right := fmt.Sprintf("+%.0f", note.MaxDeflection)
	center := width / 2
	gap := max(1, center-len(left))
	rest := max(1, width-len(left)-gap-1-len(right))
	return left + strings.Repeat(" ", gap) + "0" + strings.Repeat(" ", rest) + right
}
