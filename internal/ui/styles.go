package ui

import "github.com/charmbracelet/lipgloss"

// Standard ANSI colors (0-15) so the display follows the terminal theme.
var (
	colorBorder = lipgloss.ANSIColor(8)  // bright black
	colorTitle  = lipgloss.ANSIColor(10) // bright green
	colorText   = lipgloss.ANSIColor(7)  // white
	colorDim    = lipgloss.ANSIColor(8)
	colorInTune = lipgloss.ANSIColor(10)
	colorClose  = lipgloss.ANSIColor(11) // bright yellow
	colorOff    = lipgloss.ANSIColor(9)  // bright red

	spectrumLow  = lipgloss.ANSIColor(10)
	spectrumMid  = lipgloss.ANSIColor(11)
	spectrumHigh = lipgloss.ANSIColor(9)
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2).
			Width(panelWidth + frameOverhead)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorTitle).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	textStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorOff)

	specLowStyle  = lipgloss.NewStyle().Foreground(spectrumLow)
	specMidStyle  = lipgloss.NewStyle().Foreground(spectrumMid)
	specHighStyle = lipgloss.NewStyle().Foreground(spectrumHigh)
)

// tuneColor picks the needle color for a deviation in Hz.
func tuneColor(diffHz float64) lipgloss.ANSIColor {
	if diffHz < 0 {
		diffHz = -diffHz
	}
	switch {
	case diffHz <= inTuneHz:
		return colorInTune
	case diffHz <= closeHz:
		return colorClose
	}
	return colorOff
}
