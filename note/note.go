// Package note maps a frequency estimate to the closest entry of a reference
// tuning table and derives the needle deflection shown by a tuner display.
package note

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for an empty or malformed reference table and
// for non-finite frequencies.
var ErrInvalidInput = errors.New("note: invalid input")

const (
	// DegreesPerHz is the display sensitivity: needle degrees per Hz of
	// deviation from the reference.
	DegreesPerHz = 2.0

	// MaxDeflection bounds the needle angle in both directions.
	MaxDeflection = 45.0
)

// Reference is one entry of a tuning table.
type Reference struct {
	Name        string  `json:"name"`
	FrequencyHz float64 `json:"frequency_hz"`
}

// Table is an ordered reference tuning. Order matters: ties resolve to the
// earlier entry.
type Table []Reference

// standardGuitar is E standard tuning, low string first.
var standardGuitar = [...]Reference{
	{Name: "E", FrequencyHz: 82.41},
	{Name: "A", FrequencyHz: 110.00},
	{Name: "D", FrequencyHz: 146.83},
	{Name: "G", FrequencyHz: 196.00},
	{Name: "B", FrequencyHz: 246.94},
	{Name: "E", FrequencyHz: 329.63},
}

// StandardGuitar returns a copy of the six-string standard tuning table.
func StandardGuitar() Table {
	return append(Table(nil), standardGuitar[:]...)
}

// NewTable copies refs into a validated Table.
func NewTable(refs ...Reference) (Table, error) {
	t := append(Table(nil), refs...)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate reports whether t is usable by Closest.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: empty reference table", ErrInvalidInput)
	}
	for i, r := range t {
		if !(r.FrequencyHz > 0) || math.IsInf(r.FrequencyHz, 0) {
			return fmt.Errorf("%w: table[%d] (%q) frequency must be > 0, got %v", ErrInvalidInput, i, r.Name, r.FrequencyHz)
		}
	}
	return nil
}

// Match is the closest reference for a frequency.
type Match struct {
	Note              Reference `json:"note"`
	Index             int       `json:"index"`
	DeviationHz       float64   `json:"deviation_hz"`
	DeflectionDegrees float64   `json:"deflection_degrees"`
	Cents             float64   `json:"cents"`
}

// Closest returns the entry of table nearest to frequencyHz together with the
// clamped needle deflection. The first entry is the initial candidate and is
// only replaced by a strictly closer one.
func Closest(frequencyHz float64, table Table) (Match, error) {
	if len(table) == 0 {
		return Match{}, fmt.Errorf("%w: empty reference table", ErrInvalidInput)
	}
	if math.IsNaN(frequencyHz) || math.IsInf(frequencyHz, 0) {
		return Match{}, fmt.Errorf("%w: frequency must be finite, got %v", ErrInvalidInput, frequencyHz)
	}

	best := 0
	bestDist := math.Abs(table[0].FrequencyHz - frequencyHz)
	for i := 1; i < len(table); i++ {
		d := math.Abs(table[i].FrequencyHz - frequencyHz)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}

	ref := table[best]
	diff := frequencyHz - ref.FrequencyHz
	m := Match{
		Note:              ref,
		Index:             best,
		DeviationHz:       diff,
		DeflectionDegrees: Deflection(diff),
	}
	if frequencyHz > 0 && ref.FrequencyHz > 0 {
		m.Cents = 1200 * math.Log2(frequencyHz/ref.FrequencyHz)
	}
	return m, nil
}

// Deflection converts a deviation in Hz to a needle angle in degrees,
// clamped to [-MaxDeflection, MaxDeflection].
func Deflection(diffHz float64) float64 {
	angle := diffHz * DegreesPerHz
	if angle > MaxDeflection {
		return MaxDeflection
	}
	if angle < -MaxDeflection {
		return -MaxDeflection
	}
	return angle
}

// String formats the match as "A +1.5 Hz".
func (m Match) String() string {
	return fmt.Sprintf("%s %+.1f Hz", m.Note.Name, m.DeviationHz)
}
