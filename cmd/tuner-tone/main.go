package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
	"github.com/cwbudde/algo-tuner/internal/audiofile"
	"github.com/cwbudde/algo-tuner/note"
)

func main() {
	output := flag.String("output", "out/tone.wav", "Output WAV path")
	noteName := flag.String("note", "", "Standard tuning note: E2 A2 D3 G3 B3 E4; a bare name picks the lowest string (overrides -freq)")
	stringNum := flag.Int("string", 0, "Guitar string 1 (high E) to 6 (low E) (overrides -note and -freq)")
	freq := flag.Float64("freq", 110, "Fundamental frequency in Hz")
	detune := flag.Float64("detune", 0, "Offset added to the fundamental in Hz")
	duration := flag.Float64("duration", 2, "Length in seconds")
	sampleRate := flag.Int("sample-rate", 44100, "Sample rate")
	harmonics := flag.Int("harmonics", 1, "Number of harmonics (amplitude 1/k)")
	noise := flag.Float64("noise", 0, "White noise amplitude")
	seed := flag.Int64("seed", 1, "Noise seed")
	peak := flag.Float64("peak", 0.5, "Peak normalization target")
	flag.Parse()

	f0, err := fundamental(*noteName, *stringNum, *freq)
	if err != nil {
		die("%v", err)
	}
	f0 += *detune

	n := int(math.Round(*duration * float64(*sampleRate)))
	if n <= 0 {
		die("duration must be > 0")
	}
	if *harmonics < 1 {
		die("harmonics must be >= 1")
	}
	if !(f0 > 0) || f0 >= float64(*sampleRate)/2 {
		die("frequency %.2f Hz must be in (0, %d)", f0, *sampleRate/2)
	}

	g := signal.NewGeneratorWithOptions(
		[]core.ProcessorOption{core.WithSampleRate(float64(*sampleRate))},
		signal.WithSeed(*seed),
	)
	mix := make([]float64, n)
	for k := 1; k <= *harmonics; k++ {
		fk := f0 * float64(k)
		if fk >= float64(*sampleRate)/2 {
			break
		}
		x, err := g.Sine(fk, 1/float64(k), n)
		if err != nil {
			die("sine: %v", err)
		}
		for i, v := range x {
			mix[i] += v
		}
	}
	if *noise > 0 {
		x, err := g.WhiteNoise(*noise, n)
		if err != nil {
			die("noise: %v", err)
		}
		for i, v := range x {
			mix[i] += v
		}
	}
	mix, err = signal.Normalize(mix, *peak)
	if err != nil {
		die("normalize: %v", err)
	}

	data := make([]float32, n)
	for i, v := range mix {
		data[i] = float32(v)
	}
	if err := audiofile.WriteMonoWAV(*output, data, *sampleRate); err != nil {
		die("wav write error: %v", err)
	}

	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("Fundamental: %.3f Hz, SampleRate: %d Hz, Duration: %.3f s, Samples: %d\n", f0, *sampleRate, *duration, n)
}

// stringOctaves holds the scientific pitch octave of each standard tuning
// entry, low string first.
var stringOctaves = [...]int{2, 2, 3, 3, 3, 4}

// fundamental picks the tone frequency from a string number, a note name or
// the raw frequency, in that order of precedence.
func fundamental(name string, str int, freq float64) (float64, error) {
	table := note.StandardGuitar()
	if str != 0 {
		if str < 1 || str > len(table) {
			return 0, fmt.Errorf("string %d out of range 1..%d", str, len(table))
		}
		return table[len(table)-str].FrequencyHz, nil
	}
	if name == "" {
		return freq, nil
	}
	ref, ok := lookup(table, name)
	if !ok {
		return 0, fmt.Errorf("unknown note %q", name)
	}
	return ref.FrequencyHz, nil
}

// lookup matches "E4" against name and octave, or a bare "E" against the
// first entry with that name.
func lookup(table note.Table, name string) (note.Reference, bool) {
	for i, ref := range table {
		if strings.EqualFold(ref.Name, name) {
			return ref, true
		}
		if i < len(stringOctaves) && strings.EqualFold(fmt.Sprintf("%s%d", ref.Name, stringOctaves[i]), name) {
			return ref, true
		}
	}
	return note.Reference{}, false
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
