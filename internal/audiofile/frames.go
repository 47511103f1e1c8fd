package audiofile

import (
	"context"
	"fmt"
	"io"

	"github.com/cwbudde/algo-tuner/tuner"
)

// Recording is a decoded mono signal.
type Recording struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the length in seconds.
func (r Recording) Duration() float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	return float64(len(r.Samples)) / float64(r.SampleRate)
}

// Load reads a WAV file and, when targetRate is positive and differs from
// the file's rate, resamples it.
func Load(path string, targetRate int) (Recording, error) {
	samples, sr, err := ReadWAVMono(path)
	if err != nil {
		return Recording{}, err
	}
	if targetRate > 0 && targetRate != sr {
		samples, err = ResampleIfNeeded(samples, sr, targetRate)
		if err != nil {
			return Recording{}, fmt.Errorf("resample %s: %w", path, err)
		}
		sr = targetRate
	}
	return Recording{Samples: samples, SampleRate: sr}, nil
}

// FrameSource splits a recording into frames of a fixed size advanced by a
// hop. Only whole frames are served, except that a recording shorter than
// one frame is served as a single frame. Frames share memory with the
// recording.
type FrameSource struct {
	rec  Recording
	size int
	hop  int
	pos  int
	done bool
}

// NewFrameSource returns a tuner.Source over rec.
func NewFrameSource(rec Recording, size, hop int) (*FrameSource, error) {
	if size < 1 || hop < 1 {
		return nil, fmt.Errorf("frame size and hop must be >= 1, got %d and %d", size, hop)
	}
	return &FrameSource{rec: rec, size: size, hop: hop}, nil
}

var _ tuner.Source = (*FrameSource)(nil)

// Next returns the next frame or io.EOF.
func (s *FrameSource) Next(ctx context.Context) (tuner.Frame, error) {
	if err := ctx.Err(); err != nil {
		return tuner.Frame{}, err
	}
	if s.done {
		return tuner.Frame{}, io.EOF
	}

	n := len(s.rec.Samples)
	if s.pos == 0 && n > 0 && n < s.size {
		s.done = true
		return s.frame(s.rec.Samples), nil
	}
	if s.pos+s.size > n {
		s.done = true
		return tuner.Frame{}, io.EOF
	}
	f := s.frame(s.rec.Samples[s.pos : s.pos+s.size])
	s.pos += s.hop
	return f, nil
}

// Count returns the total number of frames the source serves.
func (s *FrameSource) Count() int {
	n := len(s.rec.Samples)
	switch {
	case n == 0:
		return 0
	case n < s.size:
		return 1
	}
	return (n-s.size)/s.hop + 1
}

// OffsetSeconds returns the start time of frame i.
func (s *FrameSource) OffsetSeconds(i uint64) float64 {
	if s.rec.SampleRate <= 0 {
		return 0
	}
	return float64(i) * float64(s.hop) / float64(s.rec.SampleRate)
}

func (s *FrameSource) frame(x []float32) tuner.Frame {
	return tuner.Frame{Samples: x, SampleRate: float64(s.rec.SampleRate)}
}
