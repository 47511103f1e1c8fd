// Package capture reads frames from the default PortAudio input device.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/algo-tuner/tuner"
	"github.com/gordonklaus/portaudio"
)

// Microphone is a blocking mono input stream that serves tuner frames.
type Microphone struct {
	stream     *portaudio.Stream
	buf        []float32
	sampleRate float64

	mu     sync.Mutex
	closed bool
}

var _ tuner.Source = (*Microphone)(nil)

// Open initializes PortAudio and starts a mono float32 input stream on the
// default device. Each frame holds frameSize samples.
func Open(sampleRate float64, frameSize int) (*Microphone, error) {
	if !(sampleRate > 0) || frameSize < 2 {
		return nil, fmt.Errorf("capture: invalid stream parameters: %v Hz, %d samples", sampleRate, frameSize)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("capture: initialize portaudio: %w", err)
	}

	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("capture: open default input: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("capture: start stream: %w", err)
	}

	return &Microphone{stream: stream, buf: buf, sampleRate: sampleRate}, nil
}

// Next blocks until a full frame has been captured and returns a copy of it.
// An input overflow loses audio but still yields the buffered frame.
func (m *Microphone) Next(ctx context.Context) (tuner.Frame, error) {
	if err := ctx.Err(); err != nil {
		return tuner.Frame{}, err
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return tuner.Frame{}, errors.New("capture: stream closed")
	}

	if err := m.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return tuner.Frame{}, fmt.Errorf("capture: read: %w", err)
	}
	samples := make([]float32, len(m.buf))
	copy(samples, m.buf)
	return tuner.Frame{Samples: samples, SampleRate: m.sampleRate}, nil
}

// SampleRate returns the stream's sample rate.
func (m *Microphone) SampleRate() float64 { return m.sampleRate }

// Close stops the stream and releases PortAudio. It is safe to call more
// than once.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var err error
	if stopErr := m.stream.Stop(); stopErr != nil {
		err = stopErr
	}
	if closeErr := m.stream.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if termErr := portaudio.Terminate(); termErr != nil && err == nil {
		err = termErr
	}
	return err
}
