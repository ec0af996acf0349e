package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio opens microphone streams through PortAudio
type PortAudio struct {
	channels      int
	amplification float32
}

// NewPortAudio initializes PortAudio. Call Terminate when done.
func NewPortAudio(channels int, amplification float32) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	// Ensure amplification is positive
	if amplification < 0.1 {
		amplification = 0.1
	}

	return &PortAudio{
		channels:      max(channels, 1),
		amplification: amplification,
	}, nil
}

// Terminate releases PortAudio
func (p *PortAudio) Terminate() error {
	return portaudio.Terminate()
}

// OpenDefault opens a blocking input stream on the default device. Buffers
// shorter than the device's low input latency are refused with a
// *BufferSizeError.
func (p *PortAudio) OpenDefault(sampleRate, bufferSize int) (Source, error) {
	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, err
	}

	required := int(math.Ceil(device.DefaultLowInputLatency.Seconds() * float64(sampleRate)))
	if bufferSize < required {
		return nil, &BufferSizeError{Requested: bufferSize, Required: required}
	}

	s := &portAudioSource{
		input:         make([]float32, bufferSize*p.channels),
		sampleRate:    sampleRate,
		channels:      p.channels,
		amplification: p.amplification,
	}

	s.stream, err = portaudio.OpenDefaultStream(
		p.channels, // input channels
		0,          // output channels (we don't need output)
		float64(sampleRate),
		bufferSize, // frames per buffer
		s.input,
	)
	if err != nil {
		return nil, fmt.Errorf("open stream at %dHz/%d: %w", sampleRate, bufferSize, err)
	}

	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		return nil, err
	}

	return s, nil
}

// portAudioSource reads from a blocking PortAudio stream
type portAudioSource struct {
	mu            sync.Mutex
	stream        *portaudio.Stream
	input         []float32
	sampleRate    int
	channels      int
	amplification float32
	closed        bool
}

// PullBuffer blocks for one buffer period
func (s *portAudioSource) PullBuffer() (*Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	if err := s.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return nil, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return nil, err
	}

	return &Buffer{
		Samples:    Downmix(s.input, s.channels, s.amplification),
		SampleRate: s.sampleRate,
	}, nil
}

// Close stops and closes the stream
func (s *portAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return err
	}
	return s.stream.Close()
}
