package audio

import (
	"math"
	"sync"
	"time"
)

// ToneSource is a synthetic source producing a sine wave. It is used to
// run the tuner without a microphone.
type ToneSource struct {
	mu         sync.Mutex
	frequency  float64
	amplitude  float64
	sampleRate int
	bufferSize int
	phase      float64
	realtime   bool
	closed     bool
}

// NewToneSource creates a source producing frequency Hz. When realtime is
// set, PullBuffer sleeps for one buffer period like a real device.
func NewToneSource(frequency, amplitude float64, sampleRate, bufferSize int, realtime bool) *ToneSource {
	return &ToneSource{
		frequency:  frequency,
		amplitude:  amplitude,
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		realtime:   realtime,
	}
}

// ToneOpener returns an Opener producing tone sources at frequency Hz
func ToneOpener(frequency, amplitude float64, realtime bool) Opener {
	return OpenerFunc(func(sampleRate, bufferSize int) (Source, error) {
		return NewToneSource(frequency, amplitude, sampleRate, bufferSize, realtime), nil
	})
}

// SetFrequency changes the generated pitch; 0 produces silence
func (t *ToneSource) SetFrequency(frequency float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frequency = frequency
}

// PullBuffer returns the next buffer of the sine wave
func (t *ToneSource) PullBuffer() (*Buffer, error) {
	if t.realtime {
		time.Sleep(time.Duration(t.bufferSize) * time.Second / time.Duration(t.sampleRate))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}

	samples := make([]float32, t.bufferSize)
	step := 2 * math.Pi * t.frequency / float64(t.sampleRate)
	for i := range samples {
		if t.frequency > 0 {
			samples[i] = float32(t.amplitude * math.Sin(t.phase))
		}
		t.phase = math.Mod(t.phase+step, 2*math.Pi)
	}

	return &Buffer{Samples: samples, SampleRate: t.sampleRate}, nil
}

// Close stops the source
func (t *ToneSource) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
