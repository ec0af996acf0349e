package audio

import (
	"errors"
	"fmt"
)

// Defaults used when opening the microphone
const (
	DefaultSampleRate = 44100
	DefaultBufferSize = 4096
)

// ErrTransient marks a read failure that only affects the current buffer,
// e.g. an input overflow. The source remains usable.
var ErrTransient = errors.New("transient audio read failure")

// ErrClosed is returned when reading from a closed source
var ErrClosed = errors.New("audio source closed")

// Buffer represents a buffer of mono audio samples
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Source is an open microphone delivering fixed-size buffers
type Source interface {
	// PullBuffer blocks until the next buffer is available
	PullBuffer() (*Buffer, error)

	// Close releases the device
	Close() error
}

// Opener opens the default input device
type Opener interface {
	OpenDefault(sampleRate, bufferSize int) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(sampleRate, bufferSize int) (Source, error)

// OpenDefault calls f
func (f OpenerFunc) OpenDefault(sampleRate, bufferSize int) (Source, error) {
	return f(sampleRate, bufferSize)
}

// BufferSizeError is reported by a device that cannot deliver buffers as
// small as requested. Required is the smallest size it accepts.
type BufferSizeError struct {
	Requested int
	Required  int
}

func (e *BufferSizeError) Error() string {
	return fmt.Sprintf("buffer size %d below device minimum %d", e.Requested, e.Required)
}

// Downmix averages interleaved channels into mono and applies gain
func Downmix(in []float32, channels int, gain float32) []float32 {
	if channels < 1 {
		channels = 1
	}

	out := make([]float32, len(in)/channels)
	for i := range out {
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += in[i*channels+ch]
		}
		out[i] = (sum / float32(channels)) * gain
	}
	return out
}
