package tuner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex is returned when a string or note index is outside the
	// current tuning or the detectable range
	ErrInvalidIndex = errors.New("invalid index")

	// ErrAlreadyRunning is returned by Start while capture is active
	ErrAlreadyRunning = errors.New("tuner already running")

	// ErrPermissionDenied is returned by Start when microphone access is refused
	ErrPermissionDenied = errors.New("microphone permission denied")
)

// AudioInitError is returned by Start when the audio source could not be
// opened, including after the buffer-size fallback. It stays in State.Err
// until the next successful Start.
type AudioInitError struct {
	SampleRate int
	BufferSize int
	Err        error
}

func (e *AudioInitError) Error() string {
	return fmt.Sprintf("audio init failed at %dHz with %d frames: %v", e.SampleRate, e.BufferSize, e.Err)
}

func (e *AudioInitError) Unwrap() error {
	return e.Err
}

// SourceError records an audio source that failed while capturing. The
// capture loop stops when it happens.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("audio source failed: %v", e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
