package tuner

import (
	"context"
	"errors"

	"github.com/0xlemi/guitartuner/internal/audio"
	"github.com/0xlemi/guitartuner/internal/pitch"
)

// Start checks permission, opens the audio source and starts the capture
// loop. If the device refuses the buffer size, one retry is made with the
// size it requires and the sample rate scaled by the same factor, so each
// buffer still covers the same time span.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if running {
		return ErrAlreadyRunning
	}
	if !e.permission.CheckPermission() {
		return ErrPermissionDenied
	}
	if e.opener == nil {
		return e.failInit(e.sampleRate, e.bufferSize, errors.New("no audio source configured"))
	}

	src, sampleRate, bufferSize, err := e.open()
	if err != nil {
		return e.failInit(sampleRate, bufferSize, err)
	}

	if e.cancel != nil {
		e.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.closeErr = nil

	e.mu.Lock()
	e.running = true
	e.err = nil
	e.hasOffset = false
	e.publishLocked()
	e.mu.Unlock()

	e.logger.Info("capture started", "sample_rate", sampleRate, "buffer_size", bufferSize)
	go e.capture(loopCtx, src, e.newDetector(sampleRate), e.done)

	return nil
}

// Stop ends capture and releases the audio source. It is safe to call when
// not running.
func (e *Engine) Stop() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.cancel == nil {
		return nil
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil

	e.logger.Info("capture stopped")
	return e.closeErr
}

func (e *Engine) open() (src audio.Source, sampleRate, bufferSize int, err error) {
	sampleRate, bufferSize = e.sampleRate, e.bufferSize

	src, err = e.opener.OpenDefault(sampleRate, bufferSize)

	var sizeErr *audio.BufferSizeError
	if errors.As(err, &sizeErr) && sizeErr.Required > 0 && sizeErr.Required != bufferSize {
		rate := sampleRate * sizeErr.Required / bufferSize
		e.logger.Warn("device refused buffer size, retrying",
			"buffer_size", bufferSize,
			"required", sizeErr.Required,
			"sample_rate", rate,
		)
		sampleRate, bufferSize = rate, sizeErr.Required
		src, err = e.opener.OpenDefault(sampleRate, bufferSize)
	}

	return src, sampleRate, bufferSize, err
}

func (e *Engine) failInit(sampleRate, bufferSize int, err error) error {
	initErr := &AudioInitError{SampleRate: sampleRate, BufferSize: bufferSize, Err: err}
	e.logger.Error("audio init failed", "error", err, "sample_rate", sampleRate, "buffer_size", bufferSize)

	e.mu.Lock()
	e.err = initErr
	e.publishLocked()
	e.mu.Unlock()

	return initErr
}

// capture pulls buffers until ctx is cancelled or the source fails. The
// stop flag is checked once per buffer.
func (e *Engine) capture(ctx context.Context, src audio.Source, detector pitch.Detector, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := src.Close(); err != nil {
			e.logger.Warn("closing audio source", "error", err)
			e.closeErr = err
		}

		e.mu.Lock()
		e.running = false
		e.hasOffset = false
		e.offset = 0
		e.publishLocked()
		e.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		buffer, err := src.PullBuffer()
		if err != nil {
			if errors.Is(err, audio.ErrTransient) {
				e.logger.Debug("dropped buffer", "error", err)
				e.ProcessPitchResult(pitch.Unpitched)
				continue
			}
			if ctx.Err() != nil {
				return
			}

			e.logger.Error("audio source failed", "error", err)
			e.mu.Lock()
			e.err = &SourceError{Err: err}
			e.publishLocked()
			e.mu.Unlock()
			return
		}

		e.ProcessPitchResult(detector.Detect(buffer))
	}
}
