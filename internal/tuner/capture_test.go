package tuner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/0xlemi/guitartuner/internal/audio"
	"github.com/0xlemi/guitartuner/internal/pitch"
)

// fakeSource returns queued errors first, then silent buffers
type fakeSource struct {
	mu     sync.Mutex
	errs   []error
	closed bool
}

func (s *fakeSource) PullBuffer() (*audio.Buffer, error) {
	time.Sleep(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, audio.ErrClosed
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &audio.Buffer{Samples: make([]float32, 64), SampleRate: audio.DefaultSampleRate}, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type openCall struct {
	sampleRate, bufferSize int
}

// fakeOpener fails with the queued errors before handing out source
type fakeOpener struct {
	mu     sync.Mutex
	errs   []error
	calls  []openCall
	source *fakeSource
}

func (o *fakeOpener) OpenDefault(sampleRate, bufferSize int) (audio.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, openCall{sampleRate, bufferSize})
	if len(o.errs) > 0 {
		err := o.errs[0]
		o.errs = o.errs[1:]
		return nil, err
	}
	if o.source == nil {
		o.source = &fakeSource{}
	}
	return o.source, nil
}

func (o *fakeOpener) Calls() []openCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]openCall(nil), o.calls...)
}

// fixedDetector reports the same result for every buffer
func fixedDetector(r pitch.Result) func(int) pitch.Detector {
	return func(int) pitch.Detector {
		return pitch.DetectorFunc(func(*audio.Buffer) pitch.Result { return r })
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(opener audio.Opener, r pitch.Result) *Engine {
	return New(Config{
		Opener:      opener,
		NewDetector: fixedDetector(r),
		Logger:      quietLogger(),
	})
}

func waitFor(t *testing.T, e *Engine, what string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := e.State()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s, state %+v", what, s)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartStop(t *testing.T) {
	opener := &fakeOpener{}
	e := newTestEngine(opener, pitchAt(-5.05))

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s := waitFor(t, e, "offset", func(s State) bool { return s.HasOffset })
	if !s.Running {
		t.Error("Running = false while capturing")
	}

	if err := e.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	s = e.State()
	if s.Running || s.HasOffset {
		t.Errorf("after Stop() Running = %v, HasOffset = %v", s.Running, s.HasOffset)
	}
	if !opener.source.isClosed() {
		t.Error("source not closed after Stop()")
	}
	if err := e.Stop(); err != nil {
		t.Errorf("repeated Stop() error = %v", err)
	}

	if got := opener.Calls(); len(got) != 1 || got[0] != (openCall{audio.DefaultSampleRate, audio.DefaultBufferSize}) {
		t.Errorf("OpenDefault calls = %v", got)
	}
}

func TestStopBeforeStart(t *testing.T) {
	e := New(Config{Logger: quietLogger()})
	if err := e.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestStartContextCancel(t *testing.T) {
	e := newTestEngine(&fakeOpener{}, pitchAt(0))
	ctx, cancel := context.WithCancel(context.Background())

	if err := e.Start(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, e, "running", func(s State) bool { return s.Running })

	cancel()
	waitFor(t, e, "loop exit", func(s State) bool { return !s.Running })
	if err := e.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestStartPermissionDenied(t *testing.T) {
	opener := &fakeOpener{}
	e := New(Config{
		Opener:     opener,
		Permission: PermissionFunc(func() bool { return false }),
		Logger:     quietLogger(),
	})

	if err := e.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Start() error = %v, want ErrPermissionDenied", err)
	}
	if n := len(opener.Calls()); n != 0 {
		t.Errorf("OpenDefault called %d times", n)
	}
	if e.State().Running {
		t.Error("Running = true")
	}
}

func TestStartBufferSizeFallback(t *testing.T) {
	opener := &fakeOpener{
		errs: []error{&audio.BufferSizeError{Requested: 4096, Required: 8192}},
	}
	e := newTestEngine(opener, pitchAt(0))

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer e.Stop()

	want := []openCall{{44100, 4096}, {88200, 8192}}
	got := opener.Calls()
	if len(got) != len(want) {
		t.Fatalf("OpenDefault calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, got[i], want[i])
		}
	}
	if !e.State().Running {
		t.Error("Running = false after fallback")
	}
}

func TestStartInitFailure(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
	}{
		{
			name:      "device error",
			errs:      []error{errors.New("no input device")},
			wantCalls: 1,
		},
		{
			name: "fallback refused",
			errs: []error{
				&audio.BufferSizeError{Requested: 4096, Required: 8192},
				&audio.BufferSizeError{Requested: 8192, Required: 16384},
			},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &fakeOpener{errs: tt.errs}
			e := newTestEngine(opener, pitchAt(0))

			err := e.Start(context.Background())
			var initErr *AudioInitError
			if !errors.As(err, &initErr) {
				t.Fatalf("Start() error = %v, want *AudioInitError", err)
			}
			if n := len(opener.Calls()); n != tt.wantCalls {
				t.Errorf("OpenDefault called %d times, want %d", n, tt.wantCalls)
			}

			s := e.State()
			if s.Running {
				t.Error("Running = true after failed Start()")
			}
			if !errors.As(s.Err, &initErr) {
				t.Errorf("State().Err = %v, want *AudioInitError", s.Err)
			}

			// The source recovers on the next attempt
			if err := e.Start(context.Background()); err != nil {
				t.Fatalf("retry Start() error = %v", err)
			}
			defer e.Stop()
			if s := e.State(); s.Err != nil || !s.Running {
				t.Errorf("after retry Err = %v, Running = %v", s.Err, s.Running)
			}
		})
	}
}

func TestStartWithoutOpener(t *testing.T) {
	e := New(Config{Logger: quietLogger()})

	var initErr *AudioInitError
	if err := e.Start(context.Background()); !errors.As(err, &initErr) {
		t.Fatalf("Start() error = %v, want *AudioInitError", err)
	}
}

func TestCaptureTransientError(t *testing.T) {
	opener := &fakeOpener{source: &fakeSource{
		errs: []error{audio.ErrTransient, audio.ErrTransient},
	}}
	e := newTestEngine(opener, pitchAt(-29))

	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	s := waitFor(t, e, "offset", func(s State) bool { return s.HasOffset })
	if !s.Running || s.Err != nil {
		t.Errorf("Running = %v, Err = %v after transient errors", s.Running, s.Err)
	}
}

func TestCaptureSourceFailure(t *testing.T) {
	failure := errors.New("device unplugged")
	opener := &fakeOpener{source: &fakeSource{errs: []error{failure}}}
	e := newTestEngine(opener, pitchAt(0))

	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := waitFor(t, e, "loop exit", func(s State) bool { return !s.Running })
	var srcErr *SourceError
	if !errors.As(s.Err, &srcErr) {
		t.Fatalf("State().Err = %v, want *SourceError", s.Err)
	}
	if !errors.Is(s.Err, failure) {
		t.Errorf("State().Err does not wrap %v", failure)
	}
	if !opener.source.isClosed() {
		t.Error("source not closed after failure")
	}
	if err := e.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestCaptureWithToneSource(t *testing.T) {
	e := New(Config{
		AutoDetect: true,
		Opener:     audio.ToneOpener(196.0, 0.5, false),
		Logger:     quietLogger(),
	})

	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	s := waitFor(t, e, "G3 detected", func(s State) bool { return s.HasOffset })
	if s.SelectedString != 2 {
		t.Errorf("SelectedString = %d, want 2 (G3)", s.SelectedString)
	}
	if !s.InTune(TunedOffsetThreshold) {
		t.Errorf("Offset = %v, want in tune", s.Offset)
	}
}
