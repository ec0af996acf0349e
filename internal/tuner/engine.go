package tuner

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/0xlemi/guitartuner/internal/audio"
	"github.com/0xlemi/guitartuner/internal/notes"
	"github.com/0xlemi/guitartuner/internal/pitch"
	"github.com/0xlemi/guitartuner/internal/tuning"
)

// PermissionChecker reports whether the microphone may be used
type PermissionChecker interface {
	CheckPermission() bool
}

// PermissionFunc adapts a function to the PermissionChecker interface
type PermissionFunc func() bool

// CheckPermission calls f
func (f PermissionFunc) CheckPermission() bool {
	return f()
}

// AlwaysGranted is a PermissionChecker for platforms without a permission model
var AlwaysGranted = PermissionFunc(func() bool { return true })

// Config holds the collaborators and settings of an Engine. Zero fields
// take defaults.
type Config struct {
	// Tuning is the initial tuning, standard guitar tuning by default
	Tuning tuning.Tuning

	// SampleRate and BufferSize are tried first when opening the source
	SampleRate int
	BufferSize int

	// AutoDetect enables automatic string and note selection at startup
	AutoDetect bool

	Opener      audio.Opener
	Permission  PermissionChecker
	NewDetector func(sampleRate int) pitch.Detector
	Logger      *slog.Logger
}

// Engine owns the tuner state. All operations are safe for concurrent use;
// the audio loop and control callers serialise on a single mutex so every
// transition is observed whole.
type Engine struct {
	mu             sync.Mutex
	editor         *tuning.Editor
	selectedString int
	selectedNote   int
	autoDetect     bool
	mode           Mode
	tuned          []bool
	noteTuned      bool
	offset         float64
	hasOffset      bool
	running        bool
	err            error

	subscribers map[int]chan State
	nextID      int
	published   State

	// lifecycle serialises Start and Stop
	lifecycle   sync.Mutex
	cancel      func()
	done        chan struct{}
	closeErr    error
	opener      audio.Opener
	permission  PermissionChecker
	newDetector func(sampleRate int) pitch.Detector
	sampleRate  int
	bufferSize  int
	logger      *slog.Logger
}

// New creates an engine
func New(cfg Config) *Engine {
	if cfg.Tuning.NumStrings() == 0 {
		cfg.Tuning = tuning.Standard
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = audio.DefaultBufferSize
	}
	if cfg.Permission == nil {
		cfg.Permission = AlwaysGranted
	}
	if cfg.NewDetector == nil {
		cfg.NewDetector = func(sampleRate int) pitch.Detector {
			return pitch.NewACFDetector(sampleRate)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Engine{
		editor:       tuning.NewEditor(cfg.Tuning),
		selectedNote: 0,
		autoDetect:   cfg.AutoDetect,
		mode:         ModeInstrument,
		tuned:        make([]bool, cfg.Tuning.NumStrings()),
		subscribers:  make(map[int]chan State),
		opener:       cfg.Opener,
		permission:   cfg.Permission,
		newDetector:  cfg.NewDetector,
		sampleRate:   cfg.SampleRate,
		bufferSize:   cfg.BufferSize,
		logger:       cfg.Logger.With("component", "tuner"),
	}
	e.published = e.snapshotLocked()

	return e
}

// State returns a snapshot of the current state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe returns a channel receiving the latest state whenever it
// changes, starting with the current one. Slow readers only miss
// intermediate states. Call cancel to release the subscription.
func (e *Engine) Subscribe() (states <-chan State, cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	ch := make(chan State, 1)
	ch <- e.published
	e.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subscribers, id)
			close(ch)
		})
	}
}

// SelectString targets string n and disables auto-detect
func (e *Engine) SelectString(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkStringLocked(n); err != nil {
		return err
	}
	e.selectedString = n
	e.autoDetect = false
	e.publishLocked()
	return nil
}

// SelectChromaticNote targets note index and disables auto-detect. Changing
// the note clears its tuned flag.
func (e *Engine) SelectChromaticNote(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !notes.InRange(index) {
		return fmt.Errorf("%w: note %d outside [%d, %d]", ErrInvalidIndex, index, notes.LowestNote, notes.HighestNote)
	}
	if index != e.selectedNote {
		e.noteTuned = false
	}
	e.selectedNote = index
	e.autoDetect = false
	e.publishLocked()
	return nil
}

// SetTuning replaces the tuning. Tuned flags survive only at positions whose
// string is unchanged, and only when the string count is the same.
func (e *Engine) SetTuning(t tuning.Tuning) error {
	if t.NumStrings() == 0 {
		return tuning.ErrEmpty
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.editor.Tuning().Strings()
	next := t.Strings()
	if len(prev) != len(next) {
		e.tuned = make([]bool, len(next))
	} else {
		for i := range e.tuned {
			e.tuned[i] = e.tuned[i] && prev[i] == next[i]
		}
	}

	e.editor.Set(t)
	if e.selectedString >= len(next) {
		e.selectedString = len(next) - 1
	}
	e.publishLocked()
	return nil
}

// TransposeUp raises the whole tuning a semitone and clears all tuned
// flags. It returns false, changing nothing, at the top of the range.
func (e *Engine) TransposeUp() bool {
	return e.transpose((*tuning.Editor).TransposeUp)
}

// TransposeDown lowers the whole tuning a semitone and clears all tuned
// flags. It returns false, changing nothing, at the bottom of the range.
func (e *Engine) TransposeDown() bool {
	return e.transpose((*tuning.Editor).TransposeDown)
}

func (e *Engine) transpose(step func(*tuning.Editor) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !step(e.editor) {
		return false
	}
	clear(e.tuned)
	e.publishLocked()
	return true
}

// TransposeStringUp raises string n a semitone and clears its tuned flag.
// It returns false at the top of the range.
func (e *Engine) TransposeStringUp(n int) (bool, error) {
	return e.transposeString(n, (*tuning.Editor).TransposeStringUp)
}

// TransposeStringDown lowers string n a semitone and clears its tuned flag.
// It returns false at the bottom of the range.
func (e *Engine) TransposeStringDown(n int) (bool, error) {
	return e.transposeString(n, (*tuning.Editor).TransposeStringDown)
}

func (e *Engine) transposeString(n int, step func(*tuning.Editor, int) (bool, error)) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkStringLocked(n); err != nil {
		return false, err
	}
	ok, err := step(e.editor, n)
	if err != nil || !ok {
		return false, err
	}
	e.tuned[n] = false
	e.publishLocked()
	return true, nil
}

// SetTuned sets the tuned flag of string n. In chromatic mode the single
// note flag is set instead.
func (e *Engine) SetTuned(n int, tuned bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkStringLocked(n); err != nil {
		return err
	}
	e.setTunedLocked(n, tuned)
	return nil
}

// SetSelectedTuned sets the tuned flag of the current target
func (e *Engine) SetSelectedTuned(tuned bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setTunedLocked(e.selectedString, tuned)
}

// MarkTuned sets the tuned flag of the target s was measured against, as
// long as that target is still selected. It reports whether a flag was set.
func (e *Engine) MarkTuned(s State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.Chromatic != (e.mode == ModeChromatic) {
		return false
	}
	if s.Chromatic {
		if e.selectedNote != s.SelectedNote {
			return false
		}
	} else {
		if e.selectedString != s.SelectedString {
			return false
		}
		str, err := e.editor.Tuning().StringAt(e.selectedString)
		if err != nil || str.Root() != s.Target() {
			return false
		}
	}
	e.setTunedLocked(e.selectedString, true)
	return true
}

func (e *Engine) setTunedLocked(n int, tuned bool) {
	if e.mode == ModeChromatic {
		e.noteTuned = tuned
	} else {
		e.tuned[n] = tuned
	}
	e.publishLocked()
}

// SetAutoDetect turns automatic target selection on or off
func (e *Engine) SetAutoDetect(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoDetect = on
	e.publishLocked()
}

// SetChromatic switches between chromatic and instrument mode. Switching
// clears every tuned flag.
func (e *Engine) SetChromatic(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mode := ModeInstrument
	if on {
		mode = ModeChromatic
	}
	if mode == e.mode {
		return
	}
	e.mode = mode
	clear(e.tuned)
	e.noteTuned = false
	e.publishLocked()
}

// ProcessPitchResult consumes one detector result. It is called from the
// audio loop for every buffer.
func (e *Engine) ProcessPitchResult(r pitch.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !r.Pitched || r.Frequency <= 0 || math.IsInf(r.Frequency, 0) || math.IsNaN(r.Frequency) {
		e.hasOffset = false
		e.offset = 0
		e.publishLocked()
		return
	}

	offset := notes.OffsetFromReference(r.Frequency)
	t := e.editor.Tuning()

	if e.autoDetect {
		if e.mode == ModeChromatic {
			note := notes.Clamp(notes.Round(offset))
			if note != e.selectedNote {
				e.noteTuned = false
			}
			e.selectedNote = note
		} else {
			e.selectedString = closestString(t, offset)
		}
	}

	target := e.selectedNote
	if e.mode == ModeInstrument {
		s, _ := t.StringAt(e.selectedString)
		target = s.Root()
	}

	e.offset = offset - float64(target)
	e.hasOffset = true
	e.publishLocked()
}

// closestString returns the position of the string nearest to offset. Ties
// go to the lower position.
func closestString(t tuning.Tuning, offset float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, s := range t.Strings() {
		if d := math.Abs(float64(s.Root()) - offset); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func (e *Engine) checkStringLocked(n int) error {
	if num := e.editor.Tuning().NumStrings(); n < 0 || n >= num {
		return fmt.Errorf("%w: string %d of %d", ErrInvalidIndex, n, num)
	}
	return nil
}

func (e *Engine) snapshotLocked() State {
	return State{
		Tuning:         e.editor.Tuning(),
		SelectedString: e.selectedString,
		SelectedNote:   e.selectedNote,
		AutoDetect:     e.autoDetect,
		Chromatic:      e.mode == ModeChromatic,
		Tuned:          slices.Clone(e.tuned),
		NoteTuned:      e.noteTuned,
		Offset:         e.offset,
		HasOffset:      e.hasOffset,
		Running:        e.running,
		Err:            e.err,
	}
}

// publishLocked pushes the state to subscribers if it changed. Each
// subscriber channel holds at most the latest state.
func (e *Engine) publishLocked() {
	s := e.snapshotLocked()
	if s.equal(e.published) {
		return
	}
	e.published = s

	for _, ch := range e.subscribers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}
