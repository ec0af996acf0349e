package tuning

import "github.com/0xlemi/guitartuner/internal/notes"

// Editor is a mutable holder of a Tuning. Edits replace the held value and
// are kept inside the detectable note range. Edited tunings snap to the
// first equivalent entry of Known, if any.
//
// An Editor is not safe for concurrent use.
type Editor struct {
	tuning Tuning
	Known  []Tuning
}

// NewEditor returns an editor holding t, normalising against the catalogue
func NewEditor(t Tuning) *Editor {
	return &Editor{tuning: t, Known: Builtin()}
}

// Tuning returns the current tuning
func (e *Editor) Tuning() Tuning {
	return e.tuning
}

// Set replaces the current tuning as-is
func (e *Editor) Set(t Tuning) {
	e.tuning = t
}

// TransposeUp raises every string a semitone. It returns false without
// changing anything if the highest string would leave the detectable range.
func (e *Editor) TransposeUp() bool {
	if !notes.InRange(e.tuning.Highest().Root() + 1) {
		return false
	}
	e.tuning = e.tuning.TransposeUp().Canonical(e.Known)
	return true
}

// TransposeDown lowers every string a semitone. It returns false without
// changing anything if the lowest string would leave the detectable range.
func (e *Editor) TransposeDown() bool {
	if !notes.InRange(e.tuning.Lowest().Root() - 1) {
		return false
	}
	e.tuning = e.tuning.TransposeDown().Canonical(e.Known)
	return true
}

// TransposeStringUp raises string n a semitone, returning false at the top
// of the range.
func (e *Editor) TransposeStringUp(n int) (bool, error) {
	return e.replaceString(n, GuitarString.Higher)
}

// TransposeStringDown lowers string n a semitone, returning false at the
// bottom of the range.
func (e *Editor) TransposeStringDown(n int) (bool, error) {
	return e.replaceString(n, GuitarString.Lower)
}

// SetString replaces string n
func (e *Editor) SetString(n int, s GuitarString) error {
	t, err := e.tuning.WithString(n, s)
	if err != nil {
		return err
	}
	e.tuning = t.Canonical(e.Known)
	return nil
}

func (e *Editor) replaceString(n int, step func(GuitarString) GuitarString) (bool, error) {
	s, err := e.tuning.StringAt(n)
	if err != nil {
		return false, err
	}
	next := step(s)
	if !notes.InRange(next.Root()) {
		return false, nil
	}
	return true, e.SetString(n, next)
}
