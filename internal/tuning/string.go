package tuning

import (
	"errors"
	"fmt"

	"github.com/0xlemi/guitartuner/internal/notes"
)

// MaxFret is the number of frets on every string
const MaxFret = 24

// ErrNotFound is returned when a pitch cannot be played on a string
var ErrNotFound = errors.New("note not found on string")

// GuitarString is a single string identified by the note index of its open
// position. Equality and ordering are by root note only.
type GuitarString struct {
	root int
}

// FromIndex returns the string whose open note is index
func FromIndex(index int) GuitarString {
	return GuitarString{root: index}
}

// FromSymbol returns the string whose open note is the given symbol, e.g. "E2"
func FromSymbol(symbol string) (GuitarString, error) {
	index, err := notes.ParseSymbol(symbol)
	if err != nil {
		return GuitarString{}, err
	}
	return FromIndex(index), nil
}

// MustString is like FromSymbol but panics on malformed symbols. It is meant
// for package-level tables.
func MustString(symbol string) GuitarString {
	s, err := FromSymbol(symbol)
	if err != nil {
		panic(err)
	}
	return s
}

// Root returns the note index of the open string
func (s GuitarString) Root() int {
	return s.root
}

// Pitch returns the open string frequency in Hz
func (s GuitarString) Pitch() float64 {
	return notes.PitchOf(s.root)
}

// Fret returns the fret at which pitch is played on this string
func (s GuitarString) Fret(pitch float64) (int, error) {
	fret := notes.NearestIndex(pitch) - s.root
	if fret < 0 || fret > MaxFret {
		return 0, fmt.Errorf("%w: %.2fHz on %s", ErrNotFound, pitch, s)
	}
	return fret, nil
}

// FretPitch returns the frequency of the given fret
func (s GuitarString) FretPitch(fret int) (float64, error) {
	if fret < 0 || fret > MaxFret {
		return 0, fmt.Errorf("%w: fret %d on %s", ErrNotFound, fret, s)
	}
	return notes.PitchOf(s.root + fret), nil
}

// ContainsNote reports whether pitch can be played on this string
func (s GuitarString) ContainsNote(pitch float64) bool {
	_, err := s.Fret(pitch)
	return err == nil
}

// Higher returns the string one semitone up
func (s GuitarString) Higher() GuitarString {
	return GuitarString{root: s.root + 1}
}

// Lower returns the string one semitone down
func (s GuitarString) Lower() GuitarString {
	return GuitarString{root: s.root - 1}
}

// Compare orders strings by root note
func (s GuitarString) Compare(other GuitarString) int {
	switch {
	case s.root < other.root:
		return -1
	case s.root > other.root:
		return 1
	default:
		return 0
	}
}

func (s GuitarString) String() string {
	return notes.Name(s.root)
}
