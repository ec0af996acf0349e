package tuning

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrIndexOutOfRange is returned for string positions outside a tuning
var ErrIndexOutOfRange = errors.New("string index out of range")

// ErrEmpty is returned when a tuning would have no strings
var ErrEmpty = errors.New("tuning has no strings")

// Instrument tags a tuning with the instrument it belongs to
type Instrument int

const (
	Guitar Instrument = iota
	Bass
	Ukulele
	Other
)

// DefaultStrings returns the usual number of strings for the instrument
func (i Instrument) DefaultStrings() int {
	switch i {
	case Bass, Ukulele:
		return 4
	default:
		return 6
	}
}

// Patch returns the General MIDI program used for audio feedback
func (i Instrument) Patch() uint8 {
	switch i {
	case Bass:
		return 33 // Electric Bass (finger)
	case Ukulele:
		return 24 // Acoustic Guitar (nylon)
	default:
		return 25 // Acoustic Guitar (steel)
	}
}

func (i Instrument) String() string {
	switch i {
	case Guitar:
		return "guitar"
	case Bass:
		return "bass"
	case Ukulele:
		return "ukulele"
	default:
		return "other"
	}
}

// ParseInstrument returns the instrument named s, as printed by String
func ParseInstrument(s string) (Instrument, error) {
	for _, i := range []Instrument{Guitar, Bass, Ukulele, Other} {
		if strings.EqualFold(s, i.String()) {
			return i, nil
		}
	}
	return Other, fmt.Errorf("unknown instrument %q", s)
}

// Category groups tunings for filtering
type Category string

const (
	CategoryNone    Category = ""
	CategoryCommon  Category = "common"
	CategoryDrop    Category = "drop"
	CategoryOpen    Category = "open"
	CategoryLowered Category = "lowered"
	CategoryModal   Category = "modal"
)

// Tuning is an immutable, ordered set of strings. Strings are stored from
// highest (position 0) to lowest.
type Tuning struct {
	name       string
	instrument Instrument
	category   Category
	strings    []GuitarString
}

// New creates an unnamed tuning
func New(instrument Instrument, strs ...GuitarString) (Tuning, error) {
	return NewNamed("", instrument, CategoryNone, strs...)
}

// NewNamed creates a tuning with a display name and category
func NewNamed(name string, instrument Instrument, category Category, strs ...GuitarString) (Tuning, error) {
	if len(strs) == 0 {
		return Tuning{}, ErrEmpty
	}
	return Tuning{
		name:       name,
		instrument: instrument,
		category:   category,
		strings:    slices.Clone(strs),
	}, nil
}

// Parse builds an unnamed tuning from whitespace separated symbols listed
// high to low, e.g. "E4 B3 G3 D3 A2 E2".
func Parse(instrument Instrument, s string) (Tuning, error) {
	fields := strings.Fields(s)
	strs := make([]GuitarString, 0, len(fields))
	for _, f := range fields {
		gs, err := FromSymbol(f)
		if err != nil {
			return Tuning{}, fmt.Errorf("parse tuning %q: %w", s, err)
		}
		strs = append(strs, gs)
	}
	return New(instrument, strs...)
}

// Name returns the display name, empty for unnamed tunings
func (t Tuning) Name() string { return t.name }

// Instrument returns the instrument tag
func (t Tuning) Instrument() Instrument { return t.instrument }

// Category returns the category tag
func (t Tuning) Category() Category { return t.category }

// NumStrings returns the number of strings
func (t Tuning) NumStrings() int { return len(t.strings) }

// Strings returns a copy of the strings, highest first
func (t Tuning) Strings() []GuitarString { return slices.Clone(t.strings) }

// StringAt returns the string at position n
func (t Tuning) StringAt(n int) (GuitarString, error) {
	if n < 0 || n >= len(t.strings) {
		return GuitarString{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, n, len(t.strings))
	}
	return t.strings[n], nil
}

// Highest returns the string with the highest root note
func (t Tuning) Highest() GuitarString {
	return slices.MaxFunc(t.strings, GuitarString.Compare)
}

// Lowest returns the string with the lowest root note
func (t Tuning) Lowest() GuitarString {
	return slices.MinFunc(t.strings, GuitarString.Compare)
}

// WithName returns a copy carrying a new name and category
func (t Tuning) WithName(name string, category Category) Tuning {
	t.name = name
	t.category = category
	t.strings = slices.Clone(t.strings)
	return t
}

// WithString returns a copy with the string at position n replaced
func (t Tuning) WithString(n int, s GuitarString) (Tuning, error) {
	if n < 0 || n >= len(t.strings) {
		return Tuning{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, n, len(t.strings))
	}
	strs := slices.Clone(t.strings)
	strs[n] = s
	return Tuning{instrument: t.instrument, strings: strs}, nil
}

// TransposeUp returns an unnamed copy with every string one semitone higher
func (t Tuning) TransposeUp() Tuning {
	return t.mapStrings(GuitarString.Higher)
}

// TransposeDown returns an unnamed copy with every string one semitone lower
func (t Tuning) TransposeDown() Tuning {
	return t.mapStrings(GuitarString.Lower)
}

func (t Tuning) mapStrings(f func(GuitarString) GuitarString) Tuning {
	strs := make([]GuitarString, len(t.strings))
	for i, s := range t.strings {
		strs[i] = f(s)
	}
	return Tuning{instrument: t.instrument, strings: strs}
}

// Equal reports whether name, instrument, category and strings all match
func (t Tuning) Equal(other Tuning) bool {
	return t.name == other.name &&
		t.category == other.category &&
		t.EquivalentTo(other)
}

// EquivalentTo reports whether instrument and strings match, ignoring name
// and category
func (t Tuning) EquivalentTo(other Tuning) bool {
	return t.instrument == other.instrument && slices.Equal(t.strings, other.strings)
}

// FindEquivalentIn returns the first tuning in candidates equivalent to t
func (t Tuning) FindEquivalentIn(candidates []Tuning) (Tuning, bool) {
	for _, c := range candidates {
		if t.EquivalentTo(c) {
			return c, true
		}
	}
	return Tuning{}, false
}

// Canonical returns the named tuning from candidates equivalent to t, or t
// itself when there is none
func (t Tuning) Canonical(candidates []Tuning) Tuning {
	if c, ok := t.FindEquivalentIn(candidates); ok {
		return c
	}
	return t
}

// Symbols returns the string symbols highest first, e.g. "E4 B3 G3 D3 A2 E2"
func (t Tuning) Symbols() string {
	parts := make([]string, len(t.strings))
	for i, s := range t.strings {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// Label returns the name if set, otherwise the string symbols
func (t Tuning) Label() string {
	if t.name != "" {
		return t.name
	}
	return t.Symbols()
}
