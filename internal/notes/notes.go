package notes

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Reference pitch: A4 = 440Hz is note index 0.
const (
	ReferencePitch = 440.0

	// LowestNote is D1, the lowest note the tuner will detect.
	LowestNote = -43
	// HighestNote is B4, the highest note the tuner will detect.
	HighestNote = 2

	semitonesPerOctave = 12

	// c0Offset is the distance from C0 to A4 in semitones
	c0Offset = 57
)

// ErrParse is returned for malformed note symbols
var ErrParse = errors.New("malformed note symbol")

// All note names in chromatic order
var noteNames = [semitonesPerOctave]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// naturals maps a letter to its position in the chromatic scale starting at C
var naturals = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// PitchOf returns the frequency in Hz of a note index
func PitchOf(index int) float64 {
	if index == 0 {
		return ReferencePitch
	}
	return ReferencePitch * math.Pow(2, float64(index)/semitonesPerOctave)
}

// OffsetFromReference returns the continuous distance in semitones between a
// frequency and A4.
func OffsetFromReference(frequency float64) float64 {
	return semitonesPerOctave * math.Log2(frequency/ReferencePitch)
}

// Round rounds half up, so 0.5 becomes 1 and -0.5 becomes 0.
func Round(offset float64) int {
	return int(math.Floor(offset + 0.5))
}

// NearestIndex returns the note index closest to a frequency
func NearestIndex(frequency float64) int {
	return Round(OffsetFromReference(frequency))
}

// InRange reports whether a note index lies in the detectable window
func InRange(index int) bool {
	return index >= LowestNote && index <= HighestNote
}

// Clamp limits a note index to the detectable window
func Clamp(index int) int {
	return max(LowestNote, min(HighestNote, index))
}

// MIDIKey returns the MIDI key number for a note index (A4 = 69)
func MIDIKey(index int) int {
	return index + 69
}

// Symbol is the human readable form of a note index
type Symbol struct {
	Letter byte // 'A'..'G'
	Sharp  bool
	Octave int
}

// String formats the symbol, e.g. "C#5"
func (s Symbol) String() string {
	name := string(s.Letter)
	if s.Sharp {
		name += "#"
	}
	return name + strconv.Itoa(s.Octave)
}

// Name returns the letter and accidental without the octave
func (s Symbol) Name() string {
	if s.Sharp {
		return string(s.Letter) + "#"
	}
	return string(s.Letter)
}

// SymbolOf converts a note index to its symbol
func SymbolOf(index int) Symbol {
	n := index + c0Offset
	octave := floorDiv(n, semitonesPerOctave)
	name := noteNames[n-octave*semitonesPerOctave]

	return Symbol{
		Letter: name[0],
		Sharp:  len(name) == 2,
		Octave: octave,
	}
}

// Name returns the symbol string of a note index, e.g. "E2"
func Name(index int) string {
	return SymbolOf(index).String()
}

// ParseSymbol converts a symbol such as "E2", "A#4" or "C#5" to a note index.
// Flats are not accepted.
func ParseSymbol(s string) (int, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q is too short", ErrParse, s)
	}

	pos, ok := naturals[s[0]]
	if !ok {
		return 0, fmt.Errorf("%w: invalid letter in %q", ErrParse, s)
	}

	rest := s[1:]
	if rest[0] == '#' {
		if s[0] == 'E' || s[0] == 'B' {
			return 0, fmt.Errorf("%w: %c has no sharp in %q", ErrParse, s[0], s)
		}
		pos++
		rest = rest[1:]
	}

	if rest == "" {
		return 0, fmt.Errorf("%w: missing octave in %q", ErrParse, s)
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return 0, fmt.Errorf("%w: non-numeric octave in %q", ErrParse, s)
		}
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return octave*semitonesPerOctave + pos - c0Offset, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
