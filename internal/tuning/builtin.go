package tuning

import (
	"fmt"
	"slices"
	"strings"
)

// Standard six string guitar tuning, E4 B3 G3 D3 A2 E2
var Standard = mustNamed("Standard", Guitar, CategoryCommon, "E4 B3 G3 D3 A2 E2")

var builtin = []Tuning{
	Standard,
	mustNamed("Drop D", Guitar, CategoryDrop, "E4 B3 G3 D3 A2 D2"),
	mustNamed("Half Step Down", Guitar, CategoryLowered, "D#4 A#3 F#3 C#3 G#2 D#2"),
	mustNamed("Full Step Down", Guitar, CategoryLowered, "D4 A3 F3 C3 G2 D2"),
	mustNamed("Drop C", Guitar, CategoryDrop, "D4 A3 F3 C3 G2 C2"),
	mustNamed("Open G", Guitar, CategoryOpen, "D4 B3 G3 D3 G2 D2"),
	mustNamed("Open D", Guitar, CategoryOpen, "D4 A3 F#3 D3 A2 D2"),
	mustNamed("Open E", Guitar, CategoryOpen, "E4 B3 G#3 E3 B2 E2"),
	mustNamed("DADGAD", Guitar, CategoryModal, "D4 A3 G3 D3 A2 D2"),
	mustNamed("Bass Standard", Bass, CategoryCommon, "G2 D2 A1 E1"),
	mustNamed("Bass Drop D", Bass, CategoryDrop, "G2 D2 A1 D1"),
	mustNamed("Ukulele Standard", Ukulele, CategoryCommon, "A4 E4 C4 G4"),
	mustNamed("Baritone Ukulele", Ukulele, CategoryCommon, "E4 B3 G3 D3"),
}

func mustNamed(name string, instrument Instrument, category Category, symbols string) Tuning {
	t, err := Parse(instrument, symbols)
	if err != nil {
		panic(err)
	}
	return t.WithName(name, category)
}

// Builtin returns the catalogue of common tunings
func Builtin() []Tuning {
	return slices.Clone(builtin)
}

// Lookup finds a catalogue tuning by case-insensitive name
func Lookup(name string) (Tuning, error) {
	for _, t := range builtin {
		if strings.EqualFold(t.Name(), name) {
			return t, nil
		}
	}
	return Tuning{}, fmt.Errorf("unknown tuning %q", name)
}

// Resolve accepts either a catalogue name or a list of symbols and returns
// the matching tuning, snapped to its catalogue entry where possible.
func Resolve(instrument Instrument, s string) (Tuning, error) {
	if t, err := Lookup(s); err == nil {
		return t, nil
	}
	t, err := Parse(instrument, s)
	if err != nil {
		return Tuning{}, err
	}
	return t.Canonical(builtin), nil
}
