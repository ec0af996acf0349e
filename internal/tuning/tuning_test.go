package tuning

import (
	"errors"
	"strings"
	"testing"

	"github.com/0xlemi/guitartuner/internal/notes"
)

func mustParse(t *testing.T, s string) Tuning {
	t.Helper()
	tu, err := Parse(Guitar, s)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", s, err)
	}
	return tu
}

func TestGuitarStringFret(t *testing.T) {
	low := MustString("E2")

	tests := []struct {
		name    string
		pitch   float64
		want    int
		wantErr bool
	}{
		{"open", notes.PitchOf(-29), 0, false},
		{"fifth fret", notes.PitchOf(-24), 5, false},
		{"slightly sharp", notes.PitchOf(-24) * 1.01, 5, false},
		{"last fret", notes.PitchOf(-29 + MaxFret), MaxFret, false},
		{"below open", notes.PitchOf(-30), 0, true},
		{"past last fret", notes.PitchOf(-29 + MaxFret + 1), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := low.Fret(tt.pitch)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("Fret() error = %v, want ErrNotFound", err)
				}
				if low.ContainsNote(tt.pitch) {
					t.Error("ContainsNote() = true, want false")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fret() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Fret() = %d, want %d", got, tt.want)
			}
			if !low.ContainsNote(tt.pitch) {
				t.Error("ContainsNote() = false, want true")
			}
		})
	}
}

func TestGuitarStringSteps(t *testing.T) {
	e := MustString("E2")
	if got := e.Higher().String(); got != "F2" {
		t.Errorf("Higher() = %s, want F2", got)
	}
	if got := e.Lower().String(); got != "D#2" {
		t.Errorf("Lower() = %s, want D#2", got)
	}
	if e.Higher().Lower() != e {
		t.Error("Higher().Lower() is not the original string")
	}
	if FromIndex(-29) != e {
		t.Error("FromIndex(-29) != FromSymbol(E2)")
	}
	if _, err := FromSymbol("Eb2"); !errors.Is(err, notes.ErrParse) {
		t.Errorf("FromSymbol(Eb2) error = %v, want ErrParse", err)
	}
	if p, err := e.FretPitch(12); err != nil || p != notes.PitchOf(-17) {
		t.Errorf("FretPitch(12) = %v, %v", p, err)
	}
}

func TestParse(t *testing.T) {
	tu := mustParse(t, "E4 B3 G3 D3 A2 E2")

	want := []int{-5, -10, -14, -19, -24, -29}
	if tu.NumStrings() != len(want) {
		t.Fatalf("NumStrings() = %d, want %d", tu.NumStrings(), len(want))
	}
	for i, s := range tu.Strings() {
		if s.Root() != want[i] {
			t.Errorf("string %d root = %d, want %d", i, s.Root(), want[i])
		}
	}

	if _, err := Parse(Guitar, "E4 H3"); !errors.Is(err, notes.ErrParse) {
		t.Errorf("Parse() error = %v, want ErrParse", err)
	}
	if _, err := Parse(Guitar, "   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("Parse() error = %v, want ErrEmpty", err)
	}
}

func TestEqualAndEquivalent(t *testing.T) {
	unnamed := mustParse(t, "E4 B3 G3 D3 A2 E2")

	if !unnamed.EquivalentTo(Standard) {
		t.Error("EquivalentTo(Standard) = false")
	}
	if unnamed.Equal(Standard) {
		t.Error("Equal(Standard) = true for an unnamed tuning")
	}
	if !Standard.Equal(Standard.WithName("Standard", CategoryCommon)) {
		t.Error("Equal() = false for identical tunings")
	}

	bass, _ := New(Bass, unnamed.Strings()...)
	if bass.EquivalentTo(unnamed) {
		t.Error("EquivalentTo() ignores instrument")
	}

	reversed := mustParse(t, "E2 A2 D3 G3 B3 E4")
	if reversed.EquivalentTo(unnamed) {
		t.Error("EquivalentTo() ignores string order")
	}
}

func TestFindEquivalentIn(t *testing.T) {
	got, ok := mustParse(t, "E4 B3 G3 D3 A2 D2").FindEquivalentIn(Builtin())
	if !ok {
		t.Fatal("FindEquivalentIn() found nothing")
	}
	if got.Name() != "Drop D" {
		t.Errorf("FindEquivalentIn() = %q, want Drop D", got.Name())
	}

	if _, ok := mustParse(t, "E4 B3 G3 D3 A2 C2").FindEquivalentIn(Builtin()); ok {
		t.Error("FindEquivalentIn() matched an unknown tuning")
	}
}

func TestTranspose(t *testing.T) {
	up := Standard.TransposeUp()
	if up.Name() != "" || up.Category() != CategoryNone {
		t.Errorf("TransposeUp() kept name %q", up.Name())
	}
	if up.Instrument() != Guitar || up.NumStrings() != 6 {
		t.Errorf("TransposeUp() changed shape: %v, %d strings", up.Instrument(), up.NumStrings())
	}
	if got := up.Symbols(); got != "F4 C4 G#3 D#3 A#2 F2" {
		t.Errorf("TransposeUp() = %s", got)
	}
	if !up.TransposeDown().EquivalentTo(Standard) {
		t.Error("TransposeUp().TransposeDown() is not equivalent to the original")
	}
}

func TestWithString(t *testing.T) {
	got, err := Standard.WithString(5, MustString("D2"))
	if err != nil {
		t.Fatalf("WithString() error = %v", err)
	}
	if got.Symbols() != "E4 B3 G3 D3 A2 D2" {
		t.Errorf("WithString() = %s", got.Symbols())
	}
	if s, _ := Standard.StringAt(5); s != MustString("E2") {
		t.Error("WithString() modified the original tuning")
	}

	for _, n := range []int{-1, 6} {
		if _, err := Standard.WithString(n, MustString("D2")); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("WithString(%d) error = %v, want ErrIndexOutOfRange", n, err)
		}
	}
}

func TestHighestLowest(t *testing.T) {
	uke, _ := Lookup("ukulele standard")
	if got := uke.Highest().String(); got != "A4" {
		t.Errorf("Highest() = %s, want A4", got)
	}
	if got := uke.Lowest().String(); got != "C4" {
		t.Errorf("Lowest() = %s, want C4", got)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"standard", "Standard"},
		{"Drop D", "Drop D"},
		{"D4 A3 G3 D3 A2 D2", "DADGAD"},
		{"E4 B3 G3 D3 A2 C2", "E4 B3 G3 D3 A2 C2"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Resolve(Guitar, tt.input)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.Label() != tt.want {
				t.Errorf("Resolve() = %q, want %q", got.Label(), tt.want)
			}
		})
	}

	if _, err := Resolve(Guitar, "nonsense"); err == nil {
		t.Error("Resolve(nonsense) error = nil")
	}
}

func TestBuiltinInRange(t *testing.T) {
	for _, tu := range Builtin() {
		if !notes.InRange(tu.Lowest().Root()) || !notes.InRange(tu.Highest().Root()) {
			t.Errorf("%s has strings outside the detectable range", tu.Name())
		}
		if tu.NumStrings() != tu.Instrument().DefaultStrings() {
			t.Errorf("%s has %d strings, want %d", tu.Name(), tu.NumStrings(), tu.Instrument().DefaultStrings())
		}
	}
}

func TestParseInstrument(t *testing.T) {
	for _, i := range []Instrument{Guitar, Bass, Ukulele, Other} {
		got, err := ParseInstrument(strings.ToUpper(i.String()))
		if err != nil || got != i {
			t.Errorf("ParseInstrument(%q) = %v, %v", i.String(), got, err)
		}
	}
	if _, err := ParseInstrument("banjo"); err == nil {
		t.Error("ParseInstrument(banjo) error = nil")
	}
}
