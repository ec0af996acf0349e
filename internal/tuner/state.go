package tuner

import (
	"math"
	"slices"
	"time"

	"github.com/0xlemi/guitartuner/internal/tuning"
)

const (
	// TunedOffsetThreshold is the absolute offset in semitones below which a
	// note counts as in tune
	TunedOffsetThreshold = 0.15

	// TunedSustainTime is how long a note must stay in tune before it is
	// marked tuned
	TunedSustainTime = 900 * time.Millisecond
)

// Mode selects what the tuner compares the detected pitch against
type Mode int

const (
	// ModeInstrument targets the selected string of the current tuning
	ModeInstrument Mode = iota
	// ModeChromatic targets a freely selected note
	ModeChromatic
)

func (m Mode) String() string {
	if m == ModeChromatic {
		return "chromatic"
	}
	return "instrument"
}

// State is a snapshot of the engine. Snapshots are never modified after
// they are published.
type State struct {
	Tuning         tuning.Tuning
	SelectedString int
	SelectedNote   int
	AutoDetect     bool
	Chromatic      bool
	Tuned          []bool // per string, in tuning order
	NoteTuned      bool   // chromatic mode only
	Offset         float64
	HasOffset      bool // false while no pitch is detected
	Running        bool
	Err            error
}

// Target returns the note index the offset is measured against
func (s State) Target() int {
	if s.Chromatic {
		return s.SelectedNote
	}
	str, err := s.Tuning.StringAt(s.SelectedString)
	if err != nil {
		return s.SelectedNote
	}
	return str.Root()
}

// InTune reports whether a pitch is detected within threshold of the target
func (s State) InTune(threshold float64) bool {
	return s.HasOffset && IsInTune(s.Offset, threshold)
}

// IsTuned reports the tuned flag of the active target
func (s State) IsTuned() bool {
	if s.Chromatic {
		return s.NoteTuned
	}
	return s.SelectedString < len(s.Tuned) && s.Tuned[s.SelectedString]
}

// IsInTune reports whether an offset is within threshold semitones
func IsInTune(offset, threshold float64) bool {
	return math.Abs(offset) < threshold
}

func (s State) equal(o State) bool {
	return s.Tuning.Equal(o.Tuning) &&
		s.SelectedString == o.SelectedString &&
		s.SelectedNote == o.SelectedNote &&
		s.AutoDetect == o.AutoDetect &&
		s.Chromatic == o.Chromatic &&
		slices.Equal(s.Tuned, o.Tuned) &&
		s.NoteTuned == o.NoteTuned &&
		s.Offset == o.Offset &&
		s.HasOffset == o.HasOffset &&
		s.Running == o.Running &&
		s.Err == o.Err
}
