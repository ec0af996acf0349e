package feedback

import (
	"fmt"
	"time"

	"github.com/0xlemi/guitartuner/internal/notes"
	"github.com/0xlemi/guitartuner/internal/tuner"
	"gitlab.com/gomidi/midi/v2"
)

const (
	// DefaultReferenceDuration is how long a reference tone rings
	DefaultReferenceDuration = 1500 * time.Millisecond
	// DefaultConfirmDuration is the length of the note played when a target becomes tuned
	DefaultConfirmDuration = 300 * time.Millisecond
	// DefaultVelocity is the note-on velocity of requested notes
	DefaultVelocity uint8 = 100
)

// Kind tells why a note was requested
type Kind int

const (
	// KindReference plays the target note after it is selected by hand
	KindReference Kind = iota
	// KindConfirm acknowledges that the target became tuned
	KindConfirm
)

func (k Kind) String() string {
	if k == KindConfirm {
		return "confirm"
	}
	return "reference"
}

// Request is a note for a MIDI collaborator to play. Planning stops here;
// nothing is synthesised.
type Request struct {
	Kind     Kind
	Key      uint8
	Patch    uint8
	Velocity uint8
	Duration time.Duration
}

// Messages returns the program change and note-on that start the note
func (r Request) Messages(channel uint8) []midi.Message {
	return []midi.Message{
		midi.ProgramChange(channel, r.Patch),
		midi.NoteOn(channel, r.Key, r.Velocity),
	}
}

// Release returns the note-off to send once Duration has passed
func (r Request) Release(channel uint8) midi.Message {
	return midi.NoteOff(channel, r.Key)
}

func (r Request) String() string {
	return fmt.Sprintf("%s key=%d patch=%d duration=%s", r.Kind, r.Key, r.Patch, r.Duration)
}

// Planner watches successive engine states and decides when a note should
// be requested: a reference tone when the target is chosen manually and a
// confirmation when the target is marked tuned.
type Planner struct {
	ReferenceDuration time.Duration
	ConfirmDuration   time.Duration
	Velocity          uint8

	last tuner.State
	seen bool
}

// NewPlanner returns a planner with the default durations
func NewPlanner() *Planner {
	return &Planner{
		ReferenceDuration: DefaultReferenceDuration,
		ConfirmDuration:   DefaultConfirmDuration,
		Velocity:          DefaultVelocity,
	}
}

// Observe consumes the next state and returns a request if one is due.
// The first state only primes the planner.
func (p *Planner) Observe(s tuner.State) (Request, bool) {
	prev, seen := p.last, p.seen
	p.last, p.seen = s, true

	if !seen || s.Tuning.NumStrings() == 0 {
		return Request{}, false
	}

	sameTarget := prev.Chromatic == s.Chromatic && prev.Target() == s.Target()

	switch {
	case sameTarget && s.IsTuned() && !prev.IsTuned():
		return p.request(KindConfirm, s, p.ConfirmDuration), true
	case !s.AutoDetect && !sameTarget:
		return p.request(KindReference, s, p.ReferenceDuration), true
	}
	return Request{}, false
}

// Reference builds a reference tone for the current target of s
func (p *Planner) Reference(s tuner.State) Request {
	return p.request(KindReference, s, p.ReferenceDuration)
}

func (p *Planner) request(kind Kind, s tuner.State, d time.Duration) Request {
	return Request{
		Kind:     kind,
		Key:      uint8(notes.MIDIKey(s.Target())),
		Patch:    s.Tuning.Instrument().Patch(),
		Velocity: p.Velocity,
		Duration: d,
	}
}
