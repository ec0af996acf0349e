package tuner

import "time"

// Sustain debounces the in-tune signal: it fires once a target has stayed
// within Threshold for Hold. It is driven by whoever observes the engine
// and is not safe for concurrent use.
type Sustain struct {
	Threshold float64
	Hold      time.Duration

	inTune bool
	since  time.Time
	fired  bool
}

// NewSustain returns a tracker using the default threshold and hold time
func NewSustain() *Sustain {
	return &Sustain{Threshold: TunedOffsetThreshold, Hold: TunedSustainTime}
}

// Update feeds the latest state at time now. It returns true exactly once
// per continuous in-tune stretch, when the hold time has elapsed.
func (s *Sustain) Update(state State, now time.Time) bool {
	if !state.InTune(s.Threshold) {
		s.Reset()
		return false
	}

	if !s.inTune {
		s.inTune = true
		s.since = now
	}
	if !s.fired && now.Sub(s.since) >= s.Hold {
		s.fired = true
		return true
	}
	return false
}

// Progress returns how much of the hold time has elapsed, from 0 to 1
func (s *Sustain) Progress(now time.Time) float64 {
	if !s.inTune {
		return 0
	}
	if s.Hold <= 0 || s.fired {
		return 1
	}
	return min(1, float64(now.Sub(s.since))/float64(s.Hold))
}

// Reset forgets the current stretch, e.g. after the target changes
func (s *Sustain) Reset() {
	s.inTune = false
	s.fired = false
	s.since = time.Time{}
}
