package feedback

import (
	"testing"

	"github.com/0xlemi/guitartuner/internal/tuner"
	"github.com/0xlemi/guitartuner/internal/tuning"
)

func standardState() tuner.State {
	return tuner.State{
		Tuning:     tuning.Standard,
		Tuned:      make([]bool, 6),
		AutoDetect: true,
	}
}

func TestPlannerObserve(t *testing.T) {
	base := standardState()

	manualB3 := base
	manualB3.AutoDetect = false
	manualB3.SelectedString = 1

	tunedB3 := manualB3
	tunedB3.Tuned = []bool{false, true, false, false, false, false}

	autoG3 := base
	autoG3.SelectedString = 2

	tests := []struct {
		name     string
		states   []tuner.State
		wantKind Kind
		wantKey  uint8
		want     bool
	}{
		{
			name:   "first state primes",
			states: []tuner.State{manualB3},
		},
		{
			name:     "manual selection plays reference",
			states:   []tuner.State{base, manualB3},
			wantKind: KindReference,
			wantKey:  59,
			want:     true,
		},
		{
			name:     "tuned string is confirmed",
			states:   []tuner.State{manualB3, tunedB3},
			wantKind: KindConfirm,
			wantKey:  59,
			want:     true,
		},
		{
			name:   "auto-detect changes are silent",
			states: []tuner.State{base, autoG3},
		},
		{
			name:   "unchanged state is silent",
			states: []tuner.State{tunedB3, tunedB3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanner()
			var (
				got Request
				ok  bool
			)
			for _, s := range tt.states {
				got, ok = p.Observe(s)
			}

			if ok != tt.want {
				t.Fatalf("Observe() ok = %v, want %v", ok, tt.want)
			}
			if !ok {
				return
			}
			if got.Kind != tt.wantKind || got.Key != tt.wantKey {
				t.Errorf("Observe() = %v, want %s key=%d", got, tt.wantKind, tt.wantKey)
			}
			if got.Patch != tuning.Guitar.Patch() {
				t.Errorf("Patch = %d, want %d", got.Patch, tuning.Guitar.Patch())
			}
		})
	}
}

func TestPlannerChromatic(t *testing.T) {
	p := NewPlanner()
	s := standardState()
	s.Chromatic = true
	s.AutoDetect = false
	p.Observe(s)

	s.NoteTuned = true
	got, ok := p.Observe(s)
	if !ok || got.Kind != KindConfirm || got.Key != 69 {
		t.Fatalf("Observe() = %v, %v, want confirm key=69", got, ok)
	}
	if got.Duration != DefaultConfirmDuration {
		t.Errorf("Duration = %s, want %s", got.Duration, DefaultConfirmDuration)
	}

	s.SelectedNote = -12
	s.NoteTuned = false
	got, ok = p.Observe(s)
	if !ok || got.Kind != KindReference || got.Key != 57 {
		t.Errorf("Observe() = %v, %v, want reference key=57", got, ok)
	}
}

func TestRequestMessages(t *testing.T) {
	uke, err := tuning.Lookup("Ukulele Standard")
	if err != nil {
		t.Fatal(err)
	}
	s := tuner.State{Tuning: uke, Tuned: make([]bool, 4), SelectedString: 0}

	req := NewPlanner().Reference(s)
	msgs := req.Messages(2)
	if len(msgs) != 2 {
		t.Fatalf("Messages() returned %d messages, want 2", len(msgs))
	}

	var channel, program, key, velocity uint8
	if !msgs[0].GetProgramChange(&channel, &program) {
		t.Fatalf("first message %v is not a program change", msgs[0])
	}
	if channel != 2 || program != tuning.Ukulele.Patch() {
		t.Errorf("program change = ch %d prog %d", channel, program)
	}

	if !msgs[1].GetNoteOn(&channel, &key, &velocity) {
		t.Fatalf("second message %v is not a note on", msgs[1])
	}
	if key != 69 || velocity != DefaultVelocity {
		t.Errorf("note on key = %d velocity = %d, want 69 %d", key, velocity, DefaultVelocity)
	}

	if !req.Release(2).GetNoteOff(&channel, &key, &velocity) || key != 69 {
		t.Errorf("Release() = %v, want note off for key 69", req.Release(2))
	}
}
