package pitch

import (
	"math"

	"github.com/0xlemi/guitartuner/internal/audio"
	"gonum.org/v1/gonum/floats"
)

// Result is the outcome of analysing one buffer. Frequency is meaningless
// when Pitched is false.
type Result struct {
	Frequency float64
	Pitched   bool
}

// Unpitched is the result for silence, noise or anything without a clear
// period
var Unpitched = Result{}

// Detector defines the interface for pitch detection
type Detector interface {
	// Detect analyzes one audio buffer
	Detect(buffer *audio.Buffer) Result
}

// DetectorFunc adapts a function to the Detector interface
type DetectorFunc func(buffer *audio.Buffer) Result

// Detect calls f
func (f DetectorFunc) Detect(buffer *audio.Buffer) Result {
	return f(buffer)
}

// Level calculates the RMS and dB level of a buffer
func Level(buffer *audio.Buffer) (rms, db float64) {
	if buffer == nil || len(buffer.Samples) == 0 {
		return 0, -100
	}

	x := make([]float64, len(buffer.Samples))
	for i, sample := range buffer.Samples {
		x[i] = float64(sample)
	}
	rms = math.Sqrt(floats.Dot(x, x) / float64(len(x)))

	// Avoid log(0)
	if rms > 0.0000001 {
		db = 20 * math.Log10(rms)
	} else {
		db = -100
	}

	return rms, db
}
