package pitch

import (
	"math"

	"github.com/0xlemi/guitartuner/internal/audio"
	"github.com/0xlemi/guitartuner/internal/notes"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// ACFDetector estimates the fundamental frequency from the autocorrelation
// of a buffer, computed through the FFT and normalised by the energy of the
// overlapping parts (NSDF). The lag search is limited to the periods of the
// detectable note range.
type ACFDetector struct {
	sampleRate      int
	minFrequency    float64 // Lowest frequency to detect (Hz)
	maxFrequency    float64 // Highest frequency to detect (Hz)
	volumeThreshold float64 // Minimum RMS level for a buffer to be analysed
	clarity         float64 // Minimum normalised correlation at the chosen period
	peakRatio       float64 // First peak within this fraction of the best one wins
}

// NewACFDetector creates a detector for buffers sampled at sampleRate
func NewACFDetector(sampleRate int) *ACFDetector {
	return &ACFDetector{
		sampleRate:      sampleRate,
		minFrequency:    notes.PitchOf(notes.LowestNote),
		maxFrequency:    notes.PitchOf(notes.HighestNote),
		volumeThreshold: 0.005,
		clarity:         0.6,
		peakRatio:       0.9,
	}
}

// Detect analyzes an audio buffer
func (d *ACFDetector) Detect(buffer *audio.Buffer) Result {
	if buffer == nil || len(buffer.Samples) == 0 {
		return Unpitched
	}

	sampleRate := float64(d.sampleRate)
	if buffer.SampleRate > 0 {
		sampleRate = float64(buffer.SampleRate)
	}

	n := len(buffer.Samples)
	signal := make([]float64, n)
	for i, s := range buffer.Samples {
		signal[i] = float64(s)
	}

	// Remove DC so the correlation reflects the periodic part only
	floats.AddConst(-floats.Sum(signal)/float64(n), signal)

	energy := floats.Dot(signal, signal)
	if math.Sqrt(energy/float64(n)) < d.volumeThreshold {
		return Unpitched
	}

	// The window reaches past the range ends by the same margin the
	// output check allows, so peaks at D1 or B4 are not cut off
	minLag := int(sampleRate / (d.maxFrequency * 1.03))
	maxLag := int(math.Ceil(sampleRate/(d.minFrequency*0.97))) + 2
	if maxLag > n-2 {
		maxLag = n - 2
	}
	if minLag < 1 || minLag >= maxLag {
		return Unpitched
	}

	acf := nsdf(signal, maxLag+2)

	best := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		best = max(best, acf[lag])
	}
	if best < d.clarity {
		return Unpitched
	}

	// The first local peak close to the best one is the fundamental;
	// later peaks at multiples of the period would be octave errors.
	period := -1
	for lag := minLag; lag <= maxLag; lag++ {
		if acf[lag] >= d.peakRatio*best && acf[lag] >= acf[lag-1] && acf[lag] >= acf[lag+1] {
			period = lag
			break
		}
	}
	if period < 0 {
		return Unpitched
	}

	frequency := sampleRate / parabolicInterpolation(acf, period)
	if frequency < d.minFrequency*0.97 || frequency > d.maxFrequency*1.03 {
		return Unpitched
	}

	return Result{Frequency: frequency, Pitched: true}
}

// nsdf returns the normalised square difference function for lags
// 0..lags-1: 2*r(lag) / (sum of x[j]^2 + x[j+lag]^2 over the overlap).
// It is 1 at lag 0 and at any exact period, whatever the lag.
func nsdf(signal []float64, lags int) []float64 {
	n := len(signal)

	// Zero pad to avoid circular wrap-around
	padded := make([]float64, nextPowerOfTwo(2*n))
	copy(padded, signal)

	spectrum := fft.FFTReal(padded)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	raw := fft.IFFT(spectrum)

	// cum[k] holds the energy of signal[:k]
	cum := make([]float64, n+1)
	floats.CumSum(cum[1:], floats.MulTo(make([]float64, n), signal, signal))
	energy := cum[n]
	scale := energy / real(raw[0])

	out := make([]float64, lags)
	for lag := range out {
		m := cum[n-lag] + energy - cum[lag]
		if m > 0 {
			out[lag] = 2 * real(raw[lag]) * scale / m
		}
	}
	return out
}

// parabolicInterpolation refines a peak position using its neighbours
func parabolicInterpolation(data []float64, peak int) float64 {
	if peak <= 0 || peak >= len(data)-1 {
		return float64(peak)
	}

	y1 := data[peak-1]
	y2 := data[peak]
	y3 := data[peak+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2
	if a == 0 {
		return float64(peak)
	}

	// Limit the shift to half a sample
	shift := math.Max(-0.5, math.Min(0.5, -b/(2*a)))
	return float64(peak) + shift
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
