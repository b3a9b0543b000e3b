// ABOUTME: Percussive additive tone synthesis
// ABOUTME: Pure per-sample function with no state or allocation
package synth

import "math"

const (
	// DecayRate scales per-tone decay with frequency, so higher notes fade sooner
	DecayRate = 0.0015

	FundamentalGain = 0.6
	HarmonicGain    = 0.4

	// SwellGain and SwellRate shape the envelope 1 + SwellGain*t*exp(-SwellRate*t)
	SwellGain = 16.0
	SwellRate = 6.0
)

// SampleAt returns the amplitude at elapsed time t (seconds) for freqs.
// The result is y*0.5 + 0.5 and is not clamped.
func SampleAt(t float64, freqs []float64) float64 {
	env := Envelope(t)

	var y float64
	for _, f := range freqs {
		decay := math.Exp(-DecayRate * f * t)
		a := FundamentalGain * math.Sin(2*math.Pi*f*t) * decay
		b := a + HarmonicGain*math.Sin(2*math.Pi*2*f*t)*decay
		y += b * b * b * env
	}

	return y*0.5 + 0.5
}

// Envelope is the swell multiplier applied to every tone at time t.
// It rises from 1 at t=0 to its peak at t=1/SwellRate, then falls back towards 1.
func Envelope(t float64) float64 {
	return 1 + SwellGain*t*math.Exp(-SwellRate*t)
}

// PeakEnvelope is the maximum of Envelope over t >= 0
func PeakEnvelope() float64 {
	return Envelope(1 / SwellRate)
}

// PeakBound bounds |SampleAt(t, freqs) - 0.5| for n tones at any t >= 0
func PeakBound(n int) float64 {
	// |b| <= FundamentalGain + HarmonicGain, decay <= 1
	peak := FundamentalGain + HarmonicGain
	return 0.5 * float64(n) * peak * peak * peak * PeakEnvelope()
}
