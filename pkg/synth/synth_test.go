// ABOUTME: Tests for percussive tone synthesis
// ABOUTME: Checks purity, the t=0 value, envelope shape, and reference values
package synth

import (
	"math"
	"testing"
)

var cMajor = []float64{261.626, 329.628, 391.995}

// reference evaluates the formula term by term without shared subexpressions
func reference(t float64, freqs []float64) float64 {
	y := 0.0
	for _, f := range freqs {
		a := 0.6 * math.Sin(f*t*2.0*math.Pi) * math.Exp(-0.0015*f*t)
		b := a + 0.4*math.Sin(2.0*f*t*2.0*math.Pi)*math.Exp(-0.0015*f*t)
		c := math.Pow(b, 3)
		y += c * (1.0 + 16.0*t*math.Exp(-6.0*t))
	}
	return y*0.5 + 0.5
}

func TestSampleAtDeterministic(t *testing.T) {
	for _, ts := range []float64{0, 1.0 / 48000, 0.01, 0.1667, 1, 9.99} {
		first := SampleAt(ts, cMajor)
		for i := 0; i < 10; i++ {
			if got := SampleAt(ts, cMajor); math.Float64bits(got) != math.Float64bits(first) {
				t.Fatalf("t=%v: call %d returned %v, first call returned %v", ts, i, got, first)
			}
		}
	}
}

func TestSampleAtZero(t *testing.T) {
	tests := []struct {
		name  string
		freqs []float64
	}{
		{"single", []float64{440}},
		{"triad", cMajor},
		{"lowest and highest", []float64{261.626, 493.883}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleAt(0, tt.freqs); math.Abs(got-0.5) > 1e-12 {
				t.Errorf("expected 0.5 at t=0, got %v", got)
			}
		})
	}
}

func TestSampleAtEmptyChord(t *testing.T) {
	if got := SampleAt(0.25, nil); got != 0.5 {
		t.Errorf("expected silence (0.5) for no frequencies, got %v", got)
	}
}

func TestSampleAtMatchesReference(t *testing.T) {
	for _, ts := range []float64{1.0 / 48000, 0.001, 0.05, 0.1667, 0.5, 2, 9.5} {
		want := reference(ts, cMajor)
		got := SampleAt(ts, cMajor)
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("t=%v: expected %v, got %v", ts, want, got)
		}
	}
}

func TestSampleAtIsAdditive(t *testing.T) {
	ts := 0.0421
	sum := 0.0
	for _, f := range cMajor {
		sum += SampleAt(ts, []float64{f}) - 0.5
	}
	if got := SampleAt(ts, cMajor) - 0.5; math.Abs(got-sum) > 1e-12 {
		t.Errorf("expected chord contribution %v to equal sum of notes %v", got, sum)
	}
}

func TestEnvelopeShape(t *testing.T) {
	if Envelope(0) != 1 {
		t.Errorf("expected envelope 1 at t=0, got %v", Envelope(0))
	}

	peak := PeakEnvelope()
	for _, ts := range []float64{0.05, 0.1, 0.2, 0.5, 1, 5} {
		if e := Envelope(ts); e > peak+1e-12 {
			t.Errorf("envelope %v at t=%v exceeds peak %v", e, ts, peak)
		}
	}

	if Envelope(0.1) <= Envelope(0.01) {
		t.Error("expected envelope to rise before the peak")
	}
	if Envelope(2) >= Envelope(0.5) {
		t.Error("expected envelope to fall after the peak")
	}
	if math.Abs(Envelope(10)-1) > 1e-20 {
		t.Errorf("expected envelope to settle near 1, got %v", Envelope(10))
	}
}

func TestHigherNotesDecayFaster(t *testing.T) {
	low := math.Exp(-DecayRate * 261.626 * 5)
	high := math.Exp(-DecayRate * 493.883 * 5)
	if high >= low {
		t.Errorf("expected faster decay for higher note: low=%v high=%v", low, high)
	}
}

func TestSampleAtWithinPeakBound(t *testing.T) {
	bound := PeakBound(len(cMajor))
	for n := 0; n < 48000*2; n += 7 {
		ts := float64(n) / 48000
		if d := math.Abs(SampleAt(ts, cMajor) - 0.5); d > bound {
			t.Fatalf("t=%v: deviation %v exceeds bound %v", ts, d, bound)
		}
	}
}

func BenchmarkSampleAt(b *testing.B) {
	for i := 0; i < b.N; i++ {
		SampleAt(float64(i)/48000, cMajor)
	}
}
