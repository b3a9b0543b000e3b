// ABOUTME: Scale and chord types with random selection
// ABOUTME: Draws distinct notes without replacement from an injected source
package tone

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// ChordSize is the number of notes sounded per run
const ChordSize = 3

// ErrInvalidSelectionSize is returned when a chord cannot be drawn from a scale
var ErrInvalidSelectionSize = errors.New("invalid selection size")

// Scale is one octave of ascending frequencies in Hz
type Scale [12]float64

// TwelveToneEqualTemperament is the C4..B4 octave tuned to A4 = 440 Hz
var TwelveToneEqualTemperament = Scale{
	261.626, 277.183, 293.665, 311.127, 329.628, 349.228,
	369.994, 391.995, 415.305, 440.000, 466.164, 493.883,
}

// NoteNames labels the degrees of TwelveToneEqualTemperament
var NoteNames = [12]string{
	"C4", "C#4", "D4", "D#4", "E4", "F4",
	"F#4", "G4", "G#4", "A4", "A#4", "B4",
}

// Validate checks that the scale is strictly increasing and positive
func (s Scale) Validate() error {
	for i, f := range s {
		if f <= 0 {
			return fmt.Errorf("scale degree %d: frequency %.3f is not positive", i, f)
		}
		if i > 0 && f <= s[i-1] {
			return fmt.Errorf("scale degree %d: frequency %.3f does not exceed %.3f", i, f, s[i-1])
		}
	}
	return nil
}

// Source supplies uniform permutations.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Perm(n int) []int
}

// processSource draws from the process-level generator
type processSource struct{}

func (processSource) Perm(n int) []int { return rand.Perm(n) }

// NewSource returns a seeded source, or the process-level source when seed is 0
func NewSource(seed uint64) Source {
	if seed == 0 {
		return processSource{}
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Chord is an immutable set of distinct scale frequencies
type Chord struct {
	freqs []float64
	names []string
}

// Select draws count distinct notes from scale uniformly without replacement.
// A nil rng uses the process-level random source.
func Select(scale Scale, count int, rng Source) (Chord, error) {
	if count < 1 || count > len(scale) {
		return Chord{}, fmt.Errorf("%w: want %d notes from a scale of %d", ErrInvalidSelectionSize, count, len(scale))
	}
	if rng == nil {
		rng = processSource{}
	}

	perm := rng.Perm(len(scale))
	if len(perm) < count {
		return Chord{}, fmt.Errorf("%w: source returned %d indices, need %d", ErrInvalidSelectionSize, len(perm), count)
	}

	chord := Chord{
		freqs: make([]float64, 0, count),
		names: make([]string, 0, count),
	}
	seen := make(map[int]bool, count)
	for _, idx := range perm[:count] {
		if idx < 0 || idx >= len(scale) || seen[idx] {
			return Chord{}, fmt.Errorf("source returned invalid permutation %v", perm)
		}
		seen[idx] = true
		chord.freqs = append(chord.freqs, scale[idx])
		chord.names = append(chord.names, NoteNames[idx])
	}

	return chord, nil
}

// NewChord builds a chord from explicit frequencies, which must all be scale members
func NewChord(scale Scale, freqs ...float64) (Chord, error) {
	if len(freqs) < 1 || len(freqs) > len(scale) {
		return Chord{}, fmt.Errorf("%w: %d notes for a scale of %d", ErrInvalidSelectionSize, len(freqs), len(scale))
	}

	chord := Chord{}
	seen := make(map[int]bool, len(freqs))
	for _, f := range freqs {
		idx := indexOf(scale, f)
		if idx < 0 {
			return Chord{}, fmt.Errorf("frequency %.3f is not in the scale", f)
		}
		if seen[idx] {
			return Chord{}, fmt.Errorf("frequency %.3f appears twice", f)
		}
		seen[idx] = true
		chord.freqs = append(chord.freqs, scale[idx])
		chord.names = append(chord.names, NoteNames[idx])
	}
	return chord, nil
}

// ParseChord builds a chord from note names such as "C4" or "f#4"
func ParseChord(scale Scale, names ...string) (Chord, error) {
	freqs := make([]float64, 0, len(names))
	for _, name := range names {
		idx := -1
		for i, n := range NoteNames {
			if strings.EqualFold(n, strings.TrimSpace(name)) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Chord{}, fmt.Errorf("unknown note %q", name)
		}
		freqs = append(freqs, scale[idx])
	}
	return NewChord(scale, freqs...)
}

func indexOf(scale Scale, f float64) int {
	for i, s := range scale {
		if s == f {
			return i
		}
	}
	return -1
}

// Freqs returns a copy of the chord frequencies
func (c Chord) Freqs() []float64 {
	out := make([]float64, len(c.freqs))
	copy(out, c.freqs)
	return out
}

// Names returns the note names in selection order
func (c Chord) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of notes
func (c Chord) Len() int { return len(c.freqs) }

func (c Chord) String() string {
	if len(c.names) == 0 {
		return "(empty)"
	}
	return strings.Join(c.names, "+")
}
