// ABOUTME: Musical scale and chord selection package
// ABOUTME: Picks a random chord from the twelve-tone equal-tempered octave
// Package tone provides the fixed C4..B4 equal-tempered scale and random chord
// selection over it.
//
// Example:
//
//	chord, err := tone.Select(tone.TwelveToneEqualTemperament, tone.ChordSize, nil)
//	fmt.Println(chord) // e.g. "C4+E4+G4"
package tone
