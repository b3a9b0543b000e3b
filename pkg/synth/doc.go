// ABOUTME: Waveform synthesis package
// ABOUTME: Computes one percussive chord sample from elapsed time
// Package synth maps elapsed time and a set of frequencies to one amplitude.
//
// Each frequency contributes a decaying fundamental plus second harmonic, cubed
// for soft waveshaping and scaled by a short swell envelope. Contributions are
// summed and rescaled to be centred on 0.5.
//
// Example:
//
//	amp := synth.SampleAt(float64(n)/48000, chord.Freqs())
package synth
