// ABOUTME: Streaming driver package for real-time chord playback
// ABOUTME: Owns the sample clock and fills device buffers from the synthesizer
// Package tonegen drives a chord through an output device.
//
// A Renderer turns a chord and a negotiated stream config into a real-time fill
// function. A Driver walks the Idle → Streaming → Stopped lifecycle: it
// negotiates the device format, opens the stream, lets the device pull buffers
// for PlaybackDuration, then stops abruptly.
//
// Example:
//
//	chord, _ := tone.Select(tone.TwelveToneEqualTemperament, tone.ChordSize, nil)
//	sink, _ := output.New("auto", output.Options{Logger: logger})
//	d, err := tonegen.NewDriver(tonegen.Config{Sink: sink, Chord: chord, Logger: logger})
//	err = d.Run(ctx)
package tonegen
