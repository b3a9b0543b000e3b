// ABOUTME: WAV container writer
// ABOUTME: Wraps already-encoded little-endian frames in a RIFF/WAVE header

// Package wav writes RIFF/WAVE files from frames produced by an audio.PutFunc.
//
// Float32 streams are tagged as IEEE float (format 3); integer streams as PCM
// (format 1). The samples are written as-is, so the file holds exactly the
// bytes a device would have received.
package wav
