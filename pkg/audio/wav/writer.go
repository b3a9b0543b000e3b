// ABOUTME: Streaming WAV writer with header patch-up on Close
// ABOUTME: Supports every audio.SampleFormat the renderer can produce
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Resonate-Protocol/tonegen/pkg/audio"
)

const (
	headerSize = 44

	formatPCM   = 1
	formatFloat = 3
)

// ErrClosed is returned when writing to a closed Writer
var ErrClosed = errors.New("wav: writer closed")

// Writer writes a WAV file. Sizes in the header are filled in by Close.
type Writer struct {
	out    io.WriteSeeker
	cfg    audio.StreamConfig
	data   int64
	closed bool
}

// NewWriter writes a placeholder header to w and returns a Writer for cfg
func NewWriter(w io.WriteSeeker, cfg audio.StreamConfig) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}

	hdr := header(cfg, 0)
	if _, err := w.Write(hdr[:]); err != nil {
		return nil, fmt.Errorf("wav: failed to write header: %w", err)
	}
	return &Writer{out: w, cfg: cfg}, nil
}

// Write appends encoded frames. len(p) must be a multiple of the frame size.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if len(p)%w.cfg.FrameBytes() != 0 {
		return 0, fmt.Errorf("wav: %d bytes is not a whole number of %d-byte frames", len(p), w.cfg.FrameBytes())
	}
	n, err := w.out.Write(p)
	w.data += int64(n)
	return n, err
}

// Frames returns the number of frames written so far
func (w *Writer) Frames() int64 {
	return w.data / int64(w.cfg.FrameBytes())
}

// Close patches the RIFF and data chunk sizes. The underlying writer is
// closed if it implements io.Closer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.data > math.MaxUint32-headerSize {
		return fmt.Errorf("wav: %d data bytes exceed the 4GiB limit", w.data)
	}

	// RIFF size covers everything after the first 8 bytes
	if err := w.patch(4, uint32(w.data+headerSize-8)); err != nil {
		return err
	}
	if err := w.patch(40, uint32(w.data)); err != nil {
		return err
	}
	if _, err := w.out.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	if c, ok := w.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (w *Writer) patch(offset int64, v uint32) error {
	if _, err := w.out.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("wav: failed to seek header: %w", err)
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	if _, err := w.out.Write(b[:]); err != nil {
		return fmt.Errorf("wav: failed to patch header: %w", err)
	}
	return nil
}

func header(cfg audio.StreamConfig, dataBytes uint32) [headerSize]byte {
	var h [headerSize]byte
	le := binary.LittleEndian

	tag := uint16(formatPCM)
	if cfg.Format == audio.FormatFloat32 {
		tag = formatFloat
	}
	frameBytes := cfg.FrameBytes()

	copy(h[0:], "RIFF")
	le.PutUint32(h[4:], dataBytes+headerSize-8)
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	le.PutUint32(h[16:], 16)
	le.PutUint16(h[20:], tag)
	le.PutUint16(h[22:], uint16(cfg.Channels))
	le.PutUint32(h[24:], uint32(cfg.SampleRate))
	le.PutUint32(h[28:], uint32(cfg.SampleRate*frameBytes))
	le.PutUint16(h[32:], uint16(frameBytes))
	le.PutUint16(h[34:], uint16(cfg.Format.BitDepth()))
	copy(h[36:], "data")
	le.PutUint32(h[40:], dataBytes)
	return h
}

// Header is the decoded fmt and data chunk information of a WAV file
type Header struct {
	Config    audio.StreamConfig
	DataBytes uint32
}

// ReadHeader parses the canonical 44-byte header written by Writer
func ReadHeader(r io.Reader) (Header, error) {
	var h [headerSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return Header{}, fmt.Errorf("wav: failed to read header: %w", err)
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" ||
		string(h[12:16]) != "fmt " || string(h[36:40]) != "data" {
		return Header{}, errors.New("wav: not a canonical RIFF/WAVE header")
	}

	le := binary.LittleEndian
	tag := le.Uint16(h[20:])
	bits := int(le.Uint16(h[34:]))

	var format audio.SampleFormat
	switch {
	case tag == formatFloat && bits == 32:
		format = audio.FormatFloat32
	case tag == formatPCM:
		for _, f := range audio.AllFormats {
			if f != audio.FormatFloat32 && f.BitDepth() == bits {
				format = f
			}
		}
	}
	if format == audio.FormatUnknown {
		return Header{}, fmt.Errorf("wav: unsupported format tag %d with %d bits", tag, bits)
	}

	return Header{
		Config: audio.StreamConfig{
			SampleRate: int(le.Uint32(h[24:])),
			Channels:   int(le.Uint16(h[22:])),
			Format:     format,
		},
		DataBytes: le.Uint32(h[40:]),
	}, nil
}
