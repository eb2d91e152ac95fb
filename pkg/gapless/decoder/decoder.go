// Package decoder defines the Decoder collaborator interface (§6 of the
// engine specification). Concrete decoders — MP3, FLAC, WAV, Vorbis, Opus —
// live under internal/decoder and wrap a third-party codec library behind
// this interface, the way pkg/decoders/{mp3,flac,wav} wrap their codec
// libraries behind types.AudioDecoder in the teacher repository.
package decoder

import "github.com/drgolem/gapless/pkg/gapless/format"

// Decoder is any source capable of producing PCM or DSD frames. The engine
// never assumes anything about where the bytes come from: a file, a
// network stream, a synthetic test source. Open is idempotent after a
// first success, matching the contract in §6.
type Decoder interface {
	// Open opens (or re-opens, as a no-op) the underlying source.
	Open() error

	// IsOpen reports whether Open has succeeded and Close has not been
	// called since.
	IsOpen() bool

	// Format returns the decoder's native audio format.
	Format() format.Format

	// FrameLength returns the total number of output-rate frames, which
	// may be an estimate until end-of-stream for formats like MP3.
	FrameLength() int64

	// CurrentFrame returns the decoder's current read position in
	// output-rate frames.
	CurrentFrame() int64

	// SupportsSeeking reports whether SeekToFrame is implemented.
	SupportsSeeking() bool

	// SeekToFrame seeks to the given output-rate frame and returns the
	// frame actually reached, or -1 if the seek failed.
	SeekToFrame(frame int64) (int64, error)

	// Read decodes up to maxFrames frames of native-format audio into buf
	// and returns the number of frames actually produced. A return of
	// (0, nil) signals end-of-stream.
	Read(buf []byte, maxFrames int) (int, error)

	// Close releases resources. Safe to call multiple times.
	Close() error

	// URL identifies the source for client correlation (log lines,
	// notifications); it need not be a real URL.
	URL() string

	// RepresentedObject is an opaque pass-through value the host attached
	// when enqueuing this decoder, handed back unchanged in callbacks.
	RepresentedObject() any
}
