// Package format describes the rendering format shared by the ring buffer,
// the decoders, the converter, and the output sink.
package format

import "fmt"

// Encoding identifies the sample encoding carried by a Format.
type Encoding int

const (
	EncodingPCMInt Encoding = iota
	EncodingPCMFloat
	EncodingDSD
)

func (e Encoding) String() string {
	switch e {
	case EncodingPCMInt:
		return "pcm-int"
	case EncodingPCMFloat:
		return "pcm-float"
	case EncodingDSD:
		return "dsd"
	default:
		return "unknown"
	}
}

// Layout is a channel-layout bitmask. Bit i set means channel i is present.
// Generalized rather than enumerated so the engine stays agnostic of
// specific speaker-position conventions (left, right, LFE, ...); the
// converter and output sink own any further interpretation.
type Layout uint32

// DefaultLayout returns a layout with the first n channels present, used
// when a decoder or test fixture does not report an explicit layout.
func DefaultLayout(n int) Layout {
	if n <= 0 || n > 32 {
		return 0
	}
	return Layout(1<<uint(n)) - 1
}

// Format is the immutable rendering format of one playback "run": sample
// rate, channel count, channel layout, sample encoding, interleaving.
// All audio in the ring buffer conforms to this format once set.
type Format struct {
	SampleRate    int
	Channels      int
	Layout        Layout
	Encoding      Encoding
	BitsPerSample int // sample width for EncodingPCMInt; BytesPerSample ignores it for float/DSD
	Interleaved   bool
}

// BytesPerSample returns the per-channel sample width in bytes.
func (f Format) BytesPerSample() int {
	switch f.Encoding {
	case EncodingPCMFloat:
		return 4
	case EncodingDSD:
		return 1 // one byte carries 8 one-bit samples per channel; see convert.DSD
	default:
		return f.BitsPerSample / 8
	}
}

// BytesPerFrame returns the byte size of one interleaved audio frame
// (one sample per channel) in this format.
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BytesPerSample()
}

// Equal reports whether two formats are render-compatible: same sample
// rate, channel count, and layout. Per §4.3 "Format check", bit depth and
// encoding differences alone do not force the format-change protocol as
// long as the converter can absorb them; sample rate/channels/layout do.
func (f Format) Equal(o Format) bool {
	return f.SampleRate == o.SampleRate &&
		f.Channels == o.Channels &&
		f.Layout == o.Layout
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.Encoding)
}
