package convert

import (
	"fmt"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

// NewForFormats builds the Converter appropriate for moving audio from in
// (a decoder's native format) to out (the engine's rendering format) — the
// engine's default engine.ConverterFactory. DSD and G.711 companded
// sources never need resampling in this design (their rate matches the
// rendering format by construction of the output setup); everything else
// that only differs in encoding/bit-depth, or not at all, is a
// Passthrough; a genuine sample-rate or channel-count mismatch gets the
// resampler.
func NewForFormats(in, out format.Format) (Converter, error) {
	switch in.Encoding {
	case format.EncodingDSD:
		reverseBits := in.BitsPerSample != out.BitsPerSample
		return NewDSD(in, reverseBits), nil
	}

	if in.SampleRate == out.SampleRate && in.Channels == out.Channels {
		return NewPassthrough(in), nil
	}

	r, err := NewResampler(in, out)
	if err != nil {
		return nil, fmt.Errorf("building resampler for %s -> %s: %w", in.String(), out.String(), err)
	}
	return r, nil
}
