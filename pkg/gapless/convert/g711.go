package convert

import (
	"fmt"

	"github.com/zaf/g711"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

// Law selects the G.711 companding variant.
type Law int

const (
	ALaw Law = iota
	ULaw
)

// G711 decodes 8-bit companded telephony audio (G.711 A-law/µ-law, one
// byte per mono sample) into 16-bit linear PCM using github.com/zaf/g711.
// It is the engine's second concrete Converter implementation, exercised
// by decoders that source narrowband telephony-style fixtures rather than
// CD-quality PCM.
type G711 struct {
	law Law
	in  format.Format

	inBuf []byte
}

// NewG711 builds a G711 converter for the given companding law. in.Encoding
// must be format.EncodingPCMInt with BitsPerSample==8 (one companded byte
// per sample).
func NewG711(law Law, in format.Format) (*G711, error) {
	if in.BitsPerSample != 8 || in.Channels != 1 {
		return nil, fmt.Errorf("convert: g711 requires mono 8-bit companded input, got %s", in)
	}
	return &G711{law: law, in: in, inBuf: make([]byte, 4096)}, nil
}

func (g *G711) Reset() error { return nil }

func (g *G711) Fill(output []byte, targetFrames int, pull InputProvider) (int, error) {
	if cap(g.inBuf) < targetFrames {
		g.inBuf = make([]byte, targetFrames)
	}
	inBuf := g.inBuf[:targetFrames]

	n, err := pull(inBuf, targetFrames)
	if n == 0 {
		return 0, err
	}

	var decoded []byte
	switch g.law {
	case ALaw:
		decoded = g711.DecodeAlaw(inBuf[:n])
	case ULaw:
		decoded = g711.DecodeUlaw(inBuf[:n])
	}

	if len(decoded) > len(output) {
		decoded = decoded[:len(output)-len(output)%2]
	}
	copy(output, decoded)

	return len(decoded) / 2, err
}

func (g *G711) Dispose() error { return nil }
