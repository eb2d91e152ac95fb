package convert

import "github.com/drgolem/gapless/pkg/gapless/format"

// Passthrough is the identity Converter (§4.3 "Format check" — seamless
// case). NewForFormats selects it whenever sample rate and channel count
// match; it copies the decoder's bytes unchanged and does no encoding or
// bit-depth conversion. It still goes through the Converter interface so
// the worker's decode loop never special-cases "no converter needed".
type Passthrough struct {
	bytesPerFrame int
}

// NewPassthrough builds a Passthrough converter for fmt_.
func NewPassthrough(fmt_ format.Format) *Passthrough {
	return &Passthrough{bytesPerFrame: fmt_.BytesPerFrame()}
}

func (p *Passthrough) Reset() error { return nil }

func (p *Passthrough) Fill(output []byte, targetFrames int, pull InputProvider) (int, error) {
	n, err := pull(output[:min(len(output), targetFrames*p.bytesPerFrame)], targetFrames)
	return n, err
}

func (p *Passthrough) Dispose() error { return nil }
