package engine

import (
	"github.com/drgolem/gapless/pkg/gapless/decoder"
	"github.com/drgolem/gapless/pkg/gapless/format"
)

// Callbacks is the host callback bundle (§6, §9 "Block callbacks with
// hidden retention"): a value owned by the Engine and replaced atomically
// via SetCallbacks, rather than the reference-counted closures the source
// used. Every field is optional; a nil field means "no callback
// registered" and the corresponding event is discarded by the Notifier.
//
// PreRender/PostRender are the sole exception: if set, they are invoked on
// the real-time render thread itself and MUST be real-time-safe (no
// allocation, no blocking, no locks).
type Callbacks struct {
	DecodingStarted   func(dec decoder.Decoder)
	DecodingFinished  func(dec decoder.Decoder)
	DecodingCancelled func(dec decoder.Decoder)

	RenderingStarted  func(dec decoder.Decoder)
	RenderingComplete func(dec decoder.Decoder)

	PreRender  func(buffer []byte, frames int)
	PostRender func(buffer []byte, frames int)

	OutOfAudio func()
	Error      func(err error)

	FormatMismatch func(old, new format.Format)
}
