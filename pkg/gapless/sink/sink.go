// Package sink defines the Output Sink collaborator (§6): a pull-model
// audio output that demands fixed-size buffers on a deadline. The engine
// owns its sink and hands it a non-owning render function, rather than the
// sink holding a back-reference to the engine — see Design Notes "Cyclic
// ownership/callbacks" in the spec.
package sink

import "github.com/drgolem/gapless/pkg/gapless/format"

// Status is the render callback's per-invocation result.
type Status int

const (
	StatusContinue Status = iota
	StatusAbort
)

// RenderFunc is the engine's real-time render callback, handed to the sink
// at SetRenderCallback time. hostTime is a platform-provided monotonic
// timestamp used to schedule notifications accounting for output
// presentation latency (§4.2).
type RenderFunc func(buffer []byte, frameCount int, hostTime uint64) Status

// Sink is any pull-model audio output driver.
type Sink interface {
	Open() error
	Close() error
	Start() error
	Stop() error
	Reset() error
	IsRunning() bool

	// RequestStop is the async variant, safe to call from the render
	// callback itself (e.g. on StatusAbort).
	RequestStop()

	SupportsFormat(f format.Format) bool

	// SetupFor picks a rendering format compatible with both the decoder's
	// native format and the device, and returns it.
	SetupFor(native format.Format) (format.Format, error)

	// SetRenderCallback installs the engine's render function. Must be
	// called before Open.
	SetRenderCallback(fn RenderFunc)
}
