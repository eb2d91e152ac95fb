// Package convert implements the Converter collaborator (§6): a component
// that resamples and/or reformats frames from a decoder's native format to
// the engine's rendering format.
package convert

// InputProvider pulls up to maxFrames frames of decoder-native audio into
// buf, returning the frame count actually produced. It is how a Converter
// reaches back into the slot's decoder without the converter needing to
// know about slots, decoders, or the engine.
type InputProvider func(buf []byte, maxFrames int) (int, error)

// Converter is the engine's Converter collaborator.
type Converter interface {
	// Reset discards any internal state (partial samples, filter delay
	// lines) without closing the underlying codec. Called by the worker
	// during the mute protocol around a seek or ring-buffer reset.
	Reset() error

	// Fill drives the converter to produce up to targetFrames frames of
	// rendering-format audio into output, pulling native-format input from
	// pull as needed. Returns the number of output frames actually
	// produced; zero signals the input is exhausted, while a non-zero count
	// below targetFrames does not by itself mean end of stream.
	Fill(output []byte, targetFrames int, pull InputProvider) (int, error)

	// Dispose releases converter resources. Safe to call multiple times.
	Dispose() error
}
