package engine

import "errors"

// Error kinds from the error taxonomy (§7). Each is a sentinel comparable
// with errors.Is, following pkg/types.ErrInsufficientSpace /
// ErrInsufficientData in the teacher repository.
var (
	// ErrDecoderOpenFailed: decoder.Open() failed. Surfaced via the error
	// callback; the decoder is discarded and the worker continues.
	ErrDecoderOpenFailed = errors.New("gapless: decoder open failed")

	// ErrFormatUnsupported: the output sink cannot play this format. The
	// slot is never installed.
	ErrFormatUnsupported = errors.New("gapless: output format unsupported")

	// ErrConverterInitFailed: the converter could not be constructed for
	// this decoder/rendering format pair.
	ErrConverterInitFailed = errors.New("gapless: converter init failed")

	// ErrDecodeError: a mid-stream read failure. The slot is treated as
	// end-of-stream; the render callback may produce a short render.
	ErrDecodeError = errors.New("gapless: decode error")

	// ErrSeekFailed: the decoder returned -1 from SeekToFrame.
	ErrSeekFailed = errors.New("gapless: seek failed")

	// ErrTableFull: the worker stopped waiting for a free active-decoder
	// table slot because the engine is shutting down; until then it
	// retries without limit.
	ErrTableFull = errors.New("gapless: active-decoder table full")

	// ErrOutputStartFailed: the output sink refused to start.
	ErrOutputStartFailed = errors.New("gapless: output start failed")

	// ErrNoDecoderOpen: Play/Enqueue called with a nil decoder.
	ErrNoDecoderOpen = errors.New("gapless: no decoder supplied")

	// ErrSeekNotSupported: SeekToFrame called against a decoder that
	// cannot seek, or with a frame outside [0, frame_length).
	ErrSeekNotSupported = errors.New("gapless: seek not supported or out of range")

	// ErrNoFrontSlot: an operation requiring a currently-rendering slot
	// (skip_to_next, seek_to_frame) was called with none active.
	ErrNoFrontSlot = errors.New("gapless: no active front slot")
)
