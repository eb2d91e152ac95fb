// Package slot implements the Decoder State Slot (§3 of the engine
// specification): a heap-owned record holding one decoder plus its
// per-track atomics. Slots are installed into the active-decoder table by
// the worker and destroyed by the collector; nothing else allocates or
// frees them.
package slot

import (
	"sync/atomic"

	"github.com/drgolem/gapless/pkg/gapless/convert"
	"github.com/drgolem/gapless/pkg/gapless/decoder"
)

// Flag is one bit of the slot's atomic flag bitset (§3).
type Flag uint32

const (
	FlagDecodingStarted Flag = 1 << iota
	FlagDecodingFinished
	FlagRenderingStarted
	FlagRenderingFinished
	FlagCancelRequested
	FlagMarkedForRemoval
	// FlagNotifyPending is set alongside FlagRenderingFinished when the
	// render callback pushes RENDERING_COMPLETE onto the event channel
	// (§4.4, §4.5). It holds the slot out of Removable() collection until
	// the Notifier has resolved and dispatched that event, so the
	// table-scan lookup in slotForSequence can never race the
	// collector's CAS-remove (§8 rendering_complete delivery guarantee).
	// Never set on the cancellation path, since that path fires its
	// callback synchronously and needs no hand-off through the Notifier.
	FlagNotifyPending
)

// Flags is an atomic bitset of Flag values. All mutation goes through
// CAS loops in Set (OR) and Clear (AND-NOT) so that concurrent setters
// from different threads (the
// worker setting FlagDecodingStarted, the render callback setting
// FlagRenderingStarted) never clobber each other's bits.
type Flags struct {
	bits atomic.Uint32
}

// Set atomically ORs fl into the bitset. Passing multiple bits OR'd
// together sets them as a single atomic step — used on the cancellation
// path (§9 Open Question 2) where FlagDecodingFinished and
// FlagRenderingFinished must become visible together.
func (f *Flags) Set(fl Flag) {
	for {
		old := f.bits.Load()
		next := old | uint32(fl)
		if next == old {
			return
		}
		if f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Clear atomically clears every bit in fl.
func (f *Flags) Clear(fl Flag) {
	for {
		old := f.bits.Load()
		next := old &^ uint32(fl)
		if next == old {
			return
		}
		if f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Has reports whether every bit in fl is set.
func (f *Flags) Has(fl Flag) bool {
	return Flag(f.bits.Load())&fl == fl
}

// Load returns the full bitset.
func (f *Flags) Load() Flag {
	return Flag(f.bits.Load())
}

// NoSeekPending is the frame_to_seek sentinel meaning "no seek pending".
const NoSeekPending int64 = -1

// Slot owns exactly one decoder and one converter (§3).
type Slot struct {
	// SequenceNumber is assigned once at construction and never changes;
	// it defines enqueue order (I4) and is immutable, so it needs no
	// atomic wrapper.
	SequenceNumber uint64

	Flags Flags

	FramesDecoded   atomic.Int64 // decoder input rate
	FramesConverted atomic.Int64 // rendering-format output rate
	FramesRendered  atomic.Int64 // rendering-format output rate
	FrameLength     atomic.Int64 // output-rate total, revised at EOS
	FrameToSeek     atomic.Int64 // NoSeekPending, or the desired output-rate frame

	Decoder   decoder.Decoder
	Converter convert.Converter
}

// New constructs a slot. Construction fully completes — including the
// FrameToSeek sentinel store — before the caller publishes the slot into
// the active-decoder table, which is what gives the table's CAS-install a
// happens-before edge to the render callback's first read (I5, O3a).
func New(sequenceNumber uint64, dec decoder.Decoder, conv convert.Converter) *Slot {
	s := &Slot{
		SequenceNumber: sequenceNumber,
		Decoder:        dec,
		Converter:      conv,
	}
	s.FrameToSeek.Store(NoSeekPending)
	s.FrameLength.Store(dec.FrameLength())
	return s
}

// RequestSeek stores a pending seek target. Safe to call from any thread;
// the worker observes it at the next conversion-loop boundary (§4.3 step 5).
func (s *Slot) RequestSeek(frame int64) {
	s.FrameToSeek.Store(frame)
}

// SeekPending reports whether a seek is outstanding.
func (s *Slot) SeekPending() (frame int64, pending bool) {
	f := s.FrameToSeek.Load()
	return f, f != NoSeekPending
}

// ClearSeek clears the pending seek sentinel.
func (s *Slot) ClearSeek() {
	s.FrameToSeek.Store(NoSeekPending)
}

// Removable reports whether this slot may be collected (§3 lifecycle,
// §4.6): it must be marked for removal, or both decoding and rendering
// finished.
func (s *Slot) Removable() bool {
	fl := s.Flags.Load()
	if fl&FlagMarkedForRemoval != 0 {
		return true
	}
	return fl&FlagDecodingFinished != 0 && fl&FlagRenderingFinished != 0
}

// RenderingEligible reports whether the render callback may still apportion
// frames to this slot (I3: a slot once marked_for_removal is never observed
// by a subsequent "current decoder" query).
func (s *Slot) RenderingEligible() bool {
	fl := s.Flags.Load()
	return fl&FlagMarkedForRemoval == 0 && fl&FlagRenderingFinished == 0
}
