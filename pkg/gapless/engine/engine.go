// Package engine is the gapless playback engine: the Decoder Worker, the
// real-time Render Callback, the Notifier, the Collector, and the Player
// Facade that owns and wires them together, generalized from
// pkg/audioplayer.Player and internal/fileplayer.FilePlayer in the teacher
// repository into the three-thread concurrency core the specification
// requires.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/gapless/pkg/gapless/convert"
	"github.com/drgolem/gapless/pkg/gapless/decoder"
	"github.com/drgolem/gapless/pkg/gapless/eventring"
	"github.com/drgolem/gapless/pkg/gapless/format"
	"github.com/drgolem/gapless/pkg/gapless/ringbuffer"
	"github.com/drgolem/gapless/pkg/gapless/sink"
	"github.com/drgolem/gapless/pkg/gapless/slot"
	"github.com/drgolem/gapless/pkg/gapless/table"
)

// ConverterFactory builds a Converter from a decoder's native format to the
// engine's rendering format. Supplied by the host so the engine stays
// decoupled from any one converter implementation (pkg/gapless/convert's
// NewForFormats is the production factory).
type ConverterFactory func(in, out format.Format) (convert.Converter, error)

// Engine is the Player Facade (§4.7): it owns the Ring Buffer, the
// Active-Decoder Table, the Pending Queue, the Render-Event Channel, the
// output Sink, and the three background goroutines (worker, notifier,
// collector), and exposes play/pause/stop/seek/enqueue/skip to the host.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	sink        sink.Sink
	convFactory ConverterFactory
	callbacks   atomic.Pointer[Callbacks]

	// renderingFormat and ring are published via atomic pointers rather
	// than a mutex-guarded plain field: the render callback must read them
	// wait-free and without taking a lock. Mutation only ever happens under
	// configMu: from setupForFirstDecoder (on the Enqueue caller's thread,
	// without muting) or from the worker's format-change protocol (while
	// output_muted).
	renderingFormat atomic.Pointer[format.Format]
	ring            atomic.Pointer[ringbuffer.FrameRing]

	events       *eventring.Ring
	table        *table.Table
	pending      *pendingQueue
	nextSequence atomic.Uint64

	workerSem    *binarySemaphore
	collectorSem *binarySemaphore
	notifierSem  *binarySemaphore

	playing              atomic.Bool
	startOnFirstWrite    atomic.Bool
	muteRequested        atomic.Bool
	outputMuted          atomic.Bool
	ringBufferNeedsReset atomic.Bool
	formatMismatch       atomic.Bool
	globalFramesRendered atomic.Int64
	globalFramesDecoded  atomic.Int64
	frontSlot            atomic.Pointer[slot.Slot]

	// configMu serializes configuration mutators (setupForFirstDecoder,
	// format-change reconfiguration) against each other; it never guards
	// the render thread's reads, which go through the atomics above.
	configMu sync.Mutex

	shutdown atomic.Bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs the engine, its Active-Decoder Table, ring buffers, and
// background goroutines, and opens the output sink. Fatal construction
// errors (sink cannot open) are returned and leave no goroutine running,
// per §7's propagation policy for initialization errors.
func New(cfg Config, s sink.Sink, convFactory ConverterFactory, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:          cfg,
		logger:       logger,
		sink:         s,
		convFactory:  convFactory,
		events:       eventring.New(cfg.EventRingCapacityBytes),
		table:        table.New(cfg.ActiveSlotTableSize),
		pending:      newPendingQueue(),
		workerSem:    newBinarySemaphore(),
		collectorSem: newBinarySemaphore(),
		notifierSem:  newBinarySemaphore(),
		stopCh:       make(chan struct{}),
	}
	e.frontSlot.Store(nil)

	s.SetRenderCallback(e.renderCallback)
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputStartFailed, err)
	}

	e.wg.Add(3)
	go e.workerLoop()
	go e.notifierLoop()
	go e.collectorLoop()

	logger.Info("gapless engine started",
		"ring_capacity_frames", cfg.RingBufferCapacityFrames,
		"write_chunk_frames", cfg.RingBufferWriteChunkFrames,
		"table_size", cfg.ActiveSlotTableSize)
	return e, nil
}

// SetCallbacks atomically replaces the host callback bundle. Safe to call
// at any time; takes effect for the next dispatched event.
func (e *Engine) SetCallbacks(cb Callbacks) {
	e.callbacks.Store(&cb)
}

func (e *Engine) callback() Callbacks {
	if cb := e.callbacks.Load(); cb != nil {
		return *cb
	}
	return Callbacks{}
}

// Close stops playback, shuts down the worker/notifier/collector
// goroutines, and closes the output sink. Close is idempotent.
func (e *Engine) Close() error {
	if !e.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	_ = e.Stop()
	close(e.stopCh)
	e.workerSem.Signal()
	e.collectorSem.Signal()
	e.notifierSem.Signal()
	e.wg.Wait()
	return e.sink.Close()
}

// mute runs fn while the render callback is guaranteed to emit only
// silence (§5 mute protocol). If output is not running, output_muted is
// set directly — there is no render thread to promote the request.
func (e *Engine) mute(fn func()) {
	if e.sink.IsRunning() {
		e.muteRequested.Store(true)
		for !e.outputMuted.Load() {
			time.Sleep(10 * time.Millisecond)
		}
	} else {
		e.outputMuted.Store(true)
	}

	fn()

	e.outputMuted.Store(false)
}

// Play stops current playback, clears the pending queue, enqueues dec, and
// arranges for playback to start on the first ring-buffer write (§4.7).
func (e *Engine) Play(dec decoder.Decoder) error {
	if dec == nil {
		return ErrNoDecoderOpen
	}
	if err := e.Stop(); err != nil {
		return err
	}
	e.pending.Clear()
	e.startOnFirstWrite.Store(true)
	return e.Enqueue(dec)
}

// Enqueue pushes dec onto the Pending Queue, performing first-decoder
// setup (opening the decoder, configuring the output, allocating the ring
// buffer) under the same mutex acquisition as the empty-check, so two
// concurrent Enqueue calls cannot both believe they are first (§4.7).
func (e *Engine) Enqueue(dec decoder.Decoder) error {
	if dec == nil {
		return ErrNoDecoderOpen
	}

	var setupErr error
	isFirst := func() bool {
		return e.table.Occupied() == 0
	}
	setup := func() error {
		setupErr = e.setupForFirstDecoder(dec)
		return setupErr
	}
	if err := e.pending.withLockEmptyCheckAndPush(isFirst, setup, dec); err != nil {
		return err
	}

	e.workerSem.Signal()
	return nil
}

// setupForFirstDecoder opens dec, picks a rendering format the sink
// supports, allocates the ring buffer, and starts the sink (§4.7 enqueue:
// "setup for first decoder").
func (e *Engine) setupForFirstDecoder(dec decoder.Decoder) error {
	if err := dec.Open(); err != nil {
		return fmt.Errorf("%w: %w", ErrDecoderOpenFailed, err)
	}

	renderFmt, err := e.sink.SetupFor(dec.Format())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFormatUnsupported, err)
	}

	e.configMu.Lock()
	e.renderingFormat.Store(&renderFmt)
	e.ring.Store(ringbuffer.NewFrameRing(e.cfg.RingBufferCapacityFrames, renderFmt.BytesPerFrame()))
	e.configMu.Unlock()

	if !e.sink.IsRunning() {
		if err := e.sink.Start(); err != nil {
			return fmt.Errorf("%w: %w", ErrOutputStartFailed, err)
		}
	}
	return nil
}

// Pause requests the output sink stop driving the render callback. The
// worker keeps filling the ring buffer until it fills (§4.7).
func (e *Engine) Pause() error {
	e.playing.Store(false)
	return e.sink.Stop()
}

// Stop stops the sink, cancels every active decoder, and resets global
// frame counters. Idempotent: stop(); stop(); behaves as one stop().
func (e *Engine) Stop() error {
	e.playing.Store(false)
	if e.sink.IsRunning() {
		if err := e.sink.Stop(); err != nil {
			return err
		}
	}

	e.table.ForEach(func(s *slot.Slot) {
		s.Flags.Set(slot.FlagCancelRequested)
	})
	e.workerSem.Signal()
	e.collectorSem.Signal()

	e.globalFramesRendered.Store(0)
	e.globalFramesDecoded.Store(0)
	e.ringBufferNeedsReset.Store(true)
	return nil
}

// SkipToNext cancels the currently-rendering decoder and advances to the
// next queued one (§4.7).
func (e *Engine) SkipToNext() error {
	front := e.frontSlot.Load()
	if front == nil {
		return ErrNoFrontSlot
	}

	e.mute(func() {
		front.Flags.Set(slot.FlagCancelRequested)
		e.workerSem.Signal()

		deadline := time.Now().Add(100 * time.Millisecond)
		for !front.Flags.Has(slot.FlagDecodingFinished) && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		front.Flags.Set(slot.FlagRenderingFinished | slot.FlagMarkedForRemoval)
		e.workerSem.Signal()
	})
	e.collectorSem.Signal()
	return nil
}

// SeekToFrame seeks the front slot to output-rate frame f (§4.7). Rejected
// if the decoder cannot seek, or f is out of [0, frame_length).
func (e *Engine) SeekToFrame(f int64) error {
	front := e.frontSlot.Load()
	if front == nil {
		return ErrNoFrontSlot
	}
	if !front.Decoder.SupportsSeeking() {
		return ErrSeekNotSupported
	}
	// FrameLength is a running estimate for decoders that only know their
	// true length at end of stream; it can under-report mid-stream, so for
	// such a decoder this bound rejects a forward seek past the frames
	// known so far. Of the adapters in internal/decoder, the ones with a
	// running estimate (flac, wav, opus) do not support seeking, and the
	// seekable ones (mp3, vorbis) report their length at Open.
	if f < 0 || f >= front.FrameLength.Load() {
		return ErrSeekNotSupported
	}

	front.RequestSeek(f)
	if !e.sink.IsRunning() {
		e.ringBufferNeedsReset.Store(true)
	}
	e.workerSem.Signal()
	return nil
}

// ClearQueue drops every pending (not yet started) decoder. Has no effect
// on whatever is currently rendering (§4.7).
func (e *Engine) ClearQueue() {
	e.pending.Clear()
}

// SetRingCapacity requests a new ring-buffer capacity, accepted only if it
// is at least the write-chunk size; it takes effect on the next
// reallocation (format change, or the first decoder of a fresh session).
func (e *Engine) SetRingCapacity(frames int) error {
	if frames < e.cfg.RingBufferWriteChunkFrames {
		return fmt.Errorf("gapless: ring capacity %d below write chunk %d", frames, e.cfg.RingBufferWriteChunkFrames)
	}
	e.cfg.RingBufferCapacityFrames = frames
	return nil
}

// currentRenderingFormat returns the current rendering format. Safe to
// call from any thread, including the render callback: it is a single
// atomic pointer load.
func (e *Engine) currentRenderingFormat() format.Format {
	if f := e.renderingFormat.Load(); f != nil {
		return *f
	}
	return format.Format{}
}

// currentRing returns the current audio ring buffer, or nil before the
// first decoder has been set up.
func (e *Engine) currentRing() *ringbuffer.FrameRing {
	return e.ring.Load()
}
