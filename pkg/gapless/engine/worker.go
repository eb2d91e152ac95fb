package engine

import (
	"fmt"
	"time"

	"github.com/drgolem/gapless/pkg/gapless/decoder"
	"github.com/drgolem/gapless/pkg/gapless/format"
	"github.com/drgolem/gapless/pkg/gapless/ringbuffer"
	"github.com/drgolem/gapless/pkg/gapless/slot"
)

// workerLoop is the Decoder Worker (§4.3): one high-priority goroutine that
// pulls from the Pending Queue, installs a slot into the Active-Decoder
// Table, and drives conversion until the decoder (or the engine) says
// stop. One iteration of the outer loop processes at most one decoder.
func (e *Engine) workerLoop() {
	defer e.wg.Done()

	for {
		dec, ok := e.dequeue()
		if !ok {
			return // shutdown
		}
		if dec == nil {
			continue // woken spuriously, queue still empty
		}

		s, err := e.installDecoder(dec)
		if err != nil {
			e.logger.Warn("decoder setup failed", "url", dec.URL(), "error", err)
			if cb := e.callback().Error; cb != nil {
				cb(err)
			}
			continue
		}
		if s == nil {
			// format unsupported, converter init failed, or the engine shut
			// down while waiting for a free table entry; already notified
			// inside installDecoder.
			continue
		}

		e.runDecodeLoop(s)
	}
}

// dequeue pops one pending decoder, waiting on the worker semaphore
// (timeout ~5s between decoders) when the queue is empty, and re-checking
// the shutdown flag on every wake (§4.3 step 1).
func (e *Engine) dequeue() (decoder.Decoder, bool) {
	if e.shutdown.Load() {
		return nil, false
	}
	if dec, ok := e.pending.PopFront(); ok {
		return dec, true
	}
	select {
	case <-e.stopCh:
		return nil, false
	default:
	}
	e.workerSem.Wait(5 * time.Second)
	if e.shutdown.Load() {
		return nil, false
	}
	return nil, true
}

// installDecoder opens dec (if not already open), checks its format
// against the rendering format, builds its converter, constructs a Decoder
// State Slot, and installs it into the Active-Decoder Table (§4.3 steps
// 2-4). A nil, nil return means the decoder was handled (error notified)
// and the worker should move on without a slot.
func (e *Engine) installDecoder(dec decoder.Decoder) (*slot.Slot, error) {
	if !dec.IsOpen() {
		if err := dec.Open(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecoderOpenFailed, err)
		}
	}

	nativeFmt := dec.Format()
	renderFmt := e.currentRenderingFormat()

	if !nativeFmt.Equal(renderFmt) {
		e.enterFormatChangeProtocol(nativeFmt)
		renderFmt = e.currentRenderingFormat()
	}

	if !e.sink.SupportsFormat(renderFmt) {
		e.logger.Error("rendering format unsupported by output", "format", renderFmt.String())
		if cb := e.callback().Error; cb != nil {
			cb(ErrFormatUnsupported)
		}
		return nil, nil
	}

	conv, err := e.convFactory(nativeFmt, renderFmt)
	if err != nil {
		e.logger.Error("converter init failed", "error", err)
		if cb := e.callback().Error; cb != nil {
			cb(fmt.Errorf("%w: %w", ErrConverterInitFailed, err))
		}
		return nil, nil
	}

	seq := e.nextSequence.Add(1)
	s := slot.New(seq, dec, conv)

	if !e.installWithRetry(s) {
		e.logger.Error("active-decoder table full, dropping decoder", "url", dec.URL())
		if cb := e.callback().Error; cb != nil {
			cb(ErrTableFull)
		}
		return nil, nil
	}
	return s, nil
}

// installWithRetry blocks/retries on the worker semaphore until a table
// slot frees up, rather than rejecting the enqueue outright — the chosen
// resolution to the spec's table-full open question. Bounded only by
// shutdown, since a decoder already popped from the pending queue must
// land somewhere.
func (e *Engine) installWithRetry(s *slot.Slot) bool {
	for !e.shutdown.Load() {
		if e.table.Install(s) {
			return true
		}
		e.workerSem.Wait(100 * time.Millisecond)
	}
	return false
}

// enterFormatChangeProtocol implements §5's format-change protocol: wait
// for every previously decoded frame to finish rendering and the table to
// drain, then reconfigure the output and reallocate the ring buffer for
// newNative, all under the mute protocol. Fires format_mismatch with the
// old and new formats.
func (e *Engine) enterFormatChangeProtocol(newNative format.Format) {
	e.formatMismatch.Store(true)
	defer e.formatMismatch.Store(false)

	for e.table.Occupied() > 0 && !e.shutdown.Load() {
		time.Sleep(5 * time.Millisecond)
	}

	oldFmt := e.currentRenderingFormat()

	e.mute(func() {
		renderFmt, err := e.sink.SetupFor(newNative)
		if err != nil {
			e.logger.Error("format change reconfiguration failed", "error", err)
			return
		}
		e.configMu.Lock()
		e.renderingFormat.Store(&renderFmt)
		e.ring.Store(ringbuffer.NewFrameRing(e.cfg.RingBufferCapacityFrames, renderFmt.BytesPerFrame()))
		e.configMu.Unlock()
	})

	newFmt := e.currentRenderingFormat()
	e.logger.Info("format changed", "old", oldFmt.String(), "new", newFmt.String())
	if cb := e.callback().FormatMismatch; cb != nil {
		cb(oldFmt, newFmt)
	}
}

// runDecodeLoop drives s from installation to decoding_finished (§4.3
// steps 5-6). It is the only writer of the audio ring buffer for s's
// lifetime and the only thread that calls into s.Decoder.
func (e *Engine) runDecodeLoop(s *slot.Slot) {
	writeChunk := e.cfg.RingBufferWriteChunkFrames
	renderFmt := e.currentRenderingFormat()
	scratch := make([]byte, writeChunk*renderFmt.BytesPerFrame())

	for !e.shutdown.Load() && !s.Flags.Has(slot.FlagCancelRequested) {
		if e.ringBufferNeedsReset.CompareAndSwap(true, false) {
			e.mute(func() {
				_ = s.Converter.Reset()
				e.currentRing().Reset()
			})
		}

		if frame, pending := s.SeekPending(); pending {
			e.performSeek(s, frame)
			continue
		}

		if e.currentRing().FramesAvailableToWrite() >= writeChunk {
			e.decodeChunk(s, scratch, writeChunk)
			if s.Flags.Has(slot.FlagDecodingFinished) {
				break
			}
			continue
		}

		e.workerSem.Wait(100 * time.Millisecond)
	}

	if s.Flags.Has(slot.FlagCancelRequested) && !s.Flags.Has(slot.FlagDecodingFinished) {
		// Cancellation bypasses rendering: decoding_finished and
		// rendering_finished become visible together (§9 open question 2).
		s.Flags.Set(slot.FlagDecodingFinished | slot.FlagRenderingFinished | slot.FlagMarkedForRemoval)
		e.ringBufferNeedsReset.Store(true)
		e.logger.Info("decoding cancelled", "url", s.Decoder.URL(), "sequence", s.SequenceNumber)
		if cb := e.callback().DecodingCancelled; cb != nil {
			cb(s.Decoder)
		}
		e.collectorSem.Signal()
		return
	}

	// The slot remains installed until frames_rendered catches up with
	// frames_converted (§4.3 step 6); the render callback and collector
	// take it from here.
}

// decodeChunk calls the converter once with a target of writeChunk output
// frames, pulling from s.Decoder in its native format, and writes whatever
// it produced to the ring buffer (§4.3 step 5). A short result is not
// topped up within the same call; only a zero result ends decoding.
func (e *Engine) decodeChunk(s *slot.Slot, scratch []byte, writeChunk int) {
	dec := s.Decoder
	pull := func(buf []byte, maxFrames int) (int, error) {
		n, err := dec.Read(buf, maxFrames)
		if n > 0 {
			s.FramesDecoded.Add(int64(n))
			e.globalFramesDecoded.Add(int64(n))
		}
		if err == nil && n > 0 && !s.Flags.Has(slot.FlagDecodingStarted) {
			s.Flags.Set(slot.FlagDecodingStarted)
			e.logger.Info("decoding started", "url", dec.URL(), "sequence", s.SequenceNumber)
			if cb := e.callback().DecodingStarted; cb != nil {
				cb(dec)
			}
		}
		return n, err
	}

	produced, err := s.Converter.Fill(scratch, writeChunk, pull)
	if err != nil {
		e.logger.Warn("decode error, treating as end of stream", "url", dec.URL(), "error", err)
		if cb := e.callback().Error; cb != nil {
			cb(fmt.Errorf("%w: %w", ErrDecodeError, err))
		}
	}

	if produced > 0 {
		bytesPerFrame := e.currentRenderingFormat().BytesPerFrame()
		written := e.currentRing().WriteFrames(scratch[:produced*bytesPerFrame])
		s.FramesConverted.Add(int64(written))
	}

	if produced == 0 || err != nil {
		s.FrameLength.Store(s.FramesConverted.Load())
		s.Flags.Set(slot.FlagDecodingFinished)
		e.logger.Info("decoding finished", "url", dec.URL(), "sequence", s.SequenceNumber,
			"frame_length", s.FrameLength.Load())
		if cb := e.callback().DecodingFinished; cb != nil {
			cb(dec)
		}
	}
}

// performSeek implements §4.3 step 5's seek handling under the mute
// protocol: seek the decoder, reset the converter and ring buffer, and
// overwrite the slot's frame counters to the new position.
func (e *Engine) performSeek(s *slot.Slot, targetFrame int64) {
	e.mute(func() {
		reached, err := s.Decoder.SeekToFrame(targetFrame)
		if err != nil || reached < 0 {
			e.logger.Warn("seek failed", "url", s.Decoder.URL(), "target", targetFrame, "error", err)
			if cb := e.callback().Error; cb != nil {
				cb(fmt.Errorf("%w: %w", ErrSeekFailed, err))
			}
			s.ClearSeek()
			return
		}

		_ = s.Converter.Reset()
		e.currentRing().Reset()

		s.FramesDecoded.Store(reached)
		s.FramesConverted.Store(reached)
		s.FramesRendered.Store(reached)
		e.globalFramesDecoded.Store(reached)
		e.globalFramesRendered.Store(reached)
		s.ClearSeek()
	})
}
