package engine

import (
	"github.com/drgolem/gapless/pkg/gapless/convert"
	"github.com/drgolem/gapless/pkg/gapless/format"
	"github.com/drgolem/gapless/pkg/gapless/slot"
	"github.com/drgolem/gapless/pkg/gapless/sink"
)

// renderCallback is the real-time Render Callback (§4.4), handed to the
// output sink via SetRenderCallback. It never blocks, allocates, takes a
// mutex, calls into a decoder, or calls a host callback directly — only
// atomics, the lock-free ring buffer, and the lock-free event channel.
func (e *Engine) renderCallback(buffer []byte, frameCount int, hostTime uint64) sink.Status {
	if cb := e.callback().PreRender; cb != nil {
		cb(buffer, frameCount)
	}

	// Step 1: honor mute request.
	if e.muteRequested.CompareAndSwap(true, false) {
		e.outputMuted.Store(true)
		e.workerSem.Signal()
	}

	ring := e.currentRing()

	// Step 2: silence fast path.
	if !e.playing.Load() || e.outputMuted.Load() || ring == nil {
		e.fillSilence(buffer)
		if e.startOnFirstWrite.Load() && ring != nil && ring.FramesAvailableToRead() > 0 {
			e.playing.Store(true)
			e.startOnFirstWrite.Store(false)
		}
		return sink.StatusContinue
	}
	if ring.FramesAvailableToRead() == 0 {
		e.fillSilence(buffer)
		e.maybeOutOfAudio(hostTime)
		return sink.StatusContinue
	}

	// Step 3: read.
	framesRead := ring.ReadFrames(buffer)
	if framesRead < frameCount {
		bytesPerFrame := ring.BytesPerFrame()
		e.fillSilenceBytes(buffer[framesRead*bytesPerFrame:])
	}
	e.globalFramesRendered.Add(int64(framesRead))

	// Step 4: wake worker.
	if ring.FramesAvailableToWrite() >= e.cfg.RingBufferWriteChunkFrames {
		e.workerSem.Signal()
	}

	// Step 5: apportion rendered frames across active slots in sequence
	// order.
	e.apportion(framesRead, hostTime)

	if cb := e.callback().PostRender; cb != nil {
		cb(buffer, frameCount)
	}
	return sink.StatusContinue
}

// apportion distributes framesRead of just-rendered audio across active
// slots in ascending sequence_number order (§4.4 step 5), emitting
// RENDERING_STARTED/RENDERING_COMPLETE events and advancing the published
// front slot as boundaries are crossed. If no slot remains eligible, it
// emits OUT_OF_AUDIO instead (§4.4 step 6).
func (e *Engine) apportion(framesRead int, hostTime uint64) {
	remaining := int64(framesRead)
	current := e.table.FrontUnfinished()

	if current == nil {
		e.maybeOutOfAudio(hostTime)
		return
	}

	for remaining > 0 && current != nil {
		if !current.Flags.Has(slot.FlagRenderingStarted) {
			current.Flags.Set(slot.FlagRenderingStarted)
			e.frontSlot.Store(current)
			e.events.PushRenderingStarted(current.SequenceNumber, hostTime)
			e.notifierSem.Signal()
		}

		available := current.FramesConverted.Load() - current.FramesRendered.Load()
		take := remaining
		if available < take {
			take = available
		}
		if take > 0 {
			current.FramesRendered.Add(take)
			remaining -= take
		}

		if current.Flags.Has(slot.FlagDecodingFinished) &&
			current.FramesRendered.Load() == current.FramesConverted.Load() {
			// FlagNotifyPending rides along in the same atomic OR so the
			// collector never observes Removable()==true before the
			// Notifier has a chance to resolve this slot (§4.5, §8).
			current.Flags.Set(slot.FlagRenderingFinished | slot.FlagMarkedForRemoval | slot.FlagNotifyPending)
			e.events.PushRenderingComplete(current.SequenceNumber, hostTime)
			e.notifierSem.Signal()
			e.collectorSem.Signal()

			next := e.table.NextAfter(current.SequenceNumber)
			current = next
			continue
		}

		if remaining > 0 {
			// This slot has no more converted audio to give yet (decoder
			// hasn't caught up); nothing further to apportion this call.
			break
		}
	}
}

// maybeOutOfAudio emits OUT_OF_AUDIO when the table has no rendering-
// eligible slot left to apportion against.
func (e *Engine) maybeOutOfAudio(hostTime uint64) {
	if e.table.FrontUnfinished() == nil {
		e.events.PushOutOfAudio(hostTime)
		e.notifierSem.Signal()
	}
}

// fillSilence fills buffer with the encoding-appropriate silence pattern:
// zero for PCM, the 0x0F nibble-wise idle pattern for DSD (§4.1, §6).
func (e *Engine) fillSilence(buffer []byte) {
	e.fillSilenceBytes(buffer)
}

func (e *Engine) fillSilenceBytes(buffer []byte) {
	if len(buffer) == 0 {
		return
	}
	if e.currentRenderingFormat().Encoding == format.EncodingDSD {
		for i := range buffer {
			buffer[i] = convert.DSDSilence
		}
		return
	}
	clear(buffer)
}
