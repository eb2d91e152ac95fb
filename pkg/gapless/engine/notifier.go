package engine

import (
	"time"

	"github.com/drgolem/gapless/pkg/gapless/eventring"
	"github.com/drgolem/gapless/pkg/gapless/slot"
)

// notifierLoop is the Notifier (§4.5): a normal-priority goroutine that
// drains the render-event channel and dispatches the corresponding host
// callback off the real-time path. decoding_started/finished/cancelled and
// format_mismatch are dispatched directly by the worker goroutine instead
// (it is not real-time, so it needs no hand-off through the lock-free
// channel); only the three records the render callback itself can produce
// — RENDERING_STARTED, RENDERING_COMPLETE, OUT_OF_AUDIO — flow through
// here. The render callback signals notifierSem on every push so delivery
// is prompt; the 5ms timeout is only a fallback against a missed signal.
func (e *Engine) notifierLoop() {
	defer e.wg.Done()

	for {
		for {
			ev, ok := e.events.Pop()
			if !ok {
				break
			}
			e.dispatch(ev)
		}

		select {
		case <-e.stopCh:
			// Drain whatever the render callback pushed right up to shutdown.
			for {
				ev, ok := e.events.Pop()
				if !ok {
					return
				}
				e.dispatch(ev)
			}
		case <-e.notifierSem.ch:
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (e *Engine) dispatch(ev eventring.Event) {
	cb := e.callback()

	switch ev.Tag {
	case eventring.TagRenderingStarted:
		if s := e.slotForSequence(ev.SequenceNumber); s != nil && cb.RenderingStarted != nil {
			cb.RenderingStarted(s.Decoder)
		}
	case eventring.TagRenderingComplete:
		// The slot is held out of collector.sweep() by FlagNotifyPending
		// (set atomically alongside FlagMarkedForRemoval in apportion())
		// until this clears it below, so the table lookup here can never
		// race the collector's CAS-remove (§4.5, §8).
		s := e.slotForSequence(ev.SequenceNumber)
		if s != nil && cb.RenderingComplete != nil {
			cb.RenderingComplete(s.Decoder)
		}
		if s != nil {
			s.Flags.Clear(slot.FlagNotifyPending)
			e.collectorSem.Signal()
		}
	case eventring.TagOutOfAudio:
		if cb.OutOfAudio != nil {
			cb.OutOfAudio()
		}
	}
}

// slotForSequence finds the slot owning sequence, if it is still installed.
func (e *Engine) slotForSequence(sequence uint64) *slot.Slot {
	var found *slot.Slot
	e.table.ForEach(func(s *slot.Slot) {
		if s.SequenceNumber == sequence {
			found = s
		}
	})
	return found
}
