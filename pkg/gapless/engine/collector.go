package engine

import (
	"time"

	"github.com/drgolem/gapless/pkg/gapless/slot"
)

// collectorLoop is the Collector (§4.6): a low-priority task that wakes on
// a periodic timer (default 10s) or its semaphore, and for each
// occupied table entry that is Removable(), CASes the entry to NULL and
// lets the slot (and its decoder/converter) be garbage collected. The CAS
// is what guarantees the render callback can never observe a freed slot.
func (e *Engine) collectorLoop() {
	defer e.wg.Done()

	interval := time.Duration(e.cfg.CollectorIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			e.sweep()
			return
		case <-ticker.C:
			e.sweep()
		case <-e.collectorWake():
			e.sweep()
		}
	}
}

// collectorWake adapts the collector's binarySemaphore to a channel the
// select above can wait on without an extra goroutine per wake.
func (e *Engine) collectorWake() <-chan struct{} {
	return e.collectorSem.ch
}

func (e *Engine) sweep() {
	collected := 0
	e.table.ForEach(func(s *slot.Slot) {
		if !s.Removable() {
			return
		}
		// A slot whose RENDERING_COMPLETE event hasn't been dispatched yet
		// stays installed so the Notifier's table-scan lookup can still
		// find it (notifier.go dispatch, slot.FlagNotifyPending).
		if s.Flags.Has(slot.FlagNotifyPending) {
			return
		}
		if e.table.Remove(s) {
			_ = s.Decoder.Close()
			_ = s.Converter.Dispose()
			collected++
		}
	})
	if collected > 0 {
		e.logger.Debug("collector reclaimed slots", "count", collected)
	}
}
