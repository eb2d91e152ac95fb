// Package table implements the Active-Decoder Table (§3): a fixed-size
// array of atomic pointers to Decoder State Slots. The render callback
// scans this table; the worker installs slots; the collector clears them.
package table

import (
	"sync/atomic"

	"github.com/drgolem/gapless/pkg/gapless/slot"
)

// Table is the fixed N-entry active-decoder table. N (8-10 by default,
// §6 active_slot_table_size) must be at least 2x the maximum concurrent
// unfinished tracks so a just-finished slot awaiting collection never
// blocks the next decoder's installation.
type Table struct {
	entries []atomic.Pointer[slot.Slot]
}

// New creates a table with the given fixed size.
func New(size int) *Table {
	return &Table{entries: make([]atomic.Pointer[slot.Slot], size)}
}

// Len returns the table's fixed size (not the occupied count).
func (t *Table) Len() int {
	return len(t.entries)
}

// Install scans left-to-right and CASes the first observed-NULL entry to
// s. Returns false if every slot was occupied at scan time (§4.3 step 3:
// "If every slot is occupied, the worker backs off").
//
// Because s is fully constructed before Install ever runs (slot.New
// returns a complete value), the construction happens-before this store,
// giving the render callback's subsequent atomic load a safe view of s
// (I5, O3a).
func (t *Table) Install(s *slot.Slot) bool {
	for i := range t.entries {
		if t.entries[i].Load() == nil {
			if t.entries[i].CompareAndSwap(nil, s) {
				return true
			}
		}
	}
	return false
}

// Remove CASes the entry holding s to NULL. Returns false if s was not
// found at that entry (already removed, or never installed there) — the
// caller (collector) must not destroy s unless Remove reports true, which
// is what prevents the render thread from ever dereferencing a freed slot.
func (t *Table) Remove(s *slot.Slot) bool {
	for i := range t.entries {
		if t.entries[i].Load() == s {
			return t.entries[i].CompareAndSwap(s, nil)
		}
	}
	return false
}

// ForEach invokes fn for every currently-installed slot. fn must not
// retain the slice across calls that might mutate the table; this is a
// point-in-time scan, safe to call from any thread including the render
// callback (no locks, no allocation beyond the closure the caller supplies).
func (t *Table) ForEach(fn func(*slot.Slot)) {
	for i := range t.entries {
		if s := t.entries[i].Load(); s != nil {
			fn(s)
		}
	}
}

// FrontUnfinished returns the installed, rendering-eligible slot with the
// smallest sequence number, or nil if none qualifies (§4.4 step 5: "Find
// the active slot with the smallest sequence number that is not
// rendering_finished and not marked_for_removal").
func (t *Table) FrontUnfinished() *slot.Slot {
	var front *slot.Slot
	t.ForEach(func(s *slot.Slot) {
		if !s.RenderingEligible() {
			return
		}
		if front == nil || s.SequenceNumber < front.SequenceNumber {
			front = s
		}
	})
	return front
}

// NextAfter returns the rendering-eligible, installed slot with the
// smallest sequence number strictly greater than after, or nil if none —
// used by the render callback to advance across a sequence-ordered
// boundary within a single apportioning pass (§4.4 step 5).
func (t *Table) NextAfter(after uint64) *slot.Slot {
	var next *slot.Slot
	t.ForEach(func(s *slot.Slot) {
		if !s.RenderingEligible() {
			return
		}
		if s.SequenceNumber <= after {
			return
		}
		if next == nil || s.SequenceNumber < next.SequenceNumber {
			next = s
		}
	})
	return next
}

// Occupied reports how many entries currently hold a slot.
func (t *Table) Occupied() int {
	n := 0
	t.ForEach(func(*slot.Slot) { n++ })
	return n
}
