package engine

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/drgolem/gapless/pkg/gapless/decoder"
)

// pendingQueue is the Pending Queue (§2.4): a FIFO of not-yet-started
// decoders guarded by a short-lived mutex, never held across I/O or on the
// render path. Backed by gammazero/deque's ring-based double-ended queue
// instead of a bare slice, avoiding the append-growth reallocation a slice
// FIFO would otherwise incur on the worker's hot dequeue path.
type pendingQueue struct {
	mu sync.Mutex
	dq deque.Deque[decoder.Decoder]
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{}
}

// PushBack enqueues one decoder.
func (q *pendingQueue) PushBack(dec decoder.Decoder) {
	q.mu.Lock()
	q.dq.PushBack(dec)
	q.mu.Unlock()
}

// PopFront dequeues one decoder, or returns false if empty.
func (q *pendingQueue) PopFront() (decoder.Decoder, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dq.Len() == 0 {
		return nil, false
	}
	return q.dq.PopFront(), true
}

// Clear drops every pending decoder (§4.7 clear_queue). Has no effect on
// whatever is currently rendering.
func (q *pendingQueue) Clear() {
	q.mu.Lock()
	q.dq.Clear()
	q.mu.Unlock()
}

// Len reports the current queue depth.
func (q *pendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dq.Len()
}

// withLockEmptyCheckAndPush runs fn (a "setup for first decoder" style
// action) and the PushBack under the same mutex acquisition, covering the
// empty-check + enqueue atomically so two concurrent Enqueue calls cannot
// both observe themselves as the first (§4.7 enqueue contract).
func (q *pendingQueue) withLockEmptyCheckAndPush(isFirst func() bool, fn func() error, dec decoder.Decoder) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	first := isFirst() && q.dq.Len() == 0
	if first {
		if err := fn(); err != nil {
			return err
		}
	}
	q.dq.PushBack(dec)
	return nil
}
