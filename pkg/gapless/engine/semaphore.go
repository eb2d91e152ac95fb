package engine

import "time"

// binarySemaphore is a non-blocking-signal, bounded-wait semaphore built on
// a size-1 buffered channel — Go's idiomatic substitute for the raw
// semaphore primitives the worker/collector/notifier wait on (§5
// suspension points). Signal never blocks (a pending signal is coalesced,
// since a single pending wakeup is all any waiter needs); Wait blocks up
// to a timeout.
type binarySemaphore struct {
	ch chan struct{}
}

func newBinarySemaphore() *binarySemaphore {
	return &binarySemaphore{ch: make(chan struct{}, 1)}
}

// Signal wakes one waiter, coalescing with any already-pending signal.
// Safe to call from the render callback: never blocks, never allocates.
func (s *binarySemaphore) Signal() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until signalled or timeout elapses, returning whether it
// was signalled.
func (s *binarySemaphore) Wait(timeout time.Duration) bool {
	select {
	case <-s.ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
