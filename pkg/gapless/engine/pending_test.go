package engine

import (
	"sync"
	"testing"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

type fakePendingDecoder struct{ name string }

func (d *fakePendingDecoder) Open() error                             { return nil }
func (d *fakePendingDecoder) IsOpen() bool                             { return true }
func (d *fakePendingDecoder) Format() format.Format                    { return format.Format{SampleRate: 44100, Channels: 2} }
func (d *fakePendingDecoder) FrameLength() int64                       { return 0 }
func (d *fakePendingDecoder) CurrentFrame() int64                      { return 0 }
func (d *fakePendingDecoder) SupportsSeeking() bool                    { return false }
func (d *fakePendingDecoder) SeekToFrame(frame int64) (int64, error)   { return -1, nil }
func (d *fakePendingDecoder) Read(buf []byte, maxFrames int) (int, error) { return 0, nil }
func (d *fakePendingDecoder) Close() error                             { return nil }
func (d *fakePendingDecoder) URL() string                              { return d.name }
func (d *fakePendingDecoder) RepresentedObject() any                   { return nil }

func TestPendingQueuePushPopOrder(t *testing.T) {
	q := newPendingQueue()
	q.PushBack(&fakePendingDecoder{name: "a"})
	q.PushBack(&fakePendingDecoder{name: "b"})
	q.PushBack(&fakePendingDecoder{name: "c"})

	if q.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", q.Len())
	}

	for _, want := range []string{"a", "b", "c"} {
		dec, ok := q.PopFront()
		if !ok {
			t.Fatalf("PopFront: expected an item, queue empty early")
		}
		if dec.URL() != want {
			t.Errorf("PopFront: got %q, want %q", dec.URL(), want)
		}
	}

	if _, ok := q.PopFront(); ok {
		t.Error("PopFront on empty queue should report false")
	}
}

func TestPendingQueueClear(t *testing.T) {
	q := newPendingQueue()
	q.PushBack(&fakePendingDecoder{name: "a"})
	q.PushBack(&fakePendingDecoder{name: "b"})

	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", q.Len())
	}
	if _, ok := q.PopFront(); ok {
		t.Error("PopFront after Clear should report false")
	}
}

func TestWithLockEmptyCheckAndPushRunsSetupOnlyWhenFirst(t *testing.T) {
	q := newPendingQueue()

	setupCalls := 0
	setup := func() error {
		setupCalls++
		return nil
	}
	alwaysFirst := func() bool { return true }

	if err := q.withLockEmptyCheckAndPush(alwaysFirst, setup, &fakePendingDecoder{name: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if setupCalls != 1 {
		t.Errorf("setup calls after first enqueue: got %d, want 1", setupCalls)
	}

	if err := q.withLockEmptyCheckAndPush(alwaysFirst, setup, &fakePendingDecoder{name: "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if setupCalls != 1 {
		t.Errorf("setup calls after second enqueue (queue non-empty): got %d, want 1", setupCalls)
	}
	if q.Len() != 2 {
		t.Errorf("Len: got %d, want 2", q.Len())
	}
}

func TestWithLockEmptyCheckAndPushNoConcurrentDoubleFirst(t *testing.T) {
	q := newPendingQueue()

	var setupCalls int
	var mu sync.Mutex
	setup := func() error {
		mu.Lock()
		setupCalls++
		mu.Unlock()
		return nil
	}
	isFirst := func() bool { return true }

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			_ = q.withLockEmptyCheckAndPush(isFirst, setup, &fakePendingDecoder{name: string(rune('a' + i%26))})
		}()
	}
	wg.Wait()

	// Only the genuinely-first enqueue (the one that observes an empty
	// queue under the lock) should have run setup — never two.
	if setupCalls != 1 {
		t.Errorf("setupCalls: got %d, want exactly 1 under concurrent enqueue", setupCalls)
	}
	if q.Len() != n {
		t.Errorf("Len: got %d, want %d", q.Len(), n)
	}
}
