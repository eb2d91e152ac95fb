package engine

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drgolem/gapless/pkg/gapless/convert"
	"github.com/drgolem/gapless/pkg/gapless/decoder"
	"github.com/drgolem/gapless/pkg/gapless/format"
	"github.com/drgolem/gapless/pkg/gapless/sink"
)

// fakeSink is a test Sink that drives the engine's render callback off a
// ticker goroutine instead of a real audio device, mirroring the
// PortAudio adapter's callback-mode shape without the hardware dependency.
type fakeSink struct {
	frameCount    int
	bytesPerFrame atomic.Int32

	render  atomic.Pointer[sink.RenderFunc]
	running atomic.Bool

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newFakeSink(frameCount int) *fakeSink {
	return &fakeSink{frameCount: frameCount}
}

func (s *fakeSink) Open() error                          { return nil }
func (s *fakeSink) Close() error                          { return nil }
func (s *fakeSink) SetRenderCallback(fn sink.RenderFunc)  { s.render.Store(&fn) }
func (s *fakeSink) SupportsFormat(f format.Format) bool   { return true }
func (s *fakeSink) IsRunning() bool                       { return s.running.Load() }
func (s *fakeSink) Reset() error                          { return nil }
func (s *fakeSink) RequestStop()                          { go s.Stop() }

func (s *fakeSink) SetupFor(native format.Format) (format.Format, error) {
	s.bytesPerFrame.Store(int32(native.BytesPerFrame()))
	return native, nil
}

func (s *fakeSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return nil
	}
	s.stopCh = make(chan struct{})
	s.running.Store(true)
	s.wg.Add(1)
	go func(stopCh chan struct{}) {
		defer s.wg.Done()
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				fn := s.render.Load()
				if fn == nil {
					continue
				}
				bpf := int(s.bytesPerFrame.Load())
				if bpf == 0 {
					continue
				}
				buf := make([]byte, s.frameCount*bpf)
				(*fn)(buf, s.frameCount, uint64(time.Now().UnixNano()))
			}
		}
	}(s.stopCh)
	return nil
}

func (s *fakeSink) Stop() error {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return nil
	}
	stopCh := s.stopCh
	s.mu.Unlock()

	close(stopCh)
	s.wg.Wait()
	s.running.Store(false)
	return nil
}

// fakeTrackDecoder produces totalFrames of deterministic silence-ish PCM
// then signals end-of-stream, exercising the worker's decode loop and the
// render callback's apportioning without any real codec.
type fakeTrackDecoder struct {
	url         string
	totalFrames int
	fmt_        format.Format

	opened atomic.Bool
	pos    atomic.Int64
}

func (d *fakeTrackDecoder) Open() error          { d.opened.Store(true); return nil }
func (d *fakeTrackDecoder) IsOpen() bool         { return d.opened.Load() }
func (d *fakeTrackDecoder) Format() format.Format { return d.fmt_ }
func (d *fakeTrackDecoder) FrameLength() int64   { return int64(d.totalFrames) }
func (d *fakeTrackDecoder) CurrentFrame() int64  { return d.pos.Load() }
func (d *fakeTrackDecoder) SupportsSeeking() bool { return false }
func (d *fakeTrackDecoder) SeekToFrame(frame int64) (int64, error) {
	return -1, ErrSeekNotSupported
}
func (d *fakeTrackDecoder) Close() error        { return nil }
func (d *fakeTrackDecoder) URL() string         { return d.url }
func (d *fakeTrackDecoder) RepresentedObject() any { return nil }

func (d *fakeTrackDecoder) Read(buf []byte, maxFrames int) (int, error) {
	remaining := d.totalFrames - int(d.pos.Load())
	if remaining <= 0 {
		return 0, nil
	}
	n := maxFrames
	if n > remaining {
		n = remaining
	}
	bytesPerFrame := d.fmt_.BytesPerFrame()
	need := n * bytesPerFrame
	if need > len(buf) {
		need = len(buf)
		n = need / bytesPerFrame
	}
	for i := 0; i < need; i++ {
		buf[i] = byte(d.pos.Load() + int64(i))
	}
	d.pos.Add(int64(n))
	return n, nil
}

func testFormat() format.Format {
	return format.Format{
		SampleRate:    44100,
		Channels:      2,
		Layout:        format.DefaultLayout(2),
		Encoding:      format.EncodingPCMInt,
		BitsPerSample: 16,
		Interleaved:   true,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnginePlaySingleTrackDrainsToOutOfAudio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RingBufferCapacityFrames = 2048
	cfg.RingBufferWriteChunkFrames = 256
	cfg.ActiveSlotTableSize = 4

	s := newFakeSink(256)
	eng, err := New(cfg, s, convert.NewForFormats, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Close()

	done := make(chan struct{})
	var renderedComplete atomic.Bool
	eng.SetCallbacks(Callbacks{
		RenderingComplete: func(dec decoder.Decoder) { renderedComplete.Store(true) },
		OutOfAudio: func() {
			select {
			case <-done:
			default:
				close(done)
			}
		},
	})

	dec := &fakeTrackDecoder{url: "solo", totalFrames: 2000, fmt_: testFormat()}
	if err := eng.Play(dec); err != nil {
		t.Fatalf("Play: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for OutOfAudio")
	}

	if !renderedComplete.Load() {
		t.Error("expected RenderingComplete to have fired before OutOfAudio")
	}
}

func TestEngineGaplessTwoTrackOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RingBufferCapacityFrames = 2048
	cfg.RingBufferWriteChunkFrames = 256
	cfg.ActiveSlotTableSize = 4

	s := newFakeSink(256)
	eng, err := New(cfg, s, convert.NewForFormats, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Close()

	var mu sync.Mutex
	var started, completed []string
	done := make(chan struct{})

	eng.SetCallbacks(Callbacks{
		RenderingStarted: func(dec decoder.Decoder) {
			mu.Lock()
			started = append(started, dec.URL())
			mu.Unlock()
		},
		RenderingComplete: func(dec decoder.Decoder) {
			mu.Lock()
			completed = append(completed, dec.URL())
			mu.Unlock()
		},
		OutOfAudio: func() {
			select {
			case <-done:
			default:
				close(done)
			}
		},
	})

	fmt_ := testFormat()
	decA := &fakeTrackDecoder{url: "a", totalFrames: 1500, fmt_: fmt_}
	decB := &fakeTrackDecoder{url: "b", totalFrames: 1500, fmt_: fmt_}

	if err := eng.Play(decA); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := eng.Enqueue(decB); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for playback to drain")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(started) != 2 || started[0] != "a" || started[1] != "b" {
		t.Errorf("RenderingStarted order: got %v, want [a b]", started)
	}
	if len(completed) != 2 || completed[0] != "a" || completed[1] != "b" {
		t.Errorf("RenderingComplete order: got %v, want [a b]", completed)
	}
}

func TestEngineStopCancelsActiveDecoder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RingBufferCapacityFrames = 2048
	cfg.RingBufferWriteChunkFrames = 256
	cfg.ActiveSlotTableSize = 4

	s := newFakeSink(256)
	eng, err := New(cfg, s, convert.NewForFormats, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Close()

	var cancelled atomic.Bool
	cancelDone := make(chan struct{})
	eng.SetCallbacks(Callbacks{
		DecodingCancelled: func(dec decoder.Decoder) {
			cancelled.Store(true)
			close(cancelDone)
		},
	})

	// A long track that will still be decoding when Stop is called.
	dec := &fakeTrackDecoder{url: "long", totalFrames: 100_000_000, fmt_: testFormat()}
	if err := eng.Play(dec); err != nil {
		t.Fatalf("Play: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case <-cancelDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for DecodingCancelled")
	}

	if !cancelled.Load() {
		t.Error("expected the active decoder to be cancelled by Stop")
	}
}

func TestEngineTableFullBacksOffUntilSlotFrees(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RingBufferCapacityFrames = 2048
	cfg.RingBufferWriteChunkFrames = 256
	cfg.ActiveSlotTableSize = 1 // force contention between two tracks

	s := newFakeSink(256)
	eng, err := New(cfg, s, convert.NewForFormats, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Close()

	done := make(chan struct{})
	var completedCount atomic.Int32
	eng.SetCallbacks(Callbacks{
		RenderingComplete: func(dec decoder.Decoder) {
			if completedCount.Add(1) == 2 {
				select {
				case <-done:
				default:
					close(done)
				}
			}
		},
	})

	fmt_ := testFormat()
	decA := &fakeTrackDecoder{url: "a", totalFrames: 600, fmt_: fmt_}
	decB := &fakeTrackDecoder{url: "b", totalFrames: 600, fmt_: fmt_}

	if err := eng.Play(decA); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := eng.Enqueue(decB); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for both tracks to render with a single-entry table")
	}
}
