// Package portaudio adapts github.com/drgolem/go-portaudio/portaudio to
// the Output Sink collaborator (pkg/gapless/sink), the way
// internal/fileplayer.FilePlayer drives PortAudio in callback mode in the
// teacher repository.
package portaudio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/drgolem/gapless/pkg/gapless/format"
	"github.com/drgolem/gapless/pkg/gapless/sink"
)

// Sink implements pkg/gapless/sink.Sink over a PortAudio callback stream.
type Sink struct {
	deviceIndex     int
	framesPerBuffer int

	mu     sync.Mutex
	stream *portaudio.PaStream
	format format.Format
	opened bool

	render atomic.Pointer[sink.RenderFunc]
	running atomic.Bool
}

// New creates a PortAudio-backed sink for the given device.
// framesPerBuffer is the callback's fixed buffer size, in frames.
func New(deviceIndex, framesPerBuffer int) *Sink {
	return &Sink{deviceIndex: deviceIndex, framesPerBuffer: framesPerBuffer}
}

// Open initializes the PortAudio library. Must be called before any
// stream is created; safe to call once per process.
func (s *Sink) Open() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio initialize: %w", err)
	}
	s.opened = true
	return nil
}

// Close terminates the PortAudio library.
func (s *Sink) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	return portaudio.Terminate()
}

// SetRenderCallback installs the engine's render function.
func (s *Sink) SetRenderCallback(fn sink.RenderFunc) {
	s.render.Store(&fn)
}

// SupportsFormat reports whether f's bit depth maps to a PortAudio sample
// format this binding knows about.
func (s *Sink) SupportsFormat(f format.Format) bool {
	_, err := sampleFormatFor(f.BitsPerSample)
	return err == nil
}

// SetupFor picks a rendering format compatible with both native and the
// device: same rate/channels/layout/encoding, PortAudio-supported bit
// depth (falling back to 16-bit if native's depth has no PortAudio
// mapping).
func (s *Sink) SetupFor(native format.Format) (format.Format, error) {
	bits := native.BitsPerSample
	if _, err := sampleFormatFor(bits); err != nil {
		bits = 16
	}
	rendering := native
	rendering.BitsPerSample = bits
	s.setFormat(rendering)
	return rendering, nil
}

// Start opens (or reopens) the PortAudio stream for the current format and
// starts driving the render callback.
func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sampleFormat, err := sampleFormatFor(s.format.BitsPerSample)
	if err != nil {
		return fmt.Errorf("gapless: output format unsupported: %w", err)
	}

	stream := &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  s.deviceIndex,
			ChannelCount: s.format.Channels,
			SampleFormat: sampleFormat,
		},
		SampleRate: float64(s.format.SampleRate),
	}

	if err := stream.OpenCallback(s.framesPerBuffer, s.audioCallback); err != nil {
		return fmt.Errorf("portaudio open callback stream: %w", err)
	}
	if err := stream.StartStream(); err != nil {
		return fmt.Errorf("portaudio start stream: %w", err)
	}

	s.stream = stream
	s.running.Store(true)
	return nil
}

// Stop stops and closes the callback stream.
func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	s.running.Store(false)
	if err := s.stream.StopStream(); err != nil {
		return fmt.Errorf("portaudio stop stream: %w", err)
	}
	if err := s.stream.CloseCallback(); err != nil {
		return fmt.Errorf("portaudio close stream: %w", err)
	}
	s.stream = nil
	return nil
}

// RequestStop asynchronously stops the stream; safe to call from the
// render callback itself (the real work happens on a goroutine since
// StopStream is not real-time-safe).
func (s *Sink) RequestStop() {
	go func() { _ = s.Stop() }()
}

// Reset is a no-op: PortAudio stream state carries no buffered audio of
// its own in callback mode, since every sample comes from the render
// callback on demand.
func (s *Sink) Reset() error { return nil }

// IsRunning reports whether the stream is currently driving the render
// callback.
func (s *Sink) IsRunning() bool {
	return s.running.Load()
}

// audioCallback adapts PortAudio's callback signature to the engine's
// sink.RenderFunc. hostTime is derived from wall-clock time rather than
// PortAudio's own stream time info, since this binding does not depend on
// any undocumented field layout of StreamCallbackTimeInfo.
func (s *Sink) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {
	fn := s.render.Load()
	if fn == nil {
		clear(output)
		return portaudio.Continue
	}

	hostTime := uint64(time.Now().UnixNano())
	status := (*fn)(output, int(frameCount), hostTime)
	if status == sink.StatusAbort {
		return portaudio.Complete
	}
	return portaudio.Continue
}

// setFormat records the rendering format Start will open a stream for.
// Called by the engine (via SetupFor's return value) before Start.
func (s *Sink) setFormat(f format.Format) {
	s.mu.Lock()
	s.format = f
	s.mu.Unlock()
}

func sampleFormatFor(bitsPerSample int) (portaudio.PaSampleFormat, error) {
	switch bitsPerSample {
	case 16:
		return portaudio.SampleFmtInt16, nil
	case 24:
		return portaudio.SampleFmtInt24, nil
	case 32:
		return portaudio.SampleFmtInt32, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitsPerSample)
	}
}
