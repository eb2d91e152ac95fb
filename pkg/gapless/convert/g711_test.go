package convert

import (
	"io"
	"testing"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

func g711InFormat() format.Format {
	return format.Format{
		SampleRate:    8000,
		Channels:      1,
		Layout:        format.DefaultLayout(1),
		Encoding:      format.EncodingPCMInt,
		BitsPerSample: 8,
		Interleaved:   true,
	}
}

func TestNewG711RejectsNonMonoOrNon8Bit(t *testing.T) {
	stereo := g711InFormat()
	stereo.Channels = 2
	if _, err := NewG711(ALaw, stereo); err == nil {
		t.Error("NewG711 should reject non-mono input")
	}

	wideBits := g711InFormat()
	wideBits.BitsPerSample = 16
	if _, err := NewG711(ULaw, wideBits); err == nil {
		t.Error("NewG711 should reject non-8-bit input")
	}
}

func TestNewG711AcceptsMono8Bit(t *testing.T) {
	if _, err := NewG711(ALaw, g711InFormat()); err != nil {
		t.Fatalf("NewG711(ALaw, ...) error = %v", err)
	}
	if _, err := NewG711(ULaw, g711InFormat()); err != nil {
		t.Fatalf("NewG711(ULaw, ...) error = %v", err)
	}
}

func TestG711FillProducesTwoBytesPerCompandedSample(t *testing.T) {
	for _, law := range []Law{ALaw, ULaw} {
		g, err := NewG711(law, g711InFormat())
		if err != nil {
			t.Fatalf("NewG711: %v", err)
		}

		companded := []byte{0x00, 0x55, 0xAA, 0xFF}
		pull := func(buf []byte, maxFrames int) (int, error) {
			n := copy(buf, companded)
			return n, io.EOF
		}

		out := make([]byte, len(companded)*2)
		n, err := g.Fill(out, len(companded), pull)
		if err != io.EOF {
			t.Errorf("law=%d Fill err = %v, want io.EOF passthrough", law, err)
		}
		if n != len(companded) {
			t.Errorf("law=%d Fill produced n=%d frames, want %d", law, n, len(companded))
		}
	}
}

func TestG711FillZeroFromPullStopsEarly(t *testing.T) {
	g, err := NewG711(ALaw, g711InFormat())
	if err != nil {
		t.Fatalf("NewG711: %v", err)
	}
	pull := func(buf []byte, maxFrames int) (int, error) {
		return 0, io.EOF
	}

	out := make([]byte, 32)
	n, err := g.Fill(out, 16, pull)
	if n != 0 {
		t.Errorf("Fill n = %d, want 0 on exhausted pull", n)
	}
	if err != io.EOF {
		t.Errorf("Fill err = %v, want io.EOF", err)
	}
}

func TestG711ResetAndDisposeAreNoOps(t *testing.T) {
	g, err := NewG711(ULaw, g711InFormat())
	if err != nil {
		t.Fatalf("NewG711: %v", err)
	}
	if err := g.Reset(); err != nil {
		t.Errorf("Reset() error = %v", err)
	}
	if err := g.Dispose(); err != nil {
		t.Errorf("Dispose() error = %v", err)
	}
}
