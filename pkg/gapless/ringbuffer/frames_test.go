package ringbuffer

import "testing"

func TestFrameRingWriteReadFrames(t *testing.T) {
	fr := NewFrameRing(4, 4) // 4 frames, 4 bytes/frame

	data := make([]byte, 12) // 3 frames
	for i := range data {
		data[i] = byte(i)
	}

	n := fr.WriteFrames(data)
	if n != 3 {
		t.Fatalf("WriteFrames: got %d, want 3", n)
	}
	if fr.FramesAvailableToRead() != 3 {
		t.Errorf("FramesAvailableToRead: got %d, want 3", fr.FramesAvailableToRead())
	}
	if fr.FramesAvailableToWrite() != 1 {
		t.Errorf("FramesAvailableToWrite: got %d, want 1", fr.FramesAvailableToWrite())
	}

	out := make([]byte, 16)
	n = fr.ReadFrames(out)
	if n != 3 {
		t.Fatalf("ReadFrames: got %d, want 3", n)
	}
	for i := 0; i < 12; i++ {
		if out[i] != data[i] {
			t.Errorf("byte %d: got %d, want %d", i, out[i], data[i])
		}
	}
}

func TestFrameRingWriteFramesTruncatesPartialTrailingFrame(t *testing.T) {
	fr := NewFrameRing(4, 4)

	data := make([]byte, 10) // 2 whole frames + 2 stray bytes
	n := fr.WriteFrames(data)
	if n != 2 {
		t.Errorf("WriteFrames: got %d, want 2 (partial trailing frame dropped)", n)
	}
}

func TestFrameRingResetClearsContents(t *testing.T) {
	fr := NewFrameRing(4, 4)
	fr.WriteFrames(make([]byte, 8))
	fr.Reset()

	if fr.FramesAvailableToRead() != 0 {
		t.Errorf("FramesAvailableToRead after Reset: got %d, want 0", fr.FramesAvailableToRead())
	}
	if fr.FramesAvailableToWrite() != fr.Capacity() {
		t.Errorf("FramesAvailableToWrite after Reset: got %d, want %d", fr.FramesAvailableToWrite(), fr.Capacity())
	}
}

func TestFrameRingRebindReplacesGeometry(t *testing.T) {
	fr := NewFrameRing(4, 4)
	fr.WriteFrames(make([]byte, 8))

	fr.Rebind(8, 2)
	if fr.BytesPerFrame() != 2 {
		t.Errorf("BytesPerFrame after Rebind: got %d, want 2", fr.BytesPerFrame())
	}
	if fr.Capacity() != 8 {
		t.Errorf("Capacity after Rebind: got %d, want 8", fr.Capacity())
	}
	if fr.FramesAvailableToRead() != 0 {
		t.Errorf("FramesAvailableToRead after Rebind: got %d, want 0 (fresh buffer)", fr.FramesAvailableToRead())
	}
}

func TestFrameRingCapacity(t *testing.T) {
	fr := NewFrameRing(100, 4)
	if fr.Capacity() != 128 {
		t.Errorf("Capacity: got %d, want 128 (rounded up to power of 2)", fr.Capacity())
	}
}
