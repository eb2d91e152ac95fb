package vorbis

import (
	"math"
	"testing"
)

func TestNewIsNotOpen(t *testing.T) {
	d := New("nonexistent.ogg", nil)
	if d.IsOpen() {
		t.Error("freshly constructed decoder should not report open")
	}
}

func TestReadBeforeOpenErrors(t *testing.T) {
	d := New("nonexistent.ogg", nil)
	buf := make([]byte, 1024)
	if _, err := d.Read(buf, 256); err == nil {
		t.Error("Read before Open should error")
	}
}

func TestSeekBeforeOpenErrors(t *testing.T) {
	d := New("nonexistent.ogg", nil)
	if _, err := d.SeekToFrame(10); err == nil {
		t.Error("SeekToFrame before Open should error")
	}
}

func TestSupportsSeeking(t *testing.T) {
	d := New("track.ogg", nil)
	if !d.SupportsSeeking() {
		t.Error("vorbis decoder should report seek support")
	}
}

func TestCloseBeforeOpenIsSafe(t *testing.T) {
	d := New("nonexistent.ogg", nil)
	if err := d.Close(); err != nil {
		t.Errorf("Close on an unopened decoder should be a no-op, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close should also be a no-op, got %v", err)
	}
}

func TestOpenMissingFileErrors(t *testing.T) {
	d := New("definitely-does-not-exist.ogg", nil)
	if err := d.Open(); err == nil {
		t.Error("Open on a missing file should error")
	}
	if d.IsOpen() {
		t.Error("decoder should not report open after a failed Open")
	}
}

func TestURLAndRepresentedObject(t *testing.T) {
	d := New("track.ogg", "disc2")
	if d.URL() != "track.ogg" {
		t.Errorf("URL: got %q, want %q", d.URL(), "track.ogg")
	}
	if d.RepresentedObject() != "disc2" {
		t.Errorf("RepresentedObject: got %v, want %q", d.RepresentedObject(), "disc2")
	}
}

func TestWriteFloat32LERoundTrips(t *testing.T) {
	tests := []float32{0, 1, -1, 0.5, -0.5, 123.456, -123.456}

	for _, want := range tests {
		var b [4]byte
		writeFloat32LE(b[:], want)

		bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		got := math.Float32frombits(bits)
		if got != want {
			t.Errorf("writeFloat32LE(%v): round-tripped to %v", want, got)
		}
	}
}
