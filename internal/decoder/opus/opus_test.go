package opus

import "testing"

func TestNewIsNotOpen(t *testing.T) {
	d := New("nonexistent.opus", 48000, 2, nil)
	if d.IsOpen() {
		t.Error("freshly constructed decoder should not report open")
	}
}

func TestReadBeforeOpenErrors(t *testing.T) {
	d := New("nonexistent.opus", 48000, 2, nil)
	buf := make([]byte, 1024)
	if _, err := d.Read(buf, 256); err == nil {
		t.Error("Read before Open should error")
	}
}

func TestSeekAlwaysUnsupported(t *testing.T) {
	d := New("voice.opus", 48000, 1, nil)
	if d.SupportsSeeking() {
		t.Error("opus adapter does not support seeking")
	}
	if _, err := d.SeekToFrame(0); err == nil {
		t.Error("SeekToFrame should always error for this adapter")
	}
}

func TestCloseBeforeOpenIsSafe(t *testing.T) {
	d := New("nonexistent.opus", 48000, 2, nil)
	if err := d.Close(); err != nil {
		t.Errorf("Close on an unopened decoder should be a no-op, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close should also be a no-op, got %v", err)
	}
}

func TestOpenMissingFileErrors(t *testing.T) {
	d := New("definitely-does-not-exist.opus", 48000, 2, nil)
	if err := d.Open(); err == nil {
		t.Error("Open on a missing file should error")
	}
	if d.IsOpen() {
		t.Error("decoder should not report open after a failed Open")
	}
}

func TestURLAndRepresentedObject(t *testing.T) {
	d := New("voice.opus", 48000, 1, "call-17")
	if d.URL() != "voice.opus" {
		t.Errorf("URL: got %q, want %q", d.URL(), "voice.opus")
	}
	if d.RepresentedObject() != "call-17" {
		t.Errorf("RepresentedObject: got %v, want %q", d.RepresentedObject(), "call-17")
	}
}
