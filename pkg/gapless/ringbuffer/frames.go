package ringbuffer

// FrameRing wraps RingBuffer with the frame-counted vocabulary §3/§4.1 use:
// frames_available_to_read, frames_available_to_write, write(frames),
// read(frames). The ring buffer holds decoded frames in the rendering
// format; capacity is chosen to represent ~200-400ms of audio at the
// target sample rate (default 16,384 frames, default write-chunk 2,048
// frames per §4.1/§6).
type FrameRing struct {
	raw           *RingBuffer
	bytesPerFrame int
}

// NewFrameRing creates a FrameRing holding capacityFrames frames of
// bytesPerFrame-byte frames.
func NewFrameRing(capacityFrames int, bytesPerFrame int) *FrameRing {
	return &FrameRing{
		raw:           New(uint64(capacityFrames * bytesPerFrame)),
		bytesPerFrame: bytesPerFrame,
	}
}

// FramesAvailableToRead returns the number of whole frames ready to read.
func (fr *FrameRing) FramesAvailableToRead() int {
	return int(fr.raw.AvailableRead()) / fr.bytesPerFrame
}

// FramesAvailableToWrite returns the number of whole frames free to write.
func (fr *FrameRing) FramesAvailableToWrite() int {
	return int(fr.raw.AvailableWrite()) / fr.bytesPerFrame
}

// WriteFrames writes data (already frame-aligned) and returns the number
// of whole frames committed.
func (fr *FrameRing) WriteFrames(data []byte) int {
	alignedLen := (len(data) / fr.bytesPerFrame) * fr.bytesPerFrame
	return fr.raw.Write(data[:alignedLen]) / fr.bytesPerFrame
}

// ReadFrames reads into data (frame-aligned capacity) and returns the
// number of whole frames actually read.
func (fr *FrameRing) ReadFrames(data []byte) int {
	alignedLen := (len(data) / fr.bytesPerFrame) * fr.bytesPerFrame
	return fr.raw.Read(data[:alignedLen]) / fr.bytesPerFrame
}

// Reset clears the ring. Must only be called while output is muted (§5).
func (fr *FrameRing) Reset() {
	fr.raw.Reset()
}

// Rebind replaces the frame geometry and reallocates the underlying ring —
// used when the rendering format changes (§3 "the ring buffer is
// re-allocated only when the rendering format changes — and only while the
// output is muted").
func (fr *FrameRing) Rebind(capacityFrames int, bytesPerFrame int) {
	fr.raw = New(uint64(capacityFrames * bytesPerFrame))
	fr.bytesPerFrame = bytesPerFrame
}

// Capacity returns the ring's total frame capacity.
func (fr *FrameRing) Capacity() int {
	return int(fr.raw.Size()) / fr.bytesPerFrame
}

// BytesPerFrame returns the current frame size in bytes.
func (fr *FrameRing) BytesPerFrame() int {
	return fr.bytesPerFrame
}
