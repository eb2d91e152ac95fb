// Package ringbuffer implements the audio Ring Buffer (§4.1): a
// single-producer/single-consumer lock-free byte ring, adapted from
// pkg/ringbuffer in the teacher repository. Read and write are wait-free
// and never allocate.
package ringbuffer

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrInsufficientData indicates the ring is empty; kept for callers
	// that want to distinguish "nothing to read" from a zero-length read.
	ErrInsufficientData = errors.New("ringbuffer: insufficient data")
)

// RingBuffer is the lock-free SPSC byte ring. The producer (decoder
// worker) calls Write; the consumer (render callback) calls Read. Neither
// may call Reset concurrently with the other — the engine establishes
// that exclusion with the mute protocol (§5) before ever calling Reset.
type RingBuffer struct {
	buffer   []byte
	size     uint64 // power of 2
	mask     uint64
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

// New creates a ring buffer of at least size bytes, rounded up to the next
// power of 2 for mask-based indexing.
func New(size uint64) *RingBuffer {
	size = nextPowerOf2(size)
	return &RingBuffer{
		buffer: make([]byte, size),
		size:   size,
		mask:   size - 1,
	}
}

// Write commits up to len(data) bytes and reports the count actually
// written — it may write less than requested if space is lacking (§4.1
// contract), unlike an all-or-nothing writer. Producer-only.
func (rb *RingBuffer) Write(data []byte) int {
	toWrite := uint64(len(data))
	if avail := rb.AvailableWrite(); toWrite > avail {
		toWrite = avail
	}
	if toWrite == 0 {
		return 0
	}

	writePos := rb.writePos.Load()
	start := writePos & rb.mask
	end := (writePos + toWrite) & rb.mask

	if end > start {
		copy(rb.buffer[start:end], data[:toWrite])
	} else {
		firstChunk := rb.size - start
		copy(rb.buffer[start:], data[:firstChunk])
		copy(rb.buffer[:end], data[firstChunk:toWrite])
	}

	rb.writePos.Store(writePos + toWrite)
	return int(toWrite)
}

// Read returns the bytes actually read (up to len(data)), 0 if the ring
// is empty. Consumer-only. Partial reads are expected; callers fill any
// shortfall themselves (§4.1: the render callback fills with silence).
func (rb *RingBuffer) Read(data []byte) int {
	available := rb.AvailableRead()
	toRead := uint64(len(data))
	if toRead > available {
		toRead = available
	}
	if toRead == 0 {
		return 0
	}

	readPos := rb.readPos.Load()
	start := readPos & rb.mask
	end := (readPos + toRead) & rb.mask

	if end > start {
		copy(data[:toRead], rb.buffer[start:end])
	} else {
		firstChunk := rb.size - start
		copy(data[:firstChunk], rb.buffer[start:])
		copy(data[firstChunk:toRead], rb.buffer[:end])
	}

	rb.readPos.Store(readPos + toRead)
	return int(toRead)
}

// AvailableWrite returns the number of bytes free for writing.
func (rb *RingBuffer) AvailableWrite() uint64 {
	return rb.size - (rb.writePos.Load() - rb.readPos.Load())
}

// AvailableRead returns the number of bytes available for reading.
func (rb *RingBuffer) AvailableRead() uint64 {
	return rb.writePos.Load() - rb.readPos.Load()
}

// Size returns the ring's total byte capacity.
func (rb *RingBuffer) Size() uint64 {
	return rb.size
}

// Reset clears the ring. Not safe concurrent with Read or Write (§3/§4.1
// quiescence precondition) — callers must hold the engine's mute protocol
// around this call.
func (rb *RingBuffer) Reset() {
	rb.readPos.Store(0)
	rb.writePos.Store(0)
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
