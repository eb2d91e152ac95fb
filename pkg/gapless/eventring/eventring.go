// Package eventring implements the Render-Event Channel (§4.2): a
// fixed-capacity SPSC byte ring carrying fixed-size command records from
// the render callback to the Notifier. Encoding follows the same
// little-endian encoding/binary style as pkg/audioframe.AudioFrame in the
// teacher repository, sized for 12/20-byte records instead of raw PCM.
package eventring

import (
	"encoding/binary"

	"github.com/drgolem/gapless/pkg/gapless/ringbuffer"
)

// Tag identifies the kind of render event record.
type Tag uint32

const (
	TagRenderingStarted Tag = iota + 1
	TagRenderingComplete
	TagOutOfAudio
)

// recordSize returns the encoded size of a record with this tag, or 0 for
// an unknown tag.
func (t Tag) recordSize() int {
	switch t {
	case TagRenderingStarted, TagRenderingComplete:
		return 20 // tag(4) + sequence_number(8) + host_time(8)
	case TagOutOfAudio:
		return 12 // tag(4) + host_time(8)
	default:
		return 0
	}
}

// Event is a decoded render-event record.
type Event struct {
	Tag            Tag
	SequenceNumber uint64 // valid for RenderingStarted/RenderingComplete
	HostTime       uint64
}

// Ring is the render-event channel. The render callback (producer) calls
// the Push* methods; the Notifier (consumer) calls Pop. Neither blocks nor
// allocates: Push drops the event if it would not fit (§4.2's
// render-thread invariant — never block).
type Ring struct {
	raw *ringbuffer.RingBuffer

	// scratch is the push-side encoding buffer. The render callback is
	// the only producer and never calls Push concurrently with itself, so
	// reusing one struct-owned array keeps Push allocation-free — required
	// since Push runs on the real-time render thread.
	scratch [20]byte
}

// New creates an event ring of at least capacityBytes (default ~256, per
// §4.2).
func New(capacityBytes int) *Ring {
	return &Ring{raw: ringbuffer.New(uint64(capacityBytes))}
}

func (r *Ring) push(tag Tag, seq, hostTime uint64) bool {
	size := tag.recordSize()
	if int(r.raw.AvailableWrite()) < size {
		// Drop rather than partially write: a torn record would desync
		// every Pop() after it (§4.2 render-thread invariant: never block,
		// and never leave the channel in an inconsistent state either).
		return false
	}
	buf := r.scratch[:size]
	binary.LittleEndian.PutUint32(buf[0:4], uint32(tag))
	switch tag {
	case TagRenderingStarted, TagRenderingComplete:
		binary.LittleEndian.PutUint64(buf[4:12], seq)
		binary.LittleEndian.PutUint64(buf[12:20], hostTime)
	case TagOutOfAudio:
		binary.LittleEndian.PutUint64(buf[4:12], hostTime)
	}
	return r.raw.Write(buf) == size
}

// PushRenderingStarted enqueues a RENDERING_STARTED record. Returns false
// if the event was dropped for lack of space.
func (r *Ring) PushRenderingStarted(seq, hostTime uint64) bool {
	return r.push(TagRenderingStarted, seq, hostTime)
}

// PushRenderingComplete enqueues a RENDERING_COMPLETE record.
func (r *Ring) PushRenderingComplete(seq, hostTime uint64) bool {
	return r.push(TagRenderingComplete, seq, hostTime)
}

// PushOutOfAudio enqueues an OUT_OF_AUDIO record.
func (r *Ring) PushOutOfAudio(hostTime uint64) bool {
	return r.push(TagOutOfAudio, 0, hostTime)
}

// Pop decodes and removes the next record, if any.
func (r *Ring) Pop() (Event, bool) {
	if r.raw.AvailableRead() < 4 {
		return Event{}, false
	}
	// Records are always pushed whole (Push never partially writes one),
	// so reading the 4-byte tag first and then the tag-determined
	// remainder never tears a record.
	var tagBuf [4]byte
	if n := r.raw.Read(tagBuf[:]); n < 4 {
		return Event{}, false
	}
	tag := Tag(binary.LittleEndian.Uint32(tagBuf[:]))
	size := tag.recordSize()
	if size == 0 {
		return Event{}, false
	}

	rest := make([]byte, size-4)
	if got := r.raw.Read(rest); got != len(rest) {
		return Event{}, false
	}

	ev := Event{Tag: tag}
	switch tag {
	case TagRenderingStarted, TagRenderingComplete:
		ev.SequenceNumber = binary.LittleEndian.Uint64(rest[0:8])
		ev.HostTime = binary.LittleEndian.Uint64(rest[8:16])
	case TagOutOfAudio:
		ev.HostTime = binary.LittleEndian.Uint64(rest[0:8])
	}
	return ev, true
}
