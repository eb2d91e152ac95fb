// Package opus adapts github.com/drgolem/go-opus — a transitive
// dependency of the teacher repository — to the
// pkg/gapless/decoder.Decoder interface. Opus packets carry no absolute
// position of their own, so like the FLAC and WAV adapters this one
// reports FrameLength as a running estimate and has no seek support.
package opus

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	goopus "github.com/drgolem/go-opus/opus"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

const (
	framesPerRead = 960 // 20ms at 48kHz, the common Opus frame size
)

// Decoder streams PCM frames out of a length-prefixed Opus packet
// stream. Packet framing (a little-endian uint32 byte length ahead of
// each packet) keeps this adapter independent of any particular
// container demuxer; callers that have Opus already muxed in Ogg or
// another container are expected to demux ahead of handing the source
// to this decoder.
type Decoder struct {
	path       string
	repr       any
	sampleRate int
	channels   int

	file *os.File
	br   *bufio.Reader
	dec  *goopus.Decoder

	fmt format.Format

	pcm []int16

	currentFrame atomic.Int64
	open         atomic.Bool
}

// New creates an Opus decoder for path at the given sample rate and
// channel count, the parameters the underlying libopus decoder must be
// initialized with.
func New(path string, sampleRate, channels int, repr any) *Decoder {
	return &Decoder{path: path, sampleRate: sampleRate, channels: channels, repr: repr}
}

func (d *Decoder) Open() error {
	if d.open.Load() {
		return nil
	}

	file, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("opus: open %s: %w", d.path, err)
	}

	dec, err := goopus.NewDecoder(d.sampleRate, d.channels)
	if err != nil {
		file.Close()
		return fmt.Errorf("opus: create decoder: %w", err)
	}

	d.file = file
	d.br = bufio.NewReader(file)
	d.dec = dec
	d.fmt = format.Format{
		SampleRate:    d.sampleRate,
		Channels:      d.channels,
		Layout:        format.DefaultLayout(d.channels),
		Encoding:      format.EncodingPCMInt,
		BitsPerSample: 16,
		Interleaved:   true,
	}
	d.pcm = make([]int16, framesPerRead*d.channels)
	d.currentFrame.Store(0)
	d.open.Store(true)
	return nil
}

func (d *Decoder) IsOpen() bool { return d.open.Load() }

func (d *Decoder) Format() format.Format { return d.fmt }

func (d *Decoder) FrameLength() int64 { return d.currentFrame.Load() }

func (d *Decoder) CurrentFrame() int64 { return d.currentFrame.Load() }

func (d *Decoder) SupportsSeeking() bool { return false }

func (d *Decoder) SeekToFrame(frame int64) (int64, error) {
	return -1, fmt.Errorf("opus: seeking not supported")
}

func (d *Decoder) Read(buf []byte, maxFrames int) (int, error) {
	if d.dec == nil {
		return 0, fmt.Errorf("opus: decoder not open")
	}

	var lenPrefix [4]byte
	if _, err := io.ReadFull(d.br, lenPrefix[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, nil
		}
		return 0, fmt.Errorf("opus: read packet length: %w", err)
	}
	packetLen := binary.LittleEndian.Uint32(lenPrefix[:])
	packet := make([]byte, packetLen)
	if _, err := io.ReadFull(d.br, packet); err != nil {
		return 0, fmt.Errorf("opus: read packet: %w", err)
	}

	framesDecoded, err := d.dec.Decode(packet, d.pcm)
	if err != nil {
		return 0, fmt.Errorf("opus: decode: %w", err)
	}
	if framesDecoded > maxFrames {
		framesDecoded = maxFrames
	}

	need := framesDecoded * d.fmt.Channels * 2
	if need > len(buf) {
		return 0, fmt.Errorf("opus: output buffer too small")
	}
	for i := 0; i < framesDecoded*d.fmt.Channels; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(d.pcm[i]))
	}

	if framesDecoded > 0 {
		d.currentFrame.Add(int64(framesDecoded))
	}
	return framesDecoded, nil
}

func (d *Decoder) Close() error {
	if !d.open.CompareAndSwap(true, false) {
		return nil
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

func (d *Decoder) URL() string { return d.path }

func (d *Decoder) RepresentedObject() any { return d.repr }
