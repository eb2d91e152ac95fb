// Package mp3 adapts github.com/imcarsen/go-mp3 to the
// pkg/gapless/decoder.Decoder interface. go-mp3 always decodes to
// 16-bit stereo PCM and exposes a byte-accurate Length/Seek pair; like the
// Vorbis adapter and unlike the FLAC, WAV and Opus adapters in this tree,
// this one reports its length at Open and supports seeking.
package mp3

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/imcarsen/go-mp3"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

const (
	bytesPerFrame = 4 // go-mp3 always outputs 16-bit stereo PCM
	channels      = 2
	bitsPerSample = 16
)

// Decoder streams PCM frames out of an MP3 file via go-mp3.
type Decoder struct {
	path string
	repr any

	file *os.File
	dec  *mp3.Decoder

	fmt         format.Format
	frameLength int64

	currentFrame atomic.Int64
	open         atomic.Bool
}

// New creates an MP3 decoder for path. repr is handed back unchanged via
// RepresentedObject.
func New(path string, repr any) *Decoder {
	return &Decoder{path: path, repr: repr}
}

func (d *Decoder) Open() error {
	if d.open.Load() {
		return nil
	}

	file, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("mp3: open %s: %w", d.path, err)
	}

	dec, err := mp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("mp3: decode %s: %w", d.path, err)
	}

	d.file = file
	d.dec = dec
	d.fmt = format.Format{
		SampleRate:    dec.SampleRate(),
		Channels:      channels,
		Layout:        format.DefaultLayout(channels),
		Encoding:      format.EncodingPCMInt,
		BitsPerSample: bitsPerSample,
		Interleaved:   true,
	}
	if length := dec.Length(); length >= 0 {
		d.frameLength = length / bytesPerFrame
	} else {
		d.frameLength = -1
	}
	d.currentFrame.Store(0)
	d.open.Store(true)
	return nil
}

func (d *Decoder) IsOpen() bool { return d.open.Load() }

func (d *Decoder) Format() format.Format { return d.fmt }

func (d *Decoder) FrameLength() int64 { return d.frameLength }

func (d *Decoder) CurrentFrame() int64 { return d.currentFrame.Load() }

func (d *Decoder) SupportsSeeking() bool { return true }

func (d *Decoder) SeekToFrame(frame int64) (int64, error) {
	if d.dec == nil {
		return -1, fmt.Errorf("mp3: decoder not open")
	}
	bytePos := frame * bytesPerFrame
	bytePos -= bytePos % bytesPerFrame
	actual, err := d.dec.Seek(bytePos, io.SeekStart)
	if err != nil {
		return -1, fmt.Errorf("mp3: seek to frame %d: %w", frame, err)
	}
	reached := actual / bytesPerFrame
	d.currentFrame.Store(reached)
	return reached, nil
}

func (d *Decoder) Read(buf []byte, maxFrames int) (int, error) {
	if d.dec == nil {
		return 0, fmt.Errorf("mp3: decoder not open")
	}
	want := maxFrames * bytesPerFrame
	if want > len(buf) {
		want = len(buf) - (len(buf) % bytesPerFrame)
	}
	if want <= 0 {
		return 0, nil
	}

	n, err := d.dec.Read(buf[:want])
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("mp3: decode: %w", err)
	}

	framesDecoded := n / bytesPerFrame
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
