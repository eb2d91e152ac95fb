// Package vorbis adapts github.com/jfreymuth/oggvorbis to the
// pkg/gapless/decoder.Decoder interface. oggvorbis decodes straight to
// interleaved float32 samples and exposes sample-accurate length and
// seek, like the MP3 adapter and unlike the FLAC/WAV/Opus adapters in this
// tree.
package vorbis

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync/atomic"

	"github.com/jfreymuth/oggvorbis"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

// Decoder streams PCM-float frames out of an Ogg Vorbis file.
type Decoder struct {
	path string
	repr any

	file   *os.File
	reader *oggvorbis.Reader

	fmt         format.Format
	frameLength int64

	tmp []float32

	currentFrame atomic.Int64
	open         atomic.Bool
}

// New creates a Vorbis decoder for path. repr is handed back unchanged
// via RepresentedObject.
func New(path string, repr any) *Decoder {
	return &Decoder{path: path, repr: repr}
}

func (d *Decoder) Open() error {
	if d.open.Load() {
		return nil
	}

	file, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("vorbis: open %s: %w", d.path, err)
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("vorbis: decode %s: %w", d.path, err)
	}

	channels := reader.Channels()
	d.file = file
	d.reader = reader
	d.fmt = format.Format{
		SampleRate:    reader.SampleRate(),
		Channels:      channels,
		Layout:        format.DefaultLayout(channels),
		Encoding:      format.EncodingPCMFloat,
		Interleaved:   true,
	}
	d.frameLength = reader.Length()
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
	if d.reader == nil {
		return -1, fmt.Errorf("vorbis: decoder not open")
	}
	d.reader.SetPosition(frame)
	d.currentFrame.Store(frame)
	return frame, nil
}

func (d *Decoder) Read(buf []byte, maxFrames int) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("vorbis: decoder not open")
	}

	channels := d.fmt.Channels
	sampleCount := maxFrames * channels
	if cap(d.tmp) < sampleCount {
		d.tmp = make([]float32, sampleCount)
	}
	samples := d.tmp[:sampleCount]

	n, err := d.reader.Read(samples)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("vorbis: decode: %w", err)
		}
		return 0, nil
	}

	framesDecoded := n / channels
	need := framesDecoded * channels * 4
	if need > len(buf) {
		framesDecoded = len(buf) / (channels * 4)
		need = framesDecoded * channels * 4
	}
	for i := 0; i < framesDecoded*channels; i++ {
		writeFloat32LE(buf[i*4:i*4+4], samples[i])
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

func writeFloat32LE(b []byte, f float32) {
	bits := math.Float32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
