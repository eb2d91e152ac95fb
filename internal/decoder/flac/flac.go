// Package flac adapts github.com/drgolem/go-flac to the
// pkg/gapless/decoder.Decoder interface, the way pkg/decoders/flac.Decoder
// wraps the same library for the teacher's sequential player.
package flac

import (
	"fmt"
	"sync/atomic"

	goflac "github.com/drgolem/go-flac/flac"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

// Decoder streams PCM frames out of a FLAC file via go-flac, requesting
// 16-bit output by default as the teacher decoder does.
type Decoder struct {
	path string
	repr any

	dec *goflac.FlacDecoder

	fmt format.Format

	currentFrame atomic.Int64
	open         atomic.Bool
}

// New creates a FLAC decoder for path. repr is handed back unchanged via
// RepresentedObject.
func New(path string, repr any) *Decoder {
	return &Decoder{path: path, repr: repr}
}

func (d *Decoder) Open() error {
	if d.open.Load() {
		return nil
	}

	dec, err := goflac.NewFlacFrameDecoder(16)
	if err != nil {
		return fmt.Errorf("flac: create decoder: %w", err)
	}
	if err := dec.Open(d.path); err != nil {
		dec.Delete()
		return fmt.Errorf("flac: open %s: %w", d.path, err)
	}

	rate, channels, bps := dec.GetFormat()

	d.dec = dec
	d.fmt = format.Format{
		SampleRate:    rate,
		Channels:      channels,
		Layout:        format.DefaultLayout(channels),
		Encoding:      format.EncodingPCMInt,
		BitsPerSample: bps,
		Interleaved:   true,
	}
	d.currentFrame.Store(0)
	d.open.Store(true)
	return nil
}

func (d *Decoder) IsOpen() bool { return d.open.Load() }

func (d *Decoder) Format() format.Format { return d.fmt }

// FrameLength is unknown up front for this adapter; go-flac's frame
// decoder does not surface the stream's total sample count, so this
// returns the running position, the same estimate-until-end-of-stream
// contract MP3 relies on.
func (d *Decoder) FrameLength() int64 { return d.currentFrame.Load() }

func (d *Decoder) CurrentFrame() int64 { return d.currentFrame.Load() }

func (d *Decoder) SupportsSeeking() bool { return false }

func (d *Decoder) SeekToFrame(frame int64) (int64, error) {
	return -1, fmt.Errorf("flac: seeking not supported")
}

func (d *Decoder) Read(buf []byte, maxFrames int) (int, error) {
	if d.dec == nil {
		return 0, fmt.Errorf("flac: decoder not open")
	}
	bytesPerFrame := d.fmt.BytesPerFrame()
	want := maxFrames * bytesPerFrame
	if want > len(buf) {
		want = len(buf) - (len(buf) % bytesPerFrame)
	}
	if want <= 0 {
		return 0, nil
	}
	samples := want / (d.fmt.BitsPerSample / 8)

	n, err := d.dec.DecodeSamples(samples, buf[:want])
	if err != nil {
		return 0, fmt.Errorf("flac: decode: %w", err)
	}

	framesDecoded := n / d.fmt.Channels
	if framesDecoded > 0 {
		d.currentFrame.Add(int64(framesDecoded))
	}
	return framesDecoded, nil
}

func (d *Decoder) Close() error {
	if !d.open.CompareAndSwap(true, false) {
		return nil
	}
	if d.dec != nil {
		d.dec.Close()
		d.dec.Delete()
		d.dec = nil
	}
	return nil
}

func (d *Decoder) URL() string { return d.path }

func (d *Decoder) RepresentedObject() any { return d.repr }
