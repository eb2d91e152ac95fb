// Package wav adapts github.com/youpy/go-wav to the
// pkg/gapless/decoder.Decoder interface, the way pkg/decoders/wav.Decoder
// wraps the same library for the teacher's sequential player. go-wav reads
// samples strictly sequentially, so like the FLAC and Opus adapters this
// one reports FrameLength as a running estimate and does not support
// seeking.
package wav

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	govwav "github.com/youpy/go-wav"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

// Decoder streams PCM frames out of a WAV file.
type Decoder struct {
	path string
	repr any

	file   *os.File
	reader *govwav.Reader

	fmt format.Format

	currentFrame atomic.Int64
	open         atomic.Bool
}

// New creates a WAV decoder for path. repr is handed back unchanged via
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
		return fmt.Errorf("wav: open %s: %w", d.path, err)
	}

	reader := govwav.NewReader(file)
	wfmt, err := reader.Format()
	if err != nil {
		file.Close()
		return fmt.Errorf("wav: read format %s: %w", d.path, err)
	}
	if wfmt.AudioFormat != govwav.AudioFormatPCM {
		file.Close()
		return fmt.Errorf("wav: unsupported format %d (only PCM)", wfmt.AudioFormat)
	}

	d.file = file
	d.reader = reader
	d.fmt = format.Format{
		SampleRate:    int(wfmt.SampleRate),
		Channels:      int(wfmt.NumChannels),
		Layout:        format.DefaultLayout(int(wfmt.NumChannels)),
		Encoding:      format.EncodingPCMInt,
		BitsPerSample: int(wfmt.BitsPerSample),
		Interleaved:   true,
	}
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
	return -1, fmt.Errorf("wav: seeking not supported")
}

func (d *Decoder) Read(buf []byte, maxFrames int) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("wav: decoder not open")
	}

	bytesPerSample := d.fmt.BitsPerSample / 8
	channels := d.fmt.Channels
	framesDecoded := 0

	for framesDecoded < maxFrames {
		samplesData, err := d.reader.ReadSamples(1)
		if err != nil {
			if err == io.EOF {
				break
			}
			return framesDecoded, fmt.Errorf("wav: decode: %w", err)
		}
		if len(samplesData) == 0 {
			break
		}

		offset := framesDecoded * channels * bytesPerSample
		if offset+channels*bytesPerSample > len(buf) {
			break
		}

		for ch := 0; ch < channels; ch++ {
			if ch >= len(samplesData[0].Values) {
				break
			}
			value := samplesData[0].Values[ch]
			o := offset + ch*bytesPerSample
			switch d.fmt.BitsPerSample {
			case 8:
				buf[o] = byte(value)
			case 16:
				buf[o] = byte(value & 0xFF)
				buf[o+1] = byte((value >> 8) & 0xFF)
			case 24:
				buf[o] = byte(value & 0xFF)
				buf[o+1] = byte((value >> 8) & 0xFF)
				buf[o+2] = byte((value >> 16) & 0xFF)
			case 32:
				buf[o] = byte(value & 0xFF)
				buf[o+1] = byte((value >> 8) & 0xFF)
				buf[o+2] = byte((value >> 16) & 0xFF)
				buf[o+3] = byte((value >> 24) & 0xFF)
			default:
				return framesDecoded, fmt.Errorf("wav: unsupported bits per sample: %d", d.fmt.BitsPerSample)
			}
		}
		framesDecoded++
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
