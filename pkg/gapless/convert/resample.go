package convert

import (
	"bytes"
	"fmt"

	"github.com/zaf/resample"

	"github.com/drgolem/gapless/pkg/gapless/format"
)

// Resampler adapts github.com/zaf/resample — a streaming, io.Writer-based
// sample-rate converter — to the engine's pull-based Converter interface.
// zaf/resample is built around "write input PCM, read resampled output
// from the wrapped io.Writer"; Fill bridges that to "pull input on demand,
// hand back output" by driving a small internal io.Writer sink.
type Resampler struct {
	in, out format.Format

	sink *bytes.Buffer
	r    *resample.Resampler

	inBuf []byte
}

// NewResampler builds a Resampler converting from in to out. Only the
// sample rate is converted through this path; no bit-depth or encoding
// conversion is done, whatever in and out declare.
func NewResampler(in, out format.Format) (*Resampler, error) {
	sink := &bytes.Buffer{}
	r, err := resample.New(sink, float64(in.SampleRate), float64(out.SampleRate), in.Channels, out.Channels, resample.I16)
	if err != nil {
		return nil, fmt.Errorf("convert: init resampler %s -> %s: %w", in, out, err)
	}
	return &Resampler{
		in:    in,
		out:   out,
		sink:  sink,
		r:     r,
		inBuf: make([]byte, 0, 4096),
	}, nil
}

// Reset drops resampled output not yet handed out by Fill and rebuilds the
// zaf/resample filter so no delay-line state carries over.
func (r *Resampler) Reset() error {
	if err := r.r.Close(); err != nil {
		return fmt.Errorf("convert: reset resampler: %w", err)
	}
	r.sink.Reset()
	nr, err := resample.New(r.sink, float64(r.in.SampleRate), float64(r.out.SampleRate), r.in.Channels, r.out.Channels, resample.I16)
	if err != nil {
		return fmt.Errorf("convert: reset resampler %s -> %s: %w", r.in, r.out, err)
	}
	r.r = nr
	return nil
}

// Fill pulls native-format frames from pull, feeds them through the
// resampler, and copies as many output-format frames as the resampler
// produced (up to targetFrames) into output.
func (r *Resampler) Fill(output []byte, targetFrames int, pull InputProvider) (int, error) {
	outBytesPerFrame := r.out.BytesPerFrame()
	needed := targetFrames * outBytesPerFrame

	// Pull enough native-format input to plausibly produce `needed` output
	// bytes once resampled, then feed it through. Each Fill call makes a
	// single pull, so it can return fewer than targetFrames (e.g. while the
	// resampler's filter fills, or when 48k -> 44.1k shrinks the stream).
	inBytesPerFrame := r.in.BytesPerFrame()
	wantInFrames := targetFrames*r.in.SampleRate/r.out.SampleRate + 1
	if cap(r.inBuf) < wantInFrames*inBytesPerFrame {
		r.inBuf = make([]byte, wantInFrames*inBytesPerFrame)
	}
	inBuf := r.inBuf[:wantInFrames*inBytesPerFrame]

	n, err := pull(inBuf, wantInFrames)
	if n > 0 {
		if _, werr := r.r.Write(inBuf[:n*inBytesPerFrame]); werr != nil {
			return 0, fmt.Errorf("convert: resample write: %w", werr)
		}
	}

	produced := copy(output[:min(len(output), needed)], r.sink.Bytes())
	r.sink.Next(produced)

	return produced / outBytesPerFrame, err
}

func (r *Resampler) Dispose() error {
	return r.r.Close()
}
