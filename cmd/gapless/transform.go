package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	govwav "github.com/youpy/go-wav"

	"github.com/drgolem/gapless/pkg/gapless/convert"
	"github.com/drgolem/gapless/pkg/gapless/format"
)

var (
	transformSampleRate int
	transformOut        string
)

// transformCmd decodes a single file fully into memory, resamples it
// through the same Converter collaborator the engine uses for live
// playback, and writes the result out as 16-bit PCM WAV — an offline use
// of the render path's conversion stage rather than a new one.
var transformCmd = &cobra.Command{
	Use:   "transform <input_file>",
	Short: "Resample an audio file and write it out as WAV",
	Long: `Decode an input file, resample it to a target sample rate through the
same Converter collaborator the playback engine uses live, and write the
result as 16-bit PCM WAV.

Examples:
  gapless transform input.mp3 --rate 48000 --out output.wav
  gapless transform input.flac --rate 44100 --out output.wav`,
	Args: cobra.ExactArgs(1),
	Run:  runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().IntVar(&transformSampleRate, "rate", 48000, "Target sample rate in Hz")
	transformCmd.Flags().StringVar(&transformOut, "out", "out_transformed.wav", "Output WAV file path")
}

func runTransform(cmd *cobra.Command, args []string) {
	inFileName := args[0]

	if _, err := os.Stat(inFileName); os.IsNotExist(err) {
		slog.Error("input file not found", "path", inFileName)
		os.Exit(1)
	}

	dec, err := openDecoder(inFileName)
	if err != nil {
		slog.Error("failed to prepare decoder", "error", err)
		os.Exit(1)
	}
	if err := dec.Open(); err != nil {
		slog.Error("failed to open input", "error", err)
		os.Exit(1)
	}
	defer dec.Close()

	native := dec.Format()
	target := native
	target.SampleRate = transformSampleRate
	target.Encoding = format.EncodingPCMInt
	target.BitsPerSample = 16

	slog.Info("transform starting",
		"input_file", inFileName,
		"input_rate", native.SampleRate,
		"input_channels", native.Channels,
		"output_rate", target.SampleRate,
		"output_file", transformOut)

	conv, err := convert.NewForFormats(native, target)
	if err != nil {
		slog.Error("failed to build converter", "error", err)
		os.Exit(1)
	}
	defer conv.Dispose()

	const chunkFrames = 4096
	scratch := make([]byte, chunkFrames*native.BytesPerFrame())
	output := make([]byte, 0, chunkFrames*target.BytesPerFrame()*16)
	outBuf := make([]byte, chunkFrames*target.BytesPerFrame())

	for {
		n, err := conv.Fill(outBuf, chunkFrames, func(dst []byte, maxFrames int) (int, error) {
			framesRead, rerr := dec.Read(scratch, maxFrames)
			if framesRead > 0 {
				copy(dst, scratch[:framesRead*native.BytesPerFrame()])
			}
			return framesRead, rerr
		})
		if n > 0 {
			output = append(output, outBuf[:n*target.BytesPerFrame()]...)
		}
		if err != nil {
			slog.Error("conversion error", "error", err)
			os.Exit(1)
		}
		if n == 0 {
			break
		}
	}

	totalFrames := len(output) / target.BytesPerFrame()
	slog.Info("writing output", "path", transformOut, "frames", totalFrames)

	if err := writeWAV(transformOut, output, uint32(totalFrames), uint16(target.Channels), uint32(target.SampleRate), uint16(target.BitsPerSample)); err != nil {
		slog.Error("failed to write WAV file", "error", err)
		os.Exit(1)
	}

	slog.Info("transform complete", "input_frames", dec.CurrentFrame(), "output_frames", totalFrames)
}

func writeWAV(path string, data []byte, numFrames uint32, channels uint16, sampleRate uint32, bitsPerSample uint16) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	writer := govwav.NewWriter(f, numFrames, channels, sampleRate, bitsPerSample)
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("write WAV data: %w", err)
	}
	return nil
}
