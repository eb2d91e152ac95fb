package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drgolem/gapless/internal/decoder/flac"
	"github.com/drgolem/gapless/internal/decoder/mp3"
	"github.com/drgolem/gapless/internal/decoder/opus"
	"github.com/drgolem/gapless/internal/decoder/vorbis"
	"github.com/drgolem/gapless/internal/decoder/wav"
	portaudiosink "github.com/drgolem/gapless/internal/sink/portaudio"
	"github.com/drgolem/gapless/pkg/gapless/convert"
	"github.com/drgolem/gapless/pkg/gapless/decoder"
	"github.com/drgolem/gapless/pkg/gapless/engine"
	"github.com/drgolem/gapless/pkg/gapless/format"
)

var (
	playDeviceIdx    int
	playFramesPerBuf int
	playRingFrames   int
	playOpusRate     int
	playOpusChannels int
	playVerbose      bool
)

// playCmd queues every file argument, in order, and plays them gaplessly.
var playCmd = &cobra.Command{
	Use:   "play <audio_file> [audio_file...]",
	Short: "Play audio files gaplessly, one after another",
	Long: `Play a sequence of audio files with no gap, click, or glitch between
tracks, using the lock-free render engine.

Examples:
  gapless play song1.flac song2.flac song3.mp3
  gapless play -d 2 -v album/*.flac

Supported Formats:
  MP3:   .mp3
  FLAC:  .flac, .fla
  WAV:   .wav
  Vorbis: .ogg
  Opus:  .opus (raw length-prefixed packet stream; see internal/decoder/opus)`,
	Args: cobra.MinimumNArgs(1),
	Run:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", 1, "Audio output device index")
	playCmd.Flags().IntVarP(&playFramesPerBuf, "frames", "f", 512, "PortAudio frames per buffer")
	playCmd.Flags().IntVarP(&playRingFrames, "ring", "r", 16384, "Ring buffer capacity, in frames")
	playCmd.Flags().IntVar(&playOpusRate, "opus-rate", 48000, "Sample rate for raw Opus sources")
	playCmd.Flags().IntVar(&playOpusChannels, "opus-channels", 2, "Channel count for raw Opus sources")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runPlay(cmd *cobra.Command, args []string) {
	logLevel := slog.LevelInfo
	if playVerbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	decoders := make([]decoder.Decoder, 0, len(args))
	for _, path := range args {
		dec, err := openDecoder(path)
		if err != nil {
			logger.Error("failed to prepare decoder", "file", path, "error", err)
			os.Exit(1)
		}
		decoders = append(decoders, dec)
	}

	cfg := engine.DefaultConfig()
	cfg.DeviceIndex = playDeviceIdx
	cfg.FramesPerBuffer = playFramesPerBuf
	cfg.RingBufferCapacityFrames = playRingFrames

	s := portaudiosink.New(cfg.DeviceIndex, cfg.FramesPerBuffer)

	eng, err := engine.New(cfg, s, convert.NewForFormats, logger)
	if err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	done := make(chan struct{})

	eng.SetCallbacks(engine.Callbacks{
		DecodingStarted: func(dec decoder.Decoder) {
			logger.Info("decoding started", "file", dec.URL())
		},
		RenderingStarted: func(dec decoder.Decoder) {
			logger.Info("rendering started", "file", dec.URL())
		},
		RenderingComplete: func(dec decoder.Decoder) {
			logger.Info("rendering complete", "file", dec.URL())
		},
		DecodingFinished: func(dec decoder.Decoder) {
			logger.Debug("decoding finished", "file", dec.URL())
		},
		Error: func(err error) {
			logger.Error("engine error", "error", err)
		},
		FormatMismatch: func(old, updated format.Format) {
			logger.Info("format changed", "from", old.String(), "to", updated.String())
		},
		OutOfAudio: func() {
			logger.Info("queue drained")
			select {
			case <-done:
			default:
				close(done)
			}
		},
	})

	if err := eng.Play(decoders[0]); err != nil {
		logger.Error("failed to start playback", "file", decoders[0].URL(), "error", err)
		os.Exit(1)
	}
	for _, dec := range decoders[1:] {
		if err := eng.Enqueue(dec); err != nil {
			logger.Error("failed to enqueue", "file", dec.URL(), "error", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		logger.Info("playback completed")
	case sig := <-sigChan:
		logger.Info("signal received, stopping", "signal", sig)
	}
}

// openDecoder picks a concrete decoder by file extension, grounded on
// pkg/decoders/factory.go's switch-on-extension dispatch in the teacher
// repository.
func openDecoder(path string) (decoder.Decoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.New(path, path), nil
	case ".flac", ".fla":
		return flac.New(path, path), nil
	case ".wav":
		return wav.New(path, path), nil
	case ".ogg":
		return vorbis.New(path, path), nil
	case ".opus":
		return opus.New(path, playOpusRate, playOpusChannels, path), nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s", path)
	}
}
