package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gapless",
	Short: "Gapless multi-format audio playback engine",
	Long: `gapless - a concurrent, lock-free playback engine that decodes and
renders multiple queued tracks with no gap, click, or glitch between them.

Features:
  - Lock-free SPSC ringbuffer feeding a real-time render callback
  - Decoder, render, and garbage-collector threads coordinated by atomics
  - Seek, skip, and sample-rate changes applied without racing the output
  - Support for MP3, FLAC, WAV, Ogg Vorbis, and Opus sources

Commands:
  - play: queue one or more audio files and play them gaplessly
  - transform: resample an audio file and write it out as WAV`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
