// Command gapless plays one or more audio files back-to-back with no
// audible gap between tracks, using the gapless playback engine.
package main

func main() {
	Execute()
}
