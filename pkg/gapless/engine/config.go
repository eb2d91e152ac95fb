package engine

// Config holds engine tunables, following the teacher's audioplayer.Config /
// DefaultConfig pattern.
type Config struct {
	// RingBufferCapacityFrames is the audio ring buffer's capacity, in
	// rendering-format frames. Must be >= RingBufferWriteChunkFrames.
	RingBufferCapacityFrames int

	// RingBufferWriteChunkFrames is the quantum the worker converts and
	// writes per decode-loop iteration, and the threshold at which the
	// render callback signals the worker that space is available.
	RingBufferWriteChunkFrames int

	// ActiveSlotTableSize is the fixed active-decoder table size. Must be
	// at least 2x the maximum number of concurrently unfinished tracks.
	ActiveSlotTableSize int

	// DeviceIndex selects the output device.
	DeviceIndex int

	// FramesPerBuffer is the output sink's callback buffer size, in
	// frames.
	FramesPerBuffer int

	// EventRingCapacityBytes sizes the render-event channel.
	EventRingCapacityBytes int

	// CollectorIntervalSeconds sets the periodic collector's tick (§4.6:
	// interval ~10s). CollectorLeewaySeconds records the allowed timer
	// slack (~2s); the collector does not read it and ticks on the interval
	// exactly.
	CollectorIntervalSeconds int
	CollectorLeewaySeconds   int
}

// DefaultConfig returns the spec's default tunables (§6).
func DefaultConfig() Config {
	return Config{
		RingBufferCapacityFrames:   16384,
		RingBufferWriteChunkFrames: 2048,
		ActiveSlotTableSize:        10,
		DeviceIndex:                1,
		FramesPerBuffer:            512,
		EventRingCapacityBytes:     256,
		CollectorIntervalSeconds:   10,
		CollectorLeewaySeconds:     2,
	}
}
