package media

// Source defines the interface for frame producers.
//
// A source is opened once, started once, and then grabbed repeatedly from a
// single goroutine. Grab fills buf (which must be at least SizeBytes long)
// and slices images over it, one entry per stream.
type Source interface {
	// Streams returns the stream layout of the source. Empty means the
	// source failed to deliver anything usable.
	Streams() []StreamInfo

	// SizeBytes returns the total grab buffer size across all streams.
	SizeBytes() int

	// Start begins frame delivery.
	Start() error

	// Grab acquires at most one frame into buf. When wait is true the call
	// blocks until a frame is available; otherwise it returns (false, nil)
	// immediately when none is ready. When newest is true any backlog is
	// dropped and only the most recent frame is returned.
	Grab(buf []byte, images []Image, wait, newest bool) (bool, error)

	// Close releases the source.
	Close() error
}

// Playback is the optional random-access capability of a source.
// Discovered via type assertion; sources without it cannot seek backward.
type Playback interface {
	// Seek positions the source so the next Grab delivers the given frame,
	// clamped to the valid range. Returns the frame that will be delivered.
	Seek(frame int) int

	// TotalFrames returns the finite frame count, or UnknownFrameCount.
	TotalFrames() int
}

// Recorder is the optional recording capability of a source.
//
// Recording is owned by the source side of the system: the controller only
// toggles it. All methods are safe to call while grabs are in flight on
// another goroutine.
type Recorder interface {
	// Record starts writing grabbed frames to the output sink.
	Record() error

	// RecordOneFrame requests exactly one additional frame be written,
	// regardless of whether continuous recording is active.
	RecordOneFrame() error

	// StopRecording stops continuous recording. No-op when not recording.
	StopRecording() error

	// SetEveryNth sets the sampling interval applied while recording.
	SetEveryNth(n int)

	// IsRecording reports whether continuous recording is active.
	IsRecording() bool
}
