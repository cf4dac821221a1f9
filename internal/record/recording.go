package record

import (
	"log/slog"
	"sync"

	"github.com/kinoview/kinoview/internal/media"
	"github.com/kinoview/kinoview/internal/util"
)

// Recording decorates a source with the media.Recorder capability: every
// frame the viewer grabs may also be written to the sink, subject to the
// sampling interval and the one-shot counter.
//
// The toggle methods are called from the command goroutine while Grab runs
// on the acquisition goroutine, so all state sits behind the mutex.
type Recording struct {
	inner media.Source
	sink  Sink

	mu        sync.Mutex
	recording bool
	everyNth  int
	oneShot   int
	frameIdx  int // Frames grabbed since open
	recStart  int // frameIdx at which recording last started

	logger *slog.Logger
}

// NewRecording wraps inner so grabbed frames can be recorded to sink.
func NewRecording(inner media.Source, sink Sink) *Recording {
	return &Recording{
		inner:    inner,
		sink:     sink,
		everyNth: 1,
		logger:   util.GetLogger(),
	}
}

// Unwrap implements media.Wrapper, keeping the inner source's playback
// capability discoverable.
func (r *Recording) Unwrap() media.Source {
	return r.inner
}

// Streams implements media.Source
func (r *Recording) Streams() []media.StreamInfo {
	return r.inner.Streams()
}

// SizeBytes implements media.Source
func (r *Recording) SizeBytes() int {
	return r.inner.SizeBytes()
}

// Start implements media.Source
func (r *Recording) Start() error {
	return r.inner.Start()
}

// Grab implements media.Source. On a successful grab the frame is also
// written to the sink when due; sink failures are logged, never surfaced,
// so recording trouble cannot stall viewing.
func (r *Recording) Grab(buf []byte, images []media.Image, wait, newest bool) (bool, error) {
	ok, err := r.inner.Grab(buf, images, wait, newest)
	if !ok {
		return ok, err
	}

	r.mu.Lock()
	idx := r.frameIdx
	r.frameIdx++
	write := false
	if r.oneShot > 0 {
		r.oneShot--
		write = true
	} else if r.recording && (idx-r.recStart)%r.everyNth == 0 {
		write = true
	}
	r.mu.Unlock()

	if write {
		if werr := r.sink.WriteFrame(buf, idx); werr != nil {
			r.logger.Error("Failed to record frame", "frame", idx, "error", werr)
		}
	}
	return ok, err
}

// Record implements media.Recorder. Already recording is a no-op.
func (r *Recording) Record() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return nil
	}
	r.recording = true
	r.recStart = r.frameIdx
	return nil
}

// RecordOneFrame implements media.Recorder. The next grabbed frame is
// written regardless of the continuous recording state.
func (r *Recording) RecordOneFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oneShot++
	return nil
}

// StopRecording implements media.Recorder. Not recording is a no-op.
func (r *Recording) StopRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	return nil
}

// SetEveryNth implements media.Recorder.
func (r *Recording) SetEveryNth(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 1 {
		n = 1
	}
	r.everyNth = n
}

// IsRecording implements media.Recorder.
func (r *Recording) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Close closes the sink first so a recording is finalized even when the
// inner source's close fails.
func (r *Recording) Close() error {
	serr := r.sink.Close()
	ierr := r.inner.Close()
	if serr != nil {
		return serr
	}
	return ierr
}
