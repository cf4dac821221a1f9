// Package viewer implements the playback/record control loop: a single
// background goroutine acquires frames and publishes them to the display
// surface, while command methods mutate the shared navigation state under
// one control mutex.
package viewer

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kinoview/kinoview/internal/display"
	"github.com/kinoview/kinoview/internal/media"
	"github.com/kinoview/kinoview/internal/util"
)

// freeRun is the navigation bound meaning "no bound": the loop advances on
// every successful grab.
const freeRun = math.MaxInt

// idleDelay paces iterations that deliver no frame, so a paused viewer or
// a non-blocking miss does not spin a CPU core.
const idleDelay = 5 * time.Millisecond

// Options configures a Viewer.
type Options struct {
	// Wait makes acquisition block until the source has a frame.
	Wait bool
	// Discard makes acquisition drop backlog and deliver only the newest
	// available frame.
	Discard bool
	// RecordEvery is the sampling interval applied when recording starts.
	RecordEvery int
	// ScreenshotDir is where SaveFrame writes captures ("" = cwd).
	ScreenshotDir string
	// OpenSource binds a locator to a source. Defaults to OpenSource in
	// this package.
	OpenSource func(uri string) (media.Source, error)
}

// Viewer owns the shared control state and the acquisition goroutine.
//
// All navigation fields are guarded by mu; the loop holds mu for the
// decide/grab/publish step of each iteration and releases it before the
// renderer's FinishFrame, so a slow redraw never delays a command.
type Viewer struct {
	renderer display.Renderer
	logger   *slog.Logger

	mu       sync.Mutex
	src      media.Source
	playback media.Playback
	rec      media.Recorder

	current     int // Index of the last delivered frame
	grabUntil   int // Exclusive bound: grab only while current < grabUntil
	grabWait    bool
	grabNewest  bool
	recordEvery int

	screenshotDir string
	openSource    func(uri string) (media.Source, error)

	running atomic.Bool
	started atomic.Bool
	done    chan struct{}
}

// New builds a Viewer over the given renderer. Call Open to bind a source
// and Start to launch the loop.
func New(renderer display.Renderer, opts Options) *Viewer {
	if opts.RecordEvery < 1 {
		opts.RecordEvery = 1
	}
	if opts.OpenSource == nil {
		opts.OpenSource = func(uri string) (media.Source, error) {
			return OpenSource(uri, "", 30)
		}
	}

	v := &Viewer{
		renderer:      renderer,
		logger:        util.GetLogger(),
		current:       -1,
		grabUntil:     freeRun,
		grabWait:      opts.Wait,
		grabNewest:    opts.Discard,
		recordEvery:   opts.RecordEvery,
		screenshotDir: opts.ScreenshotDir,
		openSource:    opts.OpenSource,
		done:          make(chan struct{}),
	}
	v.running.Store(true)
	return v
}

// Open binds a source. Failures are logged and leave the viewer in a
// closed, no-op state rather than failing the process.
func (v *Viewer) Open(uri string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	src, err := v.openSource(uri)
	if err != nil {
		v.logger.Error("Failed to open source", "uri", uri, "error", err)
		return
	}
	if len(src.Streams()) == 0 {
		v.logger.Error("No video streams from source", "uri", uri)
		src.Close()
		return
	}

	for _, s := range src.Streams() {
		v.logger.Info("Stream",
			"index", s.Index,
			"width", s.Width,
			"height", s.Height,
			"format", string(s.Format),
			"pitch", s.Pitch)
	}

	v.src = src
	v.playback = media.AsPlayback(src)
	v.rec = media.AsRecorder(src)
	v.current = -1
	v.grabUntil = freeRun

	if v.playback != nil && v.playback.TotalFrames() != media.UnknownFrameCount {
		v.logger.Info("Video length", "frames", v.playback.TotalFrames())
		// Bounded sources start paused at the first frame.
		v.grabUntil = 0
	}
}

// Close releases the source.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.src == nil {
		return
	}
	if err := v.src.Close(); err != nil {
		v.logger.Warn("Source close error", "error", err)
	}
	v.src = nil
	v.playback = nil
	v.rec = nil
}

// TogglePlay pauses at the current position, or resumes free-run when
// already caught up. Pause is not a flag: "paused" is exactly
// grabUntil <= current.
func (v *Viewer) TogglePlay() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.current < v.grabUntil {
		v.grabUntil = v.current
	} else {
		v.grabUntil = freeRun
	}
}

// Skip moves the playhead by delta frames. On a seekable source this seeks
// and leaves the loop in a single-step pause so exactly the sought frame is
// delivered next. Without random access, a forward skip extends the bound
// and a backward skip is rejected with a warning.
func (v *Viewer) Skip(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.playback != nil {
		v.current = v.playback.Seek(v.current+delta) - 1
		v.grabUntil = v.current + 1
		return
	}

	if delta >= 0 {
		v.grabUntil = v.current + delta
	} else {
		v.logger.Warn("Unable to skip backward")
	}
}

// ToggleRecord starts or stops recording. Toggling twice lands back in the
// starting state.
func (v *Viewer) ToggleRecord() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rec == nil {
		v.logger.Warn("Source does not support recording")
		return
	}

	if !v.rec.IsRecording() {
		v.rec.SetEveryNth(v.recordEvery)
		if err := v.rec.Record(); err != nil {
			v.logger.Error("Failed to start recording", "error", err)
			return
		}
		v.logger.Info("Started recording", "every_nth", v.recordEvery)
	} else {
		if err := v.rec.StopRecording(); err != nil {
			v.logger.Error("Failed to stop recording", "error", err)
			return
		}
		v.logger.Info("Finished recording")
	}
}

// RecordOneFrame requests one additional recorded frame regardless of the
// recording state.
func (v *Viewer) RecordOneFrame() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rec == nil {
		v.logger.Warn("Source does not support recording")
		return
	}
	if err := v.rec.RecordOneFrame(); err != nil {
		v.logger.Error("Failed to record frame", "error", err)
	}
}

// StopRecording stops recording if active.
func (v *Viewer) StopRecording() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rec != nil && v.rec.IsRecording() {
		if err := v.rec.StopRecording(); err != nil {
			v.logger.Error("Failed to stop recording", "error", err)
		}
	}
}

// ToggleWaitForFrames flips whether acquisition blocks for a frame. Takes
// effect on the next grab.
func (v *Viewer) ToggleWaitForFrames() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.grabWait = !v.grabWait
	if v.grabWait {
		v.logger.Info("Waiting for video frames")
	} else {
		v.logger.Info("Not waiting for video frames")
	}
}

// ToggleDiscardBufferedFrames flips whether acquisition drops backlog.
// Takes effect on the next grab.
func (v *Viewer) ToggleDiscardBufferedFrames() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.grabNewest = !v.grabNewest
	if v.grabNewest {
		v.logger.Info("Discarding old frames")
	} else {
		v.logger.Info("Not discarding old frames")
	}
}

// ToggleStream flips the visibility of one display stream.
func (v *Viewer) ToggleStream(stream int) {
	v.renderer.ToggleStream(stream)
}

// SaveFrame writes a PNG of the last published image of one stream. The
// snapshot is copied out under the control lock; encoding and disk I/O
// happen outside it. Failures are logged, never fatal.
func (v *Viewer) SaveFrame(stream int) {
	v.mu.Lock()
	img, ok := v.renderer.Snapshot(stream)
	dir := v.screenshotDir
	v.mu.Unlock()

	if !ok {
		v.logger.Warn("No frame to save", "stream", stream)
		return
	}

	path, err := display.SaveScreenshot(img, dir)
	if err != nil {
		v.logger.Error("Unable to save frame", "stream", stream, "error", err)
		return
	}
	v.logger.Info("Saved frame", "stream", stream, "path", path)
}

// Quit asks the loop to exit at its next iteration boundary. Non-blocking.
func (v *Viewer) Quit() {
	v.running.Store(false)
}

// WaitUntilExit blocks until the loop goroutine has exited. Safe for any
// number of waiters; when the loop was never started it returns at once.
func (v *Viewer) WaitUntilExit() {
	if !v.started.Load() {
		return
	}
	<-v.done
}

// Start launches the acquisition/render loop goroutine. Subsequent calls
// are no-ops.
func (v *Viewer) Start() {
	if !v.started.CompareAndSwap(false, true) {
		return
	}
	go v.run()
}

// run is the loop body: one optional grab and one render pass per
// iteration, exiting when Quit was called here or process-wide.
func (v *Viewer) run() {
	defer close(v.done)

	v.mu.Lock()
	src := v.src
	total := media.UnknownFrameCount
	if v.playback != nil {
		total = v.playback.TotalFrames()
	}
	v.mu.Unlock()

	if src == nil {
		v.logger.Warn("No source open, viewer loop exiting")
		return
	}

	buffer := make([]byte, src.SizeBytes())
	images := make([]media.Image, len(src.Streams()))
	if err := v.renderer.Start(src.Streams(), total); err != nil {
		v.logger.Error("Failed to start renderer", "error", err)
		return
	}

	if err := src.Start(); err != nil {
		v.logger.Error("Failed to start source", "error", err)
		v.renderer.Close()
		return
	}

	for v.running.Load() && !ShouldQuit() {
		v.renderer.BeginFrame()

		v.mu.Lock()
		if pos, changed := v.renderer.PositionChanged(); changed {
			if v.playback != nil {
				v.current = v.playback.Seek(pos) - 1
			} else {
				v.current = pos - 1
			}
			// Arriving at a seek always pauses after one frame, so a stale
			// free-run bound cannot run away from the sought position.
			v.grabUntil = v.current + 1
		}

		grabbed := false
		if v.current < v.grabUntil {
			ok, err := src.Grab(buffer, images, v.grabWait, v.grabNewest)
			if err != nil {
				// Transient: render whatever was published last.
				v.logger.Debug("Grab failed", "error", err)
			}
			if ok {
				grabbed = true
				v.current++
				v.renderer.SetPosition(v.current)
				for i := range images {
					v.renderer.Publish(i, images[i])
				}
			}
		}
		v.mu.Unlock()

		// Rendering happens outside the control lock: a slow redraw must
		// not stall user commands.
		v.renderer.FinishFrame()

		if !grabbed {
			time.Sleep(idleDelay)
		}
	}

	if err := v.renderer.Close(); err != nil {
		v.logger.Warn("Renderer close error", "error", err)
	}
}
