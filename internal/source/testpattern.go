package source

import (
	"sync"
	"time"

	"github.com/kinoview/kinoview/internal/media"
	"github.com/pkg/errors"
)

// TestPattern is a live synthetic source: a moving gradient generated at a
// fixed rate. It has no random access and an unbounded length, which makes
// it the reference "camera-like" source for exercising the non-seekable
// paths of the viewer.
type TestPattern struct {
	mu      sync.Mutex
	stream  media.StreamInfo
	fps     int
	started time.Time
	// delivered is the index of the last frame handed out; frames the
	// clock has produced beyond it form the backlog.
	delivered int
	closed    bool

	now func() time.Time // test hook
}

// NewTestPattern builds a generator with the given geometry and rate.
func NewTestPattern(width, height, fps int, format media.PixelFormat) (*TestPattern, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, errors.New("test pattern needs positive width, height and fps")
	}
	if !format.Valid() {
		return nil, errors.Errorf("unknown pixel format %q", format)
	}
	return &TestPattern{
		stream: media.StreamInfo{
			Width:  width,
			Height: height,
			Pitch:  width * format.BytesPerPixel(),
			Format: format,
		},
		fps:       fps,
		delivered: -1,
		now:       time.Now,
	}, nil
}

// Streams implements media.Source
func (t *TestPattern) Streams() []media.StreamInfo {
	return []media.StreamInfo{t.stream}
}

// SizeBytes implements media.Source
func (t *TestPattern) SizeBytes() int {
	return t.stream.SizeBytes()
}

// Start implements media.Source and begins the frame clock.
func (t *TestPattern) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started.IsZero() {
		t.started = t.now()
	}
	return nil
}

// available returns the newest frame index the clock has produced.
func (t *TestPattern) available() int {
	if t.started.IsZero() {
		return -1
	}
	elapsed := t.now().Sub(t.started)
	return int(elapsed * time.Duration(t.fps) / time.Second)
}

// Grab implements media.Source. With wait set it sleeps until the next
// frame tick; otherwise it reports false when the consumer has caught up.
// With newest set any backlog is dropped and only the latest frame is
// rendered.
func (t *TestPattern) Grab(buf []byte, images []media.Image, wait, newest bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false, errors.New("source closed")
	}
	if t.started.IsZero() {
		return false, errors.New("source not started")
	}

	avail := t.available()
	if t.delivered >= avail {
		if !wait {
			return false, nil
		}
		// Sleep out the remainder of the next frame interval. The viewer
		// accepts this block as the one deliberate wait in its loop.
		interval := time.Second / time.Duration(t.fps)
		next := t.started.Add(time.Duration(t.delivered+1) * interval)
		if d := next.Sub(t.now()); d > 0 {
			t.mu.Unlock()
			time.Sleep(d)
			t.mu.Lock()
			if t.closed {
				return false, errors.New("source closed")
			}
		}
		avail = t.available()
		if t.delivered >= avail {
			avail = t.delivered + 1
		}
	}

	if newest {
		t.delivered = avail
	} else {
		t.delivered++
	}

	t.render(buf, t.delivered)
	sliceImages(buf, []media.StreamInfo{t.stream}, images)
	return true, nil
}

// render paints a gradient that scrolls with the frame index, so stepping
// through frames is visible even without timestamps.
func (t *TestPattern) render(buf []byte, frame int) {
	bpp := t.stream.Format.BytesPerPixel()
	for y := 0; y < t.stream.Height; y++ {
		row := buf[y*t.stream.Pitch:]
		for x := 0; x < t.stream.Width; x++ {
			p := row[x*bpp:]
			v := byte(x + y + frame)
			switch t.stream.Format {
			case media.PixelFormatGray8:
				p[0] = v
			case media.PixelFormatRGB24:
				p[0] = v
				p[1] = byte(x + frame)
				p[2] = byte(y + frame)
			case media.PixelFormatRGBA32:
				p[0] = v
				p[1] = byte(x + frame)
				p[2] = byte(y + frame)
				p[3] = 0xff
			}
		}
	}
}

// Close implements media.Source.
func (t *TestPattern) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
