package viewer

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/kinoview/kinoview/internal/display"
	"github.com/kinoview/kinoview/internal/media"
	"github.com/kinoview/kinoview/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a scripted producer: one 4x2 GRAY8 stream whose frame
// content is the frame index.
type fakeSource struct {
	mu     sync.Mutex
	total  int // frames available, UnknownFrameCount for live
	cursor int
	ready  bool // false simulates "no frame yet" in non-blocking mode
	grabs  int
}

func newFakeSource(total int) *fakeSource {
	return &fakeSource{total: total, ready: true}
}

func (f *fakeSource) stream() media.StreamInfo {
	return media.StreamInfo{Width: 4, Height: 2, Pitch: 4, Format: media.PixelFormatGray8}
}

func (f *fakeSource) Streams() []media.StreamInfo { return []media.StreamInfo{f.stream()} }
func (f *fakeSource) SizeBytes() int              { return f.stream().SizeBytes() }
func (f *fakeSource) Start() error                { return nil }
func (f *fakeSource) Close() error                { return nil }

func (f *fakeSource) Grab(buf []byte, images []media.Image, wait, newest bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grabs++
	if !f.ready && !wait {
		return false, nil
	}
	if f.total != media.UnknownFrameCount && f.cursor >= f.total {
		return false, nil
	}
	for i := range buf[:f.SizeBytes()] {
		buf[i] = byte(f.cursor)
	}
	st := f.stream()
	images[0] = media.Image{Data: buf[:st.SizeBytes()], Width: st.Width, Height: st.Height, Pitch: st.Pitch, Format: st.Format}
	f.cursor++
	return true, nil
}

func (f *fakeSource) setReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = ready
}

func (f *fakeSource) grabCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grabs
}

// seekableFake adds random access.
type seekableFake struct {
	*fakeSource
}

func (s *seekableFake) Seek(frame int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame < 0 {
		frame = 0
	}
	if s.total != media.UnknownFrameCount && frame >= s.total {
		frame = s.total - 1
	}
	s.cursor = frame
	return frame
}

func (s *seekableFake) TotalFrames() int {
	return s.total
}

func openWith(t *testing.T, src media.Source) (*Viewer, *display.Null) {
	t.Helper()
	null := display.NewNull()
	v := New(null, Options{
		Wait: true,
		OpenSource: func(string) (media.Source, error) {
			return src, nil
		},
	})
	v.Open("fake://")
	return v, null
}

func (v *Viewer) state() (current, grabUntil int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.grabUntil
}

func TestOpenBoundedSourceStartsPaused(t *testing.T) {
	v, _ := openWith(t, &seekableFake{newFakeSource(100)})
	current, grabUntil := v.state()
	assert.Equal(t, -1, current)
	assert.Equal(t, 0, grabUntil)
}

func TestOpenUnboundedSourceFreeRuns(t *testing.T) {
	v, _ := openWith(t, newFakeSource(media.UnknownFrameCount))
	current, grabUntil := v.state()
	assert.Equal(t, -1, current)
	assert.Equal(t, freeRun, grabUntil)
}

func TestOpenFailureLeavesViewerClosed(t *testing.T) {
	null := display.NewNull()
	v := New(null, Options{
		// A source with no streams is rejected.
		OpenSource: func(string) (media.Source, error) {
			return noStreamSource{}, nil
		},
	})
	v.Open("fake://")

	v.mu.Lock()
	src := v.src
	v.mu.Unlock()
	assert.Nil(t, src)

	// Starting without a source exits immediately, and waiting returns.
	v.Start()
	v.WaitUntilExit()
}

type noStreamSource struct{}

func (noStreamSource) Streams() []media.StreamInfo { return nil }
func (noStreamSource) SizeBytes() int              { return 0 }
func (noStreamSource) Start() error                { return nil }
func (noStreamSource) Close() error                { return nil }
func (noStreamSource) Grab([]byte, []media.Image, bool, bool) (bool, error) {
	return false, nil
}

func TestTogglePlayAlternates(t *testing.T) {
	v, _ := openWith(t, newFakeSource(media.UnknownFrameCount))

	paused := func() bool {
		current, grabUntil := v.state()
		return grabUntil <= current
	}

	// Free-running after open; each toggle flips the relation.
	require.False(t, paused())
	for i := 0; i < 6; i++ {
		v.TogglePlay()
		assert.Equal(t, i%2 == 0, paused(), "toggle %d", i)
	}
}

func TestSkipSeekableSingleStepPause(t *testing.T) {
	src := &seekableFake{newFakeSource(100)}
	v, _ := openWith(t, src)

	before, _ := v.state()
	v.Skip(+5)

	current, grabUntil := v.state()
	assert.Equal(t, before+5-1, current, "current is one before the sought frame")
	assert.Equal(t, current+1, grabUntil, "single-step pause after seek")
}

func TestSkipBackwardWithoutSeekIsIgnored(t *testing.T) {
	v, _ := openWith(t, newFakeSource(media.UnknownFrameCount))

	curBefore, untilBefore := v.state()
	v.Skip(-3)
	curAfter, untilAfter := v.state()

	assert.Equal(t, curBefore, curAfter)
	assert.Equal(t, untilBefore, untilAfter)
}

func TestSkipForwardWithoutSeekRaisesBound(t *testing.T) {
	v, _ := openWith(t, newFakeSource(media.UnknownFrameCount))

	v.TogglePlay() // pause: grabUntil = current = -1
	v.Skip(+10)

	current, grabUntil := v.state()
	assert.Equal(t, current+10, grabUntil)
}

type captureSink struct {
	mu     sync.Mutex
	frames []int
}

func (c *captureSink) WriteFrame(buf []byte, frame int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *captureSink) Close() error { return nil }

func TestToggleRecordRoundTrip(t *testing.T) {
	sink := &captureSink{}
	src := record.NewRecording(newFakeSource(media.UnknownFrameCount), sink)
	v, _ := openWith(t, src)

	require.NotNil(t, v.rec)
	require.False(t, v.rec.IsRecording())

	v.ToggleRecord()
	assert.True(t, v.rec.IsRecording())
	v.ToggleRecord()
	assert.False(t, v.rec.IsRecording(), "double toggle returns to the initial state")

	// Rapid toggling still lands on a consistent state.
	for i := 0; i < 5; i++ {
		v.ToggleRecord()
	}
	assert.True(t, v.rec.IsRecording())
	v.StopRecording()
	assert.False(t, v.rec.IsRecording())
}

func TestGrabMissDoesNotAdvance(t *testing.T) {
	src := newFakeSource(media.UnknownFrameCount)
	src.setReady(false)

	null := display.NewNull()
	v := New(null, Options{
		Wait: false, // non-blocking acquisition
		OpenSource: func(string) (media.Source, error) {
			return src, nil
		},
	})
	v.Open("fake://")
	v.Start()
	defer func() {
		v.Quit()
		v.WaitUntilExit()
	}()

	// The loop keeps iterating on misses without advancing.
	require.Eventually(t, func() bool { return src.grabCount() > 3 }, time.Second, time.Millisecond)
	current, _ := v.state()
	assert.Equal(t, -1, current)
	assert.Equal(t, 0, null.Published())

	// Once frames appear they flow.
	src.setReady(true)
	require.Eventually(t, func() bool { return null.Published() > 0 }, time.Second, time.Millisecond)
}

func TestIdleLoopIsPaced(t *testing.T) {
	src := newFakeSource(media.UnknownFrameCount)
	src.setReady(false)

	null := display.NewNull()
	v := New(null, Options{
		Wait: false,
		OpenSource: func(string) (media.Source, error) {
			return src, nil
		},
	})
	v.Open("fake://")
	v.Start()
	defer func() {
		v.Quit()
		v.WaitUntilExit()
	}()

	// ~20 misses expected at the idle delay; a busy loop would rack up
	// tens of thousands.
	time.Sleep(100 * time.Millisecond)
	assert.Less(t, src.grabCount(), 60)
}

func TestExternalPositionChangeSeeksAndPauses(t *testing.T) {
	src := &seekableFake{newFakeSource(100)}
	v, null := openWith(t, src)
	v.Start()
	defer func() {
		v.Quit()
		v.WaitUntilExit()
	}()

	// Deliver the first frame of the paused-open state.
	require.Eventually(t, func() bool { return null.Position() == 0 }, time.Second, time.Millisecond)

	null.RequestPosition(42)
	require.Eventually(t, func() bool { return null.Position() == 42 }, time.Second, time.Millisecond)

	current, grabUntil := v.state()
	assert.Equal(t, 42, current)
	assert.Equal(t, current, grabUntil, "a seek lands in pause once its frame is delivered")
}

func TestScenarioSkipPlayQuit(t *testing.T) {
	resetQuitForTest()

	src := &seekableFake{newFakeSource(100)}
	v, null := openWith(t, src)

	// Bounded source opens paused.
	_, grabUntil := v.state()
	require.Equal(t, 0, grabUntil)

	v.Skip(+5)
	v.Start()

	// The next acquisition delivers exactly frame -1+5 = 4 and pauses.
	require.Eventually(t, func() bool { return null.Position() == 4 }, time.Second, time.Millisecond)
	img, ok := null.Snapshot(0)
	require.True(t, ok)
	assert.Equal(t, byte(4), img.Data[0], "frame content matches the sought index")

	current, grabUntil := v.state()
	assert.Equal(t, 4, current)
	assert.Equal(t, current, grabUntil, "paused after the single stepped frame")

	// Resume free-run: frames 5,6,7... stream.
	v.TogglePlay()
	_, grabUntil = v.state()
	assert.Equal(t, freeRun, grabUntil)
	require.Eventually(t, func() bool { return null.Position() >= 8 }, time.Second, time.Millisecond)

	v.Quit()
	done := make(chan struct{})
	go func() {
		v.WaitUntilExit()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after Quit")
	}
}

func TestProcessWideQuitStopsLoop(t *testing.T) {
	resetQuitForTest()
	t.Cleanup(resetQuitForTest)

	v, _ := openWith(t, newFakeSource(media.UnknownFrameCount))
	v.Start()

	RequestQuit()
	done := make(chan struct{})
	go func() {
		v.WaitUntilExit()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not observe the process-wide quit flag")
	}
}

func TestConcurrentCommandsKeepStateConsistent(t *testing.T) {
	resetQuitForTest()

	src := &seekableFake{newFakeSource(1000)}
	v, _ := openWith(t, src)
	v.Start()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				switch rng.Intn(4) {
				case 0:
					v.TogglePlay()
				case 1:
					v.Skip(rng.Intn(21) - 10)
				case 2:
					v.ToggleWaitForFrames()
				case 3:
					v.ToggleDiscardBufferedFrames()
				}
			}
		}(int64(g))
	}
	wg.Wait()

	v.Quit()
	v.WaitUntilExit()

	// Whatever the interleaving, the state must be one a valid command
	// sequence can produce: current within the source bounds, and the
	// bound either a finite value or the free-run sentinel.
	current, grabUntil := v.state()
	assert.GreaterOrEqual(t, current, -1)
	assert.Less(t, current, 1000)
	assert.True(t, grabUntil == freeRun || grabUntil >= -1)
}

func TestWaitUntilExitBeforeStartReturns(t *testing.T) {
	v, _ := openWith(t, newFakeSource(media.UnknownFrameCount))
	done := make(chan struct{})
	go func() {
		v.WaitUntilExit()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitUntilExit blocked with no loop running")
	}
}
