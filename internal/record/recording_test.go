package record

import (
	"sync"
	"testing"

	"github.com/kinoview/kinoview/internal/media"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countSource delivers frames whose single byte is the frame index.
type countSource struct {
	cursor int
}

func (c *countSource) Streams() []media.StreamInfo {
	return []media.StreamInfo{{Width: 1, Height: 1, Pitch: 1, Format: media.PixelFormatGray8}}
}

func (c *countSource) SizeBytes() int { return 1 }
func (c *countSource) Start() error   { return nil }
func (c *countSource) Close() error   { return nil }

func (c *countSource) Grab(buf []byte, images []media.Image, wait, newest bool) (bool, error) {
	buf[0] = byte(c.cursor)
	images[0] = media.Image{Data: buf[:1], Width: 1, Height: 1, Pitch: 1, Format: media.PixelFormatGray8}
	c.cursor++
	return true, nil
}

type memSink struct {
	mu     sync.Mutex
	frames []byte
	fail   bool
	closed bool
}

func (m *memSink) WriteFrame(buf []byte, frame int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("sink failure")
	}
	m.frames = append(m.frames, buf[0])
	return nil
}

func (m *memSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memSink) recorded() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.frames...)
}

func grabN(t *testing.T, r *Recording, n int) {
	t.Helper()
	buf := make([]byte, r.SizeBytes())
	images := make([]media.Image, len(r.Streams()))
	for i := 0; i < n; i++ {
		ok, err := r.Grab(buf, images, true, false)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestRecordingPassThroughWhenIdle(t *testing.T) {
	sink := &memSink{}
	r := NewRecording(&countSource{}, sink)

	grabN(t, r, 5)
	assert.Empty(t, sink.recorded(), "nothing written while not recording")
}

func TestRecordingEveryFrame(t *testing.T) {
	sink := &memSink{}
	r := NewRecording(&countSource{}, sink)

	require.NoError(t, r.Record())
	assert.True(t, r.IsRecording())
	grabN(t, r, 4)
	require.NoError(t, r.StopRecording())
	grabN(t, r, 3)

	assert.Equal(t, []byte{0, 1, 2, 3}, sink.recorded())
}

func TestRecordingEveryNth(t *testing.T) {
	sink := &memSink{}
	r := NewRecording(&countSource{}, sink)

	// Advance a bit first: sampling is relative to the recording start,
	// not to the beginning of the session.
	grabN(t, r, 2)

	r.SetEveryNth(3)
	require.NoError(t, r.Record())
	grabN(t, r, 7)

	assert.Equal(t, []byte{2, 5, 8}, sink.recorded())
}

func TestRecordingSetEveryNthClamps(t *testing.T) {
	sink := &memSink{}
	r := NewRecording(&countSource{}, sink)

	r.SetEveryNth(0)
	require.NoError(t, r.Record())
	grabN(t, r, 3)
	assert.Equal(t, []byte{0, 1, 2}, sink.recorded())
}

func TestRecordingOneShot(t *testing.T) {
	sink := &memSink{}
	r := NewRecording(&countSource{}, sink)

	require.NoError(t, r.RecordOneFrame())
	grabN(t, r, 3)
	assert.Equal(t, []byte{0}, sink.recorded(), "exactly one frame regardless of further grabs")

	// Two pending requests record the next two frames.
	require.NoError(t, r.RecordOneFrame())
	require.NoError(t, r.RecordOneFrame())
	grabN(t, r, 3)
	assert.Equal(t, []byte{0, 3, 4}, sink.recorded())
}

func TestRecordingIdempotentToggles(t *testing.T) {
	sink := &memSink{}
	r := NewRecording(&countSource{}, sink)

	require.NoError(t, r.Record())
	require.NoError(t, r.Record())
	assert.True(t, r.IsRecording())

	require.NoError(t, r.StopRecording())
	require.NoError(t, r.StopRecording())
	assert.False(t, r.IsRecording())
}

func TestRecordingSinkErrorDoesNotStallViewing(t *testing.T) {
	sink := &memSink{fail: true}
	r := NewRecording(&countSource{}, sink)

	require.NoError(t, r.Record())
	buf := make([]byte, r.SizeBytes())
	images := make([]media.Image, 1)
	ok, err := r.Grab(buf, images, true, false)
	require.NoError(t, err, "sink failures are swallowed")
	assert.True(t, ok)
}

func TestRecordingCloseClosesSink(t *testing.T) {
	sink := &memSink{}
	r := NewRecording(&countSource{}, sink)
	require.NoError(t, r.Close())
	assert.True(t, sink.closed)
}

func TestRecordingUnwrap(t *testing.T) {
	inner := &countSource{}
	r := NewRecording(inner, &memSink{})

	var src media.Source = r
	w, ok := src.(media.Wrapper)
	require.True(t, ok)
	assert.Same(t, inner, w.Unwrap())
	assert.NotNil(t, media.AsRecorder(src))
	assert.Nil(t, media.AsPlayback(src), "the wrapper must not invent seekability")
}
