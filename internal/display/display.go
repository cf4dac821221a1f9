// Package display defines the rendering collaborator of the viewer: the
// surface frames are published to, and the channel through which the
// surface reports user navigation (slider drags).
package display

import (
	"sync"

	"github.com/kinoview/kinoview/internal/media"
)

// Renderer is driven by the acquisition loop. BeginFrame, Publish,
// SetPosition and PositionChanged are called with the viewer's control lock
// held; FinishFrame is called outside it and may take arbitrary time.
type Renderer interface {
	// Start sets up the surface for the given streams. total is the finite
	// frame count, or media.UnknownFrameCount for live sources.
	Start(streams []media.StreamInfo, total int) error

	// BeginFrame opens a render pass.
	BeginFrame()

	// PositionChanged reports a navigation position changed by the user
	// since the last call, consuming the event.
	PositionChanged() (int, bool)

	// SetPosition reflects the current frame index back to the surface.
	SetPosition(frame int)

	// Publish hands one stream's image to the surface. The image data is
	// only valid until the next BeginFrame; implementations that keep it
	// longer must copy.
	Publish(stream int, img media.Image)

	// ToggleStream flips the visibility of one stream.
	ToggleStream(stream int)

	// Snapshot returns a copy of the last published image of one stream.
	Snapshot(stream int) (media.Image, bool)

	// FinishFrame completes the render pass.
	FinishFrame()

	// Close tears the surface down.
	Close() error
}

// Null is the headless renderer: it keeps the last published images and a
// scriptable pending position, which is also what the viewer tests need.
type Null struct {
	mu       sync.Mutex
	streams  []media.StreamInfo
	total    int
	visible  []bool
	last     []media.Image
	position int
	pending  *int

	// Published counts successful Publish calls across all streams.
	published int
}

// NewNull returns a headless renderer.
func NewNull() *Null {
	return &Null{}
}

// Start implements Renderer
func (n *Null) Start(streams []media.StreamInfo, total int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.streams = streams
	n.total = total
	n.visible = make([]bool, len(streams))
	n.last = make([]media.Image, len(streams))
	for i := range n.visible {
		n.visible[i] = true
	}
	return nil
}

// BeginFrame implements Renderer
func (n *Null) BeginFrame() {}

// PositionChanged implements Renderer
func (n *Null) PositionChanged() (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending == nil {
		return 0, false
	}
	pos := *n.pending
	n.pending = nil
	return pos, true
}

// RequestPosition scripts a user navigation event, as a slider drag would.
func (n *Null) RequestPosition(frame int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = &frame
}

// SetPosition implements Renderer
func (n *Null) SetPosition(frame int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.position = frame
}

// Position returns the last frame index reflected by the loop.
func (n *Null) Position() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position
}

// Publish implements Renderer
func (n *Null) Publish(stream int, img media.Image) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if stream < 0 || stream >= len(n.last) {
		return
	}
	n.last[stream] = img.Clone()
	n.published++
}

// Published returns the total number of published images.
func (n *Null) Published() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.published
}

// ToggleStream implements Renderer
func (n *Null) ToggleStream(stream int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if stream < 0 || stream >= len(n.visible) {
		return
	}
	n.visible[stream] = !n.visible[stream]
}

// Visible reports the visibility of one stream.
func (n *Null) Visible(stream int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if stream < 0 || stream >= len(n.visible) {
		return false
	}
	return n.visible[stream]
}

// Snapshot implements Renderer
func (n *Null) Snapshot(stream int) (media.Image, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if stream < 0 || stream >= len(n.last) || n.last[stream].Empty() {
		return media.Image{}, false
	}
	return n.last[stream].Clone(), true
}

// FinishFrame implements Renderer
func (n *Null) FinishFrame() {}

// Close implements Renderer
func (n *Null) Close() error {
	return nil
}
