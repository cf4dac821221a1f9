// Package record implements the recording output side of kinoview: sinks
// that persist grabbed frames, selected by the output locator.
package record

import (
	"path/filepath"
	"strings"

	"github.com/kinoview/kinoview/internal/media"
)

// Sink receives whole frames (all streams concatenated, as laid out in the
// grab buffer). WriteFrame is called from the acquisition goroutine; a sink
// must not block on anything slower than local disk.
type Sink interface {
	// WriteFrame persists one frame. frame is the source frame index, used
	// for container timestamps.
	WriteFrame(buf []byte, frame int) error

	// Close finalizes the output.
	Close() error
}

// NewSink builds a sink for the given output path: ".webm" selects the WebM
// container, anything else the raw frame file.
func NewSink(path string, streams []media.StreamInfo, fps int) (Sink, error) {
	if strings.EqualFold(filepath.Ext(path), ".webm") {
		return NewWebMSink(path, streams, fps)
	}
	return NewRawSink(path, streams)
}
