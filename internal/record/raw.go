package record

import (
	"github.com/kinoview/kinoview/internal/media"
	"github.com/kinoview/kinoview/internal/source"
)

// RawSink records into the RVF container, so a recording can be replayed by
// the raw file source.
type RawSink struct {
	w *source.RawFileWriter
}

// NewRawSink creates the output file and writes the stream table.
func NewRawSink(path string, streams []media.StreamInfo) (*RawSink, error) {
	w, err := source.CreateRawFile(path, streams)
	if err != nil {
		return nil, err
	}
	return &RawSink{w: w}, nil
}

// WriteFrame implements Sink.
func (s *RawSink) WriteFrame(buf []byte, frame int) error {
	return s.w.WriteFrame(buf)
}

// Close implements Sink.
func (s *RawSink) Close() error {
	return s.w.Close()
}
