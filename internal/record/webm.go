package record

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"
	"github.com/kinoview/kinoview/internal/media"
	"github.com/pkg/errors"
)

// WebMSink writes uncompressed frames into a WebM container, one video
// track per stream. Timestamps are synthesized from the frame index and the
// configured rate.
type WebMSink struct {
	f           *os.File
	streams     []media.StreamInfo
	fps         int
	logger      *slog.Logger
	writers     []webm.BlockWriteCloser
	initialized bool
}

// NewWebMSink creates the output file. The container header is written
// lazily on the first frame.
func NewWebMSink(path string, streams []media.StreamInfo, fps int) (*WebMSink, error) {
	if len(streams) == 0 {
		return nil, errors.New("no streams to record")
	}
	if fps <= 0 {
		fps = 30
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create webm output")
	}

	return &WebMSink{
		f:       f,
		streams: streams,
		fps:     fps,
		logger:  slog.With("component", "webm_sink"),
	}, nil
}

// writerCloser wraps an io.Writer with basic error handling
type writerCloser struct {
	writer io.Writer
	logger *slog.Logger
	closed bool
}

func (wc *writerCloser) Write(p []byte) (n int, err error) {
	if wc.closed {
		return 0, io.ErrClosedPipe
	}

	n, err = wc.writer.Write(p)
	if err != nil {
		wc.logger.Warn("Write error detected, marking writer as closed",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
			"data_size", len(p),
			"bytes_written", n)
		wc.closed = true
	}
	return n, err
}

func (wc *writerCloser) Close() error {
	wc.closed = true
	return nil
}

// writeHeader initializes the WebM container with one track per stream.
func (s *WebMSink) writeHeader() error {
	if s.initialized {
		return nil
	}

	tracks := make([]webm.TrackEntry, 0, len(s.streams))
	for i, st := range s.streams {
		tracks = append(tracks, webm.TrackEntry{
			Name:            fmt.Sprintf("Stream %d", i),
			TrackNumber:     uint64(i + 1),
			TrackUID:        uint64(i + 1),
			CodecID:         "V_UNCOMPRESSED",
			TrackType:       1, // Video track type
			DefaultDuration: uint64(1e9 / s.fps),
			Video: &webm.Video{
				PixelWidth:  uint64(st.Width),
				PixelHeight: uint64(st.Height),
			},
		})
	}

	writers, err := webm.NewSimpleBlockWriter(&writerCloser{
		writer: s.f,
		logger: s.logger,
	}, tracks, mkvcore.WithOnFatalHandler(func(err error) {
		s.logger.Warn("WebM write error, container abandoned", "error", err)
		s.initialized = false
		s.writers = nil
	}))
	if err != nil {
		return errors.Wrap(err, "create webm writer")
	}

	s.writers = writers
	s.initialized = true
	s.logger.Debug("WebM container initialized", "tracks", len(tracks), "fps", s.fps)
	return nil
}

// WriteFrame implements Sink.
func (s *WebMSink) WriteFrame(buf []byte, frame int) error {
	if err := s.writeHeader(); err != nil {
		return err
	}

	// Simple block timestamps are in the container's millisecond timescale.
	ts := int64(frame) * 1000 / int64(s.fps)
	for i, st := range s.streams {
		data := buf[st.Offset : st.Offset+st.SizeBytes()]
		if _, err := s.writers[i].Write(true, ts, data); err != nil {
			return errors.Wrapf(err, "write stream %d frame %d", i, frame)
		}
	}
	return nil
}

// Close finalizes the container.
func (s *WebMSink) Close() error {
	for _, w := range s.writers {
		if err := w.Close(); err != nil {
			s.logger.Warn("Track writer close error", "error", err)
		}
	}
	s.writers = nil
	s.initialized = false

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
