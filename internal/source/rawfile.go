package source

import (
	"encoding/binary"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/kinoview/kinoview/internal/media"
	"github.com/pkg/errors"
)

// RVF is a minimal container for uncompressed frames: a fixed header with a
// stream table, followed by frames back to back. The frame count is derived
// from the file size, so a file being appended to simply grows its range.
//
//	magic    8 bytes  "RAWVID00"
//	version  uint16
//	streams  uint16
//	per stream:
//	  width  uint32
//	  height uint32
//	  pitch  uint32
//	  format 16 bytes, zero padded
//
// All integers big endian.
const (
	rvfMagic      = "RAWVID00"
	rvfVersion    = 1
	rvfFixedSize  = 8 + 2 + 2
	rvfStreamSize = 4 + 4 + 4 + 16
)

// RawFile is a seekable file-backed source.
//
// Grab and Seek are serialized by the viewer's control lock; the internal
// mutex only protects against a Close racing a late Grab.
type RawFile struct {
	mu        sync.Mutex
	f         *os.File
	streams   []media.StreamInfo
	frameSize int
	total     int
	cursor    int
}

// OpenRawFile opens an RVF file and validates its header.
func OpenRawFile(path string) (*RawFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open raw video file")
	}

	streams, headerSize, err := readRVFHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	frameSize := 0
	for _, s := range streams {
		frameSize += s.SizeBytes()
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat raw video file")
	}

	total := int((fi.Size() - int64(headerSize)) / int64(frameSize))
	if total < 0 {
		total = 0
	}

	return &RawFile{
		f:         f,
		streams:   streams,
		frameSize: frameSize,
		total:     total,
	}, nil
}

func readRVFHeader(f *os.File) ([]media.StreamInfo, int, error) {
	head := make([]byte, rvfFixedSize)
	if _, err := io.ReadFull(f, head); err != nil {
		return nil, 0, errors.Wrap(err, "read header")
	}
	if string(head[:8]) != rvfMagic {
		return nil, 0, errors.New("not a raw video file (bad magic)")
	}
	if v := binary.BigEndian.Uint16(head[8:10]); v != rvfVersion {
		return nil, 0, errors.Errorf("unsupported raw video version %d", v)
	}

	count := int(binary.BigEndian.Uint16(head[10:12]))
	if count == 0 {
		return nil, 0, errors.New("raw video file declares zero streams")
	}

	streams := make([]media.StreamInfo, 0, count)
	offset := 0
	entry := make([]byte, rvfStreamSize)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(f, entry); err != nil {
			return nil, 0, errors.Wrapf(err, "read stream entry %d", i)
		}
		si := media.StreamInfo{
			Index:  i,
			Width:  int(binary.BigEndian.Uint32(entry[0:4])),
			Height: int(binary.BigEndian.Uint32(entry[4:8])),
			Pitch:  int(binary.BigEndian.Uint32(entry[8:12])),
			Format: media.PixelFormat(strings.TrimRight(string(entry[12:28]), "\x00")),
			Offset: offset,
		}
		if !si.Format.Valid() {
			return nil, 0, errors.Errorf("stream %d: unknown pixel format %q", i, si.Format)
		}
		if si.Width <= 0 || si.Height <= 0 || si.Pitch < si.Width*si.Format.BytesPerPixel() {
			return nil, 0, errors.Errorf("stream %d: invalid geometry", i)
		}
		offset += si.SizeBytes()
		streams = append(streams, si)
	}

	return streams, rvfFixedSize + count*rvfStreamSize, nil
}

// Streams implements media.Source
func (r *RawFile) Streams() []media.StreamInfo {
	return r.streams
}

// SizeBytes implements media.Source
func (r *RawFile) SizeBytes() int {
	return r.frameSize
}

// Start implements media.Source. Files are always ready.
func (r *RawFile) Start() error {
	return nil
}

// Grab implements media.Source. wait and newest are accepted but have no
// effect: a file frame is always immediately available.
func (r *RawFile) Grab(buf []byte, images []media.Image, wait, newest bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return false, errors.New("source closed")
	}
	if r.cursor >= r.total {
		// End of file: not an error, the viewer keeps re-rendering.
		return false, nil
	}

	headerSize := rvfFixedSize + len(r.streams)*rvfStreamSize
	off := int64(headerSize) + int64(r.cursor)*int64(r.frameSize)
	if _, err := r.f.ReadAt(buf[:r.frameSize], off); err != nil {
		return false, errors.Wrapf(err, "read frame %d", r.cursor)
	}
	r.cursor++

	sliceImages(buf, r.streams, images)
	return true, nil
}

// Seek implements media.Playback.
func (r *RawFile) Seek(frame int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frame < 0 {
		frame = 0
	}
	if r.total > 0 && frame >= r.total {
		frame = r.total - 1
	}
	r.cursor = frame
	return frame
}

// TotalFrames implements media.Playback.
func (r *RawFile) TotalFrames() int {
	return r.total
}

// Close implements media.Source.
func (r *RawFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// sliceImages points each entry of images at its stream's region of buf.
func sliceImages(buf []byte, streams []media.StreamInfo, images []media.Image) {
	for i, s := range streams {
		images[i] = media.Image{
			Data:   buf[s.Offset : s.Offset+s.SizeBytes()],
			Width:  s.Width,
			Height: s.Height,
			Pitch:  s.Pitch,
			Format: s.Format,
		}
	}
}

// RawFileWriter writes the RVF container. It is the counterpart of RawFile
// and the backing of the raw recording sink.
type RawFileWriter struct {
	f         *os.File
	streams   []media.StreamInfo
	frameSize int
	written   int
}

// CreateRawFile creates path and writes the stream table.
func CreateRawFile(path string, streams []media.StreamInfo) (*RawFileWriter, error) {
	if len(streams) == 0 {
		return nil, errors.New("no streams to write")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create raw video file")
	}

	head := make([]byte, rvfFixedSize+len(streams)*rvfStreamSize)
	copy(head[:8], rvfMagic)
	binary.BigEndian.PutUint16(head[8:10], rvfVersion)
	binary.BigEndian.PutUint16(head[10:12], uint16(len(streams)))

	frameSize := 0
	for i, s := range streams {
		entry := head[rvfFixedSize+i*rvfStreamSize:]
		binary.BigEndian.PutUint32(entry[0:4], uint32(s.Width))
		binary.BigEndian.PutUint32(entry[4:8], uint32(s.Height))
		binary.BigEndian.PutUint32(entry[8:12], uint32(s.Pitch))
		copy(entry[12:28], s.Format)
		frameSize += s.SizeBytes()
	}

	if _, err := f.Write(head); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "write header")
	}

	return &RawFileWriter{f: f, streams: streams, frameSize: frameSize}, nil
}

// WriteFrame appends one whole frame (all streams concatenated).
func (w *RawFileWriter) WriteFrame(buf []byte) error {
	if w.f == nil {
		return errors.New("writer closed")
	}
	if len(buf) < w.frameSize {
		return errors.Errorf("short frame: %d bytes, need %d", len(buf), w.frameSize)
	}
	if _, err := w.f.Write(buf[:w.frameSize]); err != nil {
		return errors.Wrap(err, "write frame")
	}
	w.written++
	return nil
}

// Written returns the number of frames written so far.
func (w *RawFileWriter) Written() int {
	return w.written
}

// Close flushes and closes the file.
func (w *RawFileWriter) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
