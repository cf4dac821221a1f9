package viewer

import (
	"github.com/kinoview/kinoview/internal/media"
	"github.com/kinoview/kinoview/internal/record"
	"github.com/kinoview/kinoview/internal/source"
	"github.com/pkg/errors"
)

// OpenSource binds an input locator to a source, optionally wrapping it
// with the recording capability when outputURI is non-empty.
//
// Supported schemes:
//
//	raw:///path/clip.rvf          seekable raw frame file (default scheme)
//	test://?w=640&h=480&fps=30    live synthetic pattern, not seekable
func OpenSource(inputURI, outputURI string, fps int) (media.Source, error) {
	u, err := media.ParseURI(inputURI)
	if err != nil {
		return nil, err
	}

	var src media.Source
	switch u.Scheme {
	case "raw", "file":
		src, err = source.OpenRawFile(u.Path)
	case "test":
		format := media.PixelFormat(u.StringParam("fmt", string(media.PixelFormatRGB24)))
		src, err = source.NewTestPattern(
			u.IntParam("w", 640),
			u.IntParam("h", 480),
			u.IntParam("fps", 30),
			format,
		)
	default:
		err = errors.Errorf("unsupported source scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	if outputURI == "" {
		return src, nil
	}

	out, err := media.ParseURI(outputURI)
	if err != nil {
		src.Close()
		return nil, err
	}
	sink, err := record.NewSink(out.Path, src.Streams(), fps)
	if err != nil {
		src.Close()
		return nil, err
	}
	return record.NewRecording(src, sink), nil
}
