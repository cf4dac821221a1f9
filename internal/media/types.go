package media

import (
	"image"
	"math"
)

// UnknownFrameCount is the sentinel for sources with no finite length.
const UnknownFrameCount = math.MaxInt

// PixelFormat identifies the pixel layout of a stream.
type PixelFormat string

const (
	PixelFormatGray8  PixelFormat = "GRAY8"
	PixelFormatRGB24  PixelFormat = "RGB24"
	PixelFormatRGBA32 PixelFormat = "RGBA32"
)

// BytesPerPixel returns the storage size of one pixel, or 0 for an
// unrecognized format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatGray8:
		return 1
	case PixelFormatRGB24:
		return 3
	case PixelFormatRGBA32:
		return 4
	default:
		return 0
	}
}

// Valid reports whether the format is one kinoview understands.
func (f PixelFormat) Valid() bool {
	return f.BytesPerPixel() > 0
}

// StreamInfo describes one stream of a source.
type StreamInfo struct {
	Index  int
	Width  int
	Height int
	Pitch  int // Row stride in bytes
	Format PixelFormat
	Offset int // Byte offset of this stream within the grab buffer
}

// SizeBytes returns the buffer size one frame of this stream occupies.
func (s StreamInfo) SizeBytes() int {
	return s.Pitch * s.Height
}

// Image is a view into the grab buffer for a single stream. The backing
// slice is owned by the acquisition loop and overwritten on every grab;
// consumers that need the pixels past the current iteration must Clone.
type Image struct {
	Data   []byte
	Width  int
	Height int
	Pitch  int
	Format PixelFormat
}

// Clone returns a deep copy with its own backing storage.
func (img Image) Clone() Image {
	out := img
	out.Data = append([]byte(nil), img.Data...)
	return out
}

// Empty reports whether the image has no pixel data yet.
func (img Image) Empty() bool {
	return len(img.Data) == 0 || img.Width == 0 || img.Height == 0
}

// ToNRGBA converts the raw pixels to a standard library image for encoding.
func (img Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	bpp := img.Format.BytesPerPixel()
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*img.Pitch:]
		for x := 0; x < img.Width; x++ {
			p := row[x*bpp:]
			o := out.PixOffset(x, y)
			switch img.Format {
			case PixelFormatGray8:
				out.Pix[o+0] = p[0]
				out.Pix[o+1] = p[0]
				out.Pix[o+2] = p[0]
				out.Pix[o+3] = 0xff
			case PixelFormatRGB24:
				out.Pix[o+0] = p[0]
				out.Pix[o+1] = p[1]
				out.Pix[o+2] = p[2]
				out.Pix[o+3] = 0xff
			case PixelFormatRGBA32:
				copy(out.Pix[o:o+4], p[:4])
			}
		}
	}
	return out
}
