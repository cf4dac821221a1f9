package display

import (
	"image/png"
	"os"
	"path/filepath"

	"github.com/dchest/uniuri"
	"github.com/kinoview/kinoview/internal/media"
	"github.com/pkg/errors"
)

// SaveScreenshot encodes img as PNG under dir with a unique name and
// returns the path. Existing files are never overwritten.
func SaveScreenshot(img media.Image, dir string) (string, error) {
	if img.Empty() {
		return "", errors.New("no image to save")
	}

	for attempt := 0; attempt < 5; attempt++ {
		name := "capture-" + uniuri.NewLen(6) + ".png"
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", errors.Wrap(err, "create screenshot file")
		}

		if err := png.Encode(f, img.ToNRGBA()); err != nil {
			f.Close()
			os.Remove(path)
			return "", errors.Wrap(err, "encode screenshot")
		}
		if err := f.Close(); err != nil {
			return "", errors.Wrap(err, "close screenshot file")
		}
		return path, nil
	}

	return "", errors.New("could not find a free screenshot name")
}
