package rimage

import (
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var encoders = map[string]func(io.Writer, image.Image) error{
	".png": png.Encode,
	".ppm": ppm.Encode,
}

// WriteImageToFile writes img to disk, choosing the encoding from the file extension. Supported
// extensions are .png and .ppm.
func WriteImageToFile(path string, img image.Image) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	encode, ok := encoders[ext]
	if !ok {
		return errors.Errorf("unsupported image extension %q", ext)
	}

	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return encode(f, img)
}
