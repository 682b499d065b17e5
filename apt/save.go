package apt

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// SavePNG returns a saver that writes the image to path through a temporary file in the same
// directory, so readers never see a half written PNG.
func SavePNG(path string) func(img *image.Gray) error {
	return func(img *image.Gray) error {
		tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
		if err != nil {
			return fmt.Errorf("could not create temporary image: %w", err)
		}
		defer os.Remove(tmp.Name())

		if err := png.Encode(tmp, img); err != nil {
			tmp.Close()
			return fmt.Errorf("could not encode image: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return err
		}
		return os.Rename(tmp.Name(), path)
	}
}
