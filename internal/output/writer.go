package output

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const jpegQuality = 95

// Save encodes the image according to the destination extension and writes
// it to disk, creating parent directories as needed.
func Save(img image.Image, dest string) error {
	ext := strings.ToLower(filepath.Ext(dest))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return fmt.Errorf("unsupported output format: %s", filepath.Ext(dest))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	switch ext {
	case ".jpg", ".jpeg":
		err = imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	case ".png":
		err = imaging.Encode(f, img, imaging.PNG)
	case ".webp":
		err = webp.Encode(f, img, &webp.Options{Quality: 90})
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", dest, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", dest, err)
	}
	return nil
}
