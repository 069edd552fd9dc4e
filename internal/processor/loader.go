package processor

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Load reads and decodes a source image, corrects EXIF orientation so the
// pixel data matches the intended display orientation, and flattens any
// alpha channel over a white background into canonical NRGBA.
//
// Unreadable and undecodable files return an error; the caller turns that
// into a single failed task instead of aborting the batch.
func Load(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var img image.Image
	if strings.ToLower(filepath.Ext(path)) == ".webp" {
		img, err = webp.Decode(f)
	} else {
		img, err = imaging.Decode(f, imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	// Flattening over white also normalizes palette, CMYK and grayscale
	// inputs into one canonical pixel format.
	bounds := img.Bounds()
	white := imaging.New(bounds.Dx(), bounds.Dy(), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return imaging.Overlay(white, img, image.Pt(0, 0), 1.0), nil
}

// decodeFile decodes an overlay asset (border template, texture) keeping
// its alpha channel intact.
func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if strings.ToLower(filepath.Ext(path)) == ".webp" {
		return webp.Decode(f)
	}
	return imaging.Decode(f)
}
