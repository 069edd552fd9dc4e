package output

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func testImage() *image.NRGBA {
	return imaging.New(16, 16, color.NRGBA{R: 200, G: 50, B: 50, A: 255})
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"out.jpg", "out.png", "out.webp"} {
		t.Run(name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "nested", name)
			if err := Save(testImage(), dest); err != nil {
				t.Fatalf("Save: %v", err)
			}

			back, err := imaging.Open(dest)
			if err != nil && strings.HasSuffix(name, ".webp") {
				// stdlib decoders do not register webp; existence is enough.
				return
			}
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			if back.Bounds().Dx() != 16 || back.Bounds().Dy() != 16 {
				t.Fatalf("unexpected size %v", back.Bounds())
			}
		})
	}
}

func TestSave_UnsupportedExtension(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.tiff")
	if err := Save(testImage(), dest); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
