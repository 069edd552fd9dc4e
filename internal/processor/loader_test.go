package processor

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func saveNRGBA(t *testing.T, img image.Image, path string) {
	t.Helper()
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
}

func TestLoad_DecodesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	saveNRGBA(t, imaging.New(12, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 255}), path)

	img, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 8 {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
}

func TestLoad_RejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("this is not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoad_RejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.jpg")); err == nil {
		t.Fatal("expected open error")
	}
}

func TestLoad_FlattensAlphaOverWhite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alpha.png")
	saveNRGBA(t, imaging.New(4, 4, color.NRGBA{}), path) // fully transparent

	img, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, g, b, a := img.At(1, 1).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 || a>>8 != 255 {
		t.Fatalf("transparent pixel should flatten to opaque white, got %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}
