package validate

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"github.com/artemlk/uniqimg/internal/processor"
)

// Metrics holds the similarity measurements between a source image and its
// processed output. They are informational only: validation never changes a
// task's status.
type Metrics struct {
	PHashDistance int
	SSIM          float64
}

// Compare recomputes the perceptual-hash bit distance and the structural
// similarity between the source file and the written output. Both images
// are decoded fresh from disk; any failure surfaces as a single error and
// degrades to missing metrics upstream.
func Compare(sourcePath, outputPath string) (Metrics, error) {
	src, err := processor.Load(sourcePath)
	if err != nil {
		return Metrics{}, fmt.Errorf("load source: %w", err)
	}
	out, err := processor.Load(outputPath)
	if err != nil {
		return Metrics{}, fmt.Errorf("load output: %w", err)
	}

	hashSrc, err := goimagehash.PerceptionHash(src)
	if err != nil {
		return Metrics{}, fmt.Errorf("phash source: %w", err)
	}
	hashOut, err := goimagehash.PerceptionHash(out)
	if err != nil {
		return Metrics{}, fmt.Errorf("phash output: %w", err)
	}
	dist, err := hashSrc.Distance(hashOut)
	if err != nil {
		return Metrics{}, fmt.Errorf("phash distance: %w", err)
	}

	return Metrics{
		PHashDistance: dist,
		SSIM:          SSIM(src, out),
	}, nil
}

// SSIM computes a global structural similarity score in [-1, 1] between two
// images, resized to a common size and converted to grayscale first.
func SSIM(a, b image.Image) float64 {
	w, h := b.Bounds().Dx(), b.Bounds().Dy()
	if w <= 0 || h <= 0 {
		return 0
	}

	ga := grayValues(a, w, h)
	gb := grayValues(b, w, h)

	muA := mean(ga)
	muB := mean(gb)

	var varA, varB, cov float64
	for i := range ga {
		da := ga[i] - muA
		db := gb[i] - muB
		varA += da * da
		varB += db * db
		cov += da * db
	}
	n := float64(len(ga))
	varA /= n
	varB /= n
	cov /= n

	const (
		c1 = (0.01 * 255) * (0.01 * 255)
		c2 = (0.03 * 255) * (0.03 * 255)
	)

	den := (muA*muA + muB*muB + c1) * (varA + varB + c2)
	if den == 0 {
		return 0
	}
	v := (2*muA*muB + c1) * (2*cov + c2) / den

	// Clamp against numeric drift.
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func grayValues(img image.Image, w, h int) []float64 {
	g := imaging.Grayscale(imaging.Resize(img, w, h, imaging.Lanczos))
	out := make([]float64, 0, w*h)
	for i := 0; i < len(g.Pix); i += 4 {
		out = append(out, float64(g.Pix[i]))
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
