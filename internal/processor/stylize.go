package processor

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"github.com/artemlk/uniqimg/internal/config"
)

// aspectTolerance is the relative deviation under which an image is
// considered to already match the target aspect ratio.
const aspectTolerance = 0.01

// Stylize normalizes the image geometry to the configured aspect box and
// composites the configured framing on top.
//
// contain scales the image to fit entirely within the box and pads the
// remainder with the background color; cover scales and center-crops so the
// image exactly fills the box.
func Stylize(img *image.NRGBA, cfg config.Styling) (*image.NRGBA, error) {
	styled := img

	if needsResize(img.Bounds().Dx(), img.Bounds().Dy(), cfg) {
		tw, th, err := targetSize(cfg)
		if err != nil {
			return nil, err
		}

		switch cfg.Mode {
		case config.ModeContain:
			bg, err := config.ParseHexColor(cfg.BackgroundColor)
			if err != nil {
				return nil, err
			}
			canvas := imaging.New(tw, th, bg)
			fitted := imaging.Fit(img, tw, th, imaging.Lanczos)
			styled = imaging.PasteCenter(canvas, fitted)
		case config.ModeCover:
			styled = imaging.Fill(img, tw, th, imaging.Center, imaging.Lanczos)
		default:
			return nil, fmt.Errorf("unknown fit mode: %q", cfg.Mode)
		}
	}

	if cfg.BorderThickness > 0 && cfg.BorderColor != "" {
		bc, err := config.ParseHexColor(cfg.BorderColor)
		if err != nil {
			return nil, err
		}
		t := cfg.BorderThickness
		frame := imaging.New(styled.Bounds().Dx()+2*t, styled.Bounds().Dy()+2*t, bc)
		styled = imaging.PasteCenter(frame, styled)
	}

	if cfg.BorderImage != "" {
		styled = overlayBorder(styled, cfg.BorderImage)
	}

	return styled, nil
}

// overlayBorder alpha-blends the border template over the styled image at
// full target resolution. A template that fails to load is logged and
// skipped; framing is decoration, not a reason to fail the task.
func overlayBorder(styled *image.NRGBA, path string) *image.NRGBA {
	border, err := decodeFile(path)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("path", path).Msg("cannot load border image")
		return styled
	}

	resized := imaging.Resize(border, styled.Bounds().Dx(), styled.Bounds().Dy(), imaging.Lanczos)
	return imaging.Overlay(styled, resized, image.Pt(0, 0), 1.0)
}

// targetSize derives the output box from the aspect ratio and minimum size:
// the smallest box with the requested ratio that covers the minimum.
func targetSize(cfg config.Styling) (int, int, error) {
	rw, rh := cfg.AspectRatio[0], cfg.AspectRatio[1]
	if rw <= 0 || rh <= 0 {
		return 0, 0, fmt.Errorf("aspect_ratio must be positive, got %d:%d", rw, rh)
	}
	minW, minH := cfg.MinSize[0], cfg.MinSize[1]
	if minW <= 0 || minH <= 0 {
		return 0, 0, fmt.Errorf("min_size must be positive, got %dx%d", minW, minH)
	}

	scale := math.Max(float64(minW)/float64(rw), float64(minH)/float64(rh))
	return int(math.Ceil(float64(rw) * scale)), int(math.Ceil(float64(rh) * scale)), nil
}

// needsResize reports whether the image violates the minimum size or the
// target aspect ratio (within tolerance).
func needsResize(w, h int, cfg config.Styling) bool {
	if w == 0 || h == 0 {
		return true
	}
	if w < cfg.MinSize[0] || h < cfg.MinSize[1] {
		return true
	}

	expected := float64(cfg.AspectRatio[0]) / float64(cfg.AspectRatio[1])
	actual := float64(w) / float64(h)
	return math.Abs(actual-expected) > aspectTolerance
}
