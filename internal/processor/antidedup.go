package processor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"github.com/artemlk/uniqimg/internal/config"
)

// mirrorProbability is the chance of flipping horizontally when mirroring
// is allowed; most assets should keep their original orientation.
const mirrorProbability = 0.1

// tierRank orders the intensity tiers; every effect carries the minimum
// tier it belongs to, which makes the tiers additive by construction.
var tierRank = map[string]int{
	config.TierNone:   0,
	config.TierLight:  1,
	config.TierMedium: 2,
	config.TierHeavy:  3,
}

// effect is one perturbation step. It returns the (possibly new) image and
// the operation note, or "" if it decided not to apply.
type effect struct {
	minTier int
	apply   func(img *image.NRGBA, cfg config.AntiDedup, rng *rand.Rand) (*image.NRGBA, string, error)
}

var effects = []effect{
	{tierRank[config.TierLight], applyColorJitter},
	{tierRank[config.TierLight], applyNoise},
	{tierRank[config.TierMedium], applyRotationCrop},
	{tierRank[config.TierMedium], applyMirror},
	{tierRank[config.TierHeavy], applyWatermarks},
}

// Perturb applies the graduated anti-duplication recipe. Every randomized
// choice is drawn from rng, so a fixed task seed reproduces the output
// byte-for-byte; independent tasks carry independent seeds.
//
// Returns the perturbed image and a human-readable log of every applied
// operation, used to populate the report message.
func Perturb(img *image.NRGBA, cfg config.AntiDedup, rng *rand.Rand) (*image.NRGBA, []string, error) {
	rank, ok := tierRank[cfg.Tier]
	if !ok {
		return nil, nil, fmt.Errorf("unknown anti-dedup tier: %q", cfg.Tier)
	}

	working := img
	ops := make([]string, 0, len(effects)+1)

	for _, e := range effects {
		if rank < e.minTier {
			continue
		}
		next, op, err := e.apply(working, cfg, rng)
		if err != nil {
			return nil, nil, err
		}
		working = next
		if op != "" {
			ops = append(ops, op)
		}
	}

	// The texture blend is independent of tier and runs after all other
	// perturbations to further diversify pixel-level signatures.
	if cfg.Texture.ImagePath != "" {
		next, op := applyTexture(working, cfg.Texture)
		working = next
		if op != "" {
			ops = append(ops, op)
		}
	}

	return working, ops, nil
}

// applyColorJitter nudges brightness, contrast and saturation within the
// configured strength, each by an independent random delta.
func applyColorJitter(img *image.NRGBA, cfg config.AntiDedup, rng *rand.Rand) (*image.NRGBA, string, error) {
	s := cfg.JitterStrength
	if s <= 0 {
		return img, "", nil
	}

	type adjust struct {
		name string
		fn   func(image.Image, float64) *image.NRGBA
	}
	adjusts := []adjust{
		{"brightness", imaging.AdjustBrightness},
		{"contrast", imaging.AdjustContrast},
		{"saturation", imaging.AdjustSaturation},
	}

	working := img
	op := "color_jitter("
	for i, a := range adjusts {
		delta := uniform(rng, -s, s)
		working = a.fn(working, delta*100)
		if i > 0 {
			op += ", "
		}
		op += fmt.Sprintf("%s=%.3f", a.name, 1+delta)
	}
	return working, op + ")", nil
}

// applyNoise injects low-amplitude uniform pixel noise into the RGB channels.
func applyNoise(img *image.NRGBA, cfg config.AntiDedup, rng *rand.Rand) (*image.NRGBA, string, error) {
	s := cfg.NoiseStrength
	if s <= 0 {
		return img, "", nil
	}

	amplitude := s * 255.0
	noisy := imaging.Clone(img)
	pix := noisy.Pix
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := float64(pix[i+c]) + uniform(rng, -1, 1)*amplitude
			pix[i+c] = clampByte(v)
		}
	}
	return noisy, fmt.Sprintf("noise(strength=%.3f)", s), nil
}

// applyRotationCrop rotates by a small random angle, then crops back to the
// original size so no rotation border stays exposed. The image is slightly
// enlarged first by the configured crop margin.
func applyRotationCrop(img *image.NRGBA, cfg config.AntiDedup, rng *rand.Rand) (*image.NRGBA, string, error) {
	angle := uniform(rng, cfg.RotationRange[0], cfg.RotationRange[1])
	if math.Abs(angle) < 1e-3 {
		return img, "", nil
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	scale := 1.0 + math.Max(cfg.CropMargin, 0)
	ew := maxInt(1, int(math.Round(float64(w)*scale)))
	eh := maxInt(1, int(math.Round(float64(h)*scale)))

	enlarged := imaging.Fill(img, ew, eh, imaging.Center, imaging.Lanczos)
	rotated := imaging.Rotate(enlarged, angle, color.NRGBA{})
	fitted := imaging.Fill(rotated, w, h, imaging.Center, imaging.Lanczos)

	return fitted, fmt.Sprintf("rotate(angle=%.3f)", angle), nil
}

// applyMirror flips the image horizontally with low probability, and only
// when the job allows mirroring.
func applyMirror(img *image.NRGBA, cfg config.AntiDedup, rng *rand.Rand) (*image.NRGBA, string, error) {
	if !cfg.AllowMirror {
		return img, "", nil
	}
	if rng.Float64() >= mirrorProbability {
		return img, "", nil
	}
	return imaging.FlipH(img), "mirror", nil
}

// applyTexture cross-blends the configured texture over the image at the
// configured opacity. A texture that fails to load is logged and skipped.
func applyTexture(img *image.NRGBA, cfg config.Texture) (*image.NRGBA, string) {
	opacity := math.Max(0, math.Min(cfg.Opacity, 1))
	if opacity <= 0 {
		return img, ""
	}

	tex, err := decodeFile(cfg.ImagePath)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("path", cfg.ImagePath).Msg("cannot load texture image")
		return img, ""
	}

	fitted := imaging.Fill(tex, img.Bounds().Dx(), img.Bounds().Dy(), imaging.Center, imaging.Lanczos)
	blended := imaging.Overlay(img, fitted, image.Pt(0, 0), opacity)
	return blended, fmt.Sprintf("texture(opacity=%.3f)", opacity)
}

func uniform(rng *rand.Rand, min, max float64) float64 {
	if min >= max {
		return min
	}
	return min + rng.Float64()*(max-min)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
