package mainimage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"
)

// Stats aggregates the outcome of one EnsureSize sweep.
type Stats struct {
	TotalFolders   int
	InspectedFiles int
	AdjustedFiles  int
	MissingFiles   int
	Errors         int
}

// EnsureSize walks the immediate subfolders of root and makes sure each one
// contains a compliant main image: square and at least targetSize on both
// sides. Non-compliant images are resized in place to targetSize square.
// Per-folder failures are counted and logged, never aborting the sweep.
func EnsureSize(root, filename string, targetSize int) (Stats, error) {
	var stats Stats

	if targetSize <= 0 {
		return stats, fmt.Errorf("target size must be positive, got %d", targetSize)
	}

	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		return stats, fmt.Errorf("root %q is not a directory", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return stats, fmt.Errorf("read %s: %w", root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		stats.TotalFolders++

		target := filepath.Join(root, e.Name(), filename)
		if _, err := os.Stat(target); err != nil {
			zlog.Logger.Info().Str("path", target).Msg("main image not found")
			stats.MissingFiles++
			continue
		}

		stats.InspectedFiles++
		adjusted, err := ensureOne(target, targetSize)
		if err != nil {
			zlog.Logger.Err(err).Str("path", target).Msg("failed to adjust main image")
			stats.Errors++
			continue
		}
		if adjusted {
			stats.AdjustedFiles++
		}
	}

	zlog.Logger.Info().
		Int("folders", stats.TotalFolders).
		Int("inspected", stats.InspectedFiles).
		Int("adjusted", stats.AdjustedFiles).
		Int("missing", stats.MissingFiles).
		Int("errors", stats.Errors).
		Msg("main image sweep finished")

	return stats, nil
}

func ensureOne(path string, targetSize int) (bool, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == h && w >= targetSize {
		return false, nil
	}

	resized := imaging.Resize(img, targetSize, targetSize, imaging.Lanczos)
	if err := imaging.Save(resized, path, imaging.JPEGQuality(95)); err != nil {
		return false, fmt.Errorf("save %s: %w", path, err)
	}
	return true, nil
}
