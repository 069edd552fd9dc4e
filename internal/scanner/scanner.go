package scanner

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wb-go/wbf/zlog"

	"github.com/artemlk/uniqimg/internal/config"
	"github.com/artemlk/uniqimg/internal/model"
)

// imageExtensions lists the file extensions treated as image assets.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// Collect walks every source root and returns the matching image files,
// deduplicated by absolute path and sorted case-insensitively by source
// path so the task order is stable across runs and platforms.
//
// Unreadable directories are logged and skipped; they never abort the scan.
func Collect(cfg *config.Config) ([]model.SourceImage, error) {
	collected := make([]model.SourceImage, 0, 64)
	seen := make(map[string]struct{})

	include := cfg.IncludePatterns
	if len(include) == 0 {
		include = []string{"*.jpg", "*.jpeg", "*.png", "*.webp"}
	}

	for _, root := range cfg.Sources {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}

		err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				zlog.Logger.Warn().Err(walkErr).Str("path", p).Msg("skipping unreadable path")
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if !cfg.Recursive && p != absRoot {
					return filepath.SkipDir
				}
				return nil
			}

			if _, ok := seen[p]; ok {
				return nil
			}
			seen[p] = struct{}{}

			name := d.Name()
			if _, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
				return nil
			}
			if !matchesAny(name, include) {
				return nil
			}
			if len(cfg.ExcludePatterns) > 0 && matchesAny(name, cfg.ExcludePatterns) {
				return nil
			}

			// A source root may itself be a file; anchor it to its parent
			// so the relative path stays a plain file name.
			entryRoot := absRoot
			if p == absRoot {
				entryRoot = filepath.Dir(absRoot)
			}
			rel, err := filepath.Rel(entryRoot, p)
			if err != nil {
				rel = name
			}

			collected = append(collected, model.SourceImage{
				SourcePath: p,
				Root:       entryRoot,
				RelPath:    rel,
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return strings.ToLower(collected[i].SourcePath) < strings.ToLower(collected[j].SourcePath)
	})
	return collected, nil
}

func matchesAny(name string, patterns []string) bool {
	lowered := strings.ToLower(name)
	for _, p := range patterns {
		if ok, err := path.Match(strings.ToLower(p), lowered); err == nil && ok {
			return true
		}
	}
	return false
}
