package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/artemlk/uniqimg/internal/config"
	"github.com/artemlk/uniqimg/internal/model"
)

// Resolver reserves collision-free output paths for scanned entries.
//
// Resolution is sequential and deterministic over the scan order: it runs
// strictly before the parallel processing stage, so no locking is needed
// while workers write. Two tasks in one run never resolve to the same path,
// regardless of conflict policy.
type Resolver struct {
	outputDir string
	policy    string
	flatten   bool

	claimed map[string]struct{}
}

// NewResolver creates a Resolver for the given output settings.
func NewResolver(cfg config.Output) *Resolver {
	return &Resolver{
		outputDir: cfg.Dir,
		policy:    cfg.ConflictPolicy,
		flatten:   cfg.Flatten,
		claimed:   make(map[string]struct{}),
	}
}

// Resolve builds the immutable task list for the given entries. Task order
// equals entry order; per-task seeds are assigned later by the pipeline.
func (r *Resolver) Resolve(entries []model.SourceImage) []model.ProcessingTask {
	tasks := make([]model.ProcessingTask, 0, len(entries))

	for i, e := range entries {
		rel := e.RelPath
		if r.flatten {
			rel = filepath.Base(rel)
		}
		candidate := filepath.Join(r.outputDir, rel)

		t := model.ProcessingTask{
			Index:      i,
			SourcePath: e.SourcePath,
			RelPath:    rel,
			Status:     model.StatusProcessed,
		}

		_, claimedInRun := r.claimed[candidate]
		existsOnDisk := fileExists(candidate)

		switch {
		case !claimedInRun && !existsOnDisk:
			t.OutputPath = candidate

		case existsOnDisk && !claimedInRun && r.policy == config.ConflictSkip:
			t.OutputPath = candidate
			t.Status = model.StatusSkipExisting
			t.Note = fmt.Sprintf("destination already exists: %s", filepath.Base(candidate))

		case existsOnDisk && !claimedInRun && r.policy == config.ConflictOverwrite:
			t.OutputPath = candidate
			t.Note = fmt.Sprintf("destination already exists: %s (overwriting)", filepath.Base(candidate))

		default:
			// rename policy, or an in-run claim collision under any policy:
			// two workers must never write the same path.
			renamed := r.nextFreeName(candidate)
			t.OutputPath = renamed
			t.Status = model.StatusProcessedRename
			t.Note = fmt.Sprintf("destination already exists: %s (renamed to %s)",
				filepath.Base(candidate), filepath.Base(renamed))
		}

		r.claimed[t.OutputPath] = struct{}{}
		tasks = append(tasks, t)
	}

	return tasks
}

// nextFreeName appends the smallest positive integer suffix not yet claimed
// this run and not present on disk: name.ext -> name_1.ext, name_2.ext, ...
func (r *Resolver) nextFreeName(candidate string) string {
	ext := filepath.Ext(candidate)
	stem := strings.TrimSuffix(candidate, ext)

	for n := 1; ; n++ {
		next := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if _, ok := r.claimed[next]; ok {
			continue
		}
		if fileExists(next) {
			continue
		}
		return next
	}
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
