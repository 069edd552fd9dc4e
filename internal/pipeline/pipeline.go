package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artemlk/uniqimg/internal/config"
	"github.com/artemlk/uniqimg/internal/model"
	"github.com/artemlk/uniqimg/internal/output"
	"github.com/artemlk/uniqimg/internal/processor"
	"github.com/artemlk/uniqimg/internal/report"
	"github.com/artemlk/uniqimg/internal/scanner"
	"github.com/artemlk/uniqimg/internal/validate"
)

// ProgressFunc receives one update per finished task. Implementations must
// be cheap; the pipeline calls it from the aggregation loop.
type ProgressFunc func(model.ProgressUpdate)

// Pipeline runs one batch job end to end: scan, reserve paths, process in
// parallel, validate, report.
type Pipeline struct {
	cfg      *config.Config
	progress ProgressFunc
}

// New creates a Pipeline. progress may be nil.
func New(cfg *config.Config, progress ProgressFunc) *Pipeline {
	return &Pipeline{cfg: cfg, progress: progress}
}

// Run executes the batch. Configuration errors fail the whole job before
// any task is dispatched; per-task failures become error results and never
// abort the batch. The returned BatchResult lists results in submission
// order and points at the written report.
func (p *Pipeline) Run(ctx context.Context) (model.BatchResult, error) {
	started := time.Now().UTC()

	if err := p.cfg.Validate(); err != nil {
		return model.BatchResult{}, fmt.Errorf("invalid job config: %w", err)
	}

	entries, err := scanner.Collect(p.cfg)
	if err != nil {
		return model.BatchResult{}, fmt.Errorf("scan sources: %w", err)
	}

	// Path reservation is sequential and happens strictly before dispatch,
	// so workers never contend for an output path.
	tasks := output.NewResolver(p.cfg.Output).Resolve(entries)
	p.assignSeeds(tasks)

	results := p.execute(ctx, tasks)

	batch := model.BatchResult{
		ID:        uuid.New(),
		Results:   results,
		StartedAt: started,
	}
	batch.Summarize()

	reportPath, err := report.Write(results, p.cfg.Output.Dir, p.cfg.Output.ReportFilename)
	if err != nil {
		return batch, fmt.Errorf("write report: %w", err)
	}
	batch.ReportPath = reportPath
	batch.FinishedAt = time.Now().UTC()

	return batch, nil
}

// assignSeeds derives a per-task seed from the job seed and the task's
// relative path and index. With no job seed configured, each run draws a
// fresh base seed, keeping tasks independent but not reproducible.
func (p *Pipeline) assignSeeds(tasks []model.ProcessingTask) {
	var base int64
	if p.cfg.Seed != nil {
		base = *p.cfg.Seed
	} else {
		base = rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
	}

	for i := range tasks {
		tasks[i].Seed = deriveSeed(base, tasks[i].RelPath, tasks[i].Index)
	}
}

func deriveSeed(base int64, relPath string, index int) int64 {
	h := fnv.New64a()
	h.Write([]byte(relPath))
	// Golden-ratio increment keeps seeds distinct even for equal paths.
	return base ^ int64(h.Sum64()) ^ int64(uint64(index+1)*0x9E3779B97F4A7C15)
}

// execute fans the task list out to a fixed-size worker pool and collects
// results back into submission order. Completion order is unspecified;
// results are stored by task index.
func (p *Pipeline) execute(ctx context.Context, tasks []model.ProcessingTask) []model.ProcessingResult {
	results := make([]model.ProcessingResult, len(tasks))
	for i, t := range tasks {
		// Placeholder for tasks abandoned before dispatch on cancellation.
		results[i] = model.ProcessingResult{
			Task:    t,
			Status:  model.StatusErrorOther,
			Message: "not dispatched: job canceled",
		}
	}

	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	type indexed struct {
		idx int
		res model.ProcessingResult
	}

	jobs := make(chan model.ProcessingTask)
	done := make(chan indexed, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				done <- indexed{idx: t.Index, res: p.runTask(t)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range tasks {
			select {
			case jobs <- t:
			case <-ctx.Done():
				// Graceful drain: stop submitting, let in-flight tasks finish.
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for r := range done {
		results[r.idx] = r.res
		completed++
		if p.progress != nil {
			p.progress(model.ProgressUpdate{
				Completed: completed,
				Total:     len(tasks),
				Status:    r.res.Status,
			})
		}
	}

	return results
}

// runTask executes one task in isolation: load, stylize, perturb, write,
// optionally validate. Any failure is converted into an error result and
// never terminates sibling tasks.
func (p *Pipeline) runTask(t model.ProcessingTask) (res model.ProcessingResult) {
	res = model.ProcessingResult{Task: t, Status: t.Status}

	defer func() {
		if r := recover(); r != nil {
			res.Status = model.StatusErrorOther
			res.Message = fmt.Sprintf("panic during processing: %v", r)
		}
	}()

	if t.Status == model.StatusSkipExisting {
		res.Message = t.Note
		return res
	}

	notes := make([]string, 0, 3)
	if t.Note != "" {
		notes = append(notes, t.Note)
	}

	img, err := processor.Load(t.SourcePath)
	if err != nil {
		res.Status = model.StatusErrorLoad
		res.Message = err.Error()
		return res
	}

	styled, err := processor.Stylize(img, p.cfg.Styling)
	if err != nil {
		res.Status = model.StatusErrorOther
		res.Message = fmt.Sprintf("stylize: %v", err)
		return res
	}

	rng := rand.New(rand.NewSource(t.Seed))
	perturbed, ops, err := processor.Perturb(styled, p.cfg.AntiDedup, rng)
	if err != nil {
		res.Status = model.StatusErrorOther
		res.Message = fmt.Sprintf("perturb: %v", err)
		return res
	}
	if len(ops) > 0 {
		notes = append(notes, "antidedup: "+strings.Join(ops, ", "))
	}

	if err := output.Save(perturbed, t.OutputPath); err != nil {
		res.Status = model.StatusErrorWrite
		res.Message = err.Error()
		return res
	}

	if p.cfg.Validation.Enabled {
		// Best-effort: a failed measurement degrades to missing metrics,
		// never to a failed task.
		if m, err := validate.Compare(t.SourcePath, t.OutputPath); err == nil {
			d, s := m.PHashDistance, m.SSIM
			res.PHashDistance = &d
			res.SSIM = &s
			notes = append(notes, fmt.Sprintf("validation: phash=%d ssim=%.6f", d, s))
		} else {
			notes = append(notes, fmt.Sprintf("validation unavailable: %v", err))
		}
	}

	res.Message = strings.Join(notes, "; ")
	return res
}
