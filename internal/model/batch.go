package model

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses. The vocabulary is closed: the report contract and the
// summary counters only ever see these values.
const (
	StatusProcessed       = "processed"
	StatusProcessedRename = "processed-rename"
	StatusSkipExisting    = "skip-existing"
	StatusErrorLoad       = "error-load"
	StatusErrorWrite      = "error-write"
	StatusErrorOther      = "error-other"
)

// Statuses lists every task status in report order.
var Statuses = []string{
	StatusProcessed,
	StatusProcessedRename,
	StatusSkipExisting,
	StatusErrorLoad,
	StatusErrorWrite,
	StatusErrorOther,
}

// SourceImage is a single file found by the scanner.
type SourceImage struct {
	SourcePath string `json:"source_path"` // absolute path to the file
	Root       string `json:"root"`        // source root it was found under
	RelPath    string `json:"rel_path"`    // path relative to Root
}

// ProcessingTask describes one unit of work for the pool. It is immutable
// once built and JSON-serializable so it could cross a process boundary.
type ProcessingTask struct {
	Index      int    `json:"index"`       // submission order, 0-based
	SourcePath string `json:"source_path"` // absolute source file path
	RelPath    string `json:"rel_path"`    // relative path under the source root
	OutputPath string `json:"output_path"` // pre-reserved destination path
	Status     string `json:"status"`      // processed / processed-rename / skip-existing
	Note       string `json:"note"`        // conflict note from path reservation
	Seed       int64  `json:"seed"`        // per-task seed for all randomized choices
}

// ProcessingResult is the outcome of one task. Workers create it, the
// aggregator consumes it exactly once.
type ProcessingResult struct {
	Task          ProcessingTask `json:"task"`
	Status        string         `json:"status"`
	Message       string         `json:"message"`
	PHashDistance *int           `json:"phash_distance,omitempty"`
	SSIM          *float64       `json:"ssim,omitempty"`
}

// ProgressUpdate is emitted once per finished task. Completed is
// monotonically increasing up to Total.
type ProgressUpdate struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Status    string `json:"status"` // status of the task that just finished
}

// BatchResult is the final product of a run. Results are ordered by task
// submission order, never by completion order.
type BatchResult struct {
	ID         uuid.UUID          `json:"id"`
	Results    []ProcessingResult `json:"results"`
	Summary    map[string]int     `json:"summary"` // count per status
	ReportPath string             `json:"report_path"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// Summarize recomputes the per-status counters from Results.
func (b *BatchResult) Summarize() {
	s := make(map[string]int, len(Statuses))
	for _, r := range b.Results {
		s[r.Status]++
	}
	b.Summary = s
}
