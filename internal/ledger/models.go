package ledger

import "time"

// Kind names the stage a run executed.
type Kind string

const (
	KindSearch  Kind = "search"
	KindExtract Kind = "extract"
	KindMerge   Kind = "merge"
)

// Item statuses shared by all stages.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Run is one invocation of a stage.
type Run struct {
	ID         string
	Kind       Kind
	Reference  string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Params     map[string]any
}

// Finished reports whether the run was closed.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Item is the recorded outcome of one job, file or entity.
type Item struct {
	RunID      string
	Key        string
	Status     string
	Reason     string
	Detail     string
	Path       string
	RecordedAt time.Time
}
