package search

import (
	"fmt"
	"io"
	"time"
)

// Counts tallies outcomes by status.
type Counts struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Tally counts outcomes by status.
func Tally(outcomes []Outcome) Counts {
	var c Counts
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			c.Succeeded++
		case StatusSkipped:
			c.Skipped++
		default:
			c.Failed++
		}
	}
	return c
}

// RenderSummary prints one status line per job followed by the completion
// marker.
func RenderSummary(w io.Writer, outcomes []Outcome, finished time.Time) error {
	for _, o := range outcomes {
		var status string
		switch o.Status {
		case StatusSucceeded:
			status = "Done"
		case StatusSkipped:
			status = fmt.Sprintf("SKIPPED (%s)", o.Reason)
		default:
			status = fmt.Sprintf("FAILED: %v", o.Err)
		}
		if _, err := fmt.Fprintf(w, "%s → %s\n", status, o.Job.SourcePath); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Finished at: %s\n", finished.Format(time.RFC3339))
	return err
}
