// Package report turns pipeline results into operator-facing output: a
// summary table at the end of a run and an optional Prometheus textfile
// for scrape-based monitoring of scheduled releases.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/relforge/relctl/internal/pipeline"
)

// Summary presents the per-stage outcome of one run.
type Summary struct {
	Project string
	Results []pipeline.StageResult
}

// Succeeded reports whether every stage finished ok.
func (s *Summary) Succeeded() bool {
	for _, r := range s.Results {
		if r.Status != pipeline.StatusOK {
			return false
		}
	}
	return len(s.Results) > 0
}

// TotalDuration sums the time spent in stages that ran.
func (s *Summary) TotalDuration() time.Duration {
	var total time.Duration
	for _, r := range s.Results {
		total += r.Duration
	}
	return total
}

// RenderTable writes the stage table to w.
func (s *Summary) RenderTable(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Stage", "Status", "Duration", "Detail")

	for _, r := range s.Results {
		detail := ""
		if r.Err != nil {
			detail = r.Err.Error()
		}
		duration := ""
		if r.Status != pipeline.StatusSkipped {
			duration = r.Duration.Round(time.Millisecond).String()
		}
		table.Append(string(r.Stage), string(r.Status), duration, detail)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering summary table: %w", err)
	}

	fmt.Fprintf(w, "Total: %s\n", s.TotalDuration().Round(time.Millisecond))
	return nil
}
