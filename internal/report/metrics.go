package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/relforge/relctl/internal/pipeline"
)

// WriteMetricsFile writes the run's stage metrics in Prometheus text
// format, suitable for a node-exporter textfile collector. The file is
// written atomically so a scrape never sees a half-written run.
func WriteMetricsFile(path string, summary *Summary) error {
	registry := prometheus.NewRegistry()

	stageDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relctl_stage_duration_seconds",
		Help: "Wall-clock duration of each pipeline stage in the last run.",
	}, []string{"project", "stage"})

	stageStatus := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relctl_stage_success",
		Help: "1 if the stage succeeded, 0 if it failed or was skipped.",
	}, []string{"project", "stage"})

	pipelineSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relctl_pipeline_success",
		Help: "1 if the whole pipeline succeeded.",
	}, []string{"project"})

	runTimestamp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relctl_last_run_timestamp_seconds",
		Help: "Unix time of the last pipeline run.",
	}, []string{"project"})

	registry.MustRegister(stageDuration, stageStatus, pipelineSuccess, runTimestamp)

	project := summary.Project
	if project == "" {
		project = "default"
	}

	var lastStart float64
	for _, r := range summary.Results {
		stageDuration.WithLabelValues(project, string(r.Stage)).Set(r.Duration.Seconds())
		ok := 0.0
		if r.Status == pipeline.StatusOK {
			ok = 1.0
		}
		stageStatus.WithLabelValues(project, string(r.Stage)).Set(ok)
		if ts := float64(r.Start.Unix()); ts > lastStart {
			lastStart = ts
		}
	}

	success := 0.0
	if summary.Succeeded() {
		success = 1.0
	}
	pipelineSuccess.WithLabelValues(project).Set(success)
	runTimestamp.WithLabelValues(project).Set(lastStart)

	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".relctl-metrics-*")
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			tmp.Close()
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing metrics file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing metrics file %s: %w", path, err)
	}
	return nil
}
