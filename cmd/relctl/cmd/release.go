package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relforge/relctl/internal/release"
	"github.com/relforge/relctl/internal/report"
)

var (
	releaseDryRunURL   string
	releaseSkipUpload  bool
	releaseTeardown    bool
	releaseMetricsFile string
)

// releaseCmd represents the release command
var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Verify, build, and publish a release",
	Long: `Runs the full release pipeline: verification, output cleanup,
production-only dependency rebuild, disposable tool environment, build,
upload, and teardown. Any failing stage aborts the run.

When the build or upload fails, the disposable tool environment and the
built artifacts are left on disk for inspection; pass
--teardown-on-failure to remove the environment unconditionally.`,
	RunE: runRelease,
}

func init() {
	rootCmd.AddCommand(releaseCmd)

	releaseCmd.Flags().StringVar(&releaseDryRunURL, "dry-run-url", "",
		"upload to this registry URL instead of the configured one (no credential required)")
	releaseCmd.Flags().BoolVar(&releaseSkipUpload, "skip-upload", false,
		"build artifacts but do not publish them")
	releaseCmd.Flags().BoolVar(&releaseTeardown, "teardown-on-failure", false,
		"remove the tool environment even when a stage fails")
	releaseCmd.Flags().StringVar(&releaseMetricsFile, "metrics-file", "",
		"write stage metrics in Prometheus text format to this file")
}

func runRelease(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadManifest()
	if err != nil {
		return err
	}

	opts := release.Options{
		DryRunURL:         releaseDryRunURL,
		SkipUpload:        releaseSkipUpload,
		TeardownOnFailure: releaseTeardown,
	}

	orch := release.New(cfg, newRunner(log), log)
	if err := orch.Preflight(opts); err != nil {
		return err
	}

	stages, env := orch.ReleaseStages(opts)
	summary, runErr := orch.Run(cmd.Context(), stages)

	if err := summary.RenderTable(os.Stdout); err != nil {
		log.Error("failed to render summary table", map[string]interface{}{"error": err.Error()})
	}

	if releaseMetricsFile != "" {
		if err := report.WriteMetricsFile(releaseMetricsFile, summary); err != nil {
			log.Error("failed to write metrics file", map[string]interface{}{
				"path":  releaseMetricsFile,
				"error": err.Error(),
			})
		}
	}

	if runErr != nil {
		orch.ReportLeak(env, opts)
	}
	return runErr
}
