package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relforge/relctl/internal/release"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run lint and the test suite",
	Long: `Gates further action on code quality and correctness: runs the
formatter and linter, then the test runner. The first failing step aborts
the command with its exit status.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadManifest()
	if err != nil {
		return err
	}

	orch := release.New(cfg, newRunner(log), log)
	summary, runErr := orch.Run(cmd.Context(), orch.VerifyStages())
	if err := summary.RenderTable(os.Stdout); err != nil {
		log.Error("failed to render summary table", map[string]interface{}{"error": err.Error()})
	}
	return runErr
}
