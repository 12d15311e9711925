package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relforge/relctl/internal/release"
)

// lintCmd represents the lint command
var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Format the tree and run the linter with autofix",
	Long: `Applies automatic code-style formatting to the whole project tree, then
runs the linter with autofix enabled. Anything the linter cannot fix on
its own fails the command.`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadManifest()
	if err != nil {
		return err
	}

	orch := release.New(cfg, newRunner(log), log)
	summary, runErr := orch.Run(cmd.Context(), orch.LintStages())
	if err := summary.RenderTable(os.Stdout); err != nil {
		log.Error("failed to render summary table", map[string]interface{}{"error": err.Error()})
	}
	return runErr
}
