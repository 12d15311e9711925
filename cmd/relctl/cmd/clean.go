package cmd

import (
	"github.com/spf13/cobra"

	"github.com/relforge/relctl/internal/toolenv"
	"github.com/relforge/relctl/internal/workspace"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build output and any leaked tool environment",
	Long: `Removes the build-output directory and a tool environment left behind
by a failed release. Safe to run any number of times; missing directories
are not an error.`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadManifest()
	if err != nil {
		return err
	}

	output := &workspace.Output{Dir: cfg.OutputPath()}
	if err := output.Clean(); err != nil {
		return err
	}
	log.Info("build output removed", map[string]interface{}{"dir": output.Dir})

	env := toolenv.New(cfg.ToolEnv, cfg.ToolEnvPath(), newRunner(log), log)
	if env.Exists() {
		if err := env.Teardown(); err != nil {
			return err
		}
	}
	return nil
}
