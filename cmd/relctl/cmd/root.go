package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relforge/relctl/internal/config"
	"github.com/relforge/relctl/internal/invoke"
	"github.com/relforge/relctl/pkg/logging"
)

var (
	cfgFile  string
	workDir  string
	logLevel string
	jsonLogs bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "relctl",
	Short: "Release pipeline orchestrator",
	Long: `relctl runs a project's lint, verify, and release pipelines as explicit
fail-fast stages: formatter, linter, tests, dependency rebuild, disposable
tool environment, build, and upload to a package registry.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "manifest file (default is <workdir>/.relctl.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "C", ".", "project working directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
}

// initConfig reads in ENV variables that match
func initConfig() {
	viper.SetEnvPrefix("RELCTL")
	viper.AutomaticEnv()

	viper.BindEnv("workdir", "RELCTL_WORKDIR")
	viper.BindEnv("log_level", "RELCTL_LOG_LEVEL")

	if workDir == "." && viper.GetString("workdir") != "" {
		workDir = viper.GetString("workdir")
	}
	if logLevel == "info" && viper.GetString("log_level") != "" {
		logLevel = viper.GetString("log_level")
	}
}

// newLogger builds the run logger from the global flags
func newLogger() *logging.Logger {
	return logging.New(logging.ParseLevel(logLevel), jsonLogs)
}

// loadManifest resolves the working directory and loads the project
// manifest, explicit file first, conventional name second, defaults last.
func loadManifest() (*config.Config, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolving workdir: %w", err)
	}

	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		if cfg.WorkDir == "." || cfg.WorkDir == "" {
			cfg.WorkDir = abs
		}
		return cfg, nil
	}
	return config.LoadOrDefault(abs)
}

// newRunner builds the process runner every tool adapter shares
func newRunner(log *logging.Logger) invoke.Runner {
	return invoke.NewRunner(log)
}
