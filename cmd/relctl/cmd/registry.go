package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relforge/relctl/internal/registry"
)

var (
	registryAddr string
	registryDir  string
)

// registryCmd represents the registry command
var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Local dry-run artifact registry",
}

// registryServeCmd represents the registry serve command
var registryServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local registry to smoke-test uploads",
	Long: `Serves a minimal artifact registry on localhost. Point a release at it
with --dry-run-url to exercise the whole pipeline, upload included,
without publishing anything:

  relctl registry serve &
  relctl release --dry-run-url http://127.0.0.1:8417/upload`,
	RunE: runRegistryServe,
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryServeCmd)

	registryServeCmd.Flags().StringVar(&registryAddr, "addr", "127.0.0.1:8417",
		"listen address")
	registryServeCmd.Flags().StringVar(&registryDir, "dir", "",
		"artifact storage directory (default <workdir>/.relctl-registry)")
}

func runRegistryServe(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadManifest()
	if err != nil {
		return err
	}

	dir := registryDir
	if dir == "" {
		dir = filepath.Join(cfg.WorkDir, ".relctl-registry")
	}

	srv, err := registry.NewServer(dir, log)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(registryAddr)
}
