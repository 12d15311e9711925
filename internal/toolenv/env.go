// Package toolenv provisions and tears down the disposable environment
// that holds the packaging and upload tools for a single release, so those
// tools never have to be declared as project dependencies.
package toolenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relforge/relctl/internal/config"
	"github.com/relforge/relctl/internal/invoke"
	"github.com/relforge/relctl/pkg/logging"
)

// Env is one disposable tool environment rooted at a directory.
type Env struct {
	Root   string
	binDir string

	create  []string
	install []string

	runner invoke.Runner
	log    *logging.Logger
}

// New creates an Env from the manifest. root must be absolute.
func New(cfg config.ToolEnvConfig, root string, runner invoke.Runner, log *logging.Logger) *Env {
	return &Env{
		Root:    root,
		binDir:  cfg.BinDir,
		create:  expandArgv(cfg.Create, root),
		install: expandArgv(cfg.Install, root),
		runner:  runner,
		log:     log.WithField("toolenv", root),
	}
}

// expandArgv replaces the {env} placeholder with the environment root.
func expandArgv(argv []string, root string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = strings.ReplaceAll(a, "{env}", root)
	}
	return out
}

// Exists reports whether the environment directory is present on disk.
func (e *Env) Exists() bool {
	info, err := os.Stat(e.Root)
	return err == nil && info.IsDir()
}

// Provision creates the environment and installs the tools into it.
// A leftover environment from an earlier failed run is removed first.
func (e *Env) Provision(ctx context.Context, workdir string) error {
	if e.Exists() {
		e.log.Warn("removing leftover tool environment from a previous run")
		if err := os.RemoveAll(e.Root); err != nil {
			return fmt.Errorf("removing stale tool environment: %w", err)
		}
	}

	if _, err := e.runner.Run(ctx, invoke.Command{Argv: e.create, Dir: workdir}); err != nil {
		return fmt.Errorf("creating tool environment: %w", err)
	}

	if len(e.install) > 0 {
		if _, err := e.runner.Run(ctx, invoke.Command{Argv: e.install, Dir: workdir}); err != nil {
			return fmt.Errorf("installing tools into environment: %w", err)
		}
	}

	e.log.Info("tool environment provisioned")
	return nil
}

// Teardown deletes the environment. Called on the success path; on a
// failed build or upload the environment is deliberately left in place
// for inspection unless the operator opted into unconditional teardown.
func (e *Env) Teardown() error {
	if err := os.RemoveAll(e.Root); err != nil {
		return fmt.Errorf("removing tool environment %s: %w", e.Root, err)
	}
	e.log.Info("tool environment removed")
	return nil
}

// PathEnv returns a PATH entry that puts the environment's tools first,
// the same effect an activated environment would have.
func (e *Env) PathEnv() string {
	bin := filepath.Join(e.Root, e.binDir)
	return "PATH=" + bin + string(os.PathListSeparator) + os.Getenv("PATH")
}
