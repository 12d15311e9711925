package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/relforge/relctl/internal/config"
	"github.com/relforge/relctl/internal/invoke"
	"github.com/relforge/relctl/pkg/logging"
)

// semverPattern matches the first dotted version in a tool's version banner.
var semverPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// DepManager rebuilds the dependency environment with production-only
// dependencies. Dependency managers changed the spelling of "production
// only" between major versions, so the flag is chosen by probing the
// installed version rather than by trial and error; trial and error
// remains the fallback when the probe itself fails.
type DepManager struct {
	runner invoke.Runner
	cfg    config.DepsConfig
	dir    string
	log    *logging.Logger
}

// NewDepManager creates a dependency manager adapter.
func NewDepManager(runner invoke.Runner, cfg config.DepsConfig, dir string, log *logging.Logger) *DepManager {
	return &DepManager{runner: runner, cfg: cfg, dir: dir, log: log}
}

// ProbeVersion asks the manager for its version and extracts the first
// version number from the output.
func (d *DepManager) ProbeVersion(ctx context.Context) (string, error) {
	out, err := d.runner.Output(ctx, invoke.Command{
		Argv: []string{d.cfg.Bin, "--version"},
		Dir:  d.dir,
	})
	if err != nil {
		return "", fmt.Errorf("version probe: %w", err)
	}

	version := semverPattern.FindString(out)
	if version == "" {
		return "", fmt.Errorf("no version number in %q", out)
	}
	return version, nil
}

// SelectProdFlags picks the production-only flags for the given manager
// version. Managers at or above MinNewVersion get the new spelling.
func (d *DepManager) SelectProdFlags(version string) []string {
	if len(d.cfg.ProdFlagsNew) == 0 {
		return d.cfg.ProdFlagsLegacy
	}
	if len(d.cfg.ProdFlagsLegacy) == 0 || d.cfg.MinNewVersion == "" {
		return d.cfg.ProdFlagsNew
	}
	if semver.Compare(canonical(version), canonical(d.cfg.MinNewVersion)) >= 0 {
		return d.cfg.ProdFlagsNew
	}
	return d.cfg.ProdFlagsLegacy
}

func canonical(version string) string {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return version
}

// Rebuild discards development dependencies and reinstalls the
// production-only set.
//
// When the version probe succeeds the flag is selected up front and a
// failed install is simply a failed install. When the probe fails the
// manager's version is unknown, so the new flag is tried first and the
// legacy flag is the fallback.
func (d *DepManager) Rebuild(ctx context.Context) error {
	version, err := d.ProbeVersion(ctx)
	if err == nil {
		flags := d.SelectProdFlags(version)
		d.log.Info("rebuilding production dependencies", map[string]interface{}{
			"manager": d.cfg.Bin,
			"version": version,
			"flags":   strings.Join(flags, " "),
		})
		return d.install(ctx, flags)
	}

	d.log.Warn("version probe failed, falling back to trial install", map[string]interface{}{
		"manager": d.cfg.Bin,
		"error":   err.Error(),
	})

	if len(d.cfg.ProdFlagsNew) > 0 {
		if newErr := d.install(ctx, d.cfg.ProdFlagsNew); newErr == nil {
			return nil
		} else if len(d.cfg.ProdFlagsLegacy) == 0 {
			return newErr
		}
		d.log.Warn("install with new flags failed, retrying with legacy flags")
	}
	return d.install(ctx, d.cfg.ProdFlagsLegacy)
}

func (d *DepManager) install(ctx context.Context, prodFlags []string) error {
	argv := append([]string{d.cfg.Bin}, d.cfg.Install...)
	argv = append(argv, prodFlags...)

	if _, err := d.runner.Run(ctx, invoke.Command{Argv: argv, Dir: d.dir}); err != nil {
		return fmt.Errorf("dependency install: %w", err)
	}
	return nil
}
