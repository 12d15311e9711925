// Package release assembles the manifest's tools into runnable pipelines:
// lint, verify, and the full release state machine.
package release

import (
	"context"
	"fmt"

	"github.com/relforge/relctl/internal/config"
	"github.com/relforge/relctl/internal/invoke"
	"github.com/relforge/relctl/internal/pipeline"
	"github.com/relforge/relctl/internal/report"
	"github.com/relforge/relctl/internal/toolenv"
	"github.com/relforge/relctl/internal/tools"
	"github.com/relforge/relctl/internal/workspace"
	"github.com/relforge/relctl/pkg/logging"
)

// Options tune a single release run.
type Options struct {
	// DryRunURL redirects the upload to a local registry and drops the
	// credential requirement. Empty means a real release.
	DryRunURL string

	// SkipUpload builds artifacts but publishes nothing.
	SkipUpload bool

	// TeardownOnFailure removes the disposable tool environment even when
	// the build or upload failed, foregoing post-mortem inspection.
	TeardownOnFailure bool
}

// Orchestrator builds and runs pipelines for one project.
type Orchestrator struct {
	cfg    *config.Config
	runner invoke.Runner
	log    *logging.Logger
}

// New creates an orchestrator.
func New(cfg *config.Config, runner invoke.Runner, log *logging.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, runner: runner, log: log}
}

// verifyRuns builds the stage bodies of the verification half.
func (o *Orchestrator) verifyRuns() map[pipeline.State]func(context.Context) error {
	formatter := tools.NewFormatter(o.runner, o.cfg.Format, o.cfg.WorkDir)
	linter := tools.NewLinter(o.runner, o.cfg.Lint, o.cfg.WorkDir)
	testRunner := tools.NewTestRunner(o.runner, o.cfg.Test, o.cfg.WorkDir)

	return map[pipeline.State]func(context.Context) error{
		pipeline.StateFormat: formatter.Run,
		pipeline.StateLint:   linter.Run,
		pipeline.StateTest:   testRunner.Run,
	}
}

// assemble orders the stage bodies by the state machine's canonical stage
// order. States with no body (skipped upload, lint-only runs) are omitted;
// the runner's path validation still checks the result forms a legal path.
func assemble(order []pipeline.State, runs map[pipeline.State]func(context.Context) error) []pipeline.Stage {
	stages := make([]pipeline.Stage, 0, len(order))
	for _, state := range order {
		if run, ok := runs[state]; ok {
			stages = append(stages, pipeline.Stage{State: state, Run: run})
		}
	}
	return stages
}

// LintStages is the formatter-then-linter pipeline.
func (o *Orchestrator) LintStages() []pipeline.Stage {
	runs := o.verifyRuns()
	delete(runs, pipeline.StateTest)
	return assemble(pipeline.VerifyStates(), runs)
}

// VerifyStages is the verification pipeline: lint stages plus the tests.
func (o *Orchestrator) VerifyStages() []pipeline.Stage {
	return assemble(pipeline.VerifyStates(), o.verifyRuns())
}

// ReleaseStages is the full release state machine. The returned Env is the
// disposable tool environment, exposed so the caller can report a leak
// when the run fails after provisioning.
func (o *Orchestrator) ReleaseStages(opts Options) ([]pipeline.Stage, *toolenv.Env) {
	uploadCfg := o.cfg.Upload
	if opts.DryRunURL != "" {
		uploadCfg.RepositoryURL = opts.DryRunURL
		uploadCfg.CredentialEnv = ""
	}

	output := &workspace.Output{Dir: o.cfg.OutputPath()}
	env := toolenv.New(o.cfg.ToolEnv, o.cfg.ToolEnvPath(), o.runner, o.log)
	depMgr := tools.NewDepManager(o.runner, o.cfg.Deps, o.cfg.WorkDir, o.log)
	builder := tools.NewBuilder(o.runner, o.cfg.Build, o.cfg.WorkDir, output.Dir, []string{env.PathEnv()})
	uploader := tools.NewUploader(o.runner, uploadCfg, o.cfg.WorkDir, []string{env.PathEnv()}, o.log)

	runs := o.verifyRuns()
	runs[pipeline.StateCleanOutput] = func(ctx context.Context) error {
		if err := output.Clean(); err != nil {
			return err
		}
		return output.Ensure()
	}
	runs[pipeline.StateRebuildDeps] = depMgr.Rebuild
	runs[pipeline.StateProvisionTools] = func(ctx context.Context) error {
		return env.Provision(ctx, o.cfg.WorkDir)
	}
	runs[pipeline.StateBuild] = builder.Run
	if !opts.SkipUpload {
		runs[pipeline.StateUpload] = func(ctx context.Context) error {
			artifacts, err := output.Artifacts()
			if err != nil {
				return err
			}
			return uploader.Upload(ctx, artifacts)
		}
	}
	runs[pipeline.StateTeardownTools] = func(ctx context.Context) error {
		return env.Teardown()
	}

	return assemble(pipeline.ReleaseStates(), runs), env
}

// Preflight checks the conditions a release will need long before the
// stage that needs them: registry credentials and disk headroom. Run
// before any stage so a doomed release fails in seconds, not minutes.
func (o *Orchestrator) Preflight(opts Options) error {
	if !opts.SkipUpload && opts.DryRunURL == "" {
		uploader := tools.NewUploader(o.runner, o.cfg.Upload, o.cfg.WorkDir, nil, o.log)
		if err := uploader.CheckCredentials(); err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
	}
	if err := workspace.CheckFreeDisk(o.cfg.OutputPath(), o.cfg.MinFreeDiskMB*1024*1024); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	return nil
}

// Run executes the stages and wraps the results in a summary.
func (o *Orchestrator) Run(ctx context.Context, stages []pipeline.Stage) (*report.Summary, error) {
	results, err := pipeline.NewRunner(o.log).Run(ctx, stages)
	return &report.Summary{Project: o.cfg.Project, Results: results}, err
}

// ReportLeak logs the disposable environment left behind by a failed run,
// or removes it when the operator asked for unconditional teardown. The
// leak is deliberate: the environment and the partial output are the only
// evidence of what went wrong.
func (o *Orchestrator) ReportLeak(env *toolenv.Env, opts Options) {
	if !env.Exists() {
		return
	}
	if opts.TeardownOnFailure {
		if err := env.Teardown(); err != nil {
			o.log.Error("failed to tear down tool environment", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}
	o.log.Warn("tool environment left for inspection; remove with 'relctl clean'", map[string]interface{}{
		"path": env.Root,
	})
}
