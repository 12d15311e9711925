// Package tools wraps the external programs the pipeline drives: the
// formatter, the linter, the test runner, the dependency manager, the
// build tool, and the uploader. Each adapter owns one concern and reports
// failures as plain errors; the pipeline decides what a failure means.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/relforge/relctl/internal/invoke"
)

// Formatter applies automatic code-style formatting to the project tree.
type Formatter struct {
	runner invoke.Runner
	argv   []string
	dir    string
}

// NewFormatter creates a formatter adapter.
func NewFormatter(runner invoke.Runner, argv []string, dir string) *Formatter {
	return &Formatter{runner: runner, argv: argv, dir: dir}
}

// Run formats the tree in place.
func (f *Formatter) Run(ctx context.Context) error {
	if _, err := f.runner.Run(ctx, invoke.Command{Argv: f.argv, Dir: f.dir}); err != nil {
		return fmt.Errorf("formatter: %w", err)
	}
	return nil
}

// Linter runs static analysis with autofix over the project tree.
type Linter struct {
	runner invoke.Runner
	argv   []string
	dir    string
}

// NewLinter creates a linter adapter.
func NewLinter(runner invoke.Runner, argv []string, dir string) *Linter {
	return &Linter{runner: runner, argv: argv, dir: dir}
}

// Run lints the tree; anything the linter cannot autofix is a failure.
func (l *Linter) Run(ctx context.Context) error {
	if _, err := l.runner.Run(ctx, invoke.Command{Argv: l.argv, Dir: l.dir}); err != nil {
		return fmt.Errorf("linter: %w", err)
	}
	return nil
}

// TestRunner executes the project's test suite.
type TestRunner struct {
	runner invoke.Runner
	argv   []string
	dir    string
}

// NewTestRunner creates a test runner adapter.
func NewTestRunner(runner invoke.Runner, argv []string, dir string) *TestRunner {
	return &TestRunner{runner: runner, argv: argv, dir: dir}
}

// Run executes the suite; a non-zero exit is a test failure.
func (t *TestRunner) Run(ctx context.Context) error {
	if _, err := t.runner.Run(ctx, invoke.Command{Argv: t.argv, Dir: t.dir}); err != nil {
		return fmt.Errorf("tests: %w", err)
	}
	return nil
}

// Builder produces distributable artifacts into the output directory.
// It runs with the disposable tool environment's bin dir on PATH.
type Builder struct {
	runner    invoke.Runner
	argv      []string
	dir       string
	outputDir string
	extraEnv  []string
}

// NewBuilder creates a builder adapter. The literal "{output}" in argv is
// replaced with outputDir.
func NewBuilder(runner invoke.Runner, argv []string, dir, outputDir string, extraEnv []string) *Builder {
	expanded := make([]string, len(argv))
	for i, a := range argv {
		expanded[i] = strings.ReplaceAll(a, "{output}", outputDir)
	}
	return &Builder{
		runner:    runner,
		argv:      expanded,
		dir:       dir,
		outputDir: outputDir,
		extraEnv:  extraEnv,
	}
}

// Run builds the artifacts.
func (b *Builder) Run(ctx context.Context) error {
	cmd := invoke.Command{Argv: b.argv, Dir: b.dir, Env: b.extraEnv}
	if _, err := b.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}
