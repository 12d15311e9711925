package tools

import (
	"context"
	"strings"
	"testing"
)

func TestBuilderExpandsOutputPlaceholder(t *testing.T) {
	runner := &scriptedRunner{}
	b := NewBuilder(runner, []string{"python", "-m", "build", "--outdir", "{output}"},
		"/proj", "/proj/dist", nil)

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(runner.runs) != 1 {
		t.Fatalf("ran %d commands, want 1", len(runner.runs))
	}
	argv := strings.Join(runner.runs[0], " ")
	if !strings.Contains(argv, "--outdir /proj/dist") {
		t.Errorf("argv = %q, placeholder not expanded", argv)
	}
}

func TestAdaptersWrapFailuresWithTheirConcern(t *testing.T) {
	tests := []struct {
		name string
		run  func(*scriptedRunner) error
		want string
	}{
		{"formatter", func(r *scriptedRunner) error {
			return NewFormatter(r, []string{"ruff", "format", "."}, ".").Run(context.Background())
		}, "formatter:"},
		{"linter", func(r *scriptedRunner) error {
			return NewLinter(r, []string{"ruff", "check", "--fix", "."}, ".").Run(context.Background())
		}, "linter:"},
		{"tests", func(r *scriptedRunner) error {
			return NewTestRunner(r, []string{"pytest"}, ".").Run(context.Background())
		}, "tests:"},
		{"build", func(r *scriptedRunner) error {
			return NewBuilder(r, []string{"python", "-m", "build"}, ".", "dist", nil).Run(context.Background())
		}, "build:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &scriptedRunner{failOn: []string{"ruff", "pytest", "python"}}
			err := tt.run(runner)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), tt.want) {
				t.Errorf("error = %q, want prefix %q", err.Error(), tt.want)
			}
		})
	}
}

func TestAdaptersPassThroughSuccess(t *testing.T) {
	runner := &scriptedRunner{}
	if err := NewFormatter(runner, []string{"ruff", "format", "."}, ".").Run(context.Background()); err != nil {
		t.Errorf("formatter Run() = %v", err)
	}
	if err := NewTestRunner(runner, []string{"pytest"}, ".").Run(context.Background()); err != nil {
		t.Errorf("tests Run() = %v", err)
	}
	if len(runner.runs) != 2 {
		t.Errorf("ran %d commands, want 2", len(runner.runs))
	}
}

