package tools

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/relforge/relctl/internal/config"
	"github.com/relforge/relctl/internal/invoke"
	"github.com/relforge/relctl/pkg/logging"
)

func testLogger() *logging.Logger {
	log := logging.New(logging.ERROR, false)
	log.SetOutput(&bytes.Buffer{})
	return log
}

// scriptedRunner fakes tool invocations: Output serves the version probe,
// Run fails for any argv containing a string in failOn.
type scriptedRunner struct {
	versionOut string
	versionErr error
	failOn     []string
	runs       [][]string
}

func (s *scriptedRunner) Run(ctx context.Context, cmd invoke.Command) (*invoke.Result, error) {
	s.runs = append(s.runs, cmd.Argv)
	for _, bad := range s.failOn {
		for _, a := range cmd.Argv {
			if a == bad {
				return &invoke.Result{ExitCode: 2}, &invoke.ExitError{Argv: cmd.Argv, ExitCode: 2}
			}
		}
	}
	return &invoke.Result{}, nil
}

func (s *scriptedRunner) Output(ctx context.Context, cmd invoke.Command) (string, error) {
	return s.versionOut, s.versionErr
}

func depsConfig() config.DepsConfig {
	return config.DepsConfig{
		Bin:             "poetry",
		Install:         []string{"install", "--sync"},
		ProdFlagsNew:    []string{"--only", "main"},
		ProdFlagsLegacy: []string{"--no-dev"},
		MinNewVersion:   "1.2.0",
	}
}

func TestProbeVersion(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		err     error
		want    string
		wantErr bool
	}{
		{"plain version", "Poetry (version 1.8.3)", nil, "1.8.3", false},
		{"bare number", "1.1.15", nil, "1.1.15", false},
		{"two-part version", "npm 9.5", nil, "9.5", false},
		{"no number", "command not found", nil, "", true},
		{"probe fails", "", errors.New("exec: not found"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &scriptedRunner{versionOut: tt.out, versionErr: tt.err}
			mgr := NewDepManager(runner, depsConfig(), ".", testLogger())

			got, err := mgr.ProbeVersion(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProbeVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ProbeVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectProdFlags(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"newer than threshold", "1.8.3", "--only"},
		{"exactly the threshold", "1.2.0", "--only"},
		{"older than threshold", "1.1.15", "--no-dev"},
		{"much older", "0.12.0", "--no-dev"},
	}

	mgr := NewDepManager(&scriptedRunner{}, depsConfig(), ".", testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := mgr.SelectProdFlags(tt.version)
			if flags[0] != tt.want {
				t.Errorf("SelectProdFlags(%s) = %v, want leading %s", tt.version, flags, tt.want)
			}
		})
	}
}

func TestSelectProdFlagsDegenerateConfigs(t *testing.T) {
	cfg := depsConfig()
	cfg.ProdFlagsNew = nil
	mgr := NewDepManager(&scriptedRunner{}, cfg, ".", testLogger())
	if flags := mgr.SelectProdFlags("9.9.9"); flags[0] != "--no-dev" {
		t.Errorf("without new flags, SelectProdFlags = %v", flags)
	}

	cfg = depsConfig()
	cfg.ProdFlagsLegacy = nil
	mgr = NewDepManager(&scriptedRunner{}, cfg, ".", testLogger())
	if flags := mgr.SelectProdFlags("0.0.1"); flags[0] != "--only" {
		t.Errorf("without legacy flags, SelectProdFlags = %v", flags)
	}
}

func TestRebuildUsesProbedVersion(t *testing.T) {
	runner := &scriptedRunner{versionOut: "Poetry (version 1.1.15)"}
	mgr := NewDepManager(runner, depsConfig(), "/proj", testLogger())

	if err := mgr.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if len(runner.runs) != 1 {
		t.Fatalf("ran %d installs, want 1", len(runner.runs))
	}
	argv := strings.Join(runner.runs[0], " ")
	if !strings.Contains(argv, "--no-dev") {
		t.Errorf("install argv = %q, want legacy flag for 1.1.15", argv)
	}
}

func TestRebuildFallsBackWhenProbeFails(t *testing.T) {
	// Probe fails, new flag is rejected by the manager, legacy flag works.
	runner := &scriptedRunner{
		versionErr: errors.New("no --version support"),
		failOn:     []string{"--only"},
	}
	mgr := NewDepManager(runner, depsConfig(), "/proj", testLogger())

	if err := mgr.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if len(runner.runs) != 2 {
		t.Fatalf("ran %d installs, want 2 (new then legacy)", len(runner.runs))
	}
	if got := strings.Join(runner.runs[1], " "); !strings.Contains(got, "--no-dev") {
		t.Errorf("fallback argv = %q, want legacy flag", got)
	}
}

func TestRebuildFailsWhenBothFlagsRejected(t *testing.T) {
	runner := &scriptedRunner{
		versionErr: errors.New("no --version support"),
		failOn:     []string{"--only", "--no-dev"},
	}
	mgr := NewDepManager(runner, depsConfig(), "/proj", testLogger())

	if err := mgr.Rebuild(context.Background()); err == nil {
		t.Fatal("Rebuild() expected error when every flag fails")
	}
}
