package invoke

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/relforge/relctl/pkg/logging"
)

func testLogger() *logging.Logger {
	log := logging.New(logging.ERROR, false)
	log.SetOutput(&bytes.Buffer{})
	return log
}

func TestRunSuccess(t *testing.T) {
	r := NewRunner(testLogger())

	var out bytes.Buffer
	result, err := r.Run(context.Background(), Command{
		Argv:   []string{"sh", "-c", "echo hello"},
		Stdout: &out,
		Stderr: &out,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if got := strings.TrimSpace(out.String()); got != "hello" {
		t.Errorf("output = %q, want %q", got, "hello")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	r := NewRunner(testLogger())

	result, err := r.Run(context.Background(), Command{
		Argv:   []string{"sh", "-c", "exit 3"},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	if err == nil {
		t.Fatal("Run() expected error for non-zero exit")
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", exitErr.ExitCode)
	}
	if result == nil || result.ExitCode != 3 {
		t.Errorf("result.ExitCode = %v, want 3", result)
	}
}

func TestRunEmptyCommand(t *testing.T) {
	r := NewRunner(testLogger())

	if _, err := r.Run(context.Background(), Command{}); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Run() error = %v, want ErrEmptyCommand", err)
	}
	if _, err := r.Output(context.Background(), Command{}); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Output() error = %v, want ErrEmptyCommand", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := NewRunner(testLogger())

	_, err := r.Run(context.Background(), Command{
		Argv: []string{"definitely-not-a-real-tool-xyz"},
	})
	if err == nil {
		t.Fatal("Run() expected error for missing binary")
	}
}

func TestRunRespectsWorkingDir(t *testing.T) {
	r := NewRunner(testLogger())
	dir := t.TempDir()

	var out bytes.Buffer
	_, err := r.Run(context.Background(), Command{
		Argv:   []string{"pwd"},
		Dir:    dir,
		Stdout: &out,
		Stderr: &out,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); !strings.HasSuffix(got, dir) && got != dir {
		t.Errorf("pwd = %q, want %q", got, dir)
	}
}

func TestOutputCapturesCombined(t *testing.T) {
	r := NewRunner(testLogger())

	out, err := r.Output(context.Background(), Command{
		Argv: []string{"sh", "-c", "echo version 1.2.3"},
	})
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if out != "version 1.2.3" {
		t.Errorf("Output() = %q, want %q", out, "version 1.2.3")
	}
}

func TestRunCanceledContext(t *testing.T) {
	r := NewRunner(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, Command{
		Argv:   []string{"sleep", "10"},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	if err == nil {
		t.Fatal("Run() expected error for canceled context")
	}
}
