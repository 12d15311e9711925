// Package invoke runs the external tools the pipeline is built from.
// Every stage is a blocking process invocation; the tool's own output is
// the user-visible diagnostic, so stdout/stderr are forwarded untouched.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/relforge/relctl/pkg/logging"
)

// Command describes a single external tool invocation.
type Command struct {
	Argv []string // Argv[0] is the program, the rest its arguments
	Dir  string   // working directory, never inherited implicitly
	Env  []string // extra KEY=VALUE entries appended to the parent environment

	// Stdout/Stderr override the default forwarding to the parent's streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Result records what a finished invocation did.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// ExitError reports a tool that ran and exited non-zero.
type ExitError struct {
	Argv     []string
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Argv[0], e.ExitCode)
}

// ErrEmptyCommand is returned for a Command with no argv.
var ErrEmptyCommand = errors.New("empty command")

// Runner executes commands. The interface exists so tool adapters can be
// tested without spawning processes.
type Runner interface {
	// Run executes the command, forwarding output. A non-zero exit is
	// returned as *ExitError alongside the populated Result.
	Run(ctx context.Context, cmd Command) (*Result, error)

	// Output executes the command and returns its combined output,
	// trimmed. Used for version probes, not for pipeline stages.
	Output(ctx context.Context, cmd Command) (string, error)
}

type execRunner struct {
	log *logging.Logger
}

// NewRunner creates a Runner backed by os/exec.
func NewRunner(log *logging.Logger) Runner {
	return &execRunner{log: log}
}

func (r *execRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Argv) == 0 {
		return nil, ErrEmptyCommand
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	c.Stdout = cmd.Stdout
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	c.Stderr = cmd.Stderr
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	r.log.Debug("running tool", map[string]interface{}{
		"argv": strings.Join(cmd.Argv, " "),
		"dir":  cmd.Dir,
	})

	start := time.Now()
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Argv[0], err)
	}

	err := c.Wait()
	result := &Result{Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{Argv: cmd.Argv, ExitCode: result.ExitCode}
		}
		return result, fmt.Errorf("waiting for %s: %w", cmd.Argv[0], err)
	}

	return result, nil
}

func (r *execRunner) Output(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Argv) == 0 {
		return "", ErrEmptyCommand
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf

	if err := c.Run(); err != nil {
		return strings.TrimSpace(buf.String()), fmt.Errorf("probing %s: %w", cmd.Argv[0], err)
	}
	return strings.TrimSpace(buf.String()), nil
}
