// Package shell runs the external helpers wactl hands artifacts to, such as
// the desktop image viewer and the clipboard.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Result holds the output and exit code of a command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes external commands. Tests substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
	RunWithInput(ctx context.Context, input, name string, args ...string) (*Result, error)
	LookPath(name string) (string, error)
}

// DefaultRunner implements Runner with os/exec.
type DefaultRunner struct{}

// NewRunner creates a new DefaultRunner.
func NewRunner() Runner {
	return &DefaultRunner{}
}

// Run executes a command and captures its output.
func (r *DefaultRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	return runCmd(ctx, nil, name, args...)
}

// RunWithInput executes a command feeding input on stdin.
func (r *DefaultRunner) RunWithInput(ctx context.Context, input, name string, args ...string) (*Result, error) {
	return runCmd(ctx, strings.NewReader(input), name, args...)
}

// LookPath resolves name in PATH.
func (r *DefaultRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func runCmd(ctx context.Context, stdin io.Reader, name string, args ...string) (*Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	result.ExitCode = -1
	return result, fmt.Errorf("failed to execute '%s': %w", name, err)
}
