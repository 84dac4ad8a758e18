// Package process runs the external commands fleetsync depends on: uv sync
// after a manifest update, git add/commit/push, and git ls-remote for
// revision lookups. Every call is bounded by an explicit timeout.
package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/agentstation/fleetsync/pkg/constants"
	"github.com/agentstation/fleetsync/pkg/errors"
)

// Command describes one external invocation.
type Command struct {
	Dir     string
	Name    string
	Args    []string
	Timeout time.Duration
}

// String returns the command line.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Output is what a command wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes cmd. A missing executable yields *errors.NotFoundError, an
// expired timeout *errors.TimeoutError, and a non-zero exit
// *errors.ProcessError carrying stderr.
func (ExecRunner) Run(ctx context.Context, c Command) (Output, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	//nolint:gosec // command names are fixed by this package
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	switch {
	case err == nil:
		return out, nil
	case stderrors.Is(err, exec.ErrNotFound):
		return out, errors.NewNotFoundError("command", c.Name)
	case ctx.Err() == context.DeadlineExceeded:
		return out, errors.NewTimeoutError(c.String(), c.Timeout.String(), "command did not finish")
	}

	perr := errors.NewProcessError(c.Name, c.String(), strings.TrimSpace(out.Stderr), err)
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		perr.ExitCode = exitErr.ExitCode()
	}
	return out, perr
}

// Describe renders a command failure as a short message: the first stderr
// lines of a failed process, or the timeout or missing-command condition.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var perr *errors.ProcessError
	var nf *errors.NotFoundError
	var te *errors.TimeoutError
	switch {
	case stderrors.As(err, &te):
		return "timed out after " + te.Duration
	case stderrors.As(err, &nf):
		return nf.ID + " command not found"
	case stderrors.As(err, &perr):
		if perr.Output == "" {
			return perr.Err.Error()
		}
		return strings.Join(FirstLines(perr.Output, constants.MaxStderrLines), "\n")
	}
	return err.Error()
}

// FirstLines returns up to n lines of s.
func FirstLines(s string, n int) []string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
