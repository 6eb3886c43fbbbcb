package query

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a whole lookup, all sources included.
const DefaultTimeout = 60 * time.Second

// waitDelay is how long Wait keeps reading output after the process group
// has exited or been killed.
const waitDelay = 2 * time.Second

// ErrTimeout is returned when a lookup exceeds its time budget.
var ErrTimeout = errors.New("query execution timed out")

// Outcome is what a finished execution produced.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// ExitError reports a non-zero exit of the executed command.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("query exited with code %d", e.Code)
}

// LaunchError reports that the shell or tool could not be started at all.
// It points at a broken deployment rather than a bad request.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return "failed to launch query: " + e.Err.Error()
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Runner executes a Plan and returns the aggregated JSON document on stdout.
type Runner interface {
	Run(ctx context.Context, plan *Plan) (*Outcome, error)
	// Mode names the execution strategy, used for logs and metrics.
	Mode() string
}

// SourceObserver is notified once per IRR source queried by a DirectRunner.
type SourceObserver interface {
	ObserveSource(source, outcome string)
}

// Per-source outcomes reported to a SourceObserver.
const (
	SourceOK          = "ok"
	SourceEmpty       = "empty"
	SourceFailed      = "failed"
	SourceUndecodable = "undecodable"
)

// runProcess runs name with args under ctx and captures its output. The
// returned Outcome is never nil.
func runProcess(ctx context.Context, stderr bool, name string, args ...string) (*Outcome, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	if stderr {
		cmd.Stderr = &stderrBuf
	}

	start := time.Now()
	err := cmd.Run()
	out := &Outcome{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{Code: exitErr.ExitCode(), Stderr: out.Stderr}
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		return out, fmt.Errorf("query output still open after exit: %w", err)
	}
	return out, &LaunchError{Err: err}
}

// classify turns the expiry of the runner's own deadline into ErrTimeout while
// leaving cancellation of the caller's context as is.
func classify(parent context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return ErrTimeout
	}
	return err
}
