package query

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ShellRunner executes Plan.Pipeline through a shell, keeping the exact pipe
// semantics of bgpq4, jq and egrep.
type ShellRunner struct {
	Tools   Tools
	Timeout time.Duration
	Log     logrus.FieldLogger
}

// NewShellRunner returns a ShellRunner. A non-positive timeout selects
// DefaultTimeout.
func NewShellRunner(tools Tools, timeout time.Duration, log logrus.FieldLogger) *ShellRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ShellRunner{Tools: tools, Timeout: timeout, Log: log}
}

func (r *ShellRunner) Mode() string {
	return "shell"
}

func (r *ShellRunner) Run(parent context.Context, plan *Plan) (*Outcome, error) {
	command := plan.Pipeline(r.Tools)

	ctx, cancel := context.WithTimeout(parent, r.Timeout)
	defer cancel()

	out, err := runProcess(ctx, true, r.Tools.Shell, "-c", command)
	err = classify(parent, err)

	fields := logrus.Fields{"asn": plan.Key(), "command": command, "duration": out.Duration}
	var exitErr *ExitError
	var launchErr *LaunchError
	switch {
	case err == nil:
		r.Log.WithFields(fields).Debug("query pipeline finished")
	case errors.As(err, &exitErr):
		r.Log.WithFields(fields).WithFields(logrus.Fields{
			"exit_code": exitErr.Code,
			"stderr":    exitErr.Stderr,
		}).Error("query pipeline failed")
	case errors.Is(err, ErrTimeout):
		r.Log.WithFields(fields).WithField("timeout", r.Timeout).Error("query pipeline timed out")
	case errors.As(err, &launchErr):
		r.Log.WithFields(fields).WithError(err).Error("query shell could not be started")
	default:
		r.Log.WithFields(fields).WithError(err).Warn("query pipeline aborted")
	}
	return out, err
}
