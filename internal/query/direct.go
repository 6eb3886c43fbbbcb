package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/sagoresarker/irr-prefix-lookup/internal/models"
)

// DirectRunner runs bgpq4 once per source without a shell and aggregates the
// results in memory. It reproduces the pipeline's per-source tolerance: a
// source that fails or returns nothing for the ASN is skipped.
type DirectRunner struct {
	Tools    Tools
	Timeout  time.Duration
	Log      logrus.FieldLogger
	Observer SourceObserver
}

// NewDirectRunner returns a DirectRunner. A non-positive timeout selects
// DefaultTimeout.
func NewDirectRunner(tools Tools, timeout time.Duration, log logrus.FieldLogger) *DirectRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DirectRunner{Tools: tools, Timeout: timeout, Log: log}
}

func (r *DirectRunner) Mode() string {
	return "direct"
}

func (r *DirectRunner) Run(parent context.Context, plan *Plan) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(parent, r.Timeout)
	defer cancel()

	start := time.Now()
	key := plan.Key()
	log := r.Log.WithField("asn", key)

	records := []models.PrefixRecord{}
	var failures error
	var lastExit *ExitError
	succeeded := 0

	for _, q := range plan.Queries {
		args := q.Args(r.Tools.Host)
		out, err := runProcess(ctx, false, r.Tools.BGPQ4, args...)
		if err != nil {
			err = classify(parent, err)
			command := r.Tools.BGPQ4 + " " + strings.Join(args, " ")

			var exitErr *ExitError
			switch {
			case errors.Is(err, ErrTimeout):
				log.WithFields(logrus.Fields{"source": q.Source, "command": command, "timeout": r.Timeout}).
					Error("query timed out")
				return r.outcome(start, ""), err
			case ctx.Err() != nil:
				log.WithField("source", q.Source).WithError(err).Warn("query aborted")
				return r.outcome(start, ""), err
			case errors.As(err, new(*LaunchError)):
				log.WithFields(logrus.Fields{"source": q.Source, "command": command}).WithError(err).
					Error("query tool could not be started")
				return r.outcome(start, ""), err
			case errors.As(err, &exitErr):
				lastExit = exitErr
			}

			log.WithFields(logrus.Fields{"source": q.Source, "command": command, "exit_code": out.ExitCode}).
				Debug("source query failed")
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", q.Source, err))
			r.observe(q.Source, SourceFailed)
			continue
		}
		succeeded++

		found, ok, err := extractRecords(out.Stdout, key, q.Source)
		switch {
		case err != nil:
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", q.Source, err))
			r.observe(q.Source, SourceUndecodable)
		case !ok:
			r.observe(q.Source, SourceEmpty)
		default:
			records = append(records, found...)
			r.observe(q.Source, SourceOK)
		}
	}

	if failures != nil {
		log.WithFields(logrus.Fields{
			"failed":  len(multierr.Errors(failures)),
			"sources": len(plan.Queries),
		}).WithError(failures).Warn("some irr sources did not contribute")
	}

	if succeeded == 0 && lastExit != nil {
		log.WithFields(logrus.Fields{"exit_code": lastExit.Code, "sources": plan.Sources()}).
			Error("every irr source query failed")
		return r.outcome(start, ""), lastExit
	}

	body, err := json.Marshal(models.NewLookupResult(key, records))
	if err != nil {
		return r.outcome(start, ""), fmt.Errorf("encode aggregated records: %w", err)
	}
	return r.outcome(start, string(body)), nil
}

func (r *DirectRunner) outcome(start time.Time, stdout string) *Outcome {
	code := 0
	if stdout == "" {
		code = -1
	}
	return &Outcome{Stdout: stdout, ExitCode: code, Duration: time.Since(start)}
}

func (r *DirectRunner) observe(source, outcome string) {
	if r.Observer != nil {
		r.Observer.ObserveSource(source, outcome)
	}
}

// extractRecords pulls the route entries for key out of one bgpq4 document,
// stamping each with source. ok is false when the output is empty or the
// key is absent or null.
func extractRecords(stdout, key, source string) (records []models.PrefixRecord, ok bool, err error) {
	if strings.TrimSpace(stdout) == "" {
		return nil, false, nil
	}

	var doc map[string]json.RawMessage
	if err := decodeStrict(stdout, &doc); err != nil {
		return nil, false, err
	}

	raw, present := doc[key]
	if !present || isNull(raw) {
		return nil, false, nil
	}

	var entries []map[string]any
	if err := decodeStrict(string(raw), &entries); err != nil {
		return nil, false, err
	}

	records = make([]models.PrefixRecord, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			return nil, false, errors.New("route entry is not an object")
		}
		rec := models.PrefixRecord{}
		for k, v := range e {
			if strings.Contains(k, exactMarker) {
				continue
			}
			if s, isString := v.(string); isString && strings.Contains(s, exactMarker) {
				continue
			}
			rec[k] = v
		}
		rec["source"] = source
		records = append(records, rec)
	}
	return records, true, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
