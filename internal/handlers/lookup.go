package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/sagoresarker/irr-prefix-lookup/internal/irr"
	"github.com/sagoresarker/irr-prefix-lookup/internal/metrics"
	"github.com/sagoresarker/irr-prefix-lookup/internal/models"
	"github.com/sagoresarker/irr-prefix-lookup/internal/query"
)

// DefaultASN is looked up when the request carries no asn parameter.
const DefaultASN = "AS400427"

// Client-visible failure messages. Command text and stderr never appear here.
const (
	msgExecFailed   = "Error executing backend BGP query script (code: %d). See server logs."
	msgTimeout      = "BGP query script execution timed out after %d seconds."
	msgUndecodable  = "Failed to parse JSON output from BGP query script."
	msgLaunchFailed = "Failed to execute shell command. Server configuration error."
	msgUnexpected   = "An unexpected error occurred during script execution. See server logs."
	msgAborted      = "Lookup aborted before the query could run."
)

type LookupOptions struct {
	Validator  *irr.Validator
	Runner     query.Runner
	Metrics    *metrics.Metrics
	Log        logrus.FieldLogger
	DefaultASN string
	// Timeout is the runner's budget, quoted back in timeout responses.
	Timeout time.Duration
	// MaxConcurrent caps simultaneous query executions; 0 means no cap.
	MaxConcurrent int64
}

type LookupHandler struct {
	validator  *irr.Validator
	runner     query.Runner
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
	defaultASN string
	timeout    time.Duration
	sem        *semaphore.Weighted
}

func NewLookupHandler(opts LookupOptions) *LookupHandler {
	h := &LookupHandler{
		validator:  opts.Validator,
		runner:     opts.Runner,
		metrics:    opts.Metrics,
		log:        opts.Log,
		defaultASN: opts.DefaultASN,
		timeout:    opts.Timeout,
	}
	if h.validator == nil {
		h.validator = irr.Default()
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	if h.defaultASN == "" {
		h.defaultASN = DefaultASN
	}
	if h.timeout <= 0 {
		h.timeout = query.DefaultTimeout
	}
	if opts.MaxConcurrent > 0 {
		h.sem = semaphore.NewWeighted(opts.MaxConcurrent)
	}
	return h
}

func (h *LookupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	status := h.lookup(w, r)
	if h.metrics != nil {
		h.metrics.ObserveRequest(status, time.Since(start))
	}
}

// lookup runs validation, execution and decoding, writes the response and
// returns its status code.
func (h *LookupHandler) lookup(w http.ResponseWriter, r *http.Request) int {
	params := r.URL.Query()
	log := h.log.WithField("request_id", RequestIDFromContext(r.Context()))

	asnInput := h.defaultASN
	if params.Has("asn") {
		asnInput = params.Get("asn")
	}
	asn, err := h.validator.ASN(asnInput)
	if err != nil {
		return writeError(w, r, http.StatusBadRequest, err.Error())
	}
	key := asn.String()

	sources := h.validator.AllowedSources()
	if params.Has("irr") {
		sources, err = h.validator.Sources(irr.SplitSources(params.Get("irr")))
		if err != nil {
			return writeError(w, r, http.StatusBadRequest, err.Error())
		}
	}

	if len(sources) == 0 {
		return writeJSON(w, r, http.StatusOK, models.NewLookupResult(key, nil))
	}

	plan, err := query.NewPlan(asn, sources)
	if err != nil {
		log.WithError(err).Error("failed to build query plan")
		return writeError(w, r, http.StatusInternalServerError, msgUnexpected)
	}
	log = log.WithFields(logrus.Fields{"asn": key, "sources": sources, "mode": h.runner.Mode()})

	out, err := h.execute(r.Context(), plan)
	if err != nil {
		status, detail := h.describe(err)
		log.WithError(err).WithField("status", status).Warn("lookup failed")
		return writeError(w, r, status, detail)
	}

	result, err := query.Decode(out.Stdout, key)
	if err != nil {
		log.WithError(err).WithField("stdout", out.Stdout).Error("failed to decode query output")
		return writeError(w, r, http.StatusInternalServerError, msgUndecodable)
	}

	log.WithFields(logrus.Fields{"records": len(result[key]), "duration": out.Duration}).Info("lookup finished")
	return writeJSON(w, r, http.StatusOK, result)
}

// errAborted marks a request that went away while waiting for a free slot.
var errAborted = errors.New("lookup aborted while waiting for an execution slot")

func (h *LookupHandler) execute(ctx context.Context, plan *query.Plan) (*query.Outcome, error) {
	if h.sem != nil {
		if err := h.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("%w: %v", errAborted, err)
		}
		defer h.sem.Release(1)
	}

	if h.metrics != nil {
		defer h.metrics.TrackInflight()()
	}

	start := time.Now()
	out, err := h.runner.Run(ctx, plan)
	if h.metrics != nil {
		h.metrics.ObserveExecution(h.runner.Mode(), outcomeLabel(err), time.Since(start))
	}
	return out, err
}

// describe maps an execution failure to a status code and client message.
func (h *LookupHandler) describe(err error) (int, string) {
	var exitErr *query.ExitError
	var launchErr *query.LaunchError

	switch {
	case errors.As(err, &exitErr):
		return http.StatusBadGateway, fmt.Sprintf(msgExecFailed, exitErr.Code)
	case errors.Is(err, query.ErrTimeout):
		return http.StatusGatewayTimeout, fmt.Sprintf(msgTimeout, int(h.timeout.Seconds()))
	case errors.Is(err, query.ErrUndecodable):
		return http.StatusInternalServerError, msgUndecodable
	case errors.As(err, &launchErr):
		return http.StatusInternalServerError, msgLaunchFailed
	case errors.Is(err, errAborted):
		return http.StatusServiceUnavailable, msgAborted
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}

func outcomeLabel(err error) string {
	var exitErr *query.ExitError
	var launchErr *query.LaunchError

	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &exitErr):
		return "exit_error"
	case errors.Is(err, query.ErrTimeout):
		return "timeout"
	case errors.As(err, &launchErr):
		return "launch_error"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) int {
	render.Status(r, status)
	render.JSON(w, r, v)
	return status
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) int {
	return writeJSON(w, r, status, models.ErrorResponse{Detail: detail})
}
