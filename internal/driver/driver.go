// Package driver implements the request/response driver loop (spec §4.8):
// one NDJSON request in, exactly one NDJSON response out, correlated by
// request_id, with a strictly monotonic response sequence number.
package driver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
	"github.com/lelanhus/ptybox/internal/wait"
)

// Request is one input record (spec §4.8).
type Request struct {
	ProtocolVersion int          `json:"protocol_version"`
	RequestID       string       `json:"request_id"`
	Action          model.Action `json:"action"`
	TimeoutMS       *int64       `json:"timeout_ms,omitempty"`
}

// Status is the driver response's outcome discriminant.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// ActionMetrics reports per-response bookkeeping (spec §4.8).
type ActionMetrics struct {
	Sequence   int64 `json:"sequence"`
	DurationMS int64 `json:"duration_ms"`
}

// Response is one output record (spec §4.8).
type Response struct {
	ProtocolVersion int                 `json:"protocol_version"`
	RequestID       string              `json:"request_id"`
	Status          Status              `json:"status"`
	Observation     *model.Observation  `json:"observation,omitempty"`
	Error           map[string]any      `json:"error,omitempty"`
	ActionMetrics   ActionMetrics       `json:"action_metrics"`
}

// Session is the subset of ptysession.Session the driver loop needs.
type Session interface {
	Send(model.Action) error
	Observe(ctx context.Context, deadline time.Time) (*model.Observation, error)
	Exited() (*model.ExitStatus, bool)
}

const defaultTimeoutMS = 5000

// Loop reads newline-delimited Requests from r, dispatches each action to
// session, and writes one newline-delimited Response per input to w.
// Malformed input produces a Protocol error response and the loop continues
// with the next record (spec §4.8); it never aborts on a single bad line.
type Loop struct {
	session Session
	clock   clockwork.Clock
	budgets policy.Budgets
	seq     int64
}

// New constructs a Loop bound to session, enforcing budgets.MaxWaitMS against
// any wait action it dispatches (spec §5).
func New(session Session, clock clockwork.Clock, budgets policy.Budgets) *Loop {
	if clock == nil {
		clock = clockwork.System{}
	}
	return &Loop{session: session, clock: clock, budgets: budgets}
}

// Run processes records from r until EOF or ctx is canceled.
func (l *Loop) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := l.handle(ctx, line)
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (l *Loop) handle(ctx context.Context, line []byte) Response {
	start := l.clock.Now()
	l.seq++
	metrics := ActionMetrics{Sequence: l.seq}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		metrics.DurationMS = l.clock.Now().Sub(start).Milliseconds()
		return errorResponse("", metrics, harnesserr.New(harnesserr.KindProtocol, "malformed request record", map[string]any{
			"error": err.Error(),
		}))
	}

	if req.ProtocolVersion != model.ProtocolVersion {
		metrics.DurationMS = l.clock.Now().Sub(start).Milliseconds()
		return errorResponse(req.RequestID, metrics, harnesserr.New(harnesserr.KindProtocolVersion, "unsupported protocol version", map[string]any{
			"supported_version": model.ProtocolVersion,
			"provided_version":  req.ProtocolVersion,
		}))
	}

	timeoutMS := int64(defaultTimeoutMS)
	if req.TimeoutMS != nil {
		timeoutMS = *req.TimeoutMS
	}
	deadline := start.Add(time.Duration(timeoutMS) * time.Millisecond)

	var obs *model.Observation
	var err error
	if req.Action.Kind == model.ActionWait {
		obs, err = wait.For(ctx, l.session, req.Action.Condition, deadline, l.budgets.MaxWaitMS)
	} else {
		if err = l.session.Send(req.Action); err == nil {
			obs, err = l.session.Observe(ctx, deadline)
		}
	}
	metrics.DurationMS = l.clock.Now().Sub(start).Milliseconds()
	if err != nil {
		return errorResponse(req.RequestID, metrics, err)
	}

	return Response{
		ProtocolVersion: model.ProtocolVersion,
		RequestID:       req.RequestID,
		Status:          StatusOK,
		Observation:     obs,
		ActionMetrics:   metrics,
	}
}

func errorResponse(requestID string, metrics ActionMetrics, err error) Response {
	var herr *harnesserr.Error
	errCtx := map[string]any{"kind": "Internal", "message": err.Error()}
	if harnesserr.As(err, &herr) {
		errCtx = map[string]any{"kind": string(herr.Kind), "code": herr.Code(), "message": herr.Message}
		if len(herr.Context) > 0 {
			errCtx["context"] = herr.Context
		}
	}
	return Response{
		ProtocolVersion: model.ProtocolVersion,
		RequestID:       requestID,
		Status:          StatusError,
		Error:           errCtx,
		ActionMetrics:   metrics,
	}
}
