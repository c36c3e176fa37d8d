package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
)

type fakeSession struct{ failSend bool }

func (f *fakeSession) Send(a model.Action) error {
	if f.failSend {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeSession) Observe(ctx context.Context, deadline time.Time) (*model.Observation, error) {
	return &model.Observation{Screen: &model.ScreenSnapshot{Lines: []string{"ok"}}}, nil
}

func (f *fakeSession) Exited() (*model.ExitStatus, bool) {
	return nil, false
}

func TestLoop_OneResponsePerRequest(t *testing.T) {
	loop := New(&fakeSession{}, clockwork.NewFake(time.Unix(0, 0)), policy.Budgets{})
	input := strings.NewReader(
		`{"protocol_version":1,"request_id":"r1","action":{"kind":"text","text":"hi"}}` + "\n" +
			`{"protocol_version":1,"request_id":"r2","action":{"kind":"text","text":"there"}}` + "\n",
	)
	var out bytes.Buffer
	if err := loop.Run(context.Background(), input, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d response lines, want 2", len(lines))
	}
	var r1, r2 Response
	if err := json.Unmarshal([]byte(lines[0]), &r1); err != nil {
		t.Fatalf("unmarshal r1: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &r2); err != nil {
		t.Fatalf("unmarshal r2: %v", err)
	}
	if r1.RequestID != "r1" || r2.RequestID != "r2" {
		t.Errorf("request_id echo failed: %q, %q", r1.RequestID, r2.RequestID)
	}
	if r1.ActionMetrics.Sequence >= r2.ActionMetrics.Sequence {
		t.Errorf("sequence not monotonic: %d, %d", r1.ActionMetrics.Sequence, r2.ActionMetrics.Sequence)
	}
	if r1.Status != StatusOK || r2.Status != StatusOK {
		t.Errorf("expected ok status, got %q, %q", r1.Status, r2.Status)
	}
}

func TestLoop_MalformedRecordContinues(t *testing.T) {
	loop := New(&fakeSession{}, clockwork.NewFake(time.Unix(0, 0)), policy.Budgets{})
	input := strings.NewReader(
		`not json` + "\n" +
			`{"protocol_version":1,"request_id":"r2","action":{"kind":"text","text":"x"}}` + "\n",
	)
	var out bytes.Buffer
	if err := loop.Run(context.Background(), input, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d response lines, want 2", len(lines))
	}
	var r1 Response
	json.Unmarshal([]byte(lines[0]), &r1)
	if r1.Status != StatusError {
		t.Errorf("expected error status for malformed record, got %q", r1.Status)
	}
}

func TestLoop_ProtocolVersionMismatch(t *testing.T) {
	loop := New(&fakeSession{}, clockwork.NewFake(time.Unix(0, 0)), policy.Budgets{})
	input := strings.NewReader(`{"protocol_version":99,"request_id":"r1","action":{"kind":"text","text":"x"}}` + "\n")
	var out bytes.Buffer
	if err := loop.Run(context.Background(), input, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var r Response
	json.Unmarshal(out.Bytes(), &r)
	if r.Status != StatusError {
		t.Fatalf("expected error status, got %q", r.Status)
	}
	ctx, ok := r.Error["context"].(map[string]any)
	if !ok {
		t.Fatalf("expected error context, got %+v", r.Error)
	}
	if _, ok := ctx["supported_version"]; !ok {
		t.Errorf("expected supported_version in context, got %+v", ctx)
	}
}
