package wait

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lelanhus/ptybox/internal/model"
)

type fakeObserver struct {
	calls     int64
	satisfyAt int64
	exited    bool
}

func (f *fakeObserver) Observe(ctx context.Context, deadline time.Time) (*model.Observation, error) {
	n := atomic.AddInt64(&f.calls, 1)
	line := ""
	if n >= f.satisfyAt {
		line = "ready"
	}
	return &model.Observation{Screen: &model.ScreenSnapshot{Lines: []string{line}}}, nil
}

func (f *fakeObserver) Exited() (*model.ExitStatus, bool) {
	if f.exited {
		return &model.ExitStatus{Success: true}, true
	}
	return nil, false
}

func TestFor_SatisfiesEventually(t *testing.T) {
	obs := &fakeObserver{satisfyAt: 3}
	got, err := For(context.Background(), obs, model.Condition{Kind: model.ConditionScreenContains, ScreenContains: "ready"}, time.Now().Add(2*time.Second), 0)
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if got.Screen.Lines[0] != "ready" {
		t.Errorf("Lines[0] = %q, want %q", got.Screen.Lines[0], "ready")
	}
}

func TestFor_Timeout(t *testing.T) {
	obs := &fakeObserver{satisfyAt: 1 << 30}
	_, err := For(context.Background(), obs, model.Condition{Kind: model.ConditionScreenContains, ScreenContains: "never"}, time.Now().Add(50*time.Millisecond), 0)
	if err == nil {
		t.Fatal("For() error = nil, want timeout")
	}
}

func TestFor_ProcessExited(t *testing.T) {
	obs := &fakeObserver{exited: true}
	_, err := For(context.Background(), obs, model.Condition{Kind: model.ConditionProcessExited}, time.Now().Add(time.Second), 0)
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
}

func TestEvaluate_CursorAt(t *testing.T) {
	obs := &model.Observation{Screen: &model.ScreenSnapshot{Cursor: model.Cursor{Row: 3, Col: 5}}}
	if !Evaluate(model.Condition{Kind: model.ConditionCursorAt, CursorAtRow: 3, CursorAtCol: 5}, obs) {
		t.Error("expected cursor_at to match")
	}
}
