package runner

import (
	"context"
	"testing"
	"time"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
)

type fakeSession struct {
	sent       []model.Action
	screenText string
	sendErr    error
}

func (f *fakeSession) Send(a model.Action) error {
	f.sent = append(f.sent, a)
	return f.sendErr
}

func (f *fakeSession) Observe(ctx context.Context, deadline time.Time) (*model.Observation, error) {
	return &model.Observation{Screen: &model.ScreenSnapshot{Lines: []string{f.screenText}}}, nil
}

func (f *fakeSession) Exited() (*model.ExitStatus, bool) { return nil, false }

func (f *fakeSession) TerminateProcessGroup(grace time.Duration) error { return nil }

func TestRun_AllStepsSatisfied(t *testing.T) {
	sess := &fakeSession{screenText: "ready"}
	r := New(sess, policy.Budgets{}, clockwork.NewFake(time.Unix(0, 0)))

	scenario := model.Scenario{Steps: []model.Step{
		{
			ID:        "step-1",
			Action:    model.Action{Kind: model.ActionText, Text: "go\n"},
			Assertions: []model.Assertion{{Kind: model.AssertScreenContains, Text: "ready"}},
			TimeoutMS: 1000,
		},
	}}

	status, results := r.Run(context.Background(), scenario)
	if status != model.RunPassed {
		t.Fatalf("status = %q, want %q", status, model.RunPassed)
	}
	if len(results) != 1 || results[0].Status != model.StepSatisfied {
		t.Fatalf("results = %+v", results)
	}
	if len(sess.sent) != 1 {
		t.Errorf("action sent %d times, want exactly 1 (actions are not idempotent)", len(sess.sent))
	}
}

func TestRun_FailedAssertionHaltsScenario(t *testing.T) {
	sess := &fakeSession{screenText: "unexpected"}
	r := New(sess, policy.Budgets{}, clockwork.NewFake(time.Unix(0, 0)))

	scenario := model.Scenario{Steps: []model.Step{
		{ID: "a", Action: model.Action{Kind: model.ActionText, Text: "x"}, Assertions: []model.Assertion{{Kind: model.AssertScreenContains, Text: "ready"}}, TimeoutMS: 50},
		{ID: "b", Action: model.Action{Kind: model.ActionText, Text: "y"}, Assertions: []model.Assertion{{Kind: model.AssertScreenContains, Text: "ready"}}, TimeoutMS: 50},
	}}

	status, results := r.Run(context.Background(), scenario)
	if status != model.RunFailed {
		t.Fatalf("status = %q, want %q", status, model.RunFailed)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one step result (halt on failure), got %d", len(results))
	}
}

func TestRun_MaxStepsBudget(t *testing.T) {
	sess := &fakeSession{screenText: "ready"}
	r := New(sess, policy.Budgets{MaxSteps: 1}, clockwork.NewFake(time.Unix(0, 0)))

	scenario := model.Scenario{Steps: []model.Step{
		{ID: "a", Action: model.Action{Kind: model.ActionText, Text: "x"}, Assertions: []model.Assertion{{Kind: model.AssertScreenContains, Text: "ready"}}, TimeoutMS: 50},
		{ID: "b", Action: model.Action{Kind: model.ActionText, Text: "y"}, Assertions: []model.Assertion{{Kind: model.AssertScreenContains, Text: "ready"}}, TimeoutMS: 50},
	}}

	status, results := r.Run(context.Background(), scenario)
	if status != model.RunErrored {
		t.Fatalf("status = %q, want %q", status, model.RunErrored)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results (1 run + 1 budget-exceeded), got %d", len(results))
	}
}
