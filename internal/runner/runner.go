// Package runner implements the scenario runner (spec §4.7): ordered step
// execution with a per-step timeout/retry loop and aggregate budget
// accounting. The failure policy and status mapping are spec §4.7's,
// unchanged from the distilled design.
package runner

import (
	"context"
	"time"

	"github.com/lelanhus/ptybox/internal/assertion"
	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
	"github.com/lelanhus/ptybox/internal/wait"
)

// Session is the subset of ptysession.Session the runner needs. Kept as an
// interface so tests can substitute a fake PTY session.
type Session interface {
	Send(model.Action) error
	Observe(ctx context.Context, deadline time.Time) (*model.Observation, error)
	Exited() (*model.ExitStatus, bool)
	TerminateProcessGroup(grace time.Duration) error
}

// Runner executes one Scenario against one Session.
type Runner struct {
	session Session
	budgets policy.Budgets
	clock   clockwork.Clock
}

// New constructs a Runner bound to a session and the policy's budgets.
func New(session Session, budgets policy.Budgets, clock clockwork.Clock) *Runner {
	return &Runner{session: session, budgets: budgets, clock: clock}
}

// Run executes every step of scenario in order, stopping at the first failed
// or errored step (spec §4.7's failure policy), and returns per-step results
// plus the overall run status.
func (r *Runner) Run(ctx context.Context, scenario model.Scenario) (model.RunStatus, []model.StepResult) {
	anchor := clockwork.NewAnchored(r.clock)
	var results []model.StepResult
	var stepCount int64

	for _, step := range scenario.Steps {
		if r.budgets.MaxSteps > 0 && stepCount >= r.budgets.MaxSteps {
			results = append(results, r.budgetExceededResult(step, anchor, "max_steps"))
			return model.RunErrored, results
		}
		if r.budgets.MaxRuntimeMS > 0 && anchor.ElapsedMS() >= r.budgets.MaxRuntimeMS {
			results = append(results, r.budgetExceededResult(step, anchor, "max_runtime_ms"))
			return model.RunErrored, results
		}
		stepCount++

		res := r.runStep(ctx, step, anchor)
		results = append(results, res)

		switch res.Status {
		case model.StepSatisfied:
			continue
		case model.StepFailed:
			return model.RunFailed, results
		default:
			return model.RunErrored, results
		}
	}
	return model.RunPassed, results
}

func (r *Runner) budgetExceededResult(step model.Step, anchor *clockwork.Anchored, budget string) model.StepResult {
	return model.StepResult{
		StepID:      step.ID,
		Status:      model.StepErrored,
		StartedAtMS: anchor.ElapsedMS(),
		EndedAtMS:   anchor.ElapsedMS(),
		Error: map[string]any{
			"kind":   string(harnesserr.KindTimeout),
			"budget": budget,
		},
	}
}

func (r *Runner) runStep(ctx context.Context, step model.Step, anchor *clockwork.Anchored) model.StepResult {
	startedMS := anchor.ElapsedMS()
	deadline := time.Now().Add(time.Duration(step.TimeoutMS) * time.Millisecond)

	res := model.StepResult{StepID: step.ID, Status: model.StepRunning, StartedAtMS: startedMS}

	// Actions are not idempotent: send exactly once, then retry by
	// re-observing and re-evaluating assertions only (spec §4.7).
	if step.Action.Kind != model.ActionWait {
		if err := r.session.Send(step.Action); err != nil {
			return r.errored(res, anchor, err)
		}
	} else {
		obs, err := wait.For(ctx, r.session, step.Action.Condition, deadline, r.budgets.MaxWaitMS)
		if err != nil {
			return r.errored(res, anchor, err)
		}
		var exit *model.ExitStatus
		if e, exited := r.session.Exited(); exited {
			exit = e
		}
		return r.finish(res, anchor, evaluateAll(step.Assertions, obs, exit), 1)
	}

	attempts := 0
	for {
		attempts++
		obs, err := r.session.Observe(ctx, nearestDeadline(deadline))
		if err != nil {
			var herr *harnesserr.Error
			if !(harnesserr.As(err, &herr) && herr.Kind == harnesserr.KindTimeout) {
				return r.errored(res, anchor, err)
			}
		}

		var exit *model.ExitStatus
		if e, exited := r.session.Exited(); exited {
			exit = e
		}

		var outcomes []model.AssertionOutcome
		if obs != nil {
			outcomes = evaluateAll(step.Assertions, obs, exit)
		}
		allPassed := obs != nil && allOK(outcomes)

		if allPassed || attempts > step.Retries || !time.Now().Before(deadline) {
			return r.finish(res, anchor, outcomes, attempts)
		}

		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return r.errored(res, anchor, harnesserr.New(harnesserr.KindTimeout, "step canceled", nil))
		}
	}
}

func nearestDeadline(d time.Time) time.Time {
	ceiling := time.Now().Add(200 * time.Millisecond)
	if ceiling.Before(d) {
		return ceiling
	}
	return d
}

func evaluateAll(assertions []model.Assertion, obs *model.Observation, exit *model.ExitStatus) []model.AssertionOutcome {
	outcomes := make([]model.AssertionOutcome, 0, len(assertions))
	for _, a := range assertions {
		outcomes = append(outcomes, assertion.Evaluate(a, obs.Screen, obs.TranscriptDelta, exit))
	}
	return outcomes
}

func allOK(outcomes []model.AssertionOutcome) bool {
	for _, o := range outcomes {
		if !o.Passed {
			return false
		}
	}
	return true
}

func (r *Runner) finish(res model.StepResult, anchor *clockwork.Anchored, outcomes []model.AssertionOutcome, attempts int) model.StepResult {
	res.EndedAtMS = anchor.ElapsedMS()
	res.Attempts = attempts
	res.Assertions = outcomes
	if allOK(outcomes) {
		res.Status = model.StepSatisfied
	} else {
		res.Status = model.StepFailed
	}
	return res
}

func (r *Runner) errored(res model.StepResult, anchor *clockwork.Anchored, err error) model.StepResult {
	res.EndedAtMS = anchor.ElapsedMS()
	res.Status = model.StepErrored
	var herr *harnesserr.Error
	if harnesserr.As(err, &herr) {
		res.Error = map[string]any{"kind": string(herr.Kind), "message": herr.Message, "context": herr.Context}
	} else {
		res.Error = map[string]any{"kind": "Internal", "message": err.Error()}
	}
	return res
}
