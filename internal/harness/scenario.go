package harness

import (
	"context"
	"time"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/ids"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
	"github.com/lelanhus/ptybox/internal/ptysession"
	"github.com/lelanhus/ptybox/internal/runner"
)

// recordingSession wraps a *ptysession.Session so every Observe result is
// also fed to a Recorder, without the runner needing to know artifacts
// exist.
type recordingSession struct {
	sess *ptysession.Session
	rec  *Recorder
}

func (r *recordingSession) Send(a model.Action) error { return r.sess.Send(a) }

func (r *recordingSession) Observe(ctx context.Context, deadline time.Time) (*model.Observation, error) {
	obs, err := r.sess.Observe(ctx, deadline)
	if err == nil {
		r.rec.Observation(obs)
	}
	return obs, err
}

func (r *recordingSession) Exited() (*model.ExitStatus, bool) { return r.sess.Exited() }

func (r *recordingSession) TerminateProcessGroup(grace time.Duration) error {
	return r.sess.TerminateProcessGroup(grace)
}

// RunScenario spawns the scenario's target command and runs every step
// through internal/runner, recording each observation into rec. This is the
// "run" operation of spec §6.
func RunScenario(ctx context.Context, eff policy.EffectivePolicy, scenario model.Scenario, rec *Recorder, clock clockwork.Clock) (model.RunResult, error) {
	if clock == nil {
		clock = clockwork.System{}
	}
	runID := ids.Run()
	anchor := clockwork.NewAnchored(clock)

	result := model.RunResult{
		RunResultVersion: model.RunResultVersion,
		ProtocolVersion:  model.ProtocolVersion,
		RunID:            runID,
		Command:          scenario.RunConfig.Command,
		Args:             scenario.RunConfig.Args,
		CWD:              eff.FS.WorkingDir,
		Policy:           eff.Policy,
		Scenario:         &scenario,
		StartedAtMS:      anchor.ElapsedMS(),
	}

	target := Target{Command: scenario.RunConfig.Command, Args: scenario.RunConfig.Args, InitialSize: scenario.RunConfig.InitialSize}
	sess, _, err := OpenSession(eff, target, runID, anchor)
	if err != nil {
		return errResult(result, anchor, err), err
	}
	defer sess.Close()

	rs := &recordingSession{sess: sess, rec: rec}
	run := runner.New(rs, eff.Budgets, clock)
	status, steps := run.Run(ctx, scenario)

	result.Status = status
	result.Steps = steps
	result.EndedAtMS = anchor.ElapsedMS()
	if exit, exited := sess.Exited(); exited {
		result.ExitStatus = exit
	}

	switch status {
	case model.RunPassed:
		return result, nil
	case model.RunFailed:
		return result, harnesserr.New(harnesserr.KindAssertionFailed, "a step's assertions did not pass", nil)
	default:
		return result, lastStepError(steps)
	}
}

// lastStepError reconstructs a representative *harnesserr.Error from the
// last step's recorded error map, for the CLI's exit-code mapping.
func lastStepError(steps []model.StepResult) error {
	if len(steps) == 0 {
		return harnesserr.New(harnesserr.KindInternal, "run errored with no step results", nil)
	}
	last := steps[len(steps)-1]
	kind := harnesserr.KindInternal
	if k, ok := last.Error["kind"].(string); ok {
		kind = harnesserr.Kind(k)
	}
	message, _ := last.Error["message"].(string)
	if message == "" {
		message = "step errored"
	}
	ctx, _ := last.Error["context"].(map[string]any)
	return harnesserr.New(kind, message, ctx)
}
