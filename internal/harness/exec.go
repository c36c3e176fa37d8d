package harness

import (
	"context"
	"time"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/ids"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
)

// RunExec runs a single command to completion (no Scenario): spawn, observe
// until the process exits or a budget is exhausted, then assemble a
// RunResult. This is the "exec" operation of spec §6.
func RunExec(ctx context.Context, eff policy.EffectivePolicy, target Target, rec *Recorder, clock clockwork.Clock) (model.RunResult, error) {
	if clock == nil {
		clock = clockwork.System{}
	}
	runID := ids.Run()
	anchor := clockwork.NewAnchored(clock)

	result := model.RunResult{
		RunResultVersion: model.RunResultVersion,
		ProtocolVersion:  model.ProtocolVersion,
		RunID:            runID,
		Command:          target.Command,
		Args:             target.Args,
		CWD:              eff.FS.WorkingDir,
		Policy:           eff.Policy,
		StartedAtMS:      anchor.ElapsedMS(),
	}

	sess, _, err := OpenSession(eff, target, runID, anchor)
	if err != nil {
		r := errResult(result, anchor, err)
		return r, err
	}
	defer sess.Close()

	maxRuntime := time.Duration(eff.Budgets.MaxRuntimeMS) * time.Millisecond
	if maxRuntime <= 0 {
		maxRuntime = 24 * time.Hour
	}
	overallDeadline := time.Now().Add(maxRuntime)

	var final *model.Observation
	for {
		sampleDeadline := time.Now().Add(200 * time.Millisecond)
		if overallDeadline.Before(sampleDeadline) {
			sampleDeadline = overallDeadline
		}
		obs, obsErr := sess.Observe(ctx, sampleDeadline)
		if obsErr != nil {
			var herr *harnesserr.Error
			if !(harnesserr.As(obsErr, &herr) && herr.Kind == harnesserr.KindTimeout) {
				r := errResult(result, anchor, obsErr)
				return r, obsErr
			}
		} else {
			final = obs
			if err := rec.Observation(obs); err != nil {
				r := errResult(result, anchor, err)
				return r, err
			}
		}

		if _, exited := sess.Exited(); exited {
			break
		}
		if !time.Now().Before(overallDeadline) {
			budgetErr := harnesserr.New(harnesserr.KindTimeout, "exec exceeded max_runtime_ms", map[string]any{"budget": "max_runtime_ms"})
			return errResult(result, anchor, budgetErr), budgetErr
		}
		if ctx.Err() != nil {
			cancelErr := harnesserr.New(harnesserr.KindTimeout, "exec canceled", map[string]any{"budget": "context"})
			return errResult(result, anchor, cancelErr), cancelErr
		}
	}

	exit, _ := sess.Exited()
	result.FinalObservation = final
	result.ExitStatus = exit
	result.EndedAtMS = anchor.ElapsedMS()
	if exit != nil && exit.Success {
		result.Status = model.RunPassed
		return result, nil
	}

	result.Status = model.RunFailed
	var code int
	if exit != nil && exit.ExitCode != nil {
		code = *exit.ExitCode
	}
	exitErr := harnesserr.New(harnesserr.KindProcessExited, "process exited non-zero", map[string]any{"exit_code": code})
	result.Error = map[string]any{"kind": string(exitErr.Kind), "code": exitErr.Code(), "message": exitErr.Message, "context": exitErr.Context}
	return result, exitErr
}

func errResult(result model.RunResult, anchor *clockwork.Anchored, err error) model.RunResult {
	result.EndedAtMS = anchor.ElapsedMS()
	result.Status = model.RunErrored
	var herr *harnesserr.Error
	if harnesserr.As(err, &herr) {
		result.Error = map[string]any{"kind": string(herr.Kind), "code": herr.Code(), "message": herr.Message, "context": herr.Context}
	} else {
		result.Error = map[string]any{"kind": "Internal", "message": err.Error()}
	}
	return result
}
