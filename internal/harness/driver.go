package harness

import (
	"context"
	"io"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/driver"
	"github.com/lelanhus/ptybox/internal/ids"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
)

// RunDriver spawns target under eff and runs the NDJSON request/response
// loop (spec §4.8) against it until r reaches EOF, recording every
// observation into rec. This is the "driver" operation of spec §6.
func RunDriver(ctx context.Context, eff policy.EffectivePolicy, target Target, rec *Recorder, clock clockwork.Clock, r io.Reader, w io.Writer) (model.RunResult, error) {
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
		return errResult(result, anchor, err), err
	}
	defer sess.Close()

	rs := &recordingSession{sess: sess, rec: rec}
	loop := driver.New(rs, clock, eff.Budgets)
	loopErr := loop.Run(ctx, r, w)

	result.EndedAtMS = anchor.ElapsedMS()
	if exit, exited := sess.Exited(); exited {
		result.ExitStatus = exit
	}
	if loopErr != nil {
		return errResult(result, anchor, loopErr), loopErr
	}
	result.Status = model.RunPassed
	return result, nil
}

// DefaultDriverPolicy builds the deny-by-default policy spec §4.8 requires
// when a driver session starts with no explicit policy document.
func DefaultDriverPolicy(command, workingDir string) policy.Policy {
	return policy.DefaultPolicy(command, workingDir)
}
