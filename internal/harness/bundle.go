package harness

import (
	"strings"

	"github.com/lelanhus/ptybox/internal/artifacts"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
	"github.com/lelanhus/ptybox/internal/replay"
)

// Recorder accumulates a run's transcript and per-observation snapshots into
// an artifacts.Writer as they happen, then closes the bundle with the
// summary files (spec §4.9). A nil Recorder is a valid no-op, so callers
// don't need to branch on whether artifacts are enabled.
type Recorder struct {
	w          *artifacts.Writer
	transcript strings.Builder
	snapshots  []*model.ScreenSnapshot
}

// NewRecorder wraps w. Passing a nil w yields a Recorder that still keeps
// the transcript and snapshots in memory but writes nothing to disk; its
// Finalize is then a no-op.
func NewRecorder(w *artifacts.Writer) *Recorder {
	return &Recorder{w: w}
}

// Observation records one Observation's transcript delta, snapshot, and
// events into the bundle.
func (r *Recorder) Observation(obs *model.Observation) error {
	if r == nil || obs == nil {
		return nil
	}
	r.transcript.WriteString(obs.TranscriptDelta)
	if obs.Screen != nil {
		r.snapshots = append(r.snapshots, obs.Screen)
	}
	if r.w == nil {
		return nil
	}
	if obs.Screen != nil {
		if err := r.w.WriteJSON(r.w.NextSnapshotPath(), obs.Screen); err != nil {
			return err
		}
	}
	return r.w.AppendEvent(obs)
}

// Snapshots returns every ScreenSnapshot recorded so far, in capture order.
func (r *Recorder) Snapshots() []*model.ScreenSnapshot {
	if r == nil {
		return nil
	}
	return r.snapshots
}

// Finalize writes policy.json, scenario.json (if scenario is non-nil),
// normalization.json, transcript.log, run.json, and closes the bundle with
// checksums.json. resolved is the normalization configuration that applies
// to this bundle if it is later used as a replay baseline (spec §4.9,
// §4.10) — every bundle carries one, not just ones produced by a replay run,
// since replay.Resolve's default/closed-set filters apply conceptually even
// when no replay has happened yet.
func (r *Recorder) Finalize(result model.RunResult, pol policy.Policy, scenario *model.Scenario, resolved replay.Resolved) error {
	if r == nil || r.w == nil {
		return nil
	}
	if err := r.w.WriteJSON("policy.json", pol); err != nil {
		return err
	}
	if scenario != nil {
		if err := r.w.WriteJSON("scenario.json", scenario); err != nil {
			return err
		}
	}
	if err := r.w.WriteJSON("normalization.json", resolved); err != nil {
		return err
	}
	if err := r.w.WriteBytes("transcript.log", []byte(r.transcript.String())); err != nil {
		return err
	}
	if err := r.w.WriteJSON("run.json", result); err != nil {
		return err
	}
	return r.w.Finalize()
}

// Transcript returns everything recorded so far.
func (r *Recorder) Transcript() string {
	if r == nil {
		return ""
	}
	return r.transcript.String()
}
