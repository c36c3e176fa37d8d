package harness

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/lelanhus/ptybox/internal/artifacts"
	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/ids"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
	"github.com/lelanhus/ptybox/internal/replay"
)

// loadRecording reads a previously-written artifacts bundle (spec §4.9) back
// into a replay.Recording, plus the policy and scenario needed to
// re-execute it.
func loadRecording(dir string) (replay.Recording, policy.Policy, *model.Scenario, error) {
	var rec replay.Recording
	var pol policy.Policy

	runData, err := os.ReadFile(filepath.Join(dir, "run.json"))
	if err != nil {
		return rec, pol, nil, harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": "run.json"})
	}
	if err := json.Unmarshal(runData, &rec.RunResult); err != nil {
		return rec, pol, nil, harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": "run.json"})
	}

	polData, err := os.ReadFile(filepath.Join(dir, "policy.json"))
	if err != nil {
		return rec, pol, nil, harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": "policy.json"})
	}
	if err := json.Unmarshal(polData, &pol); err != nil {
		return rec, pol, nil, harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": "policy.json"})
	}

	var scenario *model.Scenario
	if scData, err := os.ReadFile(filepath.Join(dir, "scenario.json")); err == nil {
		scenario = &model.Scenario{}
		if err := json.Unmarshal(scData, scenario); err != nil {
			return rec, pol, nil, harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": "scenario.json"})
		}
	}

	if transcript, err := os.ReadFile(filepath.Join(dir, "transcript.log")); err == nil {
		rec.Transcript = string(transcript)
	}

	snapDir := filepath.Join(dir, "snapshots")
	entries, err := os.ReadDir(snapDir)
	if err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			data, err := os.ReadFile(filepath.Join(snapDir, name))
			if err != nil {
				return rec, pol, nil, harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": name})
			}
			var snap model.ScreenSnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return rec, pol, nil, harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": name})
			}
			rec.Snapshots = append(rec.Snapshots, &snap)
		}
	}

	return rec, pol, scenario, nil
}

// RunReplay re-executes the recording in baselineDir under its original
// policy, captures a fresh bundle into baselineDir/replay-<run_id>/, and
// compares the two per spec §4.10.
func RunReplay(ctx context.Context, baselineDir string, callerFilters []string, callerRules []policy.NormalizationRule, callerStrict *bool, host policy.HostInfo, clock clockwork.Clock) (replay.Report, error) {
	if clock == nil {
		clock = clockwork.System{}
	}

	baseline, pol, scenario, err := loadRecording(baselineDir)
	if err != nil {
		return replay.Report{}, err
	}

	eff, err := policy.NewValidator().Validate(pol, host)
	if err != nil {
		return replay.Report{}, err
	}

	runID := ids.Run()
	nestedDir := filepath.Join(baselineDir, "replay-"+runID)
	writer, err := artifacts.New(nestedDir, pol.Artifacts.Overwrite)
	if err != nil {
		return replay.Report{}, err
	}
	rec := NewRecorder(writer)

	// A failed assertion or non-zero exit in the re-run is not itself a
	// replay error — only a baseline/candidate mismatch is — so the
	// candidate run's own error is intentionally discarded here.
	var candidateResult model.RunResult
	if scenario != nil {
		candidateResult, _ = RunScenario(ctx, eff, *scenario, rec, clock)
	} else {
		target := Target{Command: baseline.RunResult.Command, Args: baseline.RunResult.Args}
		candidateResult, _ = RunExec(ctx, eff, target, rec, clock)
	}

	candidate := replay.Recording{
		RunResult:  candidateResult,
		Snapshots:  rec.Snapshots(),
		Transcript: rec.Transcript(),
	}

	resolved := replay.Resolve(callerFilters, callerRules, callerStrict, pol.Replay)
	report := replay.Compare(baseline, candidate, resolved)

	if err := writer.WriteJSON("replay.json", report); err != nil {
		return report, err
	}
	if report.Mismatch != nil {
		if err := writer.WriteJSON("diff.json", report.Mismatch); err != nil {
			return report, err
		}
	}

	if err := rec.Finalize(candidateResult, pol, scenario, resolved); err != nil {
		return report, err
	}

	if report.Mismatch != nil {
		return report, harnesserr.New(harnesserr.KindReplayMismatch, report.Mismatch.ErrorString(), map[string]any{
			"kind": report.Mismatch.Kind,
		})
	}
	return report, nil
}
