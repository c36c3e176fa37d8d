package replay

import (
	"testing"

	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
)

func TestResolve_Precedence(t *testing.T) {
	pol := policy.ReplayPolicy{NormalizationFilters: []string{"run_id"}}

	r := Resolve(nil, nil, nil, pol)
	if r.Source != SourcePolicy || len(r.Filters) != 1 || r.Filters[0] != "run_id" {
		t.Errorf("expected policy-sourced filters, got %+v", r)
	}

	r = Resolve([]string{"session_id"}, nil, nil, pol)
	if r.Source != SourceCLI || r.Filters[0] != "session_id" {
		t.Errorf("expected caller filters to win, got %+v", r)
	}

	strict := true
	r = Resolve([]string{"session_id"}, nil, &strict, pol)
	if !r.Strict || r.Source != SourceNone {
		t.Errorf("expected strict to disable everything, got %+v", r)
	}

	r = Resolve(nil, nil, nil, policy.ReplayPolicy{})
	if r.Source != SourceDefault {
		t.Errorf("expected default source, got %+v", r)
	}
}

func snap(id string, lines ...string) *model.ScreenSnapshot {
	return &model.ScreenSnapshot{SnapshotID: id, Lines: lines}
}

func TestCompare_MatchIgnoringSnapshotID(t *testing.T) {
	r := Resolve(nil, nil, nil, policy.ReplayPolicy{})
	baseline := Recording{
		RunResult: model.RunResult{RunID: "a"},
		Snapshots: []*model.ScreenSnapshot{snap("snap-1", "hello")},
	}
	candidate := Recording{
		RunResult: model.RunResult{RunID: "a"},
		Snapshots: []*model.ScreenSnapshot{snap("snap-2", "hello")},
	}
	report := Compare(baseline, candidate, r)
	if report.Status != "match" {
		t.Errorf("Status = %q, want match; mismatch = %+v", report.Status, report.Mismatch)
	}
}

func TestCompare_DetectsSnapshotMismatch(t *testing.T) {
	r := Resolve(nil, nil, nil, policy.ReplayPolicy{})
	baseline := Recording{Snapshots: []*model.ScreenSnapshot{snap("s1", "hello")}}
	candidate := Recording{Snapshots: []*model.ScreenSnapshot{snap("s2", "goodbye")}}
	report := Compare(baseline, candidate, r)
	if report.Status != "mismatch" || report.Mismatch.Kind != "snapshot" {
		t.Fatalf("expected snapshot mismatch, got %+v", report)
	}
}

func TestCompare_DetectsSnapshotCountMismatch(t *testing.T) {
	r := Resolve(nil, nil, nil, policy.ReplayPolicy{})
	baseline := Recording{Snapshots: []*model.ScreenSnapshot{snap("s1", "a")}}
	candidate := Recording{Snapshots: []*model.ScreenSnapshot{snap("s1", "a"), snap("s2", "b")}}
	report := Compare(baseline, candidate, r)
	if report.Status != "mismatch" || report.Mismatch.Kind != "snapshot_count" {
		t.Fatalf("expected snapshot_count mismatch, got %+v", report)
	}
}

func TestCompare_NormalizationRuleAppliesToTranscript(t *testing.T) {
	rules := []policy.NormalizationRule{{Target: policy.NormalizeTranscript, Pattern: `\d+`, Replacement: "N"}}
	r := Resolve([]string{}, rules, nil, policy.ReplayPolicy{})
	r.Rules = rules
	baseline := Recording{Transcript: "pid 1234 started"}
	candidate := Recording{Transcript: "pid 5678 started"}
	report := Compare(baseline, candidate, r)
	if report.Status != "match" {
		t.Fatalf("expected match after normalization, got %+v", report)
	}
}
