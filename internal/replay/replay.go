// Package replay implements the replay comparator (spec §4.10): normalizing
// and byte-comparing a freshly re-executed run against its recorded
// baseline, under a resolved set of normalization filters and regex rules.
package replay

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
)

// Source identifies where a replay's resolved normalization configuration
// came from (spec §4.10).
type Source string

const (
	SourceDefault Source = "default"
	SourcePolicy  Source = "policy"
	SourceCLI     Source = "cli"
	SourceNone    Source = "none"
)

// defaultFilters apply whenever neither the caller nor the policy specify
// anything and strict is false.
var defaultFilters = []string{"snapshot_id", "observation_timestamp"}

// validFilters is the closed set spec §4.10 allows.
var validFilters = map[string]bool{
	"snapshot_id":           true,
	"run_id":                true,
	"run_timestamps":        true,
	"step_timestamps":       true,
	"observation_timestamp": true,
	"session_id":            true,
}

// Resolved is the normalization configuration replay actually applies, with
// its provenance recorded for replay.json.
type Resolved struct {
	Strict  bool
	Filters []string
	Rules   []policy.NormalizationRule
	Source  Source
}

// Resolve applies spec §4.10's precedence: caller-specified > policy-specified
// > default; strict disables all filters and rules regardless of source.
func Resolve(callerFilters []string, callerRules []policy.NormalizationRule, callerStrict *bool, pol policy.ReplayPolicy) Resolved {
	strict := pol.Strict
	if callerStrict != nil {
		strict = *callerStrict
	}
	if strict {
		return Resolved{Strict: true, Source: SourceNone}
	}
	if len(callerFilters) > 0 || len(callerRules) > 0 {
		return Resolved{Filters: dedupValid(callerFilters), Rules: callerRules, Source: SourceCLI}
	}
	if len(pol.NormalizationFilters) > 0 || len(pol.NormalizationRules) > 0 {
		return Resolved{Filters: dedupValid(pol.NormalizationFilters), Rules: pol.NormalizationRules, Source: SourcePolicy}
	}
	return Resolved{Filters: append([]string(nil), defaultFilters...), Source: SourceDefault}
}

func dedupValid(filters []string) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		if validFilters[f] {
			out = append(out, f)
		}
	}
	return out
}

func (r Resolved) has(filter string) bool {
	for _, f := range r.Filters {
		if f == filter {
			return true
		}
	}
	return false
}

// Diff describes the first normalized mismatch found (spec §4.10).
type Diff struct {
	Code    string         `json:"code"`
	Kind    string         `json:"kind"`
	Index   *int           `json:"index,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// Report is replay.json's content (spec §4.10).
type Report struct {
	Status   string                      `json:"status"`
	Source   Source                      `json:"source"`
	Strict   bool                        `json:"strict"`
	Filters  []string                    `json:"filters,omitempty"`
	Rules    []policy.NormalizationRule  `json:"rules,omitempty"`
	Mismatch *Diff                       `json:"mismatch,omitempty"`
}

// Recording is the subset of a run's artifacts the comparator needs.
type Recording struct {
	RunResult  model.RunResult
	Snapshots  []*model.ScreenSnapshot
	Transcript string
}

// Compare re-executes nothing itself — it normalizes and compares two
// already-captured recordings (a baseline and a freshly re-run candidate)
// per spec §4.10 step 3.
func Compare(baseline, candidate Recording, r Resolved) Report {
	report := Report{Status: "match", Source: r.Source, Strict: r.Strict, Filters: r.Filters, Rules: r.Rules}

	if len(baseline.Snapshots) != len(candidate.Snapshots) {
		report.Status = "mismatch"
		report.Mismatch = &Diff{
			Code: "E_REPLAY_MISMATCH",
			Kind: "snapshot_count",
			Context: map[string]any{
				"baseline_count":  len(baseline.Snapshots),
				"candidate_count": len(candidate.Snapshots),
			},
		}
		return report
	}

	for i := range baseline.Snapshots {
		bLines := normalizeSnapshotLines(baseline.Snapshots[i].Lines, r)
		cLines := normalizeSnapshotLines(candidate.Snapshots[i].Lines, r)
		bJSON, _ := json.Marshal(normalizeSnapshot(*baseline.Snapshots[i], r))
		cJSON, _ := json.Marshal(normalizeSnapshot(*candidate.Snapshots[i], r))
		if strings.Join(bLines, "\n") != strings.Join(cLines, "\n") || string(bJSON) != string(cJSON) {
			idx := i
			report.Status = "mismatch"
			report.Mismatch = &Diff{Code: "E_REPLAY_MISMATCH", Kind: "snapshot", Index: &idx}
			return report
		}
	}

	bTranscript := applyRules(baseline.Transcript, "transcript", r.Rules)
	cTranscript := applyRules(candidate.Transcript, "transcript", r.Rules)
	if bTranscript != cTranscript {
		report.Status = "mismatch"
		report.Mismatch = &Diff{Code: "E_REPLAY_MISMATCH", Kind: "transcript"}
		return report
	}

	bResult, _ := json.Marshal(normalizeRunResult(baseline.RunResult, r))
	cResult, _ := json.Marshal(normalizeRunResult(candidate.RunResult, r))
	if string(bResult) != string(cResult) {
		report.Status = "mismatch"
		report.Mismatch = &Diff{Code: "E_REPLAY_MISMATCH", Kind: "run_result"}
		return report
	}

	return report
}

func normalizeSnapshot(s model.ScreenSnapshot, r Resolved) model.ScreenSnapshot {
	if r.has("snapshot_id") {
		s.SnapshotID = ""
	}
	s.Lines = normalizeSnapshotLines(s.Lines, r)
	return s
}

func normalizeSnapshotLines(lines []string, r Resolved) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = applyRules(line, "snapshot_lines", r.Rules)
	}
	return out
}

func applyRules(s, target string, rules []policy.NormalizationRule) string {
	for _, rule := range rules {
		if rule.Target != policy.NormalizationRuleTarget(target) {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			continue
		}
		s = re.ReplaceAllString(s, rule.Replacement)
	}
	return s
}

func normalizeRunResult(rr model.RunResult, r Resolved) model.RunResult {
	if r.has("run_id") {
		rr.RunID = ""
	}
	if r.has("run_timestamps") {
		rr.StartedAtMS = 0
		rr.EndedAtMS = 0
	}
	if r.has("step_timestamps") {
		for i := range rr.Steps {
			rr.Steps[i].StartedAtMS = 0
			rr.Steps[i].EndedAtMS = 0
		}
	}
	if rr.FinalObservation != nil {
		obs := *rr.FinalObservation
		if r.has("observation_timestamp") {
			obs.TimestampMS = 0
		}
		if r.has("session_id") {
			obs.SessionID = ""
		}
		if obs.Screen != nil {
			snap := normalizeSnapshot(*obs.Screen, r)
			obs.Screen = &snap
		}
		rr.FinalObservation = &obs
	}
	return rr
}

// ErrorString renders a Diff for a CLI-facing error message.
func (d Diff) ErrorString() string {
	if d.Index != nil {
		return fmt.Sprintf("%s: %s mismatch at index %d", d.Code, d.Kind, *d.Index)
	}
	return fmt.Sprintf("%s: %s mismatch", d.Code, d.Kind)
}
