// Package model holds the harness's wire/data-model types (spec §3): the
// things that flow between the session, the runner, the driver loop, and
// the artifacts bundle. Types here are plain data — no behavior beyond
// small accessors — so they marshal predictably to the canonical JSON form
// spec §6 requires.
package model

// ProtocolVersion is the current observation/driver wire protocol version.
const ProtocolVersion = 1

// RunResultVersion is the current run.json schema version.
const RunResultVersion = 1

// SnapshotVersion is the current ScreenSnapshot schema version.
const SnapshotVersion = 1

// CellStyle captures the subset of SGR attributes the spec's optional per-cell
// detail needs to be useful for assertions and replay diffing.
type CellStyle struct {
	Foreground string `json:"foreground,omitempty"`
	Background string `json:"background,omitempty"`
	Bold       bool   `json:"bold,omitempty"`
	Italic     bool   `json:"italic,omitempty"`
	Underline  bool   `json:"underline,omitempty"`
	Reverse    bool   `json:"reverse,omitempty"`
}

// Cell is one terminal grid position for a ScreenSnapshot's optional Cells
// field. The vterm engine does not fill Cells, so its snapshots carry Lines
// only.
type Cell struct {
	Grapheme string    `json:"grapheme"`
	Width    int       `json:"width"`
	Style    CellStyle `json:"style,omitempty"`
}

// Cursor is 0-based per spec §3.
type Cursor struct {
	Row     int  `json:"row"`
	Col     int  `json:"col"`
	Visible bool `json:"visible"`
}

// ScreenSnapshot is the canonical, reproducible terminal state (spec §3).
// Immutable after creation: callers must treat Lines/Cells as read-only.
type ScreenSnapshot struct {
	SnapshotVersion int      `json:"snapshot_version"`
	SnapshotID      string   `json:"snapshot_id"`
	Rows            int      `json:"rows"`
	Cols            int      `json:"cols"`
	Cursor          Cursor   `json:"cursor"`
	AlternateScreen bool     `json:"alternate_screen"`
	Lines           []string `json:"lines"`
	Cells           [][]Cell `json:"cells,omitempty"`
}

// Event is a structured, named occurrence surfaced alongside an Observation
// (e.g. "unsupported_glyph", "output_truncated").
type Event struct {
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// Observation is what the session hands back after an action or a poll.
type Observation struct {
	ProtocolVersion int             `json:"protocol_version"`
	RunID           string          `json:"run_id"`
	SessionID       string          `json:"session_id"`
	TimestampMS     int64           `json:"timestamp_ms"`
	Screen          *ScreenSnapshot `json:"screen"`
	TranscriptDelta string          `json:"transcript_delta,omitempty"`
	Events          []Event         `json:"events,omitempty"`
}

// Size is a terminal window size in character cells.
type Size struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Condition is the tagged variant a Wait action (or wait_for) evaluates.
// Exactly one field is populated, selected by Kind.
type Condition struct {
	Kind           ConditionKind `json:"kind"`
	ScreenContains string        `json:"screen_contains,omitempty"`
	ScreenMatches  string        `json:"screen_matches,omitempty"`
	CursorAtRow    int           `json:"cursor_at_row,omitempty"`
	CursorAtCol    int           `json:"cursor_at_col,omitempty"`
	// ProcessExited has no payload.
}

type ConditionKind string

const (
	ConditionScreenContains ConditionKind = "screen_contains"
	ConditionScreenMatches  ConditionKind = "screen_matches"
	ConditionCursorAt       ConditionKind = "cursor_at"
	ConditionProcessExited  ConditionKind = "process_exited"
)

// ActionKind discriminates the Action tagged variant (spec §3). Dispatch on
// Kind; fields outside the selected variant are zero/ignored.
type ActionKind string

const (
	ActionKey       ActionKind = "key"
	ActionText      ActionKind = "text"
	ActionResize    ActionKind = "resize"
	ActionWait      ActionKind = "wait"
	ActionTerminate ActionKind = "terminate"
)

// Action is the tagged variant the session/runner/driver send to a session.
// Modeled as a single struct with a discriminant rather than an interface
// hierarchy (spec §9: "dynamic action dispatch is modeled as a tagged
// variant, not subtype polymorphism").
type Action struct {
	Kind      ActionKind `json:"kind"`
	Key       string     `json:"key,omitempty"`
	Text      string     `json:"text,omitempty"`
	Resize    Size       `json:"resize,omitempty"`
	Condition Condition  `json:"condition,omitempty"`
}

// ExitStatus is the child process's terminal state.
type ExitStatus struct {
	Success            bool   `json:"success"`
	ExitCode           *int   `json:"exit_code,omitempty"`
	Signal             string `json:"signal,omitempty"`
	TerminatedByHarness bool  `json:"terminated_by_harness"`
}

// AssertionOutcome is the pure-function result an assertion produces.
type AssertionOutcome struct {
	Name    string         `json:"name"`
	Passed  bool           `json:"passed"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Assertion is the tagged variant the assertion engine evaluates.
type AssertionKind string

const (
	AssertScreenContains AssertionKind = "screen_contains"
	AssertNotContains    AssertionKind = "not_contains"
	AssertRegexMatch     AssertionKind = "regex_match"
	AssertLineEquals     AssertionKind = "line_equals"
	AssertLineContains   AssertionKind = "line_contains"
	AssertLineMatches    AssertionKind = "line_matches"
	AssertCursorAt       AssertionKind = "cursor_at"
	AssertCursorVisible  AssertionKind = "cursor_visible"
	AssertCursorHidden   AssertionKind = "cursor_hidden"
	AssertScreenEmpty    AssertionKind = "screen_empty"
	AssertProcessExited  AssertionKind = "process_exited"
)

type Assertion struct {
	Kind    AssertionKind `json:"kind"`
	Text    string        `json:"text,omitempty"`
	Pattern string        `json:"pattern,omitempty"`
	Line    int           `json:"line,omitempty"`
	Row     int           `json:"row,omitempty"`
	Col     int           `json:"col,omitempty"`
	// Code is only meaningful for AssertProcessExited; nil means "any code".
	Code *int `json:"code,omitempty"`
}

// Step is one ordered element of a Scenario.
type Step struct {
	ID         string      `json:"id"`
	Name       string      `json:"name,omitempty"`
	Action     Action      `json:"action"`
	Assertions []Assertion `json:"assertions,omitempty"`
	TimeoutMS  int64       `json:"timeout_ms"`
	Retries    int         `json:"retries"`
}

// RunConfig describes how to start the target command.
type RunConfig struct {
	Command     string            `json:"command"`
	Args        []string          `json:"args,omitempty"`
	CWD         string            `json:"cwd"`
	InitialSize Size              `json:"initial_size"`
}

// ScenarioMetadata is free-form descriptive information about a Scenario.
type ScenarioMetadata struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Scenario is an immutable, ordered script (spec §3).
type Scenario struct {
	SchemaVersion int              `json:"schema_version"`
	Metadata      ScenarioMetadata `json:"metadata,omitempty"`
	RunConfig     RunConfig        `json:"run_config"`
	Steps         []Step           `json:"steps"`
}

// StepStatus is the scenario runner's per-step state-machine outcome.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepSatisfied StepStatus = "satisfied"
	StepRetrying  StepStatus = "retrying"
	StepFailed    StepStatus = "failed"
	StepErrored   StepStatus = "errored"
)

// StepResult records one step's execution.
type StepResult struct {
	StepID        string             `json:"step_id"`
	Status        StepStatus         `json:"status"`
	Attempts      int                `json:"attempts"`
	StartedAtMS   int64              `json:"started_at_ms"`
	EndedAtMS     int64              `json:"ended_at_ms"`
	Assertions    []AssertionOutcome `json:"assertions,omitempty"`
	Error         map[string]any     `json:"error,omitempty"`
}

// RunStatus is the overall run outcome.
type RunStatus string

const (
	RunPassed   RunStatus = "passed"
	RunFailed   RunStatus = "failed"
	RunErrored  RunStatus = "errored"
	RunCanceled RunStatus = "canceled"
)

// RunResult is the top-level record of one run (spec §3), serialized as
// run.json in the artifacts bundle.
type RunResult struct {
	RunResultVersion int             `json:"run_result_version"`
	ProtocolVersion  int             `json:"protocol_version"`
	RunID            string          `json:"run_id"`
	Status           RunStatus       `json:"status"`
	StartedAtMS      int64           `json:"started_at_ms"`
	EndedAtMS        int64           `json:"ended_at_ms"`
	Command          string          `json:"command"`
	Args             []string        `json:"args,omitempty"`
	CWD              string          `json:"cwd"`
	Policy           any             `json:"policy"`
	Scenario         *Scenario       `json:"scenario,omitempty"`
	Steps            []StepResult    `json:"steps,omitempty"`
	FinalObservation *Observation    `json:"final_observation,omitempty"`
	ExitStatus       *ExitStatus     `json:"exit_status,omitempty"`
	Error            map[string]any  `json:"error,omitempty"`
}
