// Package ids mints the opaque identifiers the data model requires for
// runs, sessions, steps, and snapshots.
package ids

import "github.com/google/uuid"

// New returns a fresh opaque identifier with the given short prefix, e.g.
// New("run") -> "run-3f29b1d4-...". The prefix makes IDs self-describing in
// logs and artifact filenames without leaking any ordering guarantee beyond
// what the caller already tracks (sequence numbers, not IDs, are ordered).
func New(prefix string) string {
	return prefix + "-" + uuid.New().String()
}

// Run mints a run ID.
func Run() string { return New("run") }

// Session mints a session ID.
func Session() string { return New("sess") }

// Step mints a step ID (callers may prefer their own stable step IDs from
// the scenario document; this is for runner-internal bookkeeping only).
func Step() string { return New("step") }

// Snapshot mints a snapshot ID.
func Snapshot() string { return New("snap") }

// Request mints a driver request-scoped ID when the caller hasn't supplied one.
func Request() string { return New("req") }
