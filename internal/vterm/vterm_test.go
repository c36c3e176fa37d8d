package vterm

import (
	"strings"
	"testing"
)

func TestEngineBasicOutput(t *testing.T) {
	e := New(80, 24)
	defer e.Close()

	if _, err := e.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	snap := e.Snapshot()
	if len(snap.Lines) != 24 {
		t.Fatalf("len(Lines) = %d, want 24", len(snap.Lines))
	}
	if !strings.Contains(snap.Lines[0], "hello world") {
		t.Errorf("Lines[0] = %q, want it to contain %q", snap.Lines[0], "hello world")
	}
	for i, line := range snap.Lines {
		if w := cellWidth(line); w != 80 {
			t.Errorf("Lines[%d] width = %d, want 80", i, w)
		}
	}
}

func TestEngineSnapshotIdempotent(t *testing.T) {
	e := New(40, 5)
	defer e.Close()

	e.Write([]byte("steady state"))
	first := e.Snapshot()
	second := e.Snapshot()

	if len(first.Lines) != len(second.Lines) {
		t.Fatalf("line count changed between captures")
	}
	for i := range first.Lines {
		if first.Lines[i] != second.Lines[i] {
			t.Errorf("Lines[%d] changed between captures without an intervening Write: %q != %q", i, first.Lines[i], second.Lines[i])
		}
	}
	if first.Cursor != second.Cursor {
		t.Errorf("Cursor changed between captures: %+v != %+v", first.Cursor, second.Cursor)
	}
	if first.SnapshotID == second.SnapshotID {
		t.Error("SnapshotID did not change between captures")
	}
}

func TestEngineResize(t *testing.T) {
	e := New(80, 24)
	defer e.Close()

	e.Resize(40, 10)
	snap := e.Snapshot()
	if snap.Rows != 10 || snap.Cols != 40 {
		t.Errorf("Rows/Cols = %d/%d, want 10/40", snap.Rows, snap.Cols)
	}
	if len(snap.Lines) != 10 {
		t.Fatalf("len(Lines) = %d, want 10", len(snap.Lines))
	}
}

func TestEngineAltScreen(t *testing.T) {
	e := New(80, 24)
	defer e.Close()

	e.Write([]byte("\x1b[?1049h"))
	if !e.Snapshot().AlternateScreen {
		t.Error("AlternateScreen = false after entering alt-screen mode")
	}
	e.Write([]byte("\x1b[?1049l"))
	if e.Snapshot().AlternateScreen {
		t.Error("AlternateScreen = true after leaving alt-screen mode")
	}
}

func TestEngineInvalidUTF8EmitsEvent(t *testing.T) {
	e := New(80, 24)
	defer e.Close()

	events, err := e.Write([]byte{'o', 'k', 0xff, 0xfe, 'd', 'o', 'n', 'e'})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	found := false
	for _, ev := range events {
		if ev.Type == "unsupported_glyph" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an unsupported_glyph event, got %+v", events)
	}
}

// cellWidth approximates the terminal-cell width of a normalized line for
// tests that only write single-width ASCII; it intentionally does not
// duplicate the engine's own wide-rune accounting.
func cellWidth(s string) int {
	return len([]rune(s))
}
