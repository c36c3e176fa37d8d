package assertion

import (
	"testing"

	"github.com/lelanhus/ptybox/internal/model"
)

func snapshot(lines []string, cursor model.Cursor) *model.ScreenSnapshot {
	return &model.ScreenSnapshot{Rows: len(lines), Lines: lines, Cursor: cursor}
}

func TestScreenContains(t *testing.T) {
	snap := snapshot([]string{"hello world", "second line"}, model.Cursor{})
	out := Evaluate(model.Assertion{Kind: model.AssertScreenContains, Text: "world"}, snap, "", nil)
	if !out.Passed {
		t.Errorf("expected pass, got %+v", out)
	}
	out = Evaluate(model.Assertion{Kind: model.AssertScreenContains, Text: "nope"}, snap, "", nil)
	if out.Passed {
		t.Errorf("expected fail, got %+v", out)
	}
}

func TestNotContains(t *testing.T) {
	snap := snapshot([]string{"clean"}, model.Cursor{})
	out := Evaluate(model.Assertion{Kind: model.AssertNotContains, Text: "error"}, snap, "", nil)
	if !out.Passed {
		t.Errorf("expected pass, got %+v", out)
	}
}

func TestRegexMatch(t *testing.T) {
	snap := snapshot([]string{"exit code 0"}, model.Cursor{})
	out := Evaluate(model.Assertion{Kind: model.AssertRegexMatch, Pattern: `exit code \d+`}, snap, "", nil)
	if !out.Passed {
		t.Errorf("expected pass, got %+v", out)
	}
}

func TestLineEquals(t *testing.T) {
	snap := snapshot([]string{"first", "second"}, model.Cursor{})
	out := Evaluate(model.Assertion{Kind: model.AssertLineEquals, Line: 1, Text: "second"}, snap, "", nil)
	if !out.Passed {
		t.Errorf("expected pass, got %+v", out)
	}
	out = Evaluate(model.Assertion{Kind: model.AssertLineEquals, Line: 5, Text: "x"}, snap, "", nil)
	if out.Passed {
		t.Error("expected out-of-range line to fail")
	}
}

func TestCursorAt(t *testing.T) {
	snap := snapshot([]string{"x"}, model.Cursor{Row: 2, Col: 4, Visible: true})
	out := Evaluate(model.Assertion{Kind: model.AssertCursorAt, Row: 2, Col: 4}, snap, "", nil)
	if !out.Passed {
		t.Errorf("expected pass, got %+v", out)
	}
	if p := Evaluate(model.Assertion{Kind: model.AssertCursorVisible}, snap, "", nil); !p.Passed {
		t.Errorf("expected cursor_visible pass, got %+v", p)
	}
}

func TestScreenEmpty(t *testing.T) {
	snap := snapshot([]string{"   ", ""}, model.Cursor{})
	if out := Evaluate(model.Assertion{Kind: model.AssertScreenEmpty}, snap, "", nil); !out.Passed {
		t.Errorf("expected pass, got %+v", out)
	}
	snap2 := snapshot([]string{"text"}, model.Cursor{})
	if out := Evaluate(model.Assertion{Kind: model.AssertScreenEmpty}, snap2, "", nil); out.Passed {
		t.Errorf("expected fail, got %+v", out)
	}
}

func TestProcessExited(t *testing.T) {
	zero := 0
	one := 1
	snap := snapshot([]string{""}, model.Cursor{})

	if out := Evaluate(model.Assertion{Kind: model.AssertProcessExited}, snap, "", nil); out.Passed {
		t.Error("expected fail when process has not exited")
	}

	exit := &model.ExitStatus{Success: true, ExitCode: &zero}
	if out := Evaluate(model.Assertion{Kind: model.AssertProcessExited, Code: &zero}, snap, "", exit); !out.Passed {
		t.Errorf("expected pass matching exit code, got %+v", out)
	}
	if out := Evaluate(model.Assertion{Kind: model.AssertProcessExited, Code: &one}, snap, "", exit); out.Passed {
		t.Errorf("expected fail on mismatched exit code, got %+v", out)
	}
}
