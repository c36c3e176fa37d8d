// Package assertion evaluates the eleven assertion variants of spec §4.5 as
// pure functions of a ScreenSnapshot, the accumulated transcript, and the
// last known ExitStatus. No assertion mutates state; none blocks — blocking
// belongs to internal/wait.
package assertion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lelanhus/ptybox/internal/model"
)

// Evaluate dispatches on a.Kind and returns the outcome. An assertion whose
// Kind is unrecognized fails rather than panicking, so a malformed scenario
// surfaces as a normal step failure instead of crashing the runner.
func Evaluate(a model.Assertion, snap *model.ScreenSnapshot, transcript string, exit *model.ExitStatus) model.AssertionOutcome {
	switch a.Kind {
	case model.AssertScreenContains:
		return screenContains(a, snap)
	case model.AssertNotContains:
		return notContains(a, snap)
	case model.AssertRegexMatch:
		return regexMatch(a, snap)
	case model.AssertLineEquals:
		return lineEquals(a, snap)
	case model.AssertLineContains:
		return lineContains(a, snap)
	case model.AssertLineMatches:
		return lineMatches(a, snap)
	case model.AssertCursorAt:
		return cursorAt(a, snap)
	case model.AssertCursorVisible:
		return cursorVisible(snap)
	case model.AssertCursorHidden:
		return cursorHidden(snap)
	case model.AssertScreenEmpty:
		return screenEmpty(snap)
	case model.AssertProcessExited:
		return processExited(a, exit)
	default:
		return model.AssertionOutcome{
			Name:    string(a.Kind),
			Passed:  false,
			Message: fmt.Sprintf("unrecognized assertion kind %q", a.Kind),
		}
	}
}

func joinedScreen(snap *model.ScreenSnapshot) string {
	return strings.Join(snap.Lines, "\n")
}

func screenContains(a model.Assertion, snap *model.ScreenSnapshot) model.AssertionOutcome {
	ok := strings.Contains(joinedScreen(snap), a.Text)
	return result(string(a.Kind), ok, fmt.Sprintf("screen does not contain %q", a.Text))
}

func notContains(a model.Assertion, snap *model.ScreenSnapshot) model.AssertionOutcome {
	ok := !strings.Contains(joinedScreen(snap), a.Text)
	return result(string(a.Kind), ok, fmt.Sprintf("screen unexpectedly contains %q", a.Text))
}

func regexMatch(a model.Assertion, snap *model.ScreenSnapshot) model.AssertionOutcome {
	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return model.AssertionOutcome{Name: string(a.Kind), Passed: false, Message: fmt.Sprintf("invalid pattern: %v", err)}
	}
	ok := re.MatchString(joinedScreen(snap))
	return result(string(a.Kind), ok, fmt.Sprintf("screen does not match %q", a.Pattern))
}

func lineEquals(a model.Assertion, snap *model.ScreenSnapshot) model.AssertionOutcome {
	if a.Line < 0 || a.Line >= len(snap.Lines) {
		return outOfRange(a, len(snap.Lines))
	}
	ok := snap.Lines[a.Line] == a.Text
	return result(string(a.Kind), ok, fmt.Sprintf("line %d = %q, want %q", a.Line, snap.Lines[a.Line], a.Text))
}

func lineContains(a model.Assertion, snap *model.ScreenSnapshot) model.AssertionOutcome {
	if a.Line < 0 || a.Line >= len(snap.Lines) {
		return outOfRange(a, len(snap.Lines))
	}
	ok := strings.Contains(snap.Lines[a.Line], a.Text)
	return result(string(a.Kind), ok, fmt.Sprintf("line %d does not contain %q", a.Line, a.Text))
}

func lineMatches(a model.Assertion, snap *model.ScreenSnapshot) model.AssertionOutcome {
	if a.Line < 0 || a.Line >= len(snap.Lines) {
		return outOfRange(a, len(snap.Lines))
	}
	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return model.AssertionOutcome{Name: string(a.Kind), Passed: false, Message: fmt.Sprintf("invalid pattern: %v", err)}
	}
	ok := re.MatchString(snap.Lines[a.Line])
	return result(string(a.Kind), ok, fmt.Sprintf("line %d does not match %q", a.Line, a.Pattern))
}

func cursorAt(a model.Assertion, snap *model.ScreenSnapshot) model.AssertionOutcome {
	ok := snap.Cursor.Row == a.Row && snap.Cursor.Col == a.Col
	return result(string(a.Kind), ok, fmt.Sprintf("cursor at (%d,%d), want (%d,%d)", snap.Cursor.Row, snap.Cursor.Col, a.Row, a.Col))
}

func cursorVisible(snap *model.ScreenSnapshot) model.AssertionOutcome {
	return result(string(model.AssertCursorVisible), snap.Cursor.Visible, "cursor is hidden")
}

func cursorHidden(snap *model.ScreenSnapshot) model.AssertionOutcome {
	return result(string(model.AssertCursorHidden), !snap.Cursor.Visible, "cursor is visible")
}

func screenEmpty(snap *model.ScreenSnapshot) model.AssertionOutcome {
	for _, line := range snap.Lines {
		if strings.TrimRight(line, " ") != "" {
			return result(string(model.AssertScreenEmpty), false, "screen is not empty")
		}
	}
	return result(string(model.AssertScreenEmpty), true, "")
}

func processExited(a model.Assertion, exit *model.ExitStatus) model.AssertionOutcome {
	if exit == nil {
		return result(string(a.Kind), false, "process has not exited")
	}
	if a.Code == nil {
		return result(string(a.Kind), true, "")
	}
	if exit.ExitCode == nil {
		return result(string(a.Kind), false, "process exited without a numeric exit code (terminated by signal)")
	}
	ok := *exit.ExitCode == *a.Code
	return result(string(a.Kind), ok, fmt.Sprintf("process exited with code %d, want %d", *exit.ExitCode, *a.Code))
}

func outOfRange(a model.Assertion, rows int) model.AssertionOutcome {
	return model.AssertionOutcome{
		Name:    string(a.Kind),
		Passed:  false,
		Message: fmt.Sprintf("line %d is out of range (snapshot has %d rows)", a.Line, rows),
	}
}

func result(name string, passed bool, failMessage string) model.AssertionOutcome {
	if passed {
		return model.AssertionOutcome{Name: name, Passed: true}
	}
	return model.AssertionOutcome{Name: name, Passed: false, Message: failMessage}
}
