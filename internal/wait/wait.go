// Package wait implements wait_for (spec §4.6): sample an observation,
// evaluate a Condition against it, sleep a short bounded interval, repeat
// until the condition holds or an absolute deadline passes.
package wait

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/model"
)

// minInterval and maxInterval bound the backoff between polls — never busy,
// never so coarse that a fast-satisfying condition blocks noticeably longer
// than it needs to.
const (
	minInterval = 10 * time.Millisecond
	maxInterval = 200 * time.Millisecond
)

// Observer supplies the fresh observation wait_for samples each iteration,
// plus a non-blocking exit check for the process_exited condition.
// ptysession.Session satisfies this.
type Observer interface {
	Observe(ctx context.Context, deadline time.Time) (*model.Observation, error)
	Exited() (*model.ExitStatus, bool)
}

// For polls observer until condition holds or deadline passes. maxWaitMS is
// policy.Budgets.MaxWaitMS (spec §5); 0 means unbounded. The effective
// deadline is min(deadline, now+maxWaitMS), so a step-local timeout can never
// outlast the run's wait budget. On timeout it returns a *harnesserr.Error of
// Kind Timeout with context {"condition", "deadline_ms", "budget"} (spec
// §4.6), "budget" naming whichever of "wait_for" (the caller's own deadline)
// or "max_wait_ms" (the policy budget) actually fired.
func For(ctx context.Context, observer Observer, condition model.Condition, deadline time.Time, maxWaitMS int64) (*model.Observation, error) {
	budget := "wait_for"
	if maxWaitMS > 0 {
		if capped := time.Now().Add(time.Duration(maxWaitMS) * time.Millisecond); capped.Before(deadline) {
			deadline = capped
			budget = "max_wait_ms"
		}
	}

	interval := minInterval
	var last *model.Observation

	for {
		sampleDeadline := deadline
		if d := time.Now().Add(interval); d.Before(sampleDeadline) {
			sampleDeadline = d
		}

		obs, err := observer.Observe(ctx, sampleDeadline)
		if err != nil {
			var herr *harnesserr.Error
			if harnesserr.As(err, &herr) && herr.Kind == harnesserr.KindTimeout {
				// A short per-sample timeout is expected churn, not failure —
				// only the outer deadline below decides the final outcome.
			} else {
				return nil, err
			}
		} else {
			last = obs
			if condition.Kind == model.ConditionProcessExited {
				if _, exited := observer.Exited(); exited {
					return obs, nil
				}
			} else if Evaluate(condition, obs) {
				return obs, nil
			}
		}

		if !time.Now().Before(deadline) {
			return last, harnesserr.New(harnesserr.KindTimeout, "wait_for deadline exceeded", map[string]any{
				"condition":   condition.Kind,
				"deadline_ms": deadline.UnixMilli(),
				"budget":      budget,
			})
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return last, harnesserr.New(harnesserr.KindTimeout, "wait_for canceled", map[string]any{"condition": condition.Kind, "budget": budget})
		}

		if interval < maxInterval {
			interval *= 2
			if interval > maxInterval {
				interval = maxInterval
			}
		}
	}
}

// Evaluate reports whether condition currently holds for obs. It does not
// handle ConditionProcessExited — For checks that condition via the
// Observer's non-blocking Exited method instead, since exit is process state
// rather than something the terminal snapshot carries.
func Evaluate(condition model.Condition, obs *model.Observation) bool {
	switch condition.Kind {
	case model.ConditionScreenContains:
		return strings.Contains(strings.Join(obs.Screen.Lines, "\n"), condition.ScreenContains)
	case model.ConditionScreenMatches:
		re, err := regexp.Compile(condition.ScreenMatches)
		if err != nil {
			return false
		}
		return re.MatchString(strings.Join(obs.Screen.Lines, "\n"))
	case model.ConditionCursorAt:
		return obs.Screen.Cursor.Row == condition.CursorAtRow && obs.Screen.Cursor.Col == condition.CursorAtCol
	default:
		return false
	}
}
