// Package ptysession is the PTY session component (spec §4.3): it spawns a
// child attached to a pseudo-terminal, encodes and sends actions, reads
// output into the terminal engine with a deadline, and manages process-group
// termination. Modeled on the teacher's internal/egg.Server/Session PTY
// plumbing (github.com/creack/pty, a background reader goroutine, graceful
// signal-then-kill shutdown), generalized from "one long-lived agent session
// served over gRPC" to "one bounded, assertable automation run".
package ptysession

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/harnesserr"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/vterm"
)

// Config describes a session to spawn (spec §4.3's SessionConfig).
type Config struct {
	Command          string
	Args             []string
	CWD              string
	InitialSize      model.Size
	Env              []string
	RunID            string
	SessionID        string
	MaxOutputBytes   int64 // 0 means unbounded
	MaxSnapshotBytes int64 // 0 means unbounded
}

type readResult struct {
	data []byte
	err  error
}

// Session owns one child process's PTY file descriptors and the terminal
// engine fed by its output. It exclusively owns both, per spec §3's
// ownership rule, and closes the descriptors on Close.
type Session struct {
	cfg    Config
	anchor *clockwork.Anchored
	cmd    *exec.Cmd
	ptmx   *os.File
	engine *vterm.Engine

	mu           sync.Mutex
	outputBytes  int64
	pendingDelta strings.Builder
	pendingEvts  []model.Event
	exitStatus   *model.ExitStatus
	terminated   bool

	reads chan readResult
	done  chan struct{}
}

// Spawn starts the target command attached to a new PTY (spec §4.3: spawn).
// anchor must be the same Anchored the caller uses for RunResult's own
// started_at_ms/ended_at_ms, so every Observation.timestamp_ms shares the
// run's timebase (spec §3).
func Spawn(cfg Config, anchor *clockwork.Anchored) (*Session, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.CWD
	cmd.Env = cfg.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 5 * time.Second

	size := &pty.Winsize{Cols: uint16(cfg.InitialSize.Cols), Rows: uint16(cfg.InitialSize.Rows)}
	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, harnesserr.New(harnesserr.KindIO, "failed to start pty", map[string]any{
			"command": cfg.Command,
			"error":   err.Error(),
		})
	}

	s := &Session{
		cfg:    cfg,
		anchor: anchor,
		cmd:    cmd,
		ptmx:   ptmx,
		engine: vterm.New(cfg.InitialSize.Cols, cfg.InitialSize.Rows),
		reads:  make(chan readResult, 16),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	go s.waitLoop()
	return s, nil
}

func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			s.reads <- readResult{data: data}
		}
		if err != nil {
			s.reads <- readResult{err: err}
			return
		}
	}
}

func (s *Session) waitLoop() {
	err := s.cmd.Wait()
	status := &model.ExitStatus{Success: err == nil}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			if code >= 0 {
				status.ExitCode = &code
			}
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				status.Signal = ws.Signal().String()
			}
		}
	} else {
		code := 0
		status.ExitCode = &code
	}
	s.mu.Lock()
	status.TerminatedByHarness = s.terminated
	s.exitStatus = status
	s.mu.Unlock()
	close(s.done)
}

// Send encodes an action into PTY bytes or a control operation (spec §4.3).
func (s *Session) Send(a model.Action) error {
	switch a.Kind {
	case model.ActionKey:
		b, err := EncodeKey(a.Key)
		if err != nil {
			return harnesserr.New(harnesserr.KindInvalidArgument, err.Error(), map[string]any{"key": a.Key})
		}
		return s.write(b)
	case model.ActionText:
		return s.write([]byte(a.Text))
	case model.ActionResize:
		return s.resize(a.Resize)
	case model.ActionTerminate:
		return s.TerminateProcessGroup(5 * time.Second)
	case model.ActionWait:
		return harnesserr.New(harnesserr.KindInvalidArgument,
			"wait actions must be evaluated by wait_for, not sent to the session", nil)
	default:
		return harnesserr.New(harnesserr.KindInvalidArgument, "unknown action kind", map[string]any{"kind": a.Kind})
	}
}

func (s *Session) write(b []byte) error {
	if _, err := s.ptmx.Write(b); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"op": "write"})
	}
	return nil
}

func (s *Session) resize(size model.Size) error {
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Cols: uint16(size.Cols), Rows: uint16(size.Rows)}); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"op": "resize"})
	}
	s.engine.Resize(size.Cols, size.Rows)
	return nil
}

// Observe reads available bytes up to deadline, feeds them into the terminal
// engine, and returns a fresh Observation plus any transcript delta since the
// previous Observe call (spec §4.3). It blocks up to deadline; callers must
// always pass an absolute deadline (spec §5).
func (s *Session) Observe(ctx context.Context, deadline time.Time) (*model.Observation, error) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	var events []model.Event

	// Block for the first chunk of output (or timeout/cancellation).
	select {
	case r := <-s.reads:
		if r.err == nil {
			if err := s.ingest(r.data, &events); err != nil {
				return nil, err
			}
		}
	case <-timer.C:
	case <-ctx.Done():
		return nil, harnesserr.New(harnesserr.KindTimeout, "observe canceled", map[string]any{"budget": "context"})
	}

	// Drain whatever else is already buffered without waiting further.
drain:
	for {
		select {
		case r := <-s.reads:
			if r.err != nil {
				break drain
			}
			if err := s.ingest(r.data, &events); err != nil {
				return nil, err
			}
		default:
			break drain
		}
	}

	s.mu.Lock()
	delta := s.pendingDelta.String()
	s.pendingDelta.Reset()
	evts := append(s.pendingEvts, events...)
	s.pendingEvts = nil
	s.mu.Unlock()

	snap := s.engine.Snapshot()
	if s.cfg.MaxSnapshotBytes > 0 {
		if encoded, err := json.Marshal(snap); err == nil && int64(len(encoded)) > s.cfg.MaxSnapshotBytes {
			return nil, harnesserr.New(harnesserr.KindTimeout, "snapshot budget exceeded", map[string]any{"budget": "snapshot"})
		}
	}

	return &model.Observation{
		ProtocolVersion: model.ProtocolVersion,
		RunID:           s.cfg.RunID,
		SessionID:       s.cfg.SessionID,
		TimestampMS:     s.anchor.ElapsedMS(),
		Screen:          snap,
		TranscriptDelta: delta,
		Events:          evts,
	}, nil
}

func (s *Session) ingest(data []byte, events *[]model.Event) error {
	s.mu.Lock()
	s.outputBytes += int64(len(data))
	over := s.cfg.MaxOutputBytes > 0 && s.outputBytes > s.cfg.MaxOutputBytes
	s.mu.Unlock()
	if over {
		return harnesserr.New(harnesserr.KindTimeout, "output budget exceeded", map[string]any{"budget": "output"})
	}

	evs, err := s.engine.Write(data)
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindTerminalParse, err, nil)
	}

	s.mu.Lock()
	s.pendingDelta.Write(data)
	s.pendingEvts = append(s.pendingEvts, evs...)
	s.mu.Unlock()
	*events = append(*events, evs...)
	return nil
}

// Exited reports the child's exit status without blocking, for wait_for's
// process_exited condition (spec §4.6).
func (s *Session) Exited() (*model.ExitStatus, bool) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.exitStatus, true
	default:
		return nil, false
	}
}

// WaitForExit polls the child for exit up to timeout (spec §4.3).
func (s *Session) WaitForExit(timeout time.Duration) (*model.ExitStatus, bool) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.exitStatus, true
	case <-time.After(timeout):
		return nil, false
	}
}

// TerminateProcessGroup signals the entire process group, waits grace, then
// force-kills, ensuring no orphaned descendants (spec §4.3).
func (s *Session) TerminateProcessGroup(grace time.Duration) error {
	s.mu.Lock()
	s.terminated = true
	pid := s.cmd.Process.Pid
	s.mu.Unlock()

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
		return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"op": "terminate", "signal": "SIGTERM"})
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(grace):
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"op": "terminate", "signal": "SIGKILL"})
	}
	<-s.done
	return nil
}

// Close releases the session's PTY file descriptors and terminal engine.
func (s *Session) Close() error {
	ptyErr := s.ptmx.Close()
	engineErr := s.engine.Close()
	if ptyErr != nil {
		return fmt.Errorf("close pty: %w", ptyErr)
	}
	return engineErr
}
