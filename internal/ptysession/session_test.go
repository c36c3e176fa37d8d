package ptysession

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lelanhus/ptybox/internal/clockwork"
	"github.com/lelanhus/ptybox/internal/model"
)

func TestEncodeKey(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Enter", "\r"},
		{"Tab", "\t"},
		{"Escape", "\x1b"},
		{"Up", "\x1b[A"},
		{"Ctrl+A", "\x01"},
		{"x", "x"},
	}
	for _, tc := range cases {
		got, err := EncodeKey(tc.name)
		if err != nil {
			t.Errorf("EncodeKey(%q) error = %v", tc.name, err)
			continue
		}
		if string(got) != tc.want {
			t.Errorf("EncodeKey(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEncodeKey_Invalid(t *testing.T) {
	if _, err := EncodeKey("NotAKey"); err == nil {
		t.Error("EncodeKey(\"NotAKey\") error = nil, want error")
	}
	if _, err := EncodeKey(""); err == nil {
		t.Error("EncodeKey(\"\") error = nil, want error")
	}
}

func TestSpawnEchoAndObserve(t *testing.T) {
	cfg := Config{
		Command:     "/bin/cat",
		InitialSize: model.Size{Rows: 24, Cols: 80},
		Env:         []string{"TERM=xterm"},
		RunID:       "run-test",
		SessionID:   "sess-test",
	}
	sess, err := Spawn(cfg, clockwork.NewAnchored(clockwork.NewFake(time.Unix(0, 0))))
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	defer sess.Close()
	defer sess.TerminateProcessGroup(100 * time.Millisecond)

	if err := sess.Send(model.Action{Kind: model.ActionText, Text: "hello\n"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	obs, err := sess.Observe(context.Background(), time.Now().Add(500*time.Millisecond))
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if !strings.Contains(obs.TranscriptDelta, "hello") {
		t.Errorf("TranscriptDelta = %q, want it to contain %q", obs.TranscriptDelta, "hello")
	}
	if obs.Screen == nil {
		t.Fatal("Screen = nil")
	}
}

func TestTerminateProcessGroup(t *testing.T) {
	cfg := Config{
		Command:     "/bin/sleep",
		Args:        []string{"30"},
		InitialSize: model.Size{Rows: 24, Cols: 80},
		Env:         []string{"TERM=xterm"},
	}
	sess, err := Spawn(cfg, clockwork.NewAnchored(clockwork.NewFake(time.Unix(0, 0))))
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	defer sess.Close()

	if err := sess.TerminateProcessGroup(200 * time.Millisecond); err != nil {
		t.Fatalf("TerminateProcessGroup() error = %v", err)
	}
	status, exited := sess.WaitForExit(time.Second)
	if !exited {
		t.Fatal("process did not exit after TerminateProcessGroup")
	}
	if !status.TerminatedByHarness {
		t.Error("TerminatedByHarness = false, want true")
	}
}
