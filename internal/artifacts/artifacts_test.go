package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lelanhus/ptybox/internal/harnesserr"
)

func TestWriteJSONAndFinalize(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "bundle"), false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := w.WriteJSON("run.json", map[string]string{"status": "passed"}); err != nil {
		t.Fatalf("WriteJSON(run.json) error = %v", err)
	}
	if err := w.WriteJSON("policy.json", map[string]string{"sandbox": "isolated"}); err != nil {
		t.Fatalf("WriteJSON(policy.json) error = %v", err)
	}
	if err := w.AppendEvent(map[string]string{"event": "one"}); err != nil {
		t.Fatalf("AppendEvent error = %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "bundle", "checksums.json"))
	if err != nil {
		t.Fatalf("read checksums.json: %v", err)
	}
	var sums map[string]string
	if err := json.Unmarshal(data, &sums); err != nil {
		t.Fatalf("unmarshal checksums.json: %v", err)
	}
	for _, want := range []string{"run.json", "policy.json", "events.jsonl"} {
		if _, ok := sums[want]; !ok {
			t.Errorf("checksums.json missing entry for %q: %+v", want, sums)
		}
	}
}

func TestNew_RejectsNonEmptyWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(dir, false)
	if err == nil {
		t.Fatal("New() error = nil, want artifacts_exists error")
	}
	var herr *harnesserr.Error
	if !harnesserr.As(err, &herr) {
		t.Fatalf("error is not *harnesserr.Error: %v", err)
	}
	if herr.Context["reason"] != "artifacts_exists" {
		t.Errorf("Context[reason] = %v, want artifacts_exists", herr.Context["reason"])
	}
}

func TestNew_OverwriteAllowed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir, true); err != nil {
		t.Fatalf("New() with overwrite=true error = %v", err)
	}
}

func TestNextSnapshotPath(t *testing.T) {
	w := &Writer{dir: t.TempDir(), hashes: make(map[string]uint64)}
	if got := w.NextSnapshotPath(); got != filepath.Join("snapshots", "0001.json") {
		t.Errorf("first snapshot path = %q", got)
	}
	if got := w.NextSnapshotPath(); got != filepath.Join("snapshots", "0002.json") {
		t.Errorf("second snapshot path = %q", got)
	}
}
