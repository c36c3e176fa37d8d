// Package artifacts implements the artifacts bundle writer (spec §4.9): a
// durable, best-effort-atomic directory of run.json, policy.json,
// scenario.json, transcript.log, snapshots/NNNN.json, events.jsonl,
// normalization.json, and a closing checksums.json covering every other
// file by a stable 64-bit content hash.
package artifacts

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/lelanhus/ptybox/internal/harnesserr"
)

// Writer accumulates a bundle's files and finalizes them with checksums.json
// last, per spec §4.9.
type Writer struct {
	dir string

	mu       sync.Mutex
	hashes   map[string]uint64
	order    []string
	snapSeq  int
	eventsFH *os.File
}

// New opens (and, if necessary, creates) dir as an artifacts bundle target.
// overwrite=false plus a pre-existing non-empty directory is E_IO /
// artifacts_exists (spec §4.9).
func New(dir string, overwrite bool) (*Writer, error) {
	entries, err := os.ReadDir(dir)
	switch {
	case err == nil && len(entries) > 0 && !overwrite:
		return nil, harnesserr.New(harnesserr.KindIO, "artifacts directory already exists and is not empty", map[string]any{
			"reason": "artifacts_exists",
			"dir":    dir,
		})
	case err != nil && !os.IsNotExist(err):
		return nil, harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"dir": dir})
	}

	if err := os.MkdirAll(filepath.Join(dir, "snapshots"), 0o755); err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"dir": dir})
	}

	return &Writer{dir: dir, hashes: make(map[string]uint64)}, nil
}

// WriteJSON atomically writes v as canonical JSON to relPath within the
// bundle: a temp file is written and renamed into place.
func (w *Writer) WriteJSON(relPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindInternal, err, map[string]any{"file": relPath})
	}
	return w.writeAtomic(relPath, data)
}

// WriteBytes atomically writes raw bytes to relPath (used for transcript.log).
func (w *Writer) WriteBytes(relPath string, data []byte) error {
	return w.writeAtomic(relPath, data)
}

func (w *Writer) writeAtomic(relPath string, data []byte) error {
	full := filepath.Join(w.dir, relPath)
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": relPath})
	}
	if err := os.Rename(tmp, full); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": relPath})
	}

	w.mu.Lock()
	if _, seen := w.hashes[relPath]; !seen {
		w.order = append(w.order, relPath)
	}
	w.hashes[relPath] = xxhash.Sum64(data)
	w.mu.Unlock()
	return nil
}

// NextSnapshotPath returns the next zero-padded snapshots/NNNN.json path, in
// capture order (spec §4.9).
func (w *Writer) NextSnapshotPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapSeq++
	return filepath.Join("snapshots", fmt.Sprintf("%04d.json", w.snapSeq))
}

// OpenEvents opens events.jsonl for incremental appends. Unlike the
// summary files, an append-only log cannot be made atomic per write without
// buffering the whole run in memory, so it is written directly and its
// final content is hashed at Finalize.
func (w *Writer) OpenEvents() error {
	f, err := os.Create(filepath.Join(w.dir, "events.jsonl"))
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": "events.jsonl"})
	}
	w.eventsFH = f
	return nil
}

// AppendEvent writes one observation as a single JSONL line (spec §4.9).
func (w *Writer) AppendEvent(v any) error {
	if w.eventsFH == nil {
		if err := w.OpenEvents(); err != nil {
			return err
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindInternal, err, map[string]any{"file": "events.jsonl"})
	}
	data = append(data, '\n')
	if _, err := w.eventsFH.Write(data); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": "events.jsonl"})
	}
	return nil
}

// Finalize closes events.jsonl (if open), hashes it, and writes
// checksums.json last, covering every other file written through this
// Writer (spec §4.9). The bundle still closes cleanly even if the run
// itself errored or was truncated by a budget.
func (w *Writer) Finalize() error {
	if w.eventsFH != nil {
		path := w.eventsFH.Name()
		if err := w.eventsFH.Close(); err != nil {
			return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": "events.jsonl"})
		}
		w.eventsFH = nil
		data, err := os.ReadFile(path)
		if err != nil {
			return harnesserr.Wrap(harnesserr.KindIO, err, map[string]any{"file": "events.jsonl"})
		}
		w.mu.Lock()
		rel := "events.jsonl"
		if _, seen := w.hashes[rel]; !seen {
			w.order = append(w.order, rel)
		}
		w.hashes[rel] = xxhash.Sum64(data)
		w.mu.Unlock()
	}

	w.mu.Lock()
	sorted := append([]string(nil), w.order...)
	sort.Strings(sorted)
	checksums := make(map[string]string, len(sorted))
	for _, path := range sorted {
		checksums[path] = hex.EncodeToString(u64ToBytes(w.hashes[path]))
	}
	w.mu.Unlock()

	return w.WriteJSON("checksums.json", checksums)
}

func u64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
