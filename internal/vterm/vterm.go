// Package vterm is the canonical VT/ANSI state machine (spec §4.4). It wraps
// charmbracelet/x/vt the way the teacher's internal/egg.VTerm does,
// generalized from "reconnect-payload capture for a live viewer" to
// "side-effect-free canonical ScreenSnapshot capture for assertions and
// artifacts".
package vterm

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/x/vt"
	"github.com/mattn/go-runewidth"

	"github.com/lelanhus/ptybox/internal/ids"
	"github.com/lelanhus/ptybox/internal/model"
)

// ansiSeq matches the CSI/OSC/escape sequences vt.Emulator.Render emits so a
// snapshot's lines hold only printable text (spec §4.4: "normalized printable
// strings").
var ansiSeq = regexp.MustCompile(`\x1b(\[[0-9;?]*[a-zA-Z]|\][^\x07\x1b]*(\x07|\x1b\\)|[()][AB0-2]|[=>cDEHM78])`)

// Engine is a single run's terminal state machine. All methods are
// thread-safe; the single-threaded scheduling model in spec §5 means
// contention is not expected, but the session's background PTY-read thread
// still needs a safe hand-off point.
type Engine struct {
	mu           sync.Mutex
	emu          *vt.Emulator
	cols, rows   int
	altScreen    bool
	cursorHidden bool
}

// New creates an Engine with the given initial dimensions.
func New(cols, rows int) *Engine {
	e := &Engine{emu: vt.NewEmulator(cols, rows), cols: cols, rows: rows}
	e.emu.SetCallbacks(vt.Callbacks{
		AltScreen:        func(on bool) { e.altScreen = on },
		CursorVisibility: func(visible bool) { e.cursorHidden = !visible },
	})
	return e
}

// Write feeds PTY output into the emulator. It returns one unsupported_glyph
// event per byte sequence that could not be decoded as UTF-8 (spec §4.4); the
// emulator itself still receives every byte so its own recovery behavior
// governs what appears in the next snapshot.
func (e *Engine) Write(p []byte) ([]model.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	events := scanInvalidUTF8(p)
	if _, err := e.emu.Write(p); err != nil {
		return events, err
	}
	return events, nil
}

func scanInvalidUTF8(p []byte) []model.Event {
	var events []model.Event
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		if r == utf8.RuneError && size <= 1 {
			events = append(events, model.Event{
				Type:    "unsupported_glyph",
				Message: "byte sequence could not be decoded as UTF-8 and was replaced",
			})
			if size == 0 {
				size = 1
			}
		}
		p = p[size:]
	}
	return events
}

// Resize changes the terminal dimensions. Subsequent snapshots reflect the
// new size immediately.
func (e *Engine) Resize(cols, rows int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emu.Resize(cols, rows)
	e.cols, e.rows = cols, rows
}

// Snapshot captures the current screen state. Capture never mutates the
// emulator, so calling it twice without an intervening Write yields
// byte-identical Lines/Cursor — only SnapshotID differs (spec §4.4).
func (e *Engine) Snapshot() *model.ScreenSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos := e.emu.CursorPosition()

	return &model.ScreenSnapshot{
		SnapshotVersion: model.SnapshotVersion,
		SnapshotID:      ids.Snapshot(),
		Rows:            e.rows,
		Cols:            e.cols,
		Cursor: model.Cursor{
			Row:     pos.Y,
			Col:     pos.X,
			Visible: !e.cursorHidden,
		},
		AlternateScreen: e.altScreen,
		Lines:           e.renderLines(),
	}
}

// renderLines strips the emulator's ANSI-styled render into plain,
// width-normalized rows. Must be called with mu held.
func (e *Engine) renderLines() []string {
	raw := ansiSeq.ReplaceAllString(e.emu.Render(), "")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	split := strings.Split(raw, "\n")

	lines := make([]string, e.rows)
	for i := 0; i < e.rows; i++ {
		var text string
		if i < len(split) {
			text = split[i]
		}
		lines[i] = padToWidth(text, e.cols)
	}
	return lines
}

// padToWidth pads or truncates s to exactly cols cells, double-counting wide
// runes, and substitutes the Unicode replacement character for any rune this
// terminal cannot render as a single visible cell (spec §4.4).
func padToWidth(s string, cols int) string {
	var b strings.Builder
	width := 0
	for _, r := range s {
		if width >= cols {
			break
		}
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			rw = 1
			r = '�'
		}
		if width+rw > cols {
			break
		}
		b.WriteRune(r)
		width += rw
	}
	for width < cols {
		b.WriteByte(' ')
		width++
	}
	return b.String()
}

// Close releases the emulator's resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emu.Close()
}
