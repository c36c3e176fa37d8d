package ptysession

import (
	"fmt"
	"strings"
)

// namedKeys is the stable key-name table from spec §4.3.
var namedKeys = map[string]string{
	"Enter":     "\r",
	"Tab":       "\t",
	"Escape":    "\x1b",
	"Backspace": "\x7f",
	"Up":        "\x1b[A",
	"Down":      "\x1b[B",
	"Right":     "\x1b[C",
	"Left":      "\x1b[D",
	"Home":      "\x1b[H",
	"End":       "\x1b[F",
	"PageUp":    "\x1b[5~",
	"PageDown":  "\x1b[6~",
	"Delete":    "\x1b[3~",
	"Insert":    "\x1b[2~",
	"F1":        "\x1bOP",
	"F2":        "\x1bOQ",
	"F3":        "\x1bOR",
	"F4":        "\x1bOS",
	"F5":        "\x1b[15~",
	"F6":        "\x1b[17~",
	"F7":        "\x1b[18~",
	"F8":        "\x1b[19~",
	"F9":        "\x1b[20~",
	"F10":       "\x1b[21~",
	"F11":       "\x1b[23~",
	"F12":       "\x1b[24~",
}

// EncodeKey turns a named key, a "Ctrl+<ch>" combination, or a literal single
// character into the byte sequence a real terminal would send (spec §4.3).
func EncodeKey(name string) ([]byte, error) {
	if seq, ok := namedKeys[name]; ok {
		return []byte(seq), nil
	}
	if rest, ok := strings.CutPrefix(name, "Ctrl+"); ok {
		if len(rest) != 1 {
			return nil, fmt.Errorf("invalid Ctrl+ combination: %q", name)
		}
		ch := rest[0]
		return []byte{ch & 0x1f}, nil
	}
	if len(name) == 0 {
		return nil, fmt.Errorf("empty key name")
	}
	if n := len([]rune(name)); n == 1 {
		return []byte(name), nil
	}
	return nil, fmt.Errorf("unrecognized key name: %q", name)
}
