// Package docio loads the on-disk Policy/Scenario documents spec §6
// describes: JSON is canonical, YAML is an accepted alias, and unknown keys
// are rejected in both forms.
package docio

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/lelanhus/ptybox/internal/harnesserr"
	"gopkg.in/yaml.v3"
)

// Load decodes path into v, selecting JSON or YAML by file extension
// (.yaml/.yml -> YAML, anything else -> JSON).
func Load(path string, data []byte, v any) error {
	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return harnesserr.New(harnesserr.KindProtocol, "malformed document: "+err.Error(), map[string]any{"path": path})
		}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return harnesserr.New(harnesserr.KindProtocol, "malformed document: "+err.Error(), map[string]any{"path": path})
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
