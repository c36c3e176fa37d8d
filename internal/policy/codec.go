package policy

import (
	"bytes"
	"encoding/json"

	"github.com/lelanhus/ptybox/internal/harnesserr"
	"gopkg.in/yaml.v3"
)

// Marshal renders p as canonical JSON (spec §6: "JSON is canonical; YAML is
// an accepted alias"). encoding/json's struct-field order is stable given a
// fixed Policy definition, which is what the round-trip-identity property
// (spec §8) needs: ParseJSON(Marshal(p)) == p.
func Marshal(p Policy) ([]byte, error) {
	return json.Marshal(p)
}

// ParseJSON decodes a Policy document, rejecting unknown keys per spec §6.
func ParseJSON(data []byte) (Policy, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var p Policy
	if err := dec.Decode(&p); err != nil {
		return Policy{}, harnesserr.New(harnesserr.KindProtocol, "malformed policy document: "+err.Error(), nil)
	}
	return p, nil
}

// ParseYAML decodes a Policy document written in the YAML alias form,
// rejecting unknown keys per spec §6.
func ParseYAML(data []byte) (Policy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Policy
	if err := dec.Decode(&p); err != nil {
		return Policy{}, harnesserr.New(harnesserr.KindProtocol, "malformed policy document: "+err.Error(), nil)
	}
	return p, nil
}
