package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lelanhus/ptybox/internal/docio"
	"github.com/lelanhus/ptybox/internal/harness"
	"github.com/lelanhus/ptybox/internal/model"
	"github.com/lelanhus/ptybox/internal/policy"
)

// loadPolicy reads a Policy document from path, or returns the deny-by-default
// policy for command/cwd when path is empty (spec §4.8's driver default,
// generalized to exec/run too).
func loadPolicy(path, command, cwd string) (policy.Policy, error) {
	if path == "" {
		return harness.DefaultDriverPolicy(command, cwd), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	var p policy.Policy
	if err := docio.Load(path, data, &p); err != nil {
		return policy.Policy{}, err
	}
	return p, nil
}

func loadScenario(path string) (model.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Scenario{}, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s model.Scenario
	if err := docio.Load(path, data, &s); err != nil {
		return model.Scenario{}, err
	}
	return s, nil
}

func hostInfo() policy.HostInfo {
	home, _ := os.UserHomeDir()
	return policy.HostInfo{
		Home:        home,
		TempDir:     os.TempDir(),
		SystemRoots: []string{"/"},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
