// Package testutil loads the YAML conformance scenarios shared by Toy tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ScenariosDir is relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario is one program together with the outcome it must produce.
type Scenario struct {
	Name   string          `yaml:"-"`
	Cmd    string          `yaml:"cmd"`
	Source string          `yaml:"source"`
	Pretty bool            `yaml:"pretty,omitempty"`
	Policy *ScenarioPolicy `yaml:"policy,omitempty"`
	Tags   []string        `yaml:"tags,omitempty"`
	Expect ExpectedResult  `yaml:"expect"`
}

// ScenarioPolicy overrides the built-in plugin policy.
type ScenarioPolicy struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny,omitempty"`
}

// ExpectedResult describes the outcome. A nil Stdout is not checked.
type ExpectedResult struct {
	ExitCode       int            `yaml:"exitCode"`
	Stdout         *string        `yaml:"stdout,omitempty"`
	StdoutContains string         `yaml:"stdoutContains,omitempty"`
	StderrContains string         `yaml:"stderrContains,omitempty"`
	Diagnostics    []ExpectedDiag `yaml:"diagnostics,omitempty"`
}

// ExpectedDiag matches a reported diagnostic. Zero fields are ignored.
type ExpectedDiag struct {
	Code            string `yaml:"code"`
	Line            int    `yaml:"line,omitempty"`
	MessageContains string `yaml:"messageContains,omitempty"`
}

// LoadScenario reads a single scenario file. The scenario is named after
// the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "parse scenario %s", path)
	}
	if s.Cmd == "" {
		s.Cmd = "run"
	}
	s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &s, nil
}

// ListScenarios returns the scenario files under root in name order.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// HasTag reports whether s carries tag.
func (s *Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
