// Package capabilities implements Toy plugin policy loading and enforcement.
package capabilities

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ProjectFile is looked up in the project directory first.
	ProjectFile = ".toypolicy.yaml"
	// UserDir holds the fallback policy under the home directory.
	UserDir  = ".toy"
	UserFile = "policy.yaml"
)

// Wildcard in an allow list permits every plugin.
const Wildcard = "*"

// DefaultDenied lists plugins the built-in policy withholds.
var DefaultDenied = []string{"IO"}

// Policy decides which plugins a program may import.
type Policy struct {
	allowAll bool
	allowed  map[string]bool
	denied   map[string]bool

	// Source is the file the policy came from, empty for built-in policies.
	Source   string
	Preload  []string
	LogLevel slog.Level
}

// PolicyFile is the YAML shape of a policy file.
type PolicyFile struct {
	Allow    []string `yaml:"allow,omitempty"`
	Deny     []string `yaml:"deny,omitempty"`
	Preload  []string `yaml:"preload,omitempty"`
	LogLevel string   `yaml:"log_level,omitempty"`
}

// IsAllowed reports whether the plugin called name may be imported.
// Deny always wins over allow.
func (p *Policy) IsAllowed(name string) bool {
	if p == nil {
		return false
	}
	if p.denied[name] {
		return false
	}
	return p.allowAll || p.allowed[name]
}

// Allowed returns the explicitly allowed names, sorted. A policy that
// allows everything reports the wildcard.
func (p *Policy) Allowed() []string {
	if p.allowAll {
		return []string{Wildcard}
	}
	return sortedKeys(p.allowed)
}

// Denied returns the denied names, sorted.
func (p *Policy) Denied() []string {
	return sortedKeys(p.denied)
}

// LoadPolicy loads the policy for projectDir.
// Precedence: project (.toypolicy.yaml) → user (~/.toy/policy.yaml) → Default().
// A file that exists but fails to parse is an error; missing files fall through.
func LoadPolicy(projectDir string) (*Policy, error) {
	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, UserDir, UserFile))
	}

	for _, path := range candidates {
		pf, err := LoadPolicyFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		p, err := Build(pf)
		if err != nil {
			return nil, errors.Wrapf(err, "policy %s", path)
		}
		p.Source = path
		return p, nil
	}
	return Default(), nil
}

// LoadPolicyFile reads and decodes a single YAML policy file.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errors.Wrapf(err, "parse policy %s", path)
	}
	return &pf, nil
}

// Build turns a decoded file into a Policy.
func Build(pf *PolicyFile) (*Policy, error) {
	p := &Policy{
		allowed: make(map[string]bool),
		denied:  make(map[string]bool),
		Preload: pf.Preload,
	}
	for _, name := range pf.Allow {
		if name == Wildcard {
			p.allowAll = true
			continue
		}
		p.allowed[name] = true
	}
	for _, name := range pf.Deny {
		p.denied[name] = true
	}
	if pf.LogLevel != "" {
		if err := p.LogLevel.UnmarshalText([]byte(strings.ToUpper(pf.LogLevel))); err != nil {
			return nil, errors.Wrapf(err, "invalid log_level %q", pf.LogLevel)
		}
	}
	for _, name := range p.Preload {
		if !p.IsAllowed(name) {
			return nil, errors.Errorf("preload of %q is not allowed by the policy", name)
		}
	}
	return p, nil
}

// Default allows every plugin except the ones touching the host system.
func Default() *Policy {
	p := &Policy{allowAll: true, denied: make(map[string]bool)}
	for _, name := range DefaultDenied {
		p.denied[name] = true
	}
	return p
}

// AllowAll returns a policy that permits every plugin. Used for --unsafe-allow-all.
func AllowAll() *Policy {
	return &Policy{allowAll: true}
}

// DenyAll returns a policy that denies every plugin.
func DenyAll() *Policy {
	return &Policy{allowed: make(map[string]bool)}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
