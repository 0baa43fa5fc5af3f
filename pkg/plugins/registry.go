// Package plugins provides the host plugins scripts reach with import.
package plugins

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/capabilities"
	"github.com/thomasrohde/toy/pkg/evaluator"
)

// Def describes an importable plugin.
type Def struct {
	Name    string
	Summary string
	Members []string
	// New returns a fresh plugin instance for each import.
	New func() evaluator.Plugin
}

// Registry holds registered plugins and the policy gating them.
type Registry struct {
	defs   map[string]*Def
	policy *capabilities.Policy
}

// NewRegistry creates an empty registry. A nil policy means
// capabilities.Default().
func NewRegistry(policy *capabilities.Policy) *Registry {
	if policy == nil {
		policy = capabilities.Default()
	}
	return &Registry{
		defs:   make(map[string]*Def),
		policy: policy,
	}
}

// NewDefault creates a registry holding every built-in plugin.
func NewDefault(policy *capabilities.Policy) *Registry {
	r := NewRegistry(policy)
	RegisterDefaults(r)
	return r
}

// Register adds a plugin definition, replacing any with the same name.
func (r *Registry) Register(def Def) {
	r.defs[def.Name] = &def
}

// Get retrieves a plugin definition by name.
func (r *Registry) Get(name string) *Def {
	return r.defs[name]
}

// All returns every definition sorted by name.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, name := range r.Names() {
		out = append(out, r.defs[name])
	}
	return out
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Policy returns the policy imports are checked against.
func (r *Registry) Policy() *capabilities.Policy { return r.policy }

// Load implements evaluator.PluginLoader. A plugin the policy rejects
// fails with an error wrapping evaluator.ErrDenied.
func (r *Registry) Load(name string) (evaluator.Plugin, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, errors.Errorf("unknown plugin '%s'", name)
	}
	if !r.policy.IsAllowed(name) {
		return nil, errors.Wrapf(evaluator.ErrDenied, "import of '%s'", name)
	}
	return def.New(), nil
}

// RegisterDefaults adds all built-in plugins.
func RegisterDefaults(r *Registry) {
	r.Register(standardDef())
	r.Register(toyDef())
	r.Register(mathDef())
	r.Register(arrayDef())
	r.Register(dictionaryDef())
	r.Register(stringDef())
	r.Register(ioDef())
}
