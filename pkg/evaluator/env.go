package evaluator

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrRedefined is the cause when Define hits a name already bound in the frame.
	ErrRedefined = errors.New("can't redefine variable")
	// ErrUndefined is the cause when Set finds no binding anywhere in the chain.
	ErrUndefined = errors.New("undefined variable")
	// ErrConstant is the cause when Set targets a constant binding.
	ErrConstant = errors.New("can't assign to constant")
)

// BindingError reports a failed Define or Set for Name.
type BindingError struct {
	Name string
	Err  error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%s '%s'", e.Err, e.Name)
}

// Cause returns the sentinel, for errors.Cause.
func (e *BindingError) Cause() error { return e.Err }

func (e *BindingError) Unwrap() error { return e.Err }

type binding struct {
	value    Value
	constant bool
}

// Env is a scoped environment for variable bindings.
// Frames are shared by pointer, so closures see later writes.
type Env struct {
	bindings map[string]*binding
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]*binding),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Parent returns the enclosing scope, or nil for the outermost one.
func (e *Env) Parent() *Env {
	return e.parent
}

// Define binds name in this frame. It fails if the frame already has it.
func (e *Env) Define(name string, val Value, constant bool) error {
	if _, ok := e.bindings[name]; ok {
		return &BindingError{Name: name, Err: ErrRedefined}
	}
	e.bindings[name] = &binding{value: val, constant: constant}
	return nil
}

// Get looks up name through the parent chain and returns Undefined when
// no frame binds it.
func (e *Env) Get(name string) Value {
	if b := e.find(name); b != nil {
		return b.value
	}
	return Undefined
}

// Lookup is Get with an explicit found flag.
func (e *Env) Lookup(name string) (Value, bool) {
	if b := e.find(name); b != nil {
		return b.value, true
	}
	return nil, false
}

// Has checks whether a variable is defined in this scope or any parent.
func (e *Env) Has(name string) bool {
	return e.find(name) != nil
}

// Set overwrites the innermost binding of name and returns the new value.
func (e *Env) Set(name string, val Value) (Value, error) {
	b := e.find(name)
	if b == nil {
		return nil, &BindingError{Name: name, Err: ErrUndefined}
	}
	if b.constant {
		return nil, &BindingError{Name: name, Err: ErrConstant}
	}
	b.value = val
	return val, nil
}

// GetAt reads name from the frame exactly distance parents up.
func (e *Env) GetAt(distance int, name string) Value {
	if b, ok := e.ancestor(distance).bindings[name]; ok {
		return b.value
	}
	return Undefined
}

// SetAt writes name in the frame exactly distance parents up.
func (e *Env) SetAt(distance int, name string, val Value) (Value, error) {
	return e.ancestor(distance).setLocal(name, val)
}

// Names lists the names bound in this frame, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Env) setLocal(name string, val Value) (Value, error) {
	b, ok := e.bindings[name]
	if !ok {
		return nil, &BindingError{Name: name, Err: ErrUndefined}
	}
	if b.constant {
		return nil, &BindingError{Name: name, Err: ErrConstant}
	}
	b.value = val
	return val, nil
}

func (e *Env) find(name string) *binding {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.bindings[name]; ok {
			return b
		}
	}
	return nil
}

func (e *Env) ancestor(distance int) *Env {
	env := e
	for i := 0; i < distance && env.parent != nil; i++ {
		env = env.parent
	}
	return env
}
