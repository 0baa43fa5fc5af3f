package evaluator

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/lexer"
)

// Callable is anything script code can call. Arity returns the exact
// argument count, or -1 to accept any count.
type Callable interface {
	Arity() int
	Call(in *Interpreter, tok lexer.Token, args []Value) (Value, error)
}

// Bundle exposes named properties through dot syntax.
type Bundle interface {
	Property(in *Interpreter, name lexer.Token) (Value, error)
}

// Collection serves bracket access. second is nil for a plain index and
// third is nil when no step was written; an omitted slice bound arrives as
// an infinite Number.
type Collection interface {
	Access(in *Interpreter, tok lexer.Token, first, second, third Value) (Value, error)
}

// Assignable is a handle returned by Access or Property that can also be
// written. Reads go through Value.
type Assignable interface {
	Value() Value
	Assign(v Value) error
}

// Plugin installs host functionality into an environment. An empty alias
// means the plugin's names go straight into env; otherwise it binds a
// single value under alias.
type Plugin interface {
	Initialize(env *Env, alias string) error
}

// ErrDenied is returned, possibly wrapped, by a PluginLoader that refuses
// an import on policy grounds.
var ErrDenied = errors.New("denied by policy")

// PluginLoader resolves import names to plugins.
type PluginLoader interface {
	Load(name string) (Plugin, error)
}

// NativeFunc adapts a Go function to Callable.
type NativeFunc struct {
	Name   string
	Params int
	Fn     func(in *Interpreter, tok lexer.Token, args []Value) (Value, error)
}

// NewNative builds a NativeFunc taking exactly params arguments.
func NewNative(name string, params int, fn func(in *Interpreter, tok lexer.Token, args []Value) (Value, error)) *NativeFunc {
	return &NativeFunc{Name: name, Params: params, Fn: fn}
}

func (f *NativeFunc) Arity() int { return f.Params }

func (f *NativeFunc) Call(in *Interpreter, tok lexer.Token, args []Value) (Value, error) {
	return f.Fn(in, tok, args)
}

func (f *NativeFunc) String() string {
	return fmt.Sprintf("<native %s>", f.Name)
}

// Ref is an Assignable over a getter and setter pair.
type Ref struct {
	Get func() Value
	Set func(Value) error
}

func (r *Ref) Value() Value { return r.Get() }

func (r *Ref) Assign(v Value) error {
	if r.Set == nil {
		return errors.New("value is read-only")
	}
	return r.Set(v)
}

// Unwrap returns the current value behind an Assignable handle, or v.
func Unwrap(v Value) Value {
	if a, ok := v.(Assignable); ok {
		return a.Value()
	}
	return v
}
