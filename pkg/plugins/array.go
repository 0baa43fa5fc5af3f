package plugins

import (
	"math"
	"strings"

	"github.com/emirpasic/gods/lists/arraylist"

	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/lexer"
)

// constructor is a plugin that binds one callable producing instances.
type constructor struct {
	name  string
	arity int
	make  func(args []evaluator.Value) evaluator.Value
}

func (c *constructor) Initialize(env *evaluator.Env, alias string) error {
	return install(env, alias, c.name, c)
}

func (c *constructor) Arity() int { return c.arity }

func (c *constructor) Call(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
	return c.make(args), nil
}

func (c *constructor) String() string { return "<" + c.name + ">" }

func arrayDef() Def {
	return Def{
		Name:    "Array",
		Summary: "growable ordered lists",
		Members: []string{"Array(...)", "a[i]", "a[b:e:s]", "Push(v)", "Pop()", "Unshift(v)", "Shift()",
			"Length()", "Sort(cmp)", "Insert(i, v)", "Delete(i)", "ToString()"},
		New: func() evaluator.Plugin {
			return &constructor{name: "Array", arity: -1, make: func(args []evaluator.Value) evaluator.Value {
				return NewArray(args...)
			}}
		},
	}
}

// Array is a mutable list of values. Slicing copies; indexing yields an
// assignable element handle.
type Array struct {
	list     *arraylist.List
	visiting bool
}

// NewArray builds an Array holding values in order.
func NewArray(values ...evaluator.Value) *Array {
	a := &Array{list: arraylist.New()}
	for _, v := range values {
		a.list.Add(v)
	}
	return a
}

// Len returns the number of elements.
func (a *Array) Len() int { return a.list.Size() }

// At returns element i, or null when out of range.
func (a *Array) At(i int) evaluator.Value {
	v, ok := a.list.Get(i)
	if !ok {
		return evaluator.Null{}
	}
	return v
}

// Values returns a copy of the elements.
func (a *Array) Values() []evaluator.Value {
	raw := a.list.Values()
	out := make([]evaluator.Value, len(raw))
	copy(out, raw)
	return out
}

func (a *Array) TypeName() string { return "array" }

func (a *Array) Access(in *evaluator.Interpreter, tok lexer.Token, first, second, third evaluator.Value) (evaluator.Value, error) {
	if second == nil {
		i, err := argIndex(tok, first, a.Len())
		if err != nil {
			return nil, err
		}
		return &evaluator.Ref{
			Get: func() evaluator.Value { return a.At(i) },
			Set: func(v evaluator.Value) error {
				a.list.Set(i, v)
				return nil
			},
		}, nil
	}

	s, err := resolveSpan(tok, a.Len(), first, second, third)
	if err != nil {
		return nil, err
	}
	out := NewArray()
	for _, i := range s.indices() {
		out.list.Add(a.At(i))
	}
	return &evaluator.Ref{
		Get: func() evaluator.Value { return out },
		Set: func(v evaluator.Value) error { return a.replace(tok, s, v) },
	}, nil
}

// replace swaps the elements covered by s for the elements of v.
func (a *Array) replace(tok lexer.Token, s span, v evaluator.Value) error {
	if s.stepped {
		return evaluator.NewRuntimeError(tok, "can't assign to a slice with a step")
	}
	src, ok := v.(*Array)
	if !ok {
		return evaluator.NewRuntimeError(tok, "can only assign an array to an array slice, got %s", evaluator.TypeName(v))
	}
	values := src.Values()
	if a.Len() == 0 {
		a.list.Add(values...)
		return nil
	}
	begin, end := s.begin, s.end
	if begin > end {
		begin, end = end, begin
	}
	for i := end; i >= begin; i-- {
		a.list.Remove(i)
	}
	a.list.Insert(begin, values...)
	return nil
}

func (a *Array) Property(in *evaluator.Interpreter, name lexer.Token) (evaluator.Value, error) {
	switch name.Lexeme {
	case "Push":
		return evaluator.NewNative("Push", 1, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			a.list.Add(args[0])
			return evaluator.Null{}, nil
		}), nil
	case "Pop":
		return evaluator.NewNative("Pop", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			if a.Len() == 0 {
				return nil, evaluator.NewRuntimeError(tok, "can't pop from an empty array")
			}
			v := a.At(a.Len() - 1)
			a.list.Remove(a.Len() - 1)
			return v, nil
		}), nil
	case "Unshift":
		return evaluator.NewNative("Unshift", 1, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			a.list.Insert(0, args[0])
			return evaluator.Null{}, nil
		}), nil
	case "Shift":
		return evaluator.NewNative("Shift", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			if a.Len() == 0 {
				return nil, evaluator.NewRuntimeError(tok, "can't shift from an empty array")
			}
			v := a.At(0)
			a.list.Remove(0)
			return v, nil
		}), nil
	case "Length":
		return evaluator.NewNative("Length", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.Number(a.Len()), nil
		}), nil
	case "Sort":
		return evaluator.NewNative("Sort", 1, a.sort), nil
	case "Insert":
		return evaluator.NewNative("Insert", 2, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			i, err := argIndex(tok, args[0], a.Len()+1)
			if err != nil {
				return nil, err
			}
			a.list.Insert(i, args[1])
			return evaluator.Null{}, nil
		}), nil
	case "Delete":
		return evaluator.NewNative("Delete", 1, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			i, err := argIndex(tok, args[0], a.Len())
			if err != nil {
				return nil, err
			}
			a.list.Remove(i)
			return evaluator.Null{}, nil
		}), nil
	case "ToString":
		return evaluator.NewNative("ToString", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.String(a.String()), nil
		}), nil
	}
	return nil, unknownProperty(name)
}

// sort orders the array in place with a script comparator returning a
// negative, zero or positive number. The first comparator failure is
// reported once sorting finishes.
func (a *Array) sort(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
	cmp := args[0]
	var failure error
	a.list.Sort(func(x, y interface{}) int {
		if failure != nil {
			return 0
		}
		res, err := in.Call(cmp, tok, []evaluator.Value{x, y})
		if err != nil {
			failure = err
			return 0
		}
		n, ok := res.(evaluator.Number)
		if !ok || math.IsNaN(float64(n)) {
			failure = evaluator.NewRuntimeError(tok, "unexpected result type from comparator (expected number)")
			return 0
		}
		switch {
		case n < 0:
			return -1
		case n > 0:
			return 1
		}
		return 0
	})
	if failure != nil {
		return nil, failure
	}
	return evaluator.Null{}, nil
}

// String renders "[a,b,c]". An array reached again while it is being
// printed shows as a circular reference.
func (a *Array) String() string {
	if a.visiting {
		return "<circular reference>"
	}
	a.visiting = true
	defer func() { a.visiting = false }()

	parts := make([]string, 0, a.Len())
	for _, v := range a.list.Values() {
		parts = append(parts, evaluator.Stringify(v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
