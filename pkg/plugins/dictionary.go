package plugins

import (
	"math"
	"reflect"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/lexer"
)

func dictionaryDef() Def {
	return Def{
		Name:    "Dictionary",
		Summary: "insertion-ordered key/value maps",
		Members: []string{"Dictionary()", "d[k]", "d[:]", "Insert(k, v)", "Delete(k)", "Length()",
			"Contains(k)", "Keys()", "Values()", "ToString()"},
		New: func() evaluator.Plugin {
			return &constructor{name: "Dictionary", arity: 0, make: func([]evaluator.Value) evaluator.Value {
				return NewDictionary()
			}}
		},
	}
}

// Dictionary maps keys to values and iterates in insertion order. Keys
// may be any comparable value; NaN is rejected.
type Dictionary struct {
	m        *linkedhashmap.Map
	visiting bool
}

// NewDictionary returns an empty Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{m: linkedhashmap.New()}
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return d.m.Size() }

// Get returns the value for key, or null.
func (d *Dictionary) Get(key evaluator.Value) evaluator.Value {
	v, ok := d.m.Get(key)
	if !ok {
		return evaluator.Null{}
	}
	return v
}

// Put stores value under key.
func (d *Dictionary) Put(key, value evaluator.Value) {
	d.m.Put(key, value)
}

func (d *Dictionary) TypeName() string { return "dictionary" }

func (d *Dictionary) copy() *Dictionary {
	out := NewDictionary()
	it := d.m.Iterator()
	for it.Next() {
		out.m.Put(it.Key(), it.Value())
	}
	return out
}

func checkKey(tok lexer.Token, key evaluator.Value) error {
	if n, ok := key.(evaluator.Number); ok && math.IsNaN(float64(n)) {
		return evaluator.NewRuntimeError(tok, "nan can't be used as a dictionary key")
	}
	if !hashable(key) {
		return evaluator.NewRuntimeError(tok, "a %s can't be used as a dictionary key", evaluator.TypeName(key))
	}
	return nil
}

func hashable(v evaluator.Value) bool {
	t := reflect.TypeOf(v)
	return t == nil || t.Comparable()
}

func (d *Dictionary) Access(in *evaluator.Interpreter, tok lexer.Token, first, second, third evaluator.Value) (evaluator.Value, error) {
	if isWholeSlice(first, second) && third == nil {
		return d.copy(), nil
	}
	if second != nil || third != nil {
		return nil, evaluator.NewRuntimeError(tok, "can't slice a dictionary, except with [:]")
	}
	if err := checkKey(tok, first); err != nil {
		return nil, err
	}
	return &evaluator.Ref{
		Get: func() evaluator.Value { return d.Get(first) },
		Set: func(v evaluator.Value) error {
			d.Put(first, v)
			return nil
		},
	}, nil
}

func (d *Dictionary) Property(in *evaluator.Interpreter, name lexer.Token) (evaluator.Value, error) {
	switch name.Lexeme {
	case "Insert":
		return evaluator.NewNative("Insert", 2, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			if err := checkKey(tok, args[0]); err != nil {
				return nil, err
			}
			d.Put(args[0], args[1])
			return evaluator.Null{}, nil
		}), nil
	case "Delete":
		return evaluator.NewNative("Delete", 1, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			if err := checkKey(tok, args[0]); err != nil {
				return nil, err
			}
			d.m.Remove(args[0])
			return evaluator.Null{}, nil
		}), nil
	case "Length":
		return evaluator.NewNative("Length", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.Number(d.Len()), nil
		}), nil
	case "Contains":
		return evaluator.NewNative("Contains", 1, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			if err := checkKey(tok, args[0]); err != nil {
				return nil, err
			}
			_, ok := d.m.Get(args[0])
			return evaluator.Bool(ok), nil
		}), nil
	case "Keys":
		return evaluator.NewNative("Keys", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			return NewArray(d.m.Keys()...), nil
		}), nil
	case "Values":
		return evaluator.NewNative("Values", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			return NewArray(d.m.Values()...), nil
		}), nil
	case "ToString":
		return evaluator.NewNative("ToString", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.String(d.String()), nil
		}), nil
	}
	return nil, unknownProperty(name)
}

// String renders "{k:v,k:v}" in insertion order.
func (d *Dictionary) String() string {
	if d.visiting {
		return "<circular reference>"
	}
	d.visiting = true
	defer func() { d.visiting = false }()

	parts := make([]string, 0, d.Len())
	it := d.m.Iterator()
	for it.Next() {
		parts = append(parts, evaluator.Stringify(it.Key())+":"+evaluator.Stringify(it.Value()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
