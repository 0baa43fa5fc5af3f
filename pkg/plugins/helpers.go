package plugins

import (
	"math"

	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/lexer"
)

// install binds v under alias, or under name when no alias was given.
func install(env *evaluator.Env, alias, name string, v evaluator.Value) error {
	if alias != "" {
		name = alias
	}
	return env.Define(name, v, true)
}

// table is a read-only Bundle over a fixed set of members.
type table struct {
	name    string
	members map[string]evaluator.Value
}

func (t *table) Property(in *evaluator.Interpreter, name lexer.Token) (evaluator.Value, error) {
	v, ok := t.members[name.Lexeme]
	if !ok {
		return nil, unknownProperty(name)
	}
	return v, nil
}

func (t *table) TypeName() string { return t.name }

func (t *table) String() string { return "<" + t.name + ">" }

func unknownProperty(name lexer.Token) error {
	return evaluator.NewRuntimeError(name, "unknown property '%s'", name.Lexeme)
}

func argNumber(tok lexer.Token, fn string, v evaluator.Value) (float64, error) {
	n, ok := evaluator.AsNumber(v)
	if !ok {
		return 0, evaluator.NewRuntimeError(tok, "%s: unexpected argument type %s (expected number)", fn, evaluator.TypeName(v))
	}
	return n, nil
}

func argString(tok lexer.Token, fn string, v evaluator.Value) (string, error) {
	switch s := v.(type) {
	case evaluator.String:
		return string(s), nil
	case *Str:
		return s.text, nil
	}
	return "", evaluator.NewRuntimeError(tok, "%s: unexpected argument type %s (expected string)", fn, evaluator.TypeName(v))
}

// argIndex checks that v is a whole number in [0, limit).
func argIndex(tok lexer.Token, v evaluator.Value, limit int) (int, error) {
	n, ok := evaluator.AsNumber(v)
	if !ok || n != math.Trunc(n) {
		return 0, evaluator.NewRuntimeError(tok, "index must be a whole number, got %s", evaluator.Stringify(v))
	}
	if n < 0 || n >= float64(limit) {
		return 0, evaluator.NewRuntimeError(tok, "index %s out of range (length %d)", evaluator.FormatNumber(n), limit)
	}
	return int(n), nil
}

// span is a resolved slice: inclusive bounds walked by step.
type span struct {
	begin, end, step int
	stepped          bool
}

// resolveSpan turns slice operands into bounds over a sequence of size
// elements. An omitted first bound arrives as -inf and an omitted second
// as +inf; both ends are inclusive.
func resolveSpan(tok lexer.Token, size int, first, second, third evaluator.Value) (span, error) {
	s := span{begin: 0, end: size - 1, step: 1}
	if n, ok := evaluator.AsNumber(first); !ok || !math.IsInf(n, -1) {
		i, err := argIndex(tok, first, size)
		if err != nil {
			return s, err
		}
		s.begin = i
	}
	if n, ok := evaluator.AsNumber(second); !ok || !math.IsInf(n, 1) {
		i, err := argIndex(tok, second, size)
		if err != nil {
			return s, err
		}
		s.end = i
	}
	if third != nil {
		n, ok := evaluator.AsNumber(third)
		if !ok || n != math.Trunc(n) {
			return s, evaluator.NewRuntimeError(tok, "slice step must be a whole number, got %s", evaluator.Stringify(third))
		}
		if n == 0 {
			return s, evaluator.NewRuntimeError(tok, "slice step can't be 0")
		}
		s.step = int(n)
		s.stepped = true
	}
	return s, nil
}

// indices lists the positions the span visits. A negative step walks
// from end back to begin.
func (s span) indices() []int {
	var out []int
	i := s.begin
	if s.step < 0 {
		i = s.end
	}
	for ; i >= s.begin && i <= s.end; i += s.step {
		out = append(out, i)
	}
	return out
}

// isWholeSlice reports the [:] form.
func isWholeSlice(first, second evaluator.Value) bool {
	f, ok1 := evaluator.AsNumber(first)
	s, ok2 := evaluator.AsNumber(second)
	return ok1 && ok2 && math.IsInf(f, -1) && math.IsInf(s, 1)
}
