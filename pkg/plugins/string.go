package plugins

import (
	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/lexer"
)

func stringDef() Def {
	return Def{
		Name:    "String",
		Summary: "indexable, sliceable text",
		Members: []string{"String(v)", "s[i]", "s[b:e:s]", "s[b:e] = text", "Length()", "ToString()"},
		New: func() evaluator.Plugin {
			return &constructor{name: "String", arity: 1, make: func(args []evaluator.Value) evaluator.Value {
				return NewStr(evaluator.Stringify(args[0]))
			}}
		},
	}
}

// Str is a mutable text value addressed by character. Reads of an index
// or slice produce plain strings; assigning through them rewrites the
// Str in place.
type Str struct {
	text string
}

// NewStr wraps text.
func NewStr(text string) *Str { return &Str{text: text} }

// Text returns the current contents.
func (s *Str) Text() string { return s.text }

func (s *Str) String() string { return s.text }

func (s *Str) TypeName() string { return "string" }

// Equal compares by contents against another Str or a plain string.
func (s *Str) Equal(other evaluator.Value) bool {
	switch o := other.(type) {
	case *Str:
		return o.text == s.text
	case evaluator.String:
		return string(o) == s.text
	}
	return false
}

func (s *Str) Access(in *evaluator.Interpreter, tok lexer.Token, first, second, third evaluator.Value) (evaluator.Value, error) {
	runes := []rune(s.text)
	if second == nil {
		i, err := argIndex(tok, first, len(runes))
		if err != nil {
			return nil, err
		}
		return &evaluator.Ref{
			Get: func() evaluator.Value { return evaluator.String(runes[i]) },
			Set: func(v evaluator.Value) error {
				return s.splice(tok, span{begin: i, end: i, step: 1}, v)
			},
		}, nil
	}

	sp, err := resolveSpan(tok, len(runes), first, second, third)
	if err != nil {
		return nil, err
	}
	out := make([]rune, 0, len(runes))
	for _, i := range sp.indices() {
		out = append(out, runes[i])
	}
	return &evaluator.Ref{
		Get: func() evaluator.Value { return evaluator.String(out) },
		Set: func(v evaluator.Value) error { return s.splice(tok, sp, v) },
	}, nil
}

// splice replaces the characters covered by sp with the text of v.
func (s *Str) splice(tok lexer.Token, sp span, v evaluator.Value) error {
	if sp.stepped {
		return evaluator.NewRuntimeError(tok, "can't assign to a slice with a step")
	}
	text, err := argString(tok, "string assignment", v)
	if err != nil {
		return err
	}
	runes := []rune(s.text)
	if len(runes) == 0 {
		s.text = text
		return nil
	}
	begin, end := sp.begin, sp.end
	if begin > end {
		begin, end = end, begin
	}
	s.text = string(runes[:begin]) + text + string(runes[end+1:])
	return nil
}

func (s *Str) Property(in *evaluator.Interpreter, name lexer.Token) (evaluator.Value, error) {
	switch name.Lexeme {
	case "Length":
		return evaluator.NewNative("Length", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.Number(len([]rune(s.text))), nil
		}), nil
	case "ToString":
		return evaluator.NewNative("ToString", 0, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.String(s.text), nil
		}), nil
	}
	return nil, unknownProperty(name)
}
