package plugins

import (
	"math"

	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/lexer"
)

type mathPlugin struct{}

func mathDef() Def {
	return Def{
		Name:    "Math",
		Summary: "numeric helpers",
		Members: []string{"PI", "Abs(x)", "Floor(x)", "Ceil(x)", "Sqrt(x)", "Pow(x, y)", "Min(x, ...)", "Max(x, ...)"},
		New:     func() evaluator.Plugin { return mathPlugin{} },
	}
}

func (mathPlugin) Initialize(env *evaluator.Env, alias string) error {
	return install(env, alias, "Math", &table{name: "Math", members: map[string]evaluator.Value{
		"PI":    evaluator.Number(math.Pi),
		"Abs":   unary("Abs", math.Abs),
		"Floor": unary("Floor", math.Floor),
		"Ceil":  unary("Ceil", math.Ceil),
		"Sqrt":  unary("Sqrt", math.Sqrt),
		"Pow": evaluator.NewNative("Pow", 2, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
			x, err := argNumber(tok, "Pow", args[0])
			if err != nil {
				return nil, err
			}
			y, err := argNumber(tok, "Pow", args[1])
			if err != nil {
				return nil, err
			}
			return evaluator.Number(math.Pow(x, y)), nil
		}),
		"Min": fold("Min", math.Min),
		"Max": fold("Max", math.Max),
	}})
}

func unary(name string, fn func(float64) float64) evaluator.Value {
	return evaluator.NewNative(name, 1, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
		x, err := argNumber(tok, name, args[0])
		if err != nil {
			return nil, err
		}
		return evaluator.Number(fn(x)), nil
	})
}

// fold reduces one or more numbers with fn.
func fold(name string, fn func(a, b float64) float64) evaluator.Value {
	return evaluator.NewNative(name, -1, func(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
		if len(args) == 0 {
			return nil, evaluator.NewRuntimeError(tok, "%s: expected at least 1 argument", name)
		}
		acc, err := argNumber(tok, name, args[0])
		if err != nil {
			return nil, err
		}
		for _, a := range args[1:] {
			x, err := argNumber(tok, name, a)
			if err != nil {
				return nil, err
			}
			acc = fn(acc, x)
		}
		return evaluator.Number(acc), nil
	})
}
