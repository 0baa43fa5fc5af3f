package evaluator

import (
	"fmt"

	"github.com/thomasrohde/toy/pkg/ast"
	"github.com/thomasrohde/toy/pkg/lexer"
)

// Function is a script closure: a function literal plus the environment
// it was evaluated in.
type Function struct {
	decl    *ast.Function
	closure *Env
}

func (f *Function) Arity() int { return len(f.decl.Params) }

// Call binds the parameters in a fresh frame chained to the closure and
// runs the body there. Falling off the end returns null.
func (f *Function) Call(in *Interpreter, tok lexer.Token, args []Value) (Value, error) {
	env := f.closure.Child()
	for i, p := range f.decl.Params {
		if err := env.Define(p.Lexeme, args[i], false); err != nil {
			return nil, &RuntimeError{Token: p, Message: err.Error(), Err: err}
		}
	}
	sig, err := in.ExecuteBlock(f.decl.Body, env)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return Null{}, nil
	}
	if sig.Kind != SignalReturn {
		return nil, NewRuntimeError(sig.Token, "unexpected '%s' outside of a loop", sig.Kind)
	}
	return sig.Value, nil
}

func (f *Function) String() string {
	return fmt.Sprintf("<function/%d>", len(f.decl.Params))
}
