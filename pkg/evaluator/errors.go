package evaluator

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/lexer"
)

// unknownToken stands in when a failure has no source location.
var unknownToken = lexer.Token{Type: lexer.TokEOF, Line: -1}

// RuntimeError aborts the current run. Token locates the failure; Line -1
// means unknown.
type RuntimeError struct {
	Code    string
	Token   lexer.Token
	Message string
	Err     error
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Cause returns the underlying error, if any, for errors.Cause.
func (e *RuntimeError) Cause() error { return e.Err }

func (e *RuntimeError) Unwrap() error { return e.Err }

// Diagnostic converts the error for reporting.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	code := e.Code
	if code == "" {
		code = diagnostics.ERuntime
	}
	where := ""
	if e.Token.Line >= 0 && e.Token.Type != lexer.TokEOF {
		where = fmt.Sprintf("at '%s'", e.Token.Lexeme)
	}
	return diagnostics.MakeDiag(code, e.Message, e.Token.Line, where, "")
}

// NewRuntimeError builds a runtime error at tok.
func NewRuntimeError(tok lexer.Token, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.ERuntime, Token: tok, Message: fmt.Sprintf(format, args...)}
}

// asRuntimeError locates err at tok unless it already is a RuntimeError.
func asRuntimeError(tok lexer.Token, err error) *RuntimeError {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr
	}
	return &RuntimeError{Code: diagnostics.ERuntime, Token: tok, Message: err.Error(), Err: err}
}

// SignalKind distinguishes the non-local control-flow outcomes.
type SignalKind int

const (
	SignalBreak SignalKind = iota + 1
	SignalContinue
	SignalReturn
)

func (k SignalKind) String() string {
	switch k {
	case SignalBreak:
		return "break"
	case SignalContinue:
		return "continue"
	case SignalReturn:
		return "return"
	}
	return "signal"
}

// Signal is returned by statement execution when control leaves normally
// sequenced code. Value is only set for returns.
type Signal struct {
	Kind  SignalKind
	Token lexer.Token
	Value Value
}
