package evaluator

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/ast"
	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/formatter"
	"github.com/thomasrohde/toy/pkg/lexer"
)

// DefaultMaxDepth bounds nested script calls.
const DefaultMaxDepth = 4000

// Interpreter executes resolved statements against a global environment.
// It is single-threaded; one Interpreter must not run concurrently.
type Interpreter struct {
	globals  *Env
	env      *Env
	locals   map[ast.Expr]int
	out      io.Writer
	plugins  PluginLoader
	logger   *slog.Logger
	trace    func(TraceEvent)
	runID    string
	depth    int
	maxDepth int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets where print writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithPlugins sets the loader used by import statements.
func WithPlugins(l PluginLoader) Option {
	return func(in *Interpreter) { in.plugins = l }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithTrace registers a callback receiving execution events.
func WithTrace(fn func(TraceEvent)) Option {
	return func(in *Interpreter) { in.trace = fn }
}

// WithRunID tags trace events.
func WithRunID(id string) Option {
	return func(in *Interpreter) { in.runID = id }
}

// WithMaxDepth bounds nested calls; n <= 0 keeps the default.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxDepth = n
		}
	}
}

// New returns an interpreter whose global scope is globals (a fresh
// environment when nil).
func New(globals *Env, opts ...Option) *Interpreter {
	if globals == nil {
		globals = NewEnv(nil)
	}
	in := &Interpreter{
		globals:  globals,
		env:      globals,
		locals:   make(map[ast.Expr]int),
		out:      os.Stdout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Bind records that expr refers to a variable depth scopes out.
func (in *Interpreter) Bind(expr ast.Expr, depth int) {
	in.locals[expr] = depth
}

// Globals returns the outermost environment.
func (in *Interpreter) Globals() *Env { return in.globals }

// Environment returns the environment currently executing.
func (in *Interpreter) Environment() *Env { return in.env }

// Output returns the print destination.
func (in *Interpreter) Output() io.Writer { return in.out }

// Interpret runs stmts in order and stops at the first runtime error.
// Any failure comes back as a *RuntimeError.
func (in *Interpreter) Interpret(stmts []ast.Stmt) (err error) {
	in.emit(TraceRunStart, 0, nil)
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("interpreter panic", "panic", r)
			err = &RuntimeError{Code: diagnostics.ERuntime, Token: unknownToken, Message: fmt.Sprintf("internal error: %v", r)}
		}
		if err != nil {
			in.emit(TraceError, err.(*RuntimeError).Token.Line, map[string]any{"message": err.Error()})
		}
		in.emit(TraceRunEnd, 0, nil)
	}()

	in.env = in.globals
	in.depth = 0
	for _, s := range stmts {
		if s == nil {
			continue
		}
		sig, execErr := in.execute(s)
		if execErr != nil {
			return asRuntimeError(unknownToken, execErr)
		}
		if sig != nil {
			return NewRuntimeError(sig.Token, "unexpected '%s' at top level", sig.Kind)
		}
	}
	return nil
}

// ExecuteBlock runs stmts in env and restores the previous environment
// however it exits.
func (in *Interpreter) ExecuteBlock(stmts []ast.Stmt, env *Env) (*Signal, error) {
	prev := in.env
	in.env = env
	defer func() { in.env = prev }()

	for _, s := range stmts {
		if s == nil {
			continue
		}
		sig, err := in.execute(s)
		if err != nil || sig != nil {
			return sig, err
		}
	}
	return nil, nil
}

// Evaluate computes the value of e in the current environment.
func (in *Interpreter) Evaluate(e ast.Expr) (Value, error) {
	return in.evaluate(e)
}

// Call invokes callee with args, checking that it is callable and that the
// argument count matches. Plugins use it to call back into scripts.
func (in *Interpreter) Call(callee Value, tok lexer.Token, args []Value) (Value, error) {
	fn, ok := callee.(Callable)
	if !ok {
		return nil, NewRuntimeError(tok, "can only call functions, got %s", TypeName(callee))
	}
	if arity := fn.Arity(); arity >= 0 && arity != len(args) {
		return nil, NewRuntimeError(tok, "expected %d arguments but got %d", arity, len(args))
	}
	if in.depth >= in.maxDepth {
		return nil, NewRuntimeError(tok, "stack overflow (max call depth %d)", in.maxDepth)
	}

	in.depth++
	in.logger.Debug("call", "line", tok.Line, "callee", TypeName(callee), "args", len(args), "depth", in.depth)
	in.emit(TraceFnCallStart, tok.Line, map[string]any{"args": len(args), "depth": in.depth})
	result, err := fn.Call(in, tok, args)
	in.emit(TraceFnCallEnd, tok.Line, map[string]any{"depth": in.depth})
	in.depth--

	if err != nil {
		return nil, asRuntimeError(tok, err)
	}
	if result == nil {
		result = Null{}
	}
	return result, nil
}

// --- Statements ---

func (in *Interpreter) execute(s ast.Stmt) (*Signal, error) {
	if in.trace != nil {
		in.emit(TraceStmtStart, s.Line(), map[string]any{"kind": s.Kind()})
		defer in.emit(TraceStmtEnd, s.Line(), map[string]any{"kind": s.Kind()})
	}

	switch stmt := s.(type) {
	case *ast.Expression:
		_, err := in.evaluate(stmt.Expr)
		return nil, err

	case *ast.Print:
		v, err := in.evaluate(stmt.Expr)
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintln(in.out, Stringify(v)); err != nil {
			return nil, asRuntimeError(stmt.Keyword, err)
		}
		return nil, nil

	case *ast.Var:
		var v Value = Null{}
		if stmt.Init != nil {
			var err error
			if v, err = in.evaluate(stmt.Init); err != nil {
				return nil, err
			}
		}
		return nil, in.define(stmt.Name, v, false)

	case *ast.Const:
		v, err := in.evaluate(stmt.Init)
		if err != nil {
			return nil, err
		}
		return nil, in.define(stmt.Name, v, true)

	case *ast.Block:
		return in.ExecuteBlock(stmt.Stmts, in.env.Child())

	case *ast.If:
		cond, err := in.evaluate(stmt.Cond)
		if err != nil {
			return nil, err
		}
		if IsTruthy(cond) {
			return in.execute(stmt.Then)
		}
		if stmt.Else != nil {
			return in.execute(stmt.Else)
		}
		return nil, nil

	case *ast.While:
		return in.execWhile(stmt)

	case *ast.For:
		return in.execFor(stmt)

	case *ast.Break:
		return &Signal{Kind: SignalBreak, Token: stmt.Keyword}, nil

	case *ast.Continue:
		return &Signal{Kind: SignalContinue, Token: stmt.Keyword}, nil

	case *ast.Return:
		var v Value = Null{}
		if stmt.Value != nil {
			var err error
			if v, err = in.evaluate(stmt.Value); err != nil {
				return nil, err
			}
		}
		return &Signal{Kind: SignalReturn, Token: stmt.Keyword, Value: v}, nil

	case *ast.Pass:
		return nil, nil

	case *ast.Import:
		return nil, in.execImport(stmt)

	case *ast.Assert:
		return nil, in.execAssert(stmt)
	}
	return nil, NewRuntimeError(unknownToken, "unknown statement %s", s.Kind())
}

func (in *Interpreter) define(name lexer.Token, v Value, constant bool) error {
	if err := in.env.Define(name.Lexeme, v, constant); err != nil {
		return &RuntimeError{Code: diagnostics.ERuntime, Token: name, Message: err.Error(), Err: err}
	}
	return nil
}

// loopSignal decides what a loop does with its body's signal. It reports
// whether the loop must stop and the signal to pass outward.
func loopSignal(sig *Signal) (stop bool, out *Signal) {
	if sig == nil {
		return false, nil
	}
	switch sig.Kind {
	case SignalBreak:
		return true, nil
	case SignalContinue:
		return false, nil
	}
	return true, sig
}

func (in *Interpreter) execWhile(stmt *ast.While) (*Signal, error) {
	for {
		cond, err := in.evaluate(stmt.Cond)
		if err != nil {
			return nil, err
		}
		if !IsTruthy(cond) {
			return nil, nil
		}
		sig, err := in.execute(stmt.Body)
		if err != nil {
			return nil, err
		}
		if stop, out := loopSignal(sig); stop {
			return out, nil
		}
	}
}

func (in *Interpreter) execFor(stmt *ast.For) (*Signal, error) {
	prev := in.env
	in.env = in.env.Child()
	defer func() { in.env = prev }()

	if stmt.Init != nil {
		if _, err := in.execute(stmt.Init); err != nil {
			return nil, err
		}
	}
	for {
		if stmt.Cond != nil {
			cond, err := in.evaluate(stmt.Cond)
			if err != nil {
				return nil, err
			}
			if !IsTruthy(cond) {
				return nil, nil
			}
		}
		sig, err := in.execute(stmt.Body)
		if err != nil {
			return nil, err
		}
		if stop, out := loopSignal(sig); stop {
			return out, nil
		}
		if stmt.Incr != nil {
			if _, err := in.evaluate(stmt.Incr); err != nil {
				return nil, err
			}
		}
	}
}

func (in *Interpreter) execImport(stmt *ast.Import) error {
	name := stmt.PluginName()
	if in.plugins == nil {
		return NewRuntimeError(stmt.Name, "no plugins are available to import '%s'", name)
	}
	p, err := in.plugins.Load(name)
	if err != nil {
		code := diagnostics.ERuntime
		if errors.Is(err, ErrDenied) {
			code = diagnostics.EDenied
		}
		return &RuntimeError{Code: code, Token: stmt.Name, Message: err.Error(), Err: err}
	}
	in.logger.Debug("import", "plugin", name, "alias", stmt.AliasName())
	in.emit(TraceImport, stmt.Keyword.Line, map[string]any{"plugin": name, "alias": stmt.AliasName()})
	if err := p.Initialize(in.globals, stmt.AliasName()); err != nil {
		return &RuntimeError{Code: diagnostics.ERuntime, Token: stmt.Name, Message: err.Error(), Err: err}
	}
	return nil
}

func (in *Interpreter) execAssert(stmt *ast.Assert) error {
	cond, err := in.evaluate(stmt.Cond)
	if err != nil {
		return err
	}
	if IsTruthy(cond) {
		return nil
	}
	msg := "assertion failed"
	if stmt.Message != nil {
		m, err := in.evaluate(stmt.Message)
		if err != nil {
			return err
		}
		msg += ": " + Stringify(m)
	} else {
		msg += ": " + formatter.FormatExpr(stmt.Cond)
	}
	return &RuntimeError{Code: diagnostics.EAssert, Token: stmt.Keyword, Message: msg}
}

// --- Expressions ---

func (in *Interpreter) evaluate(e ast.Expr) (Value, error) {
	switch expr := e.(type) {
	case *ast.Literal:
		return FromGo(expr.Value), nil

	case *ast.Grouping:
		return in.evaluate(expr.Inner)

	case *ast.Variable:
		v := in.lookupVariable(expr.Name, expr)
		if v == Undefined {
			return Null{}, nil
		}
		return v, nil

	case *ast.Assign:
		return in.evalAssign(expr)

	case *ast.Increment:
		return in.evalIncrement(expr)

	case *ast.Unary:
		return in.evalUnary(expr)

	case *ast.Binary:
		left, err := in.evaluate(expr.Left)
		if err != nil {
			return nil, err
		}
		right, err := in.evaluate(expr.Right)
		if err != nil {
			return nil, err
		}
		return binaryOp(expr.Op, left, right)

	case *ast.Logical:
		left, err := in.evaluate(expr.Left)
		if err != nil {
			return nil, err
		}
		if expr.Op.Type == lexer.TokOrOr && IsTruthy(left) {
			return Bool(true), nil
		}
		if expr.Op.Type == lexer.TokAndAnd && !IsTruthy(left) {
			return Bool(false), nil
		}
		right, err := in.evaluate(expr.Right)
		if err != nil {
			return nil, err
		}
		return Bool(IsTruthy(right)), nil

	case *ast.Ternary:
		cond, err := in.evaluate(expr.Cond)
		if err != nil {
			return nil, err
		}
		if IsTruthy(cond) {
			return in.evaluate(expr.Then)
		}
		return in.evaluate(expr.Else)

	case *ast.Call:
		return in.evalCall(expr)

	case *ast.Index:
		handle, err := in.access(expr)
		if err != nil {
			return nil, err
		}
		return Unwrap(handle), nil

	case *ast.Property:
		handle, err := in.property(expr)
		if err != nil {
			return nil, err
		}
		return Unwrap(handle), nil

	case *ast.Function:
		return &Function{decl: expr, closure: in.env}, nil
	}
	return nil, NewRuntimeError(unknownToken, "unknown expression %s", e.Kind())
}

func (in *Interpreter) lookupVariable(name lexer.Token, expr ast.Expr) Value {
	if d, ok := in.locals[expr]; ok {
		return in.env.GetAt(d, name.Lexeme)
	}
	return in.globals.Get(name.Lexeme)
}

func (in *Interpreter) assignVariable(name lexer.Token, expr ast.Expr, v Value) (Value, error) {
	var err error
	if d, ok := in.locals[expr]; ok {
		_, err = in.env.SetAt(d, name.Lexeme, v)
	} else {
		_, err = in.globals.Set(name.Lexeme, v)
	}
	if err != nil {
		return nil, &RuntimeError{Code: diagnostics.ERuntime, Token: name, Message: err.Error(), Err: err}
	}
	return v, nil
}

func (in *Interpreter) evalAssign(expr *ast.Assign) (Value, error) {
	switch target := expr.Target.(type) {
	case *ast.Variable:
		v, err := in.evaluate(expr.Value)
		if err != nil {
			return nil, err
		}
		if expr.Op.Type != lexer.TokEqual {
			cur := in.lookupVariable(target.Name, expr)
			if cur == Undefined {
				berr := &BindingError{Name: target.Name.Lexeme, Err: ErrUndefined}
				return nil, &RuntimeError{Code: diagnostics.ERuntime, Token: target.Name, Message: berr.Error(), Err: berr}
			}
			if v, err = compound(expr.Op, cur, v); err != nil {
				return nil, err
			}
		}
		return in.assignVariable(target.Name, expr, v)

	case *ast.Index:
		handle, err := in.access(target)
		if err != nil {
			return nil, err
		}
		return in.assignHandle(expr, handle, target.Bracket, "can't assign to this index")

	case *ast.Property:
		handle, err := in.property(target)
		if err != nil {
			return nil, err
		}
		return in.assignHandle(expr, handle, target.Name, "can't assign to property '"+target.Name.Lexeme+"'")
	}
	return nil, NewRuntimeError(expr.Op, "invalid assignment target")
}

func (in *Interpreter) assignHandle(expr *ast.Assign, handle Value, tok lexer.Token, notAssignable string) (Value, error) {
	ref, ok := handle.(Assignable)
	if !ok {
		return nil, NewRuntimeError(tok, "%s", notAssignable)
	}
	v, err := in.evaluate(expr.Value)
	if err != nil {
		return nil, err
	}
	if expr.Op.Type != lexer.TokEqual {
		if v, err = compound(expr.Op, ref.Value(), v); err != nil {
			return nil, err
		}
	}
	if err := ref.Assign(v); err != nil {
		return nil, asRuntimeError(tok, err)
	}
	return v, nil
}

func (in *Interpreter) evalIncrement(expr *ast.Increment) (Value, error) {
	name := expr.Target.Name
	cur, ok := in.lookupVariable(name, expr).(Number)
	if !ok {
		return nil, NewRuntimeError(expr.Op, "unexpected operand type (expected a number)")
	}
	next := cur + 1
	if expr.Op.Type == lexer.TokMinusMinus {
		next = cur - 1
	}
	if _, err := in.assignVariable(name, expr, next); err != nil {
		return nil, err
	}
	if expr.Prefix {
		return next, nil
	}
	return cur, nil
}

func (in *Interpreter) evalUnary(expr *ast.Unary) (Value, error) {
	operand, err := in.evaluate(expr.Operand)
	if err != nil {
		return nil, err
	}
	switch expr.Op.Type {
	case lexer.TokBang:
		return Bool(!IsTruthy(operand)), nil
	case lexer.TokMinus:
		n, ok := operand.(Number)
		if !ok {
			return nil, NewRuntimeError(expr.Op, "unexpected operand type (expected a number)")
		}
		return -n, nil
	}
	return nil, NewRuntimeError(expr.Op, "unknown unary operator '%s'", expr.Op.Lexeme)
}

func (in *Interpreter) evalCall(expr *ast.Call) (Value, error) {
	callee, err := in.evaluate(expr.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]Value, 0, len(expr.Args))
	for _, a := range expr.Args {
		v, err := in.evaluate(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return in.Call(callee, expr.Paren, args)
}

func (in *Interpreter) access(expr *ast.Index) (Value, error) {
	callee, err := in.evaluate(expr.Callee)
	if err != nil {
		return nil, err
	}
	coll, ok := callee.(Collection)
	if !ok {
		return nil, NewRuntimeError(expr.Bracket, "can't index a value of type %s", TypeName(callee))
	}
	first, err := in.evaluate(expr.First)
	if err != nil {
		return nil, err
	}
	var second, third Value
	if expr.Second != nil {
		if second, err = in.evaluate(expr.Second); err != nil {
			return nil, err
		}
	}
	if expr.Third != nil {
		if third, err = in.evaluate(expr.Third); err != nil {
			return nil, err
		}
	}
	v, err := coll.Access(in, expr.Bracket, first, second, third)
	if err != nil {
		return nil, asRuntimeError(expr.Bracket, err)
	}
	return v, nil
}

func (in *Interpreter) property(expr *ast.Property) (Value, error) {
	obj, err := in.evaluate(expr.Object)
	if err != nil {
		return nil, err
	}
	b, ok := obj.(Bundle)
	if !ok {
		return nil, NewRuntimeError(expr.Name, "can't read property '%s' of %s", expr.Name.Lexeme, TypeName(obj))
	}
	v, err := b.Property(in, expr.Name)
	if err != nil {
		return nil, asRuntimeError(expr.Name, err)
	}
	return v, nil
}

// --- Operators ---

func binaryOp(op lexer.Token, left, right Value) (Value, error) {
	switch op.Type {
	case lexer.TokEqualEqual:
		return Bool(IsEqual(left, right)), nil
	case lexer.TokBangEqual:
		return Bool(!IsEqual(left, right)), nil
	case lexer.TokPlus:
		if l, ok := left.(Number); ok {
			if r, ok := right.(Number); ok {
				return l + r, nil
			}
		}
		if l, ok := left.(String); ok {
			if r, ok := right.(String); ok {
				return l + r, nil
			}
		}
		return nil, NewRuntimeError(op, "unexpected operand type (expected both numbers or both strings)")
	}

	l, lok := left.(Number)
	r, rok := right.(Number)
	if !lok || !rok {
		return nil, NewRuntimeError(op, "unexpected operand type (expected a number)")
	}
	return arithmetic(op, l, r)
}

func arithmetic(op lexer.Token, l, r Number) (Value, error) {
	switch op.Type {
	case lexer.TokMinus, lexer.TokMinusEqual:
		return l - r, nil
	case lexer.TokPlus, lexer.TokPlusEqual:
		return l + r, nil
	case lexer.TokStar, lexer.TokStarEqual:
		return l * r, nil
	case lexer.TokSlash, lexer.TokSlashEqual:
		if r == 0 {
			return nil, NewRuntimeError(op, "division by zero")
		}
		return l / r, nil
	case lexer.TokPercent, lexer.TokPercentEqual:
		if r == 0 {
			return nil, NewRuntimeError(op, "modulo by zero")
		}
		return Number(math.Mod(float64(l), float64(r))), nil
	case lexer.TokGreater:
		return Bool(l > r), nil
	case lexer.TokGreaterEqual:
		return Bool(l >= r), nil
	case lexer.TokLess:
		return Bool(l < r), nil
	case lexer.TokLessEqual:
		return Bool(l <= r), nil
	}
	return nil, NewRuntimeError(op, "unknown operator '%s'", op.Lexeme)
}

// compound applies the arithmetic of a compound assignment operator. Both
// the current value and the operand must be numbers.
func compound(op lexer.Token, cur, operand Value) (Value, error) {
	l, lok := Unwrap(cur).(Number)
	r, rok := operand.(Number)
	if !lok || !rok {
		return nil, NewRuntimeError(op, "unexpected operand type (expected a number)")
	}
	return arithmetic(op, l, r)
}
