// Package resolver performs static scope analysis of a Toy program.
//
// It reports misplaced control flow, redeclarations, self-referencing
// initializers and writes to constants, and tells a Binder how many scopes
// separate each local variable use from its declaration.
package resolver

import (
	"fmt"

	"github.com/thomasrohde/toy/pkg/ast"
	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/lexer"
)

// Binder receives the scope distance of each resolved local variable use.
// The expression is a *ast.Variable, *ast.Assign or *ast.Increment.
type Binder interface {
	Bind(expr ast.Expr, depth int)
}

type binding struct {
	ready    bool
	constant bool
}

type scope map[string]*binding

// Resolver walks a statement list once. It never stops at the first error.
type Resolver struct {
	binder    Binder
	report    *diagnostics.Reporter
	scopes    []scope
	fnDepth   int
	loopDepth int
}

// New returns a resolver reporting to r. The first scope pushed stands for
// the global environment; names found there stay unbound and are looked up
// dynamically at run time.
func New(b Binder, r *diagnostics.Reporter) *Resolver {
	if r == nil {
		r = diagnostics.NewReporter()
	}
	return &Resolver{binder: b, report: r}
}

// Resolve analyses stmts. Nil entries are skipped.
func (r *Resolver) Resolve(stmts []ast.Stmt) {
	r.scopes = []scope{{}}
	r.fnDepth = 0
	r.loopDepth = 0
	r.resolveStmts(stmts)
}

func (r *Resolver) errorAt(tok lexer.Token, msg string) {
	where := fmt.Sprintf("at '%s'", tok.Lexeme)
	if tok.Type == lexer.TokEOF {
		where = "at end"
	}
	r.report.Error(diagnostics.EResolve, tok.Line, where, msg)
}

func (r *Resolver) begin() {
	r.scopes = append(r.scopes, scope{})
}

func (r *Resolver) end() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) declare(name lexer.Token, constant bool) {
	top := r.scopes[len(r.scopes)-1]
	if _, ok := top[name.Lexeme]; ok {
		r.errorAt(name, "a variable with this name has already been declared in this scope")
		return
	}
	top[name.Lexeme] = &binding{constant: constant}
}

func (r *Resolver) define(name lexer.Token) {
	if b, ok := r.scopes[len(r.scopes)-1][name.Lexeme]; ok {
		b.ready = true
	}
}

// lookup finds the innermost binding for name and its distance from the
// current scope. A distance of -1 means no scope declares it.
func (r *Resolver) lookup(name string) (*binding, int) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if b, ok := r.scopes[i][name]; ok {
			return b, len(r.scopes) - 1 - i
		}
	}
	return nil, -1
}

// bindLocal reports the distance for locals. Globals are left alone.
func (r *Resolver) bindLocal(expr ast.Expr, name string) *binding {
	b, depth := r.lookup(name)
	if b != nil && depth < len(r.scopes)-1 && r.binder != nil {
		r.binder.Bind(expr, depth)
	}
	return b
}

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		if s != nil {
			r.resolveStmt(s)
		}
	}
}

func (r *Resolver) resolveStmt(s ast.Stmt) {
	switch stmt := s.(type) {
	case *ast.Expression:
		r.resolveExpr(stmt.Expr)
	case *ast.Print:
		r.resolveExpr(stmt.Expr)
	case *ast.Var:
		r.declare(stmt.Name, false)
		if stmt.Init != nil {
			r.resolveExpr(stmt.Init)
		}
		r.define(stmt.Name)
	case *ast.Const:
		r.declare(stmt.Name, true)
		r.resolveExpr(stmt.Init)
		r.define(stmt.Name)
	case *ast.Block:
		r.begin()
		r.resolveStmts(stmt.Stmts)
		r.end()
	case *ast.If:
		r.resolveExpr(stmt.Cond)
		r.resolveStmt(stmt.Then)
		if stmt.Else != nil {
			r.resolveStmt(stmt.Else)
		}
	case *ast.While:
		r.resolveExpr(stmt.Cond)
		r.resolveLoopBody(stmt.Body)
	case *ast.For:
		r.begin()
		if stmt.Init != nil {
			r.resolveStmt(stmt.Init)
		}
		if stmt.Cond != nil {
			r.resolveExpr(stmt.Cond)
		}
		if stmt.Incr != nil {
			r.resolveExpr(stmt.Incr)
		}
		r.resolveLoopBody(stmt.Body)
		r.end()
	case *ast.Break:
		if r.loopDepth == 0 {
			r.errorAt(stmt.Keyword, "can't break from outside of a loop")
		}
	case *ast.Continue:
		if r.loopDepth == 0 {
			r.errorAt(stmt.Keyword, "can't continue from outside of a loop")
		}
	case *ast.Return:
		if r.fnDepth == 0 {
			r.errorAt(stmt.Keyword, "can't return from outside of a function")
		}
		if stmt.Value != nil {
			r.resolveExpr(stmt.Value)
		}
	case *ast.Assert:
		r.resolveExpr(stmt.Cond)
		if stmt.Message != nil {
			r.resolveExpr(stmt.Message)
		}
	case *ast.Pass, *ast.Import:
	}
}

func (r *Resolver) resolveLoopBody(body *ast.Block) {
	r.loopDepth++
	r.resolveStmt(body)
	r.loopDepth--
}

func (r *Resolver) resolveExpr(e ast.Expr) {
	switch expr := e.(type) {
	case *ast.Literal:
	case *ast.Variable:
		top := r.scopes[len(r.scopes)-1]
		if b, ok := top[expr.Name.Lexeme]; ok && !b.ready {
			r.errorAt(expr.Name, "can't read a local variable in its own initializer")
		}
		r.bindLocal(expr, expr.Name.Lexeme)
	case *ast.Assign:
		r.resolveExpr(expr.Value)
		switch target := expr.Target.(type) {
		case *ast.Variable:
			if b := r.bindLocal(expr, target.Name.Lexeme); b != nil && b.constant {
				r.errorAt(target.Name, "can't assign to a constant")
			}
		default:
			r.resolveExpr(target)
		}
	case *ast.Increment:
		if b := r.bindLocal(expr, expr.Target.Name.Lexeme); b != nil && b.constant {
			r.errorAt(expr.Target.Name, "can't assign to a constant")
		}
	case *ast.Unary:
		r.resolveExpr(expr.Operand)
	case *ast.Binary:
		r.resolveExpr(expr.Left)
		r.resolveExpr(expr.Right)
	case *ast.Logical:
		r.resolveExpr(expr.Left)
		r.resolveExpr(expr.Right)
	case *ast.Ternary:
		r.resolveExpr(expr.Cond)
		r.resolveExpr(expr.Then)
		r.resolveExpr(expr.Else)
	case *ast.Grouping:
		r.resolveExpr(expr.Inner)
	case *ast.Call:
		r.resolveExpr(expr.Callee)
		for _, a := range expr.Args {
			r.resolveExpr(a)
		}
	case *ast.Index:
		r.resolveExpr(expr.Callee)
		r.resolveExpr(expr.First)
		if expr.Second != nil {
			r.resolveExpr(expr.Second)
		}
		if expr.Third != nil {
			r.resolveExpr(expr.Third)
		}
	case *ast.Property:
		r.resolveExpr(expr.Object)
	case *ast.Function:
		r.resolveFunction(expr)
	}
}

// resolveFunction gives parameters and body one shared scope. Loop state
// does not leak into the body.
func (r *Resolver) resolveFunction(fn *ast.Function) {
	enclosingLoops := r.loopDepth
	r.loopDepth = 0
	r.fnDepth++

	r.begin()
	for _, p := range fn.Params {
		r.declare(p, false)
		r.define(p)
	}
	r.resolveStmts(fn.Body)
	r.end()

	r.fnDepth--
	r.loopDepth = enclosingLoops
}
