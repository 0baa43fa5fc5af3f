package formatter

import (
	"strings"

	"github.com/thomasrohde/toy/pkg/ast"
)

// Sexpr renders e as a parenthesised prefix form, e.g. (+ 1 (* 2 3)).
func Sexpr(e ast.Expr) string {
	var b strings.Builder
	writeSexpr(&b, e)
	return b.String()
}

func writeSexpr(b *strings.Builder, e ast.Expr) {
	switch n := e.(type) {
	case nil:
		b.WriteString("_")
	case *ast.Literal:
		b.WriteString(formatLiteral(n.Value))
	case *ast.Variable:
		b.WriteString(n.Name.Lexeme)
	case *ast.Grouping:
		list(b, "group", n.Inner)
	case *ast.Assign:
		list(b, n.Op.Lexeme, n.Target, n.Value)
	case *ast.Increment:
		if n.Prefix {
			list(b, "pre"+n.Op.Lexeme, n.Target)
		} else {
			list(b, "post"+n.Op.Lexeme, n.Target)
		}
	case *ast.Unary:
		list(b, n.Op.Lexeme, n.Operand)
	case *ast.Binary:
		list(b, n.Op.Lexeme, n.Left, n.Right)
	case *ast.Logical:
		list(b, n.Op.Lexeme, n.Left, n.Right)
	case *ast.Ternary:
		list(b, "?:", n.Cond, n.Then, n.Else)
	case *ast.Call:
		list(b, "call", append([]ast.Expr{n.Callee}, n.Args...)...)
	case *ast.Index:
		if !n.IsSlice() {
			list(b, "index", n.Callee, n.First)
		} else if n.Third == nil {
			list(b, "slice", n.Callee, n.First, n.Second)
		} else {
			list(b, "slice", n.Callee, n.First, n.Second, n.Third)
		}
	case *ast.Property:
		b.WriteString("(. ")
		writeSexpr(b, n.Object)
		b.WriteString(" " + n.Name.Lexeme + ")")
	case *ast.Function:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Lexeme
		}
		b.WriteString("(function (" + strings.Join(params, " ") + "))")
	default:
		b.WriteString("?")
	}
}

func list(b *strings.Builder, head string, parts ...ast.Expr) {
	b.WriteString("(" + head)
	for _, p := range parts {
		b.WriteByte(' ')
		writeSexpr(b, p)
	}
	b.WriteByte(')')
}
