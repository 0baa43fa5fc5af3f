// Package formatter prints a Toy syntax tree back to canonical source and
// renders expressions as parenthesised S-expressions for debugging.
package formatter

import (
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/toy/pkg/ast"
	"github.com/thomasrohde/toy/pkg/lexer"
)

const indent = "  "

// Binding strength of each expression form (higher = tighter binding).
const (
	precAssign = iota + 1
	precTernary
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precIncrement
	precCall
	precPrimary
)

var binaryPrecedence = map[lexer.TokenType]int{
	lexer.TokEqualEqual: precEquality, lexer.TokBangEqual: precEquality,
	lexer.TokLess: precComparison, lexer.TokLessEqual: precComparison,
	lexer.TokGreater: precComparison, lexer.TokGreaterEqual: precComparison,
	lexer.TokPlus: precTerm, lexer.TokMinus: precTerm,
	lexer.TokStar: precFactor, lexer.TokSlash: precFactor, lexer.TokPercent: precFactor,
}

func precedenceOf(e ast.Expr) int {
	switch n := e.(type) {
	case *ast.Assign:
		return precAssign
	case *ast.Ternary:
		return precTernary
	case *ast.Logical:
		if n.Op.Type == lexer.TokOrOr {
			return precOr
		}
		return precAnd
	case *ast.Binary:
		return binaryPrecedence[n.Op.Type]
	case *ast.Unary:
		return precUnary
	case *ast.Increment:
		return precIncrement
	case *ast.Call, *ast.Index, *ast.Property:
		return precCall
	}
	return precPrimary
}

// Format pretty-prints statements back to source code. Nil entries left by
// failed declarations are skipped.
func Format(stmts []ast.Stmt) string {
	var lines []string
	for _, s := range stmts {
		if s == nil {
			continue
		}
		lines = append(lines, formatStmt(s, 0))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// FormatExpr prints a single expression.
func FormatExpr(e ast.Expr) string {
	return formatExpr(e, 0, 0)
}

// HasComments reports whether source contains // or /* */ comments, which
// formatting would discard.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		ch := source[i]
		switch {
		case inString && ch == '\\':
			i++
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(source) && (source[i+1] == '/' || source[i+1] == '*'):
			return true
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	return strings.Repeat(indent, depth) + formatStmtBody(s, depth)
}

// formatStmtBody prints s without its leading indent.
func formatStmtBody(s ast.Stmt, depth int) string {
	switch stmt := s.(type) {
	case *ast.Expression:
		return formatExpr(stmt.Expr, 0, depth) + ";"
	case *ast.Print:
		return "print " + formatExpr(stmt.Expr, 0, depth) + ";"
	case *ast.Var:
		if stmt.Init == nil {
			return "var " + stmt.Name.Lexeme + ";"
		}
		return "var " + stmt.Name.Lexeme + " = " + formatExpr(stmt.Init, 0, depth) + ";"
	case *ast.Const:
		return "const " + stmt.Name.Lexeme + " = " + formatExpr(stmt.Init, 0, depth) + ";"
	case *ast.Block:
		return formatBlock(stmt.Stmts, depth)
	case *ast.If:
		out := "if (" + formatExpr(stmt.Cond, 0, depth) + ") " + formatStmtBody(stmt.Then, depth)
		if stmt.Else != nil {
			out += " else " + formatStmtBody(stmt.Else, depth)
		}
		return out
	case *ast.While:
		return "while (" + formatExpr(stmt.Cond, 0, depth) + ") " + formatBlock(stmt.Body.Stmts, depth)
	case *ast.For:
		init := ";"
		if stmt.Init != nil {
			init = formatStmtBody(stmt.Init, depth)
		}
		head := "for (" + init + " "
		if stmt.Cond != nil {
			head += formatExpr(stmt.Cond, 0, depth)
		}
		head += "; "
		if stmt.Incr != nil {
			head += formatExpr(stmt.Incr, 0, depth)
		}
		return head + ") " + formatBlock(stmt.Body.Stmts, depth)
	case *ast.Break:
		return "break;"
	case *ast.Continue:
		return "continue;"
	case *ast.Pass:
		return "pass;"
	case *ast.Return:
		if stmt.Value == nil {
			return "return;"
		}
		return "return " + formatExpr(stmt.Value, 0, depth) + ";"
	case *ast.Import:
		out := "import " + quote(stmt.PluginName())
		if alias := stmt.AliasName(); alias != "" {
			out += " as " + alias
		}
		return out + ";"
	case *ast.Assert:
		out := "assert " + formatExpr(stmt.Cond, 0, depth)
		if stmt.Message != nil {
			out += ", " + formatExpr(stmt.Message, 0, depth)
		}
		return out + ";"
	}
	return ""
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	lines := make([]string, 0, len(stmts)+2)
	lines = append(lines, "{")
	for _, s := range stmts {
		if s == nil {
			continue
		}
		lines = append(lines, formatStmt(s, depth+1))
	}
	lines = append(lines, strings.Repeat(indent, depth)+"}")
	return strings.Join(lines, "\n")
}

// formatExpr prints e, wrapping it in parentheses when it binds looser
// than min.
func formatExpr(e ast.Expr, min, depth int) string {
	out := formatExprBare(e, depth)
	if precedenceOf(e) < min {
		return "(" + out + ")"
	}
	return out
}

func formatExprBare(e ast.Expr, depth int) string {
	switch n := e.(type) {
	case *ast.Literal:
		return formatLiteral(n.Value)
	case *ast.Variable:
		return n.Name.Lexeme
	case *ast.Grouping:
		return "(" + formatExpr(n.Inner, 0, depth) + ")"
	case *ast.Assign:
		return formatExpr(n.Target, precCall, depth) + " " + n.Op.Lexeme + " " + formatExpr(n.Value, precAssign, depth)
	case *ast.Ternary:
		return formatExpr(n.Cond, precOr, depth) + " ? " + formatExpr(n.Then, precTernary, depth) +
			" : " + formatExpr(n.Else, precTernary, depth)
	case *ast.Logical:
		p := precedenceOf(n)
		return formatExpr(n.Left, p, depth) + " " + n.Op.Lexeme + " " + formatExpr(n.Right, p+1, depth)
	case *ast.Binary:
		p := precedenceOf(n)
		return formatExpr(n.Left, p, depth) + " " + n.Op.Lexeme + " " + formatExpr(n.Right, p+1, depth)
	case *ast.Unary:
		operand := formatExpr(n.Operand, precUnary, depth)
		// keep "- -x" from printing as the decrement operator
		if strings.HasPrefix(operand, n.Op.Lexeme) {
			return n.Op.Lexeme + " " + operand
		}
		return n.Op.Lexeme + operand
	case *ast.Increment:
		if n.Prefix {
			return n.Op.Lexeme + n.Target.Name.Lexeme
		}
		return n.Target.Name.Lexeme + n.Op.Lexeme
	case *ast.Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = formatExpr(a, 0, depth)
		}
		return formatExpr(n.Callee, precCall, depth) + "(" + strings.Join(args, ", ") + ")"
	case *ast.Index:
		return formatExpr(n.Callee, precCall, depth) + "[" + formatIndexParts(n, depth) + "]"
	case *ast.Property:
		return formatExpr(n.Object, precCall, depth) + "." + n.Name.Lexeme
	case *ast.Function:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Lexeme
		}
		return "function(" + strings.Join(params, ", ") + ") " + formatBlock(n.Body, depth)
	}
	return ""
}

func formatIndexParts(n *ast.Index, depth int) string {
	out := formatBound(n.First, -1, depth)
	if n.Second != nil {
		out += ":" + formatBound(n.Second, 1, depth)
	}
	if n.Third != nil {
		out += ":" + formatExpr(n.Third, 0, depth)
	}
	return out
}

// formatBound prints an omitted slice bound (an infinite literal of the
// given sign) as nothing.
func formatBound(e ast.Expr, sign int, depth int) string {
	if lit, ok := e.(*ast.Literal); ok {
		if f, ok := lit.Value.(float64); ok && math.IsInf(f, sign) {
			return ""
		}
	}
	return formatExpr(e, 0, depth)
}

func formatLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return FormatNumber(val)
	case string:
		return quote(val)
	}
	return "null"
}

// FormatNumber prints a number the way Toy does: integral values without a
// fractional part.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
