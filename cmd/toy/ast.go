package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/thomasrohde/toy/pkg/ast"
	"github.com/thomasrohde/toy/pkg/formatter"
	"github.com/thomasrohde/toy/pkg/runtime"
)

// cmdAST prints each top-level expression as an S-expression and every
// other statement in canonical form.
func (c *cli) cmdAST(args []string) int {
	var file string
	for _, arg := range args {
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			file = arg
		}
	}
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: toy ast <file>")
		return 1
	}

	source, code := c.readSource(file, false)
	if code != 0 {
		return code
	}
	stmts, err := runtime.New(runtime.WithOutput(io.Discard)).Parse(source)
	if err != nil {
		return c.reportRunError(err, true)
	}
	for _, s := range stmts {
		fmt.Fprintf(c.stdout, "%-10s line %d: %s\n", s.Kind(), s.Line(), describeStmt(s))
	}
	return 0
}

// describeStmt renders one statement for `toy ast`: expressions as
// S-expressions, everything else in canonical source form.
func describeStmt(s ast.Stmt) string {
	switch stmt := s.(type) {
	case *ast.Expression:
		return formatter.Sexpr(stmt.Expr)
	case *ast.Print:
		return "(print " + formatter.Sexpr(stmt.Expr) + ")"
	case *ast.Var:
		if stmt.Init != nil {
			return "(var " + stmt.Name.Lexeme + " " + formatter.Sexpr(stmt.Init) + ")"
		}
	case *ast.Const:
		return "(const " + stmt.Name.Lexeme + " " + formatter.Sexpr(stmt.Init) + ")"
	}
	return strings.ReplaceAll(strings.TrimSpace(formatter.Format([]ast.Stmt{s})), "\n", " ")
}
