package ast_test

import (
	"math"
	"testing"

	"github.com/thomasrohde/toy/pkg/ast"
	"github.com/thomasrohde/toy/pkg/lexer"
)

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Node{
		&ast.Literal{Value: 42.0},
		&ast.Variable{},
		&ast.Assign{},
		&ast.Increment{},
		&ast.Unary{},
		&ast.Binary{},
		&ast.Logical{},
		&ast.Ternary{},
		&ast.Call{},
		&ast.Index{},
		&ast.Function{},
		&ast.Property{},
		&ast.Print{},
		&ast.Var{},
		&ast.Const{},
		&ast.Block{},
		&ast.If{},
		&ast.While{},
		&ast.For{},
		&ast.Break{},
		&ast.Continue{},
		&ast.Return{},
		&ast.Pass{},
		&ast.Import{},
		&ast.Assert{},
	}

	expected := []string{
		"Literal", "Variable", "Assign", "Increment", "Unary", "Binary",
		"Logical", "Ternary", "Call", "Index", "Function", "Property",
		"Print", "Var", "Const", "Block", "If", "While", "For", "Break",
		"Continue", "Return", "Pass", "Import", "Assert",
	}

	for i, node := range nodes {
		if got := node.Kind(); got != expected[i] {
			t.Errorf("node %d: got Kind() = %q, want %q", i, got, expected[i])
		}
	}
}

func TestNodeLines(t *testing.T) {
	tok := lexer.Token{Type: lexer.TokIdent, Lexeme: "x", Line: 4}
	v := &ast.Variable{Name: tok}
	g := &ast.Grouping{Inner: v}
	s := &ast.Expression{Expr: g}
	if s.Line() != 4 {
		t.Errorf("got Line() = %d, want 4", s.Line())
	}
}

func TestIndexIsSlice(t *testing.T) {
	plain := &ast.Index{First: &ast.Literal{Value: 1.0}}
	if plain.IsSlice() {
		t.Error("a[1] must not be a slice")
	}
	slice := &ast.Index{
		First:  &ast.Literal{Value: math.Inf(-1)},
		Second: &ast.Literal{Value: math.Inf(1)},
	}
	if !slice.IsSlice() {
		t.Error("a[:] must be a slice")
	}
}

func TestImportNames(t *testing.T) {
	imp := &ast.Import{
		Name:  lexer.Token{Type: lexer.TokString, Lexeme: `"Standard"`, Literal: "Standard"},
		Alias: lexer.Token{Type: lexer.TokIdent, Lexeme: "std"},
	}
	if imp.PluginName() != "Standard" {
		t.Errorf("got %q", imp.PluginName())
	}
	if imp.AliasName() != "std" {
		t.Errorf("got %q", imp.AliasName())
	}
	if (&ast.Import{}).AliasName() != "" {
		t.Error("missing alias must be empty")
	}
}
