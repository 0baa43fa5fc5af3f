// Package ast defines the Toy language syntax tree.
//
// Expressions and statements are closed sets: every node type lives in this
// package and consumers dispatch with a type switch.
package ast

import "github.com/thomasrohde/toy/pkg/lexer"

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	// Line is the source line most useful for error reporting.
	Line() int
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Expressions ---

// Literal holds a constant: float64, string, bool or nil.
type Literal struct {
	Value  any
	Source int
}

func (n *Literal) Kind() string { return "Literal" }
func (n *Literal) Line() int    { return n.Source }
func (n *Literal) exprNode()    {}

type Variable struct {
	Name lexer.Token
}

func (n *Variable) Kind() string { return "Variable" }
func (n *Variable) Line() int    { return n.Name.Line }
func (n *Variable) exprNode()    {}

// Assign covers plain and compound assignment. Target is a Variable, Index
// or Property; Op is one of = += -= *= /= %=.
type Assign struct {
	Target Expr
	Op     lexer.Token
	Value  Expr
}

func (n *Assign) Kind() string { return "Assign" }
func (n *Assign) Line() int    { return n.Op.Line }
func (n *Assign) exprNode()    {}

// Increment is ++ or -- applied to a variable, before or after the read.
type Increment struct {
	Target *Variable
	Op     lexer.Token
	Prefix bool
}

func (n *Increment) Kind() string { return "Increment" }
func (n *Increment) Line() int    { return n.Op.Line }
func (n *Increment) exprNode()    {}

type Unary struct {
	Op      lexer.Token
	Operand Expr
}

func (n *Unary) Kind() string { return "Unary" }
func (n *Unary) Line() int    { return n.Op.Line }
func (n *Unary) exprNode()    {}

type Binary struct {
	Left  Expr
	Op    lexer.Token
	Right Expr
}

func (n *Binary) Kind() string { return "Binary" }
func (n *Binary) Line() int    { return n.Op.Line }
func (n *Binary) exprNode()    {}

// Logical is && or ||; the right side is only evaluated when needed.
type Logical struct {
	Left  Expr
	Op    lexer.Token
	Right Expr
}

func (n *Logical) Kind() string { return "Logical" }
func (n *Logical) Line() int    { return n.Op.Line }
func (n *Logical) exprNode()    {}

type Ternary struct {
	Cond     Expr
	Question lexer.Token
	Then     Expr
	Else     Expr
}

func (n *Ternary) Kind() string { return "Ternary" }
func (n *Ternary) Line() int    { return n.Question.Line }
func (n *Ternary) exprNode()    {}

type Grouping struct {
	Inner Expr
}

func (n *Grouping) Kind() string { return "Grouping" }
func (n *Grouping) Line() int    { return n.Inner.Line() }
func (n *Grouping) exprNode()    {}

// Call keeps the closing paren for error locations.
type Call struct {
	Callee Expr
	Paren  lexer.Token
	Args   []Expr
}

func (n *Call) Kind() string { return "Call" }
func (n *Call) Line() int    { return n.Paren.Line }
func (n *Call) exprNode()    {}

// Index is callee[first], callee[first:second] or callee[first:second:third].
// Second and Third are nil when that part was not written at all; an omitted
// bound inside a written slice is a Literal of -Inf or +Inf.
type Index struct {
	Callee  Expr
	Bracket lexer.Token
	First   Expr
	Second  Expr
	Third   Expr
}

func (n *Index) Kind() string { return "Index" }
func (n *Index) Line() int    { return n.Bracket.Line }
func (n *Index) exprNode()    {}

// IsSlice reports whether a colon was written inside the brackets.
func (n *Index) IsSlice() bool { return n.Second != nil }

type Function struct {
	Keyword lexer.Token
	Params  []lexer.Token
	Body    []Stmt
}

func (n *Function) Kind() string { return "Function" }
func (n *Function) Line() int    { return n.Keyword.Line }
func (n *Function) exprNode()    {}

type Property struct {
	Object Expr
	Name   lexer.Token
}

func (n *Property) Kind() string { return "Property" }
func (n *Property) Line() int    { return n.Name.Line }
func (n *Property) exprNode()    {}

// --- Statements ---

type Expression struct {
	Expr Expr
}

func (n *Expression) Kind() string { return "Expression" }
func (n *Expression) Line() int    { return n.Expr.Line() }
func (n *Expression) stmtNode()    {}

type Print struct {
	Keyword lexer.Token
	Expr    Expr
}

func (n *Print) Kind() string { return "Print" }
func (n *Print) Line() int    { return n.Keyword.Line }
func (n *Print) stmtNode()    {}

// Var declares a mutable binding. Init is nil when no initializer was given.
type Var struct {
	Name lexer.Token
	Init Expr
}

func (n *Var) Kind() string { return "Var" }
func (n *Var) Line() int    { return n.Name.Line }
func (n *Var) stmtNode()    {}

type Const struct {
	Name lexer.Token
	Init Expr
}

func (n *Const) Kind() string { return "Const" }
func (n *Const) Line() int    { return n.Name.Line }
func (n *Const) stmtNode()    {}

// Block is a braced statement list. Breakable blocks are loop bodies and
// absorb break and continue signals.
type Block struct {
	Brace     lexer.Token
	Stmts     []Stmt
	Breakable bool
}

func (n *Block) Kind() string { return "Block" }
func (n *Block) Line() int    { return n.Brace.Line }
func (n *Block) stmtNode()    {}

type If struct {
	Keyword lexer.Token
	Cond    Expr
	Then    Stmt
	Else    Stmt
}

func (n *If) Kind() string { return "If" }
func (n *If) Line() int    { return n.Keyword.Line }
func (n *If) stmtNode()    {}

type While struct {
	Keyword lexer.Token
	Cond    Expr
	Body    *Block
}

func (n *While) Kind() string { return "While" }
func (n *While) Line() int    { return n.Keyword.Line }
func (n *While) stmtNode()    {}

// For has optional Init, Cond and Incr parts. A missing Cond loops forever.
type For struct {
	Keyword lexer.Token
	Init    Stmt
	Cond    Expr
	Incr    Expr
	Body    *Block
}

func (n *For) Kind() string { return "For" }
func (n *For) Line() int    { return n.Keyword.Line }
func (n *For) stmtNode()    {}

type Break struct {
	Keyword lexer.Token
}

func (n *Break) Kind() string { return "Break" }
func (n *Break) Line() int    { return n.Keyword.Line }
func (n *Break) stmtNode()    {}

type Continue struct {
	Keyword lexer.Token
}

func (n *Continue) Kind() string { return "Continue" }
func (n *Continue) Line() int    { return n.Keyword.Line }
func (n *Continue) stmtNode()    {}

type Return struct {
	Keyword lexer.Token
	Value   Expr
}

func (n *Return) Kind() string { return "Return" }
func (n *Return) Line() int    { return n.Keyword.Line }
func (n *Return) stmtNode()    {}

type Pass struct {
	Keyword lexer.Token
}

func (n *Pass) Kind() string { return "Pass" }
func (n *Pass) Line() int    { return n.Keyword.Line }
func (n *Pass) stmtNode()    {}

// Import loads a host plugin. Alias is the zero token when no "as" clause
// was written.
type Import struct {
	Keyword lexer.Token
	Name    lexer.Token
	Alias   lexer.Token
}

func (n *Import) Kind() string { return "Import" }
func (n *Import) Line() int    { return n.Keyword.Line }
func (n *Import) stmtNode()    {}

// PluginName is the unquoted plugin name.
func (n *Import) PluginName() string {
	if s, ok := n.Name.Literal.(string); ok {
		return s
	}
	return n.Name.Lexeme
}

// AliasName returns the alias, or "" when none was given.
func (n *Import) AliasName() string { return n.Alias.Lexeme }

// Assert fails the run when Cond is falsy. Message is optional.
type Assert struct {
	Keyword lexer.Token
	Cond    Expr
	Message Expr
}

func (n *Assert) Kind() string { return "Assert" }
func (n *Assert) Line() int    { return n.Keyword.Line }
func (n *Assert) stmtNode()    {}
