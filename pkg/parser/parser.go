// Package parser implements the Toy recursive-descent parser.
package parser

import (
	"fmt"
	"math"
	"strings"

	"github.com/thomasrohde/toy/pkg/ast"
	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/lexer"
)

const maxArgs = 255

// Error is a parse failure located at a token.
type Error struct {
	Token   lexer.Token
	Message string
}

func (e *Error) Error() string {
	return diagnostics.FormatDiagnostic(e.Diagnostic(), true)
}

// Diagnostic converts the error into a reportable diagnostic.
func (e *Error) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(diagnostics.EParse, e.Message, e.Token.Line, where(e.Token), "")
}

func where(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "at end"
	}
	return fmt.Sprintf("at '%s'", tok.Lexeme)
}

type parser struct {
	tokens []lexer.Token
	pos    int
	report *diagnostics.Reporter
	// panicking is set after a hard error and suppresses follow-on errors
	// until the next synchronisation point.
	panicking bool
}

// Parse builds the statement list for tokens. A declaration that fails to
// parse is reported to r and appears as a nil entry in the result.
func Parse(tokens []lexer.Token, r *diagnostics.Reporter) []ast.Stmt {
	if r == nil {
		r = diagnostics.NewReporter()
	}
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, lexer.Token{Type: lexer.TokEOF, Line: line})
	}
	p := &parser{tokens: tokens, report: r}
	var stmts []ast.Stmt
	for !p.atEnd() {
		stmts = append(stmts, p.declaration())
	}
	return stmts
}

// ParseSource scans and parses source in one step.
func ParseSource(source string, r *diagnostics.Reporter) []ast.Stmt {
	if r == nil {
		r = diagnostics.NewReporter()
	}
	return Parse(lexer.Scan(source, r), r)
}

func (p *parser) current() lexer.Token {
	return p.tokens[p.pos]
}

func (p *parser) previous() lexer.Token {
	return p.tokens[p.pos-1]
}

func (p *parser) atEnd() bool {
	return p.current().Type == lexer.TokEOF
}

func (p *parser) check(typ lexer.TokenType) bool {
	return p.current().Type == typ
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

func (p *parser) match(types ...lexer.TokenType) bool {
	for _, typ := range types {
		if p.check(typ) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) expect(typ lexer.TokenType, msg string) (lexer.Token, bool) {
	if p.check(typ) {
		return p.advance(), true
	}
	p.fail(p.current(), msg)
	return p.current(), false
}

// errorAt reports without abandoning the current declaration.
func (p *parser) errorAt(tok lexer.Token, msg string) {
	if p.panicking {
		return
	}
	e := &Error{Token: tok, Message: msg}
	p.report.Report(e.Diagnostic())
}

// fail reports and abandons the current declaration.
func (p *parser) fail(tok lexer.Token, msg string) {
	p.errorAt(tok, msg)
	p.panicking = true
}

func (p *parser) synchronize() {
	p.panicking = false
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == lexer.TokSemicolon {
			return
		}
		switch p.current().Type {
		case lexer.TokPrint, lexer.TokImport, lexer.TokVar, lexer.TokConst,
			lexer.TokFunction, lexer.TokIf, lexer.TokWhile, lexer.TokFor,
			lexer.TokReturn, lexer.TokBreak, lexer.TokContinue,
			lexer.TokAssert, lexer.TokPass:
			return
		}
		p.advance()
	}
}

// --- Declarations ---

func (p *parser) declaration() ast.Stmt {
	var s ast.Stmt
	switch {
	case p.match(lexer.TokVar):
		s = p.varDecl()
	case p.match(lexer.TokConst):
		s = p.constDecl()
	default:
		s = p.statement()
	}
	if p.panicking {
		p.synchronize()
		return nil
	}
	return s
}

func (p *parser) varDecl() ast.Stmt {
	name, ok := p.expect(lexer.TokIdent, "expect variable name")
	if !ok {
		return nil
	}
	var init ast.Expr
	if p.match(lexer.TokEqual) {
		if init = p.expression(); init == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after variable declaration"); !ok {
		return nil
	}
	return &ast.Var{Name: name, Init: init}
}

func (p *parser) constDecl() ast.Stmt {
	name, ok := p.expect(lexer.TokIdent, "expect constant name")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokEqual, "expect '=' after constant name"); !ok {
		return nil
	}
	init := p.expression()
	if init == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after constant declaration"); !ok {
		return nil
	}
	return &ast.Const{Name: name, Init: init}
}

// --- Statements ---

func (p *parser) statement() ast.Stmt {
	switch {
	case p.match(lexer.TokPrint):
		return p.printStmt()
	case p.match(lexer.TokIf):
		return p.ifStmt()
	case p.match(lexer.TokWhile):
		return p.whileStmt()
	case p.match(lexer.TokFor):
		return p.forStmt()
	case p.match(lexer.TokBreak):
		return p.jump(func(kw lexer.Token) ast.Stmt { return &ast.Break{Keyword: kw} })
	case p.match(lexer.TokContinue):
		return p.jump(func(kw lexer.Token) ast.Stmt { return &ast.Continue{Keyword: kw} })
	case p.match(lexer.TokPass):
		return p.jump(func(kw lexer.Token) ast.Stmt { return &ast.Pass{Keyword: kw} })
	case p.match(lexer.TokReturn):
		return p.returnStmt()
	case p.match(lexer.TokImport):
		return p.importStmt()
	case p.match(lexer.TokAssert):
		return p.assertStmt()
	case p.match(lexer.TokLBrace):
		brace := p.previous()
		stmts, ok := p.block()
		if !ok {
			return nil
		}
		return &ast.Block{Brace: brace, Stmts: stmts}
	}
	return p.expressionStmt()
}

// jump parses the trailing ';' of a single-keyword statement.
func (p *parser) jump(build func(lexer.Token) ast.Stmt) ast.Stmt {
	kw := p.previous()
	if _, ok := p.expect(lexer.TokSemicolon, fmt.Sprintf("expect ';' after '%s'", kw.Lexeme)); !ok {
		return nil
	}
	return build(kw)
}

func (p *parser) printStmt() ast.Stmt {
	kw := p.previous()
	value := p.expression()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after value"); !ok {
		return nil
	}
	return &ast.Print{Keyword: kw, Expr: value}
}

func (p *parser) expressionStmt() ast.Stmt {
	expr := p.expression()
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after expression"); !ok {
		return nil
	}
	return &ast.Expression{Expr: expr}
}

// block parses declarations up to and including the closing brace.
func (p *parser) block() ([]ast.Stmt, bool) {
	stmts := []ast.Stmt{}
	for !p.check(lexer.TokRBrace) && !p.atEnd() {
		stmts = append(stmts, p.declaration())
	}
	if _, ok := p.expect(lexer.TokRBrace, "expect '}' after block"); !ok {
		return nil, false
	}
	return stmts, true
}

func (p *parser) condition(after string) ast.Expr {
	if _, ok := p.expect(lexer.TokLParen, fmt.Sprintf("expect '(' after '%s'", after)); !ok {
		return nil
	}
	cond := p.expression()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen, fmt.Sprintf("expect ')' after %s condition", after)); !ok {
		return nil
	}
	return cond
}

func (p *parser) ifStmt() ast.Stmt {
	kw := p.previous()
	cond := p.condition("if")
	if cond == nil {
		return nil
	}
	then := p.statement()
	if then == nil {
		return nil
	}
	var els ast.Stmt
	if p.match(lexer.TokElse) {
		if els = p.statement(); els == nil {
			return nil
		}
	}
	return &ast.If{Keyword: kw, Cond: cond, Then: then, Else: els}
}

// loopBody returns the body as a breakable block, wrapping a single
// statement when no braces were written.
func (p *parser) loopBody(kw lexer.Token) *ast.Block {
	body := p.statement()
	if body == nil {
		return nil
	}
	if b, ok := body.(*ast.Block); ok {
		b.Breakable = true
		return b
	}
	return &ast.Block{Brace: kw, Stmts: []ast.Stmt{body}, Breakable: true}
}

func (p *parser) whileStmt() ast.Stmt {
	kw := p.previous()
	cond := p.condition("while")
	if cond == nil {
		return nil
	}
	body := p.loopBody(kw)
	if body == nil {
		return nil
	}
	return &ast.While{Keyword: kw, Cond: cond, Body: body}
}

func (p *parser) forStmt() ast.Stmt {
	kw := p.previous()
	if _, ok := p.expect(lexer.TokLParen, "expect '(' after 'for'"); !ok {
		return nil
	}

	var init ast.Stmt
	switch {
	case p.match(lexer.TokSemicolon):
	case p.match(lexer.TokVar):
		init = p.varDecl()
	default:
		init = p.expressionStmt()
	}
	if p.panicking {
		return nil
	}

	var cond ast.Expr
	if !p.check(lexer.TokSemicolon) {
		if cond = p.expression(); cond == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after loop condition"); !ok {
		return nil
	}

	var incr ast.Expr
	if !p.check(lexer.TokRParen) {
		if incr = p.expression(); incr == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "expect ')' after for clauses"); !ok {
		return nil
	}

	body := p.loopBody(kw)
	if body == nil {
		return nil
	}
	return &ast.For{Keyword: kw, Init: init, Cond: cond, Incr: incr, Body: body}
}

func (p *parser) returnStmt() ast.Stmt {
	kw := p.previous()
	var value ast.Expr
	if !p.check(lexer.TokSemicolon) {
		if value = p.expression(); value == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after return value"); !ok {
		return nil
	}
	return &ast.Return{Keyword: kw, Value: value}
}

func (p *parser) importStmt() ast.Stmt {
	kw := p.previous()
	name, ok := p.expect(lexer.TokString, "expect plugin name string after 'import'")
	if !ok {
		return nil
	}
	var alias lexer.Token
	if p.match(lexer.TokAs) {
		if alias, ok = p.expect(lexer.TokIdent, "expect alias name after 'as'"); !ok {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after import"); !ok {
		return nil
	}
	return &ast.Import{Keyword: kw, Name: name, Alias: alias}
}

func (p *parser) assertStmt() ast.Stmt {
	kw := p.previous()
	cond := p.expression()
	if cond == nil {
		return nil
	}
	var msg ast.Expr
	if p.match(lexer.TokComma) {
		if msg = p.expression(); msg == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "expect ';' after assertion"); !ok {
		return nil
	}
	return &ast.Assert{Keyword: kw, Cond: cond, Message: msg}
}

// --- Expressions, lowest precedence first ---

func (p *parser) expression() ast.Expr {
	return p.assignment()
}

func (p *parser) assignment() ast.Expr {
	expr := p.ternary()
	if expr == nil {
		return nil
	}
	if p.match(lexer.TokEqual, lexer.TokPlusEqual, lexer.TokMinusEqual,
		lexer.TokStarEqual, lexer.TokSlashEqual, lexer.TokPercentEqual) {
		op := p.previous()
		value := p.assignment()
		if value == nil {
			return nil
		}
		switch expr.(type) {
		case *ast.Variable, *ast.Index, *ast.Property:
			return &ast.Assign{Target: expr, Op: op, Value: value}
		}
		p.errorAt(op, "invalid assignment target")
	}
	return expr
}

func (p *parser) ternary() ast.Expr {
	cond := p.or()
	if cond == nil {
		return nil
	}
	if !p.match(lexer.TokQuestion) {
		return cond
	}
	q := p.previous()
	then := p.ternary()
	if then == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokColon, "expect ':' in ternary expression"); !ok {
		return nil
	}
	els := p.ternary()
	if els == nil {
		return nil
	}
	return &ast.Ternary{Cond: cond, Question: q, Then: then, Else: els}
}

func (p *parser) or() ast.Expr {
	return p.logical(p.and, lexer.TokOrOr)
}

func (p *parser) and() ast.Expr {
	return p.logical(p.equality, lexer.TokAndAnd)
}

func (p *parser) logical(next func() ast.Expr, op lexer.TokenType) ast.Expr {
	left := next()
	for left != nil && p.match(op) {
		tok := p.previous()
		right := next()
		if right == nil {
			return nil
		}
		left = &ast.Logical{Left: left, Op: tok, Right: right}
	}
	return left
}

// binary parses a left-associative chain of the given operators.
func (p *parser) binary(next func() ast.Expr, ops ...lexer.TokenType) ast.Expr {
	left := next()
	for left != nil && p.match(ops...) {
		tok := p.previous()
		right := next()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Left: left, Op: tok, Right: right}
	}
	return left
}

func (p *parser) equality() ast.Expr {
	return p.binary(p.comparison, lexer.TokEqualEqual, lexer.TokBangEqual)
}

func (p *parser) comparison() ast.Expr {
	return p.binary(p.term, lexer.TokLess, lexer.TokLessEqual, lexer.TokGreater, lexer.TokGreaterEqual)
}

func (p *parser) term() ast.Expr {
	return p.binary(p.factor, lexer.TokPlus, lexer.TokMinus)
}

func (p *parser) factor() ast.Expr {
	return p.binary(p.unary, lexer.TokStar, lexer.TokSlash, lexer.TokPercent)
}

func (p *parser) unary() ast.Expr {
	if p.match(lexer.TokBang, lexer.TokMinus) {
		op := p.previous()
		operand := p.unary()
		if operand == nil {
			return nil
		}
		return &ast.Unary{Op: op, Operand: operand}
	}
	return p.prefix()
}

func (p *parser) prefix() ast.Expr {
	if p.match(lexer.TokPlusPlus, lexer.TokMinusMinus) {
		op := p.previous()
		operand := p.postfix()
		if operand == nil {
			return nil
		}
		v, ok := operand.(*ast.Variable)
		if !ok {
			p.errorAt(op, "invalid increment target")
			return operand
		}
		return &ast.Increment{Target: v, Op: op, Prefix: true}
	}
	return p.postfix()
}

func (p *parser) postfix() ast.Expr {
	expr := p.call()
	if expr == nil {
		return nil
	}
	if p.match(lexer.TokPlusPlus, lexer.TokMinusMinus) {
		op := p.previous()
		v, ok := expr.(*ast.Variable)
		if !ok {
			p.errorAt(op, "invalid increment target")
			return expr
		}
		return &ast.Increment{Target: v, Op: op}
	}
	return expr
}

func (p *parser) call() ast.Expr {
	expr := p.primary()
	for expr != nil {
		switch {
		case p.match(lexer.TokLParen):
			expr = p.finishCall(expr)
		case p.match(lexer.TokLBracket):
			expr = p.finishIndex(expr)
		case p.match(lexer.TokDot):
			name, ok := p.expect(lexer.TokIdent, "expect property name after '.'")
			if !ok {
				return nil
			}
			expr = &ast.Property{Object: expr, Name: name}
		default:
			return expr
		}
	}
	return nil
}

func (p *parser) finishCall(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	if !p.check(lexer.TokRParen) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.current(), fmt.Sprintf("can't have more than %d arguments", maxArgs))
			}
			arg := p.expression()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	paren, ok := p.expect(lexer.TokRParen, "expect ')' after arguments")
	if !ok {
		return nil
	}
	return &ast.Call{Callee: callee, Paren: paren, Args: args}
}

func (p *parser) finishIndex(callee ast.Expr) ast.Expr {
	bracket := p.previous()
	idx := &ast.Index{Callee: callee, Bracket: bracket}

	if p.check(lexer.TokColon) {
		idx.First = &ast.Literal{Value: math.Inf(-1), Source: bracket.Line}
	} else if idx.First = p.expression(); idx.First == nil {
		return nil
	}

	if p.match(lexer.TokColon) {
		if p.check(lexer.TokRBracket) || p.check(lexer.TokColon) {
			idx.Second = &ast.Literal{Value: math.Inf(1), Source: bracket.Line}
		} else if idx.Second = p.expression(); idx.Second == nil {
			return nil
		}
		if p.match(lexer.TokColon) {
			if idx.Third = p.expression(); idx.Third == nil {
				return nil
			}
		}
	}

	if _, ok := p.expect(lexer.TokRBracket, "expect ']' after index"); !ok {
		return nil
	}
	return idx
}

func (p *parser) primary() ast.Expr {
	tok := p.current()
	switch {
	case p.match(lexer.TokFalse):
		return &ast.Literal{Value: false, Source: tok.Line}
	case p.match(lexer.TokTrue):
		return &ast.Literal{Value: true, Source: tok.Line}
	case p.match(lexer.TokNull):
		return &ast.Literal{Value: nil, Source: tok.Line}
	case p.match(lexer.TokNumber):
		return &ast.Literal{Value: tok.Literal, Source: tok.Line}
	case p.match(lexer.TokString):
		raw, _ := tok.Literal.(string)
		return &ast.Literal{Value: Unescape(raw), Source: tok.Line}
	case p.match(lexer.TokIdent):
		return &ast.Variable{Name: tok}
	case p.match(lexer.TokFunction):
		return p.function()
	case p.match(lexer.TokLParen):
		inner := p.expression()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen, "expect ')' after expression"); !ok {
			return nil
		}
		return &ast.Grouping{Inner: inner}
	}
	p.fail(tok, "expect expression")
	return nil
}

func (p *parser) function() ast.Expr {
	kw := p.previous()
	if _, ok := p.expect(lexer.TokLParen, "expect '(' after 'function'"); !ok {
		return nil
	}
	var params []lexer.Token
	if !p.check(lexer.TokRParen) {
		for {
			if len(params) >= maxArgs {
				p.errorAt(p.current(), fmt.Sprintf("can't have more than %d parameters", maxArgs))
			}
			param, ok := p.expect(lexer.TokIdent, "expect parameter name")
			if !ok {
				return nil
			}
			params = append(params, param)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "expect ')' after parameters"); !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLBrace, "expect '{' before function body"); !ok {
		return nil
	}
	body, ok := p.block()
	if !ok {
		return nil
	}
	return &ast.Function{Keyword: kw, Params: params, Body: body}
}

// Unescape resolves backslash escapes in a raw string body. Unknown
// escapes are kept as written.
func Unescape(raw string) string {
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if ch != '\\' || i+1 == len(raw) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		default:
			b.WriteByte('\\')
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}
