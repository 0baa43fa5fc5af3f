// Package lexer implements the Toy language scanner.
package lexer

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/toy/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Punctuation
	TokLParen TokenType = iota // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokComma     // ,
	TokDot       // .
	TokSemicolon // ;
	TokColon     // :
	TokQuestion  // ?

	// Operators
	TokMinus        // -
	TokMinusMinus   // --
	TokMinusEqual   // -=
	TokPlus         // +
	TokPlusPlus     // ++
	TokPlusEqual    // +=
	TokSlash        // /
	TokSlashEqual   // /=
	TokStar         // *
	TokStarEqual    // *=
	TokPercent      // %
	TokPercentEqual // %=
	TokBang         // !
	TokBangEqual    // !=
	TokEqual        // =
	TokEqualEqual   // ==
	TokGreater      // >
	TokGreaterEqual // >=
	TokLess         // <
	TokLessEqual    // <=
	TokAndAnd       // &&
	TokOrOr         // ||

	// Literals
	TokIdent
	TokString
	TokNumber

	// Keywords
	TokAs
	TokAssert
	TokBreak
	TokConst
	TokContinue
	TokElse
	TokFalse
	TokFor
	TokFunction
	TokIf
	TokImport
	TokNull
	TokPass
	TokPrint
	TokReturn
	TokTrue
	TokVar
	TokWhile

	// Special
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokLParen: "(", TokRParen: ")", TokLBrace: "{", TokRBrace: "}",
	TokLBracket: "[", TokRBracket: "]", TokComma: ",", TokDot: ".",
	TokSemicolon: ";", TokColon: ":", TokQuestion: "?",
	TokMinus: "-", TokMinusMinus: "--", TokMinusEqual: "-=",
	TokPlus: "+", TokPlusPlus: "++", TokPlusEqual: "+=",
	TokSlash: "/", TokSlashEqual: "/=", TokStar: "*", TokStarEqual: "*=",
	TokPercent: "%", TokPercentEqual: "%=",
	TokBang: "!", TokBangEqual: "!=", TokEqual: "=", TokEqualEqual: "==",
	TokGreater: ">", TokGreaterEqual: ">=", TokLess: "<", TokLessEqual: "<=",
	TokAndAnd: "&&", TokOrOr: "||",
	TokIdent: "identifier", TokString: "string", TokNumber: "number",
	TokEOF: "end of input",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	for word, typ := range keywords {
		if typ == t {
			return word
		}
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexeme. Literal holds a float64 for numbers and the
// raw, still-escaped body for strings.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any
	Line    int
}

func (t Token) String() string {
	if t.Type == TokEOF {
		return "EOF"
	}
	return fmt.Sprintf("%s %q", t.Type, t.Lexeme)
}

var keywords = map[string]TokenType{
	"as":       TokAs,
	"assert":   TokAssert,
	"break":    TokBreak,
	"const":    TokConst,
	"continue": TokContinue,
	"else":     TokElse,
	"false":    TokFalse,
	"for":      TokFor,
	"function": TokFunction,
	"if":       TokIf,
	"import":   TokImport,
	"null":     TokNull,
	"pass":     TokPass,
	"print":    TokPrint,
	"return":   TokReturn,
	"true":     TokTrue,
	"var":      TokVar,
	"while":    TokWhile,
}

// Keyword reports whether word is reserved and returns its token type.
func Keyword(word string) (TokenType, bool) {
	t, ok := keywords[word]
	return t, ok
}

type scanner struct {
	source string
	start  int
	pos    int
	line   int
	tokens []Token
	report *diagnostics.Reporter
}

// Scan converts source into tokens. Problems are reported to r and scanning
// continues past them; the result always ends with an EOF token.
func Scan(source string, r *diagnostics.Reporter) []Token {
	if r == nil {
		r = diagnostics.NewReporter()
	}
	s := &scanner{source: source, line: 1, report: r}
	for !s.atEnd() {
		s.start = s.pos
		s.scanToken()
	}
	s.tokens = append(s.tokens, Token{Type: TokEOF, Line: s.line})
	return s.tokens
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
	}
	return ch
}

func (s *scanner) match(expected byte) bool {
	if s.atEnd() || s.source[s.pos] != expected {
		return false
	}
	s.pos++
	return true
}

func (s *scanner) add(typ TokenType) {
	s.addLiteral(typ, nil)
}

func (s *scanner) addLiteral(typ TokenType, literal any) {
	s.tokens = append(s.tokens, Token{
		Type:    typ,
		Lexeme:  s.source[s.start:s.pos],
		Literal: literal,
		Line:    s.line,
	})
}

func (s *scanner) errorf(line int, format string, args ...any) {
	s.report.Error(diagnostics.EScan, line, "", fmt.Sprintf(format, args...))
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) scanToken() {
	ch := s.advance()
	switch ch {
	case ' ', '\t', '\r', '\n':
	case '(':
		s.add(TokLParen)
	case ')':
		s.add(TokRParen)
	case '{':
		s.add(TokLBrace)
	case '}':
		s.add(TokRBrace)
	case '[':
		s.add(TokLBracket)
	case ']':
		s.add(TokRBracket)
	case ',':
		s.add(TokComma)
	case '.':
		s.add(TokDot)
	case ';':
		s.add(TokSemicolon)
	case ':':
		s.add(TokColon)
	case '?':
		s.add(TokQuestion)
	case '-':
		s.add(s.pick('-', TokMinusMinus, '=', TokMinusEqual, TokMinus))
	case '+':
		s.add(s.pick('+', TokPlusPlus, '=', TokPlusEqual, TokPlus))
	case '*':
		s.add(s.either('=', TokStarEqual, TokStar))
	case '%':
		s.add(s.either('=', TokPercentEqual, TokPercent))
	case '!':
		s.add(s.either('=', TokBangEqual, TokBang))
	case '=':
		s.add(s.either('=', TokEqualEqual, TokEqual))
	case '>':
		s.add(s.either('=', TokGreaterEqual, TokGreater))
	case '<':
		s.add(s.either('=', TokLessEqual, TokLess))
	case '&':
		if s.match('&') {
			s.add(TokAndAnd)
		} else {
			s.errorf(s.line, "unexpected character '&' (did you mean '&&'?)")
		}
	case '|':
		if s.match('|') {
			s.add(TokOrOr)
		} else {
			s.errorf(s.line, "unexpected character '|' (did you mean '||'?)")
		}
	case '/':
		switch {
		case s.match('/'):
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		case s.match('*'):
			s.blockComment()
		case s.match('='):
			s.add(TokSlashEqual)
		default:
			s.add(TokSlash)
		}
	case '"':
		s.scanString()
	default:
		switch {
		case isDigit(ch):
			s.scanNumber()
		case isAlpha(ch):
			s.scanIdentOrKeyword()
		default:
			s.errorf(s.line, "unexpected character %q", rune(ch))
		}
	}
}

// either picks the two-character form when the next byte is next.
func (s *scanner) either(next byte, long, short TokenType) TokenType {
	if s.match(next) {
		return long
	}
	return short
}

func (s *scanner) pick(a byte, aType TokenType, b byte, bType TokenType, short TokenType) TokenType {
	switch {
	case s.match(a):
		return aType
	case s.match(b):
		return bType
	}
	return short
}

func (s *scanner) blockComment() {
	startLine := s.line
	for !s.atEnd() {
		if s.peek() == '*' && s.peekAt(1) == '/' {
			s.advance()
			s.advance()
			return
		}
		s.advance()
	}
	s.errorf(startLine, "unterminated block comment")
}

func (s *scanner) scanString() {
	startLine := s.line
	for !s.atEnd() && s.peek() != '"' {
		if s.peek() == '\\' && s.peekAt(1) != 0 {
			s.advance()
		}
		s.advance()
	}
	if s.atEnd() {
		s.errorf(startLine, "unterminated string")
		return
	}
	s.advance() // closing "
	body := s.source[s.start+1 : s.pos-1]
	s.tokens = append(s.tokens, Token{
		Type:    TokString,
		Lexeme:  s.source[s.start:s.pos],
		Literal: body,
		Line:    startLine,
	})
}

func (s *scanner) scanNumber() {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	text := s.source[s.start:s.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		s.errorf(s.line, "invalid number %q", text)
		return
	}
	s.addLiteral(TokNumber, v)
}

func (s *scanner) scanIdentOrKeyword() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}
	text := s.source[s.start:s.pos]
	if typ, ok := keywords[text]; ok {
		s.add(typ)
		return
	}
	s.add(TokIdent)
}
