package lexer

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

// Lexer turns C source bytes into tokens. It never fails: malformed
// literals and comments come back as LexError tokens and scanning goes on.
type Lexer struct {
	source      []byte
	pos         int
	line        int
	column      int
	atLineStart bool
}

func New(source []byte) *Lexer {
	return &Lexer{source: source, line: 1, column: 1, atLineStart: true}
}

// Tokens yields the tokens of source lazily, stopping before EOF.
func Tokens(source []byte) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		l := New(source)
		for {
			tok := l.Next()
			if tok.Kind == token.EOF || !yield(tok) {
				return
			}
		}
	}
}

// Tokenize collects every token of source. The last element is always EOF.
func Tokenize(source []byte) []token.Token {
	toks := make([]token.Token, 0, len(source)/3+1)
	l := New(source)
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) Next() token.Token {
	startPos, startCol, startLine := l.pos, l.column, l.line
	if l.isAtEnd() {
		return l.makeToken(token.EOF, startPos, startCol, startLine)
	}

	ch := l.peek()
	switch {
	case ch == '\n':
		l.advance()
		l.atLineStart = true
		return l.makeToken(token.Newline, startPos, startCol, startLine)
	case ch == '\r' && l.peekNext() == '\n':
		l.advance()
		l.advance()
		l.atLineStart = true
		return l.makeToken(token.Newline, startPos, startCol, startLine)
	case isBlank(ch):
		for isBlank(l.peek()) && !(l.peek() == '\r' && l.peekNext() == '\n') {
			l.advance()
		}
		return l.makeToken(token.Whitespace, startPos, startCol, startLine)
	}

	lineStart := l.atLineStart
	l.atLineStart = false

	switch {
	case ch == '#' && lineStart:
		return l.directive(startPos, startCol, startLine)
	case ch == '/' && l.peekNext() == '/':
		l.skipToEOL()
		return l.makeToken(token.Comment, startPos, startCol, startLine)
	case ch == '/' && l.peekNext() == '*':
		return l.blockComment(startPos, startCol, startLine)
	case isIdentStart(ch):
		for isIdentChar(l.peek()) {
			l.advance()
		}
		tok := l.makeToken(token.Ident, startPos, startCol, startLine)
		if token.Keywords[tok.Text] {
			tok.Kind = token.Keyword
		}
		return tok
	case isDigit(ch) || (ch == '.' && isDigit(l.peekNext())):
		return l.number(startPos, startCol, startLine)
	case ch == '"':
		return l.quoted('"', token.String, startPos, startCol, startLine)
	case ch == '\'':
		return l.quoted('\'', token.Char, startPos, startCol, startLine)
	}

	if n := l.punctLen(); n > 0 {
		for i := 0; i < n; i++ {
			l.advance()
		}
		return l.makeToken(token.Punct, startPos, startCol, startLine)
	}

	_, size := utf8.DecodeRune(l.source[l.pos:])
	for i := 0; i < size; i++ {
		l.advance()
	}
	return l.makeToken(token.Other, startPos, startCol, startLine)
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) atEOL() bool {
	return l.isAtEnd() || l.peek() == '\n' || (l.peek() == '\r' && l.peekNext() == '\n')
}

func (l *Lexer) makeToken(kind token.Kind, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Kind: kind, Text: string(l.source[startPos:l.pos]),
		Line: startLine, Column: startCol, Offset: startPos,
	}
}

func (l *Lexer) skipToEOL() {
	for !l.atEOL() {
		l.advance()
	}
}

// directive consumes a preprocessor line, following backslash continuations.
// The newline that ends it is left for the next token.
func (l *Lexer) directive(startPos, startCol, startLine int) token.Token {
	for !l.isAtEnd() {
		if l.peek() == '\\' {
			l.advance()
			if l.peek() == '\r' && l.peekNext() == '\n' {
				l.advance()
				l.advance()
			} else if l.peek() == '\n' {
				l.advance()
			}
			continue
		}
		if l.atEOL() {
			break
		}
		l.advance()
	}
	return l.makeToken(token.Directive, startPos, startCol, startLine)
}

// blockComment scans /* ... */. Without a terminator the rest of the file
// becomes a single LexError token.
func (l *Lexer) blockComment(startPos, startCol, startLine int) token.Token {
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return l.makeToken(token.Comment, startPos, startCol, startLine)
		}
		l.advance()
	}
	return l.makeToken(token.LexError, startPos, startCol, startLine)
}

// quoted scans a string or character literal. An unescaped end of line
// before the closing quote yields a LexError token that stops at the end of
// the line, so scanning resumes on the next one.
func (l *Lexer) quoted(quote byte, kind token.Kind, startPos, startCol, startLine int) token.Token {
	l.advance()
	for {
		if l.atEOL() {
			return l.makeToken(token.LexError, startPos, startCol, startLine)
		}
		c := l.advance()
		switch c {
		case quote:
			return l.makeToken(kind, startPos, startCol, startLine)
		case '\\':
			if l.peek() == '\r' && l.peekNext() == '\n' {
				l.advance()
				l.advance()
			} else if !l.isAtEnd() {
				l.advance()
			}
		}
	}
}

// number scans a preprocessing number: digits, letters, dots and exponent
// signs, which covers hex, octal, floats and suffixes alike.
func (l *Lexer) number(startPos, startCol, startLine int) token.Token {
	l.advance()
	for !l.isAtEnd() {
		c := l.peek()
		prev := l.source[l.pos-1]
		if (c == '+' || c == '-') && (prev == 'e' || prev == 'E' || prev == 'p' || prev == 'P') {
			l.advance()
			continue
		}
		if isIdentChar(c) || c == '.' {
			l.advance()
			continue
		}
		break
	}
	return l.makeToken(token.Number, startPos, startCol, startLine)
}

var (
	punct3 = []string{">>=", "<<=", "..."}
	punct2 = []string{
		"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
		"+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=", "##",
	}
)

const punct1 = "[](){}.&*+-~!/%<>^|?:;=,#"

func (l *Lexer) punctLen() int {
	rest := l.source[l.pos:]
	for _, p := range punct3 {
		if len(rest) >= 3 && string(rest[:3]) == p {
			return 3
		}
	}
	for _, p := range punct2 {
		if len(rest) >= 2 && string(rest[:2]) == p {
			return 2
		}
	}
	if strings.IndexByte(punct1, rest[0]) >= 0 {
		return 1
	}
	return 0
}

// Describe explains why a LexError token was produced.
func Describe(tok token.Token) string {
	switch {
	case strings.HasPrefix(tok.Text, `"`):
		return "unterminated string literal"
	case strings.HasPrefix(tok.Text, "'"):
		return "unterminated character literal"
	case strings.HasPrefix(tok.Text, "/*"):
		return "unterminated block comment"
	}
	return "malformed token"
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\v' || c == '\f' || c == '\r'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }
