package rules

import (
	"github.com/mirzafahad/embedded-c-style-guide/pkg/source"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

var binaryOperators = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"&&": true, "||": true, "+": true, "-": true, "*": true, "/": true,
	"%": true, "&": true, "|": true, "^": true, "<<": true, ">>": true,
}

// ambiguous operators are also unary prefixes.
var ambiguous = map[string]bool{"+": true, "-": true, "*": true, "&": true}

func isOperand(tok token.Token) bool {
	switch tok.Kind {
	case token.Ident, token.Number, token.String, token.Char:
		return true
	}
	return tok.Is(")") || tok.Is("]")
}

// isBinary decides from the left context whether the operator at i joins
// two operands.
func isBinary(f *source.Text, i int) bool {
	tok := f.Tokens[i]
	if !ambiguous[tok.Text] {
		return true
	}
	p := f.PrevSig(i)
	if p < 0 || !isOperand(f.Tokens[p]) {
		return false
	}
	prev := f.Tokens[p]
	if prev.Is(")") {
		// (type)-x is a cast applied to a unary operand
		if q := f.At(f.PrevSig(p)); q.IsTypeWord() || q.Is("*") {
			return false
		}
	}
	if tok.Text == "*" && prev.Kind == token.Ident {
		if prev.IsTypeWord() {
			return false
		}
		pp := f.PrevSig(p)
		if pp < 0 {
			return false
		}
		switch b := f.Tokens[pp]; {
		case b.Is(";"), b.Is("{"), b.Is("}"), b.Is("("), b.Is(","), b.Kind == token.Keyword && !b.IsKeyword("return", "case", "sizeof"):
			return false
		}
	}
	return true
}

func oneBlank(tok token.Token) bool { return tok.Kind == token.Whitespace && tok.Text == " " }

func operatorSpaceRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if tok.Kind != token.Punct || !binaryOperators[tok.Text] || !isBinary(f, i) {
		return
	}
	left := f.FirstOnLine(i) || oneBlank(f.At(i-1))
	right := f.LastOnLine(i) || oneBlank(f.At(i+1)) || f.At(i+1).Kind == token.Comment
	if !left || !right {
		c.Report(tok, "binary operator %s needs exactly one space on each side", tok.Text)
	}
}

func keywordSpaceRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if !tok.IsKeyword("if", "for", "while", "switch", "return") {
		return
	}
	gap := f.At(i + 1)
	switch {
	case gap.Is("("):
		c.Report(tok, "missing space between %s and (", tok.Text)
	case gap.Kind == token.Whitespace && gap.Text != " " && f.At(i+2).Is("("):
		c.Report(gap, "use exactly one space between %s and (", tok.Text)
	}
}

func commaSpaceRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if !tok.Is(",") {
		return
	}
	if prev := f.At(i - 1); prev.Kind == token.Whitespace && !f.FirstOnLine(i) {
		c.Report(prev, "blank before comma")
	}
	switch next := f.At(i + 1); next.Kind {
	case token.Newline, token.EOF, token.Comment:
	case token.Whitespace:
		if next.Text != " " && !f.LastOnLine(i) && f.At(i+2).Kind != token.Comment {
			c.Report(next, "use exactly one space after comma")
		}
	default:
		c.Report(tok, "missing space after comma")
	}
}

func memberAccessRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if !tok.Is("->") && !tok.Is(".") {
		return
	}
	if tok.Is(".") {
		// designated initializer
		if p := f.At(f.PrevSig(i)); p.Is("{") || p.Is(",") {
			return
		}
	}
	if f.At(i-1).Kind == token.Whitespace && !f.FirstOnLine(i) {
		c.Report(tok, "no space before %s", tok.Text)
	}
	if f.At(i+1).Kind == token.Whitespace {
		c.Report(tok, "no space after %s", tok.Text)
	}
}

func bracketSpaceRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	switch {
	case tok.Is("["):
		if f.At(i-1).Kind == token.Whitespace && !f.FirstOnLine(i) {
			if p := f.At(f.PrevSig(i)); p.Kind == token.Ident || p.Is(")") || p.Is("]") {
				c.Report(tok, "no space before [")
			}
		}
		if f.At(i+1).Kind == token.Whitespace && !f.LastOnLine(i) {
			c.Report(tok, "no space after [")
		}
	case tok.Is("]"):
		if f.At(i-1).Kind == token.Whitespace && !f.FirstOnLine(i) {
			c.Report(tok, "no space before ]")
		}
	}
}

func callParenRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if tok.Kind != token.Ident || tok.IsTypeWord() {
		return
	}
	if gap := f.At(i + 1); gap.Kind == token.Whitespace && f.At(i+2).Is("(") {
		c.Report(gap, "no space between %s and its argument list", tok.Text)
	}
}
