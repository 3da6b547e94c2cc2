package rules

import (
	"strings"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/lexer"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/tracker"
)

// posIn maps byte k of a multi-byte token to its line and column.
func posIn(tok token.Token, k int) (line, col int) {
	line, col = tok.Line, tok.Column
	for i := 0; i < k && i < len(tok.Text); i++ {
		if tok.Text[i] == '\n' {
			line, col = line+1, 1
		} else {
			col++
		}
	}
	return line, col
}

func isBlankLine(s string) bool { return strings.TrimSpace(s) == "" }

func lexErrorRule(c *Context, i int) {
	if tok := c.File.Tokens[i]; tok.Kind == token.LexError {
		c.Report(tok, "%s", lexer.Describe(tok))
	}
}

func lineWidthRule(c *Context, n int, text string) {
	if limit := c.Rules.MaxLineWidth; len(text) > limit {
		c.ReportAt(n, limit+1, "line is %d bytes long, more than %d", len(text), limit)
	}
}

// tabRule looks at every token that can hold a tab outside a literal:
// blanks, comments, unterminated comments and directive lines. Quotes
// inside a directive hide their tabs up to its first comment.
func tabRule(c *Context, i int) {
	tok := c.File.Tokens[i]
	quoted := false
	switch tok.Kind {
	case token.Whitespace, token.Comment:
	case token.Directive:
		quoted = true
	case token.LexError:
		if !strings.HasPrefix(tok.Text, "/*") {
			return
		}
	default:
		return
	}

	var quote byte
	s := tok.Text
	for k := 0; k < len(s); k++ {
		ch := s[k]
		if quoted {
			switch {
			case quote != 0 && ch == '\\':
				k++
				continue
			case quote != 0 && ch == quote:
				quote = 0
				continue
			case quote == 0 && (ch == '"' || ch == '\''):
				quote = ch
				continue
			case quote == 0 && (strings.HasPrefix(s[k:], "//") || strings.HasPrefix(s[k:], "/*")):
				quoted = false
			}
		}
		if ch == '\t' && quote == 0 {
			line, col := posIn(tok, k)
			c.ReportAt(line, col, "tab character; indent with spaces")
		}
	}
}

func trailingWhitespaceRule(c *Context, n int, text string) {
	if trimmed := strings.TrimRight(text, " \t\v\f"); len(trimmed) < len(text) {
		c.ReportAt(n, len(trimmed)+1, "trailing whitespace")
	}
}

func eofNewlineRule(c *Context) {
	b := c.File.Content
	if len(b) > 0 && b[len(b)-1] != '\n' {
		n := c.File.LastLine()
		c.ReportAt(n, len(c.File.Line(n))+1, "file does not end with a newline")
	}
}

// blankLinesRule reports a run of blank lines once, on the first line that
// exceeds the limit.
func blankLinesRule(c *Context, n int, text string) {
	limit := c.Int("max")
	if limit < 0 || !isBlankLine(text) || n <= limit {
		return
	}
	for k := n - limit; k < n; k++ {
		if !isBlankLine(c.File.Line(k)) {
			return
		}
	}
	if k := n - limit - 1; k >= 1 && isBlankLine(c.File.Line(k)) {
		return
	}
	c.ReportAt(n, 1, "more than %d consecutive blank lines", limit)
}

// indentRule only judges tokens that start a statement or label on a fresh
// line; continuation lines are free.
func indentRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if !tok.Significant() || !f.FirstOnLine(i) {
		return
	}
	if p := f.PrevSig(i); p >= 0 {
		prev := f.Tokens[p]
		if !prev.Is(";") && !prev.Is("{") && !prev.Is("}") && !prev.Is(":") && !prev.IsKeyword("else", "do") {
			return
		}
	}
	if _, ok := c.View.Header(); ok {
		return
	}
	if top := c.View.Top(); top != nil && top.Kind == tracker.Initializer {
		return
	}
	if w := c.Rules.IndentWidth; (tok.Column-1)%w != 0 {
		c.Report(tok, "indentation of %d columns is not a multiple of %d", tok.Column-1, w)
	}
}
