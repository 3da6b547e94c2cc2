package rules

import (
	"strings"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/source"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/tracker"
)

// startsLine reports whether only blanks precede tok on its line.
func startsLine(f *source.Text, tok token.Token) bool {
	line := f.Line(tok.Line)
	if tok.Column-1 > len(line) {
		return false
	}
	return strings.TrimLeft(line[:tok.Column-1], " \t") == ""
}

func frameName(fr *tracker.Frame) string {
	if fr.Kind == tracker.Function && fr.Keyword.Text != "" {
		return "function " + fr.Keyword.Text
	}
	return fr.Kind.String()
}

func bracePlacementRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	switch {
	case tok.Is("{"):
		top := c.View.Top()
		if top == nil || top.Open.Offset != tok.Offset {
			return
		}
		if !top.Kind.IsControl() && top.Kind != tracker.Function {
			return
		}
		if !f.FirstOnLine(i) {
			c.Report(tok, "opening brace of %s goes on its own line", frameName(top))
		}
	case tok.Is("}"):
		fr := c.View.LastClosed()
		if fr == nil || fr.Kind == tracker.Initializer || fr.Kind == tracker.Linkage {
			return
		}
		open := fr.Open
		if open.Line == tok.Line || !startsLine(f, open) {
			return
		}
		if !f.FirstOnLine(i) {
			c.Report(tok, "closing brace of %s goes on its own line", frameName(fr))
			return
		}
		if tok.Column != open.Column {
			c.Report(tok, "closing brace at column %d does not line up with its opening brace at %d:%d",
				tok.Column, open.Line, open.Column)
		}
	}
}

func braceRequiredRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	switch {
	case tok.Is(")"):
		h, ok := c.View.ClosedHeader()
		if !ok || h.DoWhile {
			return
		}
		if !f.At(f.NextSig(i)).Is("{") {
			c.Report(h.Keyword, "body of %s is not enclosed in braces", h.Keyword.Text)
		}
	case tok.IsKeyword("else"):
		if next := f.At(f.NextSig(i)); !next.Is("{") && !next.IsKeyword("if") {
			c.Report(tok, "body of else is not enclosed in braces")
		}
	case tok.IsKeyword("do"):
		if !f.At(f.NextSig(i)).Is("{") {
			c.Report(tok, "body of do is not enclosed in braces")
		}
	}
}
