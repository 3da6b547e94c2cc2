package rules

import (
	"strings"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/tracker"
)

func fallthroughRule(c *Context, e tracker.Event) {
	if e.Kind == tracker.CaseFallthrough {
		c.Report(e.Tok, "%s", e.Message)
	}
}

func switchDefaultRule(c *Context, e tracker.Event) {
	if e.Kind == tracker.SwitchWithoutDefault {
		c.Report(e.Tok, "%s", e.Message)
	}
}

// caseBreakRule checks a break written directly in the switch body, on a
// line of its own.
func caseBreakRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if !tok.IsKeyword("break") || !f.FirstOnLine(i) {
		return
	}
	sw, ok := c.View.Switch()
	if !ok || !sw.Direct || sw.State != tracker.InCase {
		return
	}
	if want := sw.Case.Column + c.Rules.IndentWidth; tok.Column != want {
		c.Report(tok, "break at column %d should be at column %d, one level past its %s label",
			tok.Column, want, sw.Case.Text)
	}
}

func nestingRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if !tok.IsKeyword("if") {
		return
	}
	if p := f.PrevSig(i); p >= 0 && f.Tokens[p].IsKeyword("else") {
		return
	}
	if limit, depth := c.Int("max"), c.View.CondDepth(); depth >= limit {
		c.Report(tok, "if nested %d levels deep, more than %d", depth+1, limit)
	}
}

var relational = map[string]bool{"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true}

// literalValue strips integer suffixes so 1u and 1UL compare as 1.
func literalValue(s string) string {
	return strings.TrimRight(s, "uUlL")
}

func allowedLiteral(allow, lit string) bool {
	v := literalValue(lit)
	for _, a := range strings.Split(allow, ",") {
		if a = strings.TrimSpace(a); a != "" && literalValue(a) == v {
			return true
		}
	}
	return false
}

func magicNumberRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if tok.Kind != token.Number {
		return
	}
	h, ok := c.View.Header()
	if !ok || !(h.Kind == tracker.For && h.Clause == 1 || h.Kind == tracker.While) {
		return
	}
	if allowedLiteral(c.Text("allow"), tok.Text) {
		return
	}
	prev, next := f.At(f.PrevSig(i)), f.At(f.NextSig(i))
	if relational[prev.Text] && prev.Kind == token.Punct || relational[next.Text] && next.Kind == token.Punct {
		c.Report(tok, "numeric literal %s used as a loop bound; use a named constant", tok.Text)
	}
}

func gotoRule(c *Context, i int) {
	if tok := c.File.Tokens[i]; tok.IsKeyword("goto") {
		c.Report(tok, "goto is not allowed")
	}
}

// unsafeFunctions maps unbounded library calls to their replacements.
var unsafeFunctions = map[string]string{
	"gets":     "fgets(buffer, size, stdin)",
	"strcpy":   "strlcpy(dest, src, dest_size) or strncpy(dest, src, n)",
	"strcat":   "strlcat(dest, src, dest_size) or strncat(dest, src, n)",
	"sprintf":  "snprintf(buffer, size, ...)",
	"vsprintf": "vsnprintf(buffer, size, ap)",
	"scanf":    "fgets(line, size, stdin) followed by sscanf with field widths",
	"fscanf":   "fgets(line, size, file) followed by sscanf with field widths",
	"sscanf":   "width-limited conversions such as %31s",
	"tmpnam":   "mkstemp(template) or tmpfile()",
	"getwd":    "getcwd(buffer, size)",
}

func unsafeFunctionRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if tok.Kind != token.Ident {
		return
	}
	repl, ok := unsafeFunctions[tok.Text]
	if !ok || !f.At(f.NextSig(i)).Is("(") {
		return
	}
	if p := f.At(f.PrevSig(i)); p.Is(".") || p.Is("->") {
		return
	}
	c.Report(tok, "%s is unsafe; use %s", tok.Text, repl)
}
