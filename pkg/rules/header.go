package rules

import (
	"regexp"
	"strings"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/lexer"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/tracker"
)

// GuardName derives the include-guard macro from a file name: foo.h gives
// FOO_H.
func GuardName(base string) string {
	b := []byte(strings.ToUpper(base))
	for i, ch := range b {
		if !(ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9') {
			b[i] = '_'
		}
	}
	return string(b)
}

func missingGuardRule(c *Context, e tracker.Event) {
	if e.Kind == tracker.GuardViolation {
		c.Report(e.Tok, "%s", e.Message)
	}
}

func guardNamingRule(c *Context) {
	g := c.View.Guard()
	if g.Name == "" || g.State == tracker.GuardStart {
		return
	}
	want := GuardName(c.File.Base())
	if g.Name == want {
		return
	}
	at := g.Ifndef
	if d := lexer.ParseDirective(at.Text); d.Arg == g.Name && d.ArgOffset >= 0 {
		at.Line, at.Column = posIn(at, d.ArgOffset)
	}
	c.Report(at, "include guard %s should be named %s", g.Name, want)
}

func endifCommentRule(c *Context) {
	g := c.View.Guard()
	if g.State != tracker.GuardClosed {
		return
	}
	d := lexer.ParseDirective(g.Endif.Text)
	if words := strings.Fields(d.Comment); len(words) > 0 && words[0] == g.Name {
		return
	}
	c.Report(g.Endif, "closing #endif of the include guard should carry the comment // %s", g.Name)
}

func linkageRule(c *Context) {
	if c.View.SawLinkage() || c.Facts == nil {
		return
	}
	for _, s := range c.Facts.Signatures {
		if !s.Definition && !s.Static {
			c.Report(s.Name, "header declares %s outside an extern \"C\" block", s.Name.Text)
			return
		}
	}
}

var bannerFile = regexp.MustCompile(`@file\s+(\S+)`)

func fileBannerRule(c *Context) {
	base := c.File.Base()
	for _, tok := range c.File.Tokens {
		switch tok.Kind {
		case token.Whitespace, token.Newline:
			continue
		case token.Comment:
			if m := bannerFile.FindStringSubmatch(tok.Text); m != nil {
				if m[1] != base {
					c.Report(tok, "file banner names %s, not %s", m[1], base)
				}
				return
			}
		case token.EOF:
			c.ReportAt(1, 1, "file does not open with a banner comment holding @file %s", base)
			return
		}
		c.Report(tok, "file does not open with a banner comment holding @file %s", base)
		return
	}
}
