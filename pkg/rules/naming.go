package rules

import (
	"github.com/mirzafahad/embedded-c-style-guide/pkg/classify"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/lexer"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

func checkName(c *Context, class classify.Class, tok token.Token, what string) {
	re := c.Rules.Naming(class)
	if re == nil || re.MatchString(tok.Text) {
		return
	}
	c.Report(tok, "%s name '%s' does not match %s", what, tok.Text, re)
}

func macroNamingRule(c *Context, i int) {
	tok := c.File.Tokens[i]
	if tok.Kind != token.Directive {
		return
	}
	d := lexer.ParseDirective(tok.Text)
	if d.Name != "define" || d.Arg == "" {
		return
	}
	name := token.Token{Kind: token.Ident, Text: d.Arg, Offset: tok.Offset + d.ArgOffset}
	name.Line, name.Column = posIn(tok, d.ArgOffset)
	if classify.Classify(classify.Window{Tok: name, MacroDef: true}) == classify.Macro {
		checkName(c, classify.Macro, name, "macro")
	}
}

// hasClosedParen is true for names inside the parameter list of a function
// type, which follows a closed declarator group.
func hasClosedParen(prev []token.Token) bool {
	for _, p := range prev {
		if p.Is(")") {
			return true
		}
	}
	return false
}

func typeNamingRule(c *Context, i int) {
	w := c.Window
	if c.Class != classify.TypeName || !w.InTypedef || !classify.IsDeclarator(w) || hasClosedParen(w.Prev) {
		return
	}
	checkName(c, classify.TypeName, w.Tok, "type")
}

func globalNamingRule(c *Context, i int) {
	if c.Class == classify.GlobalVariable {
		checkName(c, classify.GlobalVariable, c.Window.Tok, "global variable")
	}
}

func functionNamingRule(c *Context, i int) {
	if c.Class == classify.PublicFunction {
		checkName(c, classify.PublicFunction, c.Window.Tok, "function")
	}
}

func staticFunctionNamingRule(c *Context, i int) {
	if c.Class == classify.PrivateFunction {
		checkName(c, classify.PrivateFunction, c.Window.Tok, "static function")
	}
}

func localNamingRule(c *Context, i int) {
	if c.Class == classify.LocalVariable && classify.IsDeclarator(c.Window) {
		checkName(c, classify.LocalVariable, c.Window.Tok, "local variable")
	}
}
