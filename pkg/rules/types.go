package rules

import (
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/tracker"
)

var mixOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true,
	"&": true, "|": true, "^": true,
}

// signMixRule only judges plain names on both sides of the operator; member
// accesses, calls and subscripts have no tracked type.
func signMixRule(c *Context, i int) {
	f := c.File
	tok := f.Tokens[i]
	if tok.Kind != token.Punct || !mixOperators[tok.Text] {
		return
	}
	p, n := f.PrevSig(i), f.NextSig(i)
	left, right := f.At(p), f.At(n)
	if left.Kind != token.Ident || right.Kind != token.Ident {
		return
	}
	if pp := f.At(f.PrevSig(p)); pp.Is(".") || pp.Is("->") {
		return
	}
	if nn := f.At(f.NextSig(n)); nn.Is("(") || nn.Is(".") || nn.Is("->") || nn.Is("[") {
		return
	}
	ls, ok := c.View.Lookup(left.Text)
	if !ok || ls.Sign == tracker.UnknownSign {
		return
	}
	rs, ok := c.View.Lookup(right.Text)
	if !ok || rs.Sign == tracker.UnknownSign || rs.Sign == ls.Sign {
		return
	}
	c.Report(tok, "%s operand %s mixed with %s operand %s", ls.Sign, left.Text, rs.Sign, right.Text)
}

func structPackingRule(c *Context, e tracker.Event) {
	if e.Kind != tracker.AggregateClosed || e.Frame == nil || e.Frame.Kind != tracker.Struct {
		return
	}
	ms := e.Frame.Members()
	for k := 1; k < len(ms); k++ {
		prev, cur := ms[k-1], ms[k]
		if prev.Size > 0 && cur.Size > prev.Size {
			c.Report(cur.Name, "member %s (%d bytes) follows the smaller %s (%d bytes); order members from largest to smallest",
				cur.Name.Text, cur.Size, prev.Name.Text, prev.Size)
		}
	}
}
