package source

import (
	"slices"
	"strings"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

// Facts is what cross-file rules need to know about one file after it has
// been scanned.
type Facts struct {
	Path       string
	Role       Role
	Includes   []Include
	Signatures []Signature
}

type Include struct {
	Path   string
	Quoted bool
	Tok    token.Token
}

// Signature is a function declarator at file scope, reduced to a
// comparable form.
type Signature struct {
	Name       token.Token
	Static     bool
	Return     string
	Params     []string
	Definition bool
}

// Same reports whether two signatures agree on return and parameter types.
func (s Signature) Same(o Signature) bool {
	return s.Return == o.Return && slices.Equal(s.Params, o.Params)
}

func (s Signature) String() string {
	return s.Return + " " + s.Name.Text + "(" + strings.Join(s.Params, ", ") + ")"
}

// Prototypes returns the non-definition public signatures by name.
func (f *Facts) Prototypes() map[string]Signature {
	out := make(map[string]Signature)
	for _, s := range f.Signatures {
		if !s.Definition && !s.Static {
			if _, dup := out[s.Name.Text]; !dup {
				out[s.Name.Text] = s
			}
		}
	}
	return out
}

var storageWords = map[string]bool{
	"static": true, "extern": true, "inline": true, "__inline": true,
	"__inline__": true, "_Noreturn": true, "register": true,
}

// ParseSignature reads the function declarator whose name is token i.
// prev holds the declaration's leading tokens nearest first, as returned by
// StatementPrev. ok is false when the parameter list is not closed.
func (t *Text) ParseSignature(i int, prev []token.Token) (Signature, bool) {
	sig := Signature{Name: t.Tokens[i]}
	var ret []string
	for k := len(prev) - 1; k >= 0; k-- {
		p := prev[k]
		if p.Kind == token.Keyword && storageWords[p.Text] {
			sig.Static = sig.Static || p.Text == "static"
			continue
		}
		ret = append(ret, p.Text)
	}
	sig.Return = strings.Join(ret, " ")

	open := t.NextSig(i)
	if !t.Tokens[open].Is("(") {
		return sig, false
	}
	end := t.MatchParen(open)
	if end < 0 {
		return sig, false
	}
	var param []token.Token
	depth := 0
	for k := open + 1; k < end; k++ {
		tok := t.Tokens[k]
		if !tok.Significant() {
			continue
		}
		switch {
		case tok.Is("(") || tok.Is("["):
			depth++
		case tok.Is(")") || tok.Is("]"):
			depth--
		case tok.Is(",") && depth == 0:
			sig.Params = append(sig.Params, normalizeParam(param))
			param = param[:0]
			continue
		}
		param = append(param, tok)
	}
	if len(param) > 0 {
		sig.Params = append(sig.Params, normalizeParam(param))
	}
	if len(sig.Params) == 1 && sig.Params[0] == "void" {
		sig.Params = nil
	}
	sig.Definition = t.Tokens[t.NextSig(end)].Is("{")
	return sig, true
}

// normalizeParam drops the parameter name so that `int a` and `int b`
// compare equal. Array brackets collapse to [].
func normalizeParam(toks []token.Token) string {
	var words []string
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Is("[") {
			for i < len(toks) && !toks[i].Is("]") {
				i++
			}
			words = append(words, "[]")
			continue
		}
		words = append(words, tok.Text)
	}
	// the name is the last identifier when a type precedes it
	for i := len(toks) - 1; i > 0; i-- {
		if toks[i].Kind != token.Ident {
			continue
		}
		prev := toks[i-1]
		if prev.IsKeyword("struct", "union", "enum") {
			break
		}
		if prev.IsTypeWord() || prev.Kind == token.Ident || prev.Is("*") {
			name := toks[i].Text
			if k := slices.Index(words, name); k >= 0 && k == lastIndex(words, name) {
				words = slices.Delete(words, k, k+1)
			}
		}
		break
	}
	return strings.Join(words, " ")
}

func lastIndex(words []string, w string) int {
	for i := len(words) - 1; i >= 0; i-- {
		if words[i] == w {
			return i
		}
	}
	return -1
}
