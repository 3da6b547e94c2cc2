package tracker

import (
	"strconv"
	"strings"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

type Sign int

const (
	UnknownSign Sign = iota
	Signed
	Unsigned
)

func (s Sign) String() string {
	switch s {
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	}
	return "unknown"
}

// Symbol is the little the tracker knows about a declared name.
type Symbol struct {
	Sign Sign
	Size int // bytes, 0 when unknown
}

type Member struct {
	Name token.Token
	Size int
}

// Lookup finds the innermost declaration of name: open frames first, then
// parameters waiting for their body, then file scope.
func (t *Tracker) Lookup(name string) (Symbol, bool) {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if s, ok := t.frames[i].symbols[name]; ok {
			return s, true
		}
	}
	if s, ok := t.params[name]; ok {
		return s, true
	}
	s, ok := t.globals[name]
	return s, ok
}

// specifier accumulates the type words of one declaration.
type specifier struct {
	active   bool
	signWord Sign
	base     string
	longs    int
	size     int
	sign     Sign
}

func (s *specifier) add(tok token.Token) {
	s.active = true
	switch tok.Text {
	case "signed":
		s.signWord = Signed
	case "unsigned":
		s.signWord = Unsigned
	case "long":
		s.longs++
	case "char", "short", "int", "float", "double", "void", "_Bool", "bool":
		s.base = tok.Text
	case "struct", "union", "enum":
		s.base = tok.Text
	default:
		if tok.Kind == token.Ident {
			s.base = tok.Text
		}
	}
}

// resolve computes sign and size from the words seen so far.
func (s *specifier) resolve() Symbol {
	switch s.base {
	case "char":
		return Symbol{Sign: orSign(s.signWord, Signed), Size: 1}
	case "short":
		return Symbol{Sign: orSign(s.signWord, Signed), Size: 2}
	case "int", "":
		if s.base == "" && s.signWord == UnknownSign && s.longs == 0 {
			return Symbol{}
		}
		size := 4
		if s.longs > 0 {
			size = 8
		}
		return Symbol{Sign: orSign(s.signWord, Signed), Size: size}
	case "float":
		return Symbol{Size: 4}
	case "double":
		if s.longs > 0 {
			return Symbol{Size: 16}
		}
		return Symbol{Size: 8}
	case "_Bool", "bool":
		return Symbol{Sign: Unsigned, Size: 1}
	case "size_t", "uintptr_t":
		return Symbol{Sign: Unsigned, Size: 8}
	case "ssize_t", "ptrdiff_t", "intptr_t", "off_t":
		return Symbol{Sign: Signed, Size: 8}
	}
	if sign, bits, ok := fixedWidth(s.base); ok {
		return Symbol{Sign: sign, Size: bits / 8}
	}
	return Symbol{}
}

func orSign(s, def Sign) Sign {
	if s == UnknownSign {
		return def
	}
	return s
}

// fixedWidth recognises the <stdint.h> names intN_t and uintN_t, including
// the least and fast variants.
func fixedWidth(name string) (Sign, int, bool) {
	sign := Signed
	if strings.HasPrefix(name, "u") {
		sign, name = Unsigned, name[1:]
	}
	if !strings.HasPrefix(name, "int") || !strings.HasSuffix(name, "_t") {
		return UnknownSign, 0, false
	}
	name = strings.TrimSuffix(strings.TrimPrefix(name, "int"), "_t")
	name = strings.TrimPrefix(strings.TrimPrefix(name, "_least"), "_fast")
	bits, err := strconv.Atoi(name)
	if err != nil || bits%8 != 0 || bits == 0 {
		return UnknownSign, 0, false
	}
	return sign, bits, true
}

// declScanner recognises simple declarations as tokens go by and records
// their names in the right scope.
type declScanner struct {
	spec      specifier
	pointer   bool
	candidate token.Token
	has       bool

	skipping   bool // inside an initializer or array bound
	skipFrames int
	skipParens int
	brackets   int
}

func (d *declScanner) reset() {
	d.spec = specifier{}
	d.pointer, d.has = false, false
}

func (d *declScanner) step(t *Tracker, tok token.Token) {
	if top := t.Top(); top != nil && (top.Kind == Enum || top.Kind == Initializer) {
		d.reset()
		return
	}
	if d.brackets > 0 {
		switch {
		case tok.Is("["):
			d.brackets++
		case tok.Is("]"):
			d.brackets--
		}
		return
	}
	if d.skipping {
		atLevel := len(t.frames) == d.skipFrames && t.parens == d.skipParens
		switch {
		case tok.Is(",") && atLevel:
			d.skipping = false
			d.pointer, d.has = false, false
			if t.parens > 0 {
				d.reset()
			}
		case tok.Is(";") && atLevel, tok.Is(")") && t.parens == d.skipParens && d.skipParens > 0:
			d.skipping = false
			d.reset()
		case tok.Is("{") && len(t.frames) < d.skipFrames, tok.Is("}") && len(t.frames) <= d.skipFrames:
			d.skipping = false
			d.reset()
		}
		return
	}

	switch {
	case tok.IsTypeWord() && !d.has:
		if tok.IsKeyword("typedef") {
			d.reset()
			d.spec.active = true
			return
		}
		d.spec.add(tok)
	case !d.spec.active:
	case tok.Is("*"):
		d.pointer = true
	case tok.Kind == token.Ident:
		if d.spec.base == "struct" || d.spec.base == "union" || d.spec.base == "enum" {
			if !d.has && !d.pointer && d.spec.base != "" && d.tagPending() {
				d.spec.base += " " + tok.Text
				return
			}
		}
		d.candidate, d.has = tok, true
	case tok.Is("["):
		d.commit(t)
		d.brackets = 1
	case tok.Is("="), tok.Is(":"):
		d.commit(t)
		d.skipping = true
		d.skipFrames, d.skipParens = len(t.frames), t.parens
	case tok.Is(","):
		d.commit(t)
		d.pointer, d.has = false, false
		if t.parens > 0 {
			d.reset()
		}
	case tok.Is(";"), tok.Is(")"):
		d.commit(t)
		d.reset()
	case tok.Is("("):
		// function declarator or grouping; parameters start a fresh specifier
		d.reset()
	default:
		d.reset()
	}
}

// tagPending is true between struct/union/enum and its tag name.
func (d *declScanner) tagPending() bool { return !strings.Contains(d.spec.base, " ") }

func (d *declScanner) commit(t *Tracker) {
	if !d.has {
		return
	}
	sym := d.spec.resolve()
	if d.pointer {
		sym = Symbol{Size: 8}
	}
	name := d.candidate.Text
	d.has = false
	switch {
	case t.parens > 0:
		t.params[name] = sym
	case len(t.frames) > 0:
		f := t.frames[len(t.frames)-1]
		if f.symbols == nil {
			f.symbols = make(map[string]Symbol)
		}
		f.symbols[name] = sym
		if f.Kind == Struct || f.Kind == Union {
			f.members = append(f.members, Member{Name: d.candidate, Size: sym.Size})
		}
	default:
		t.globals[name] = sym
	}
}
