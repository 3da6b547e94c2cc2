package classify

import (
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

// Class is the naming class of one identifier occurrence.
type Class int

const (
	Unclassifiable Class = iota
	Macro
	TypeName
	PublicFunction
	PrivateFunction
	GlobalVariable
	LocalVariable
)

var classNames = [...]string{
	Unclassifiable:  "unclassifiable",
	Macro:           "macro",
	TypeName:        "type",
	PublicFunction:  "public-function",
	PrivateFunction: "private-function",
	GlobalVariable:  "global",
	LocalVariable:   "local",
}

func (c Class) String() string { return classNames[c] }

// ParseClass maps a configuration key back to its class.
func ParseClass(name string) (Class, bool) {
	for c, n := range classNames {
		if n == name && Class(c) != Unclassifiable {
			return Class(c), true
		}
	}
	return Unclassifiable, false
}

// Window is the bounded context the classifier sees.
type Window struct {
	Tok  token.Token
	Prev []token.Token // significant tokens of the same statement, nearest first
	Next []token.Token // following significant tokens, nearest first

	InFunction bool
	FileScope  bool
	InTypedef  bool // at the declarator level of a typedef
	MacroDef   bool // Tok is the name introduced by #define
}

// Classify returns the naming class of w.Tok. It is a pure function of the
// window.
func Classify(w Window) Class {
	name := w.Tok.Text
	switch {
	case w.MacroDef:
		return Macro
	case !w.InFunction && isScreaming(name):
		return Macro
	case w.InTypedef && typedefDeclarator(w):
		return TypeName
	case w.Tok.IsTypeWord() && len(w.Next) > 0 && (w.Next[0].Kind == token.Ident || w.Next[0].Is("*")):
		return TypeName
	}

	if w.FileScope && parenDepth(w.Prev) == 0 {
		ok, static := declPrefix(w.Prev)
		switch {
		case ok && nextIs(w, "("):
			if static {
				return PrivateFunction
			}
			return PublicFunction
		case ok && static && nextIs(w, "=", ";", ",", "["):
			return GlobalVariable
		}
	}
	if w.InFunction {
		return LocalVariable
	}
	return Unclassifiable
}

// IsDeclarator reports whether the occurrence introduces a name rather
// than using one.
func IsDeclarator(w Window) bool {
	if w.InTypedef && typedefDeclarator(w) {
		return true
	}
	ok, _ := declPrefix(w.Prev)
	return ok && nextIs(w, "=", ";", ",", "[", ")", ":")
}

func typedefDeclarator(w Window) bool {
	if nextIs(w, ";", ",", "[") {
		return true
	}
	return nextIs(w, ")") && len(w.Prev) > 0 && w.Prev[0].Is("*")
}

// declPrefix decides whether prev is the specifier part of a declaration.
func declPrefix(prev []token.Token) (ok, static bool) {
	for _, p := range prev {
		if p.IsKeyword("static") {
			static = true
		}
	}
	i := 0
	for i < len(prev) && prev[i].Is("*") {
		i++
	}
	if i == len(prev) {
		return false, static
	}

	if prev[i].Is(",") {
		if parenDepth(prev) != 0 {
			return false, static
		}
		first := prev[len(prev)-1]
		return first.IsTypeWord(), static
	}

	typed := false
	j := i
	for j < len(prev) && (prev[j].IsTypeWord() || prev[j].Kind == token.Ident || prev[j].Is("*")) {
		if prev[j].IsTypeWord() {
			typed = true
		}
		j++
	}
	if j == i {
		return false, static
	}
	if j == len(prev) {
		return true, static
	}
	switch b := prev[j]; {
	case b.Is("(") || b.Is(","):
		return typed, static
	case b.Is(":"):
		return true, static
	}
	return false, static
}

// parenDepth counts ( left open in prev.
func parenDepth(prev []token.Token) int {
	depth := 0
	for _, p := range prev {
		switch {
		case p.Is("("):
			depth++
		case p.Is(")"):
			depth--
		}
	}
	return depth
}

func nextIs(w Window, texts ...string) bool {
	if len(w.Next) == 0 {
		return false
	}
	for _, s := range texts {
		if w.Next[0].Is(s) {
			return true
		}
	}
	return false
}

// isScreaming reports an all upper-case name with at least one letter.
func isScreaming(name string) bool {
	letter := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			letter = true
		case c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return letter
}
