package token

import "fmt"

type Kind int

const (
	EOF Kind = iota
	Ident
	Keyword
	Number
	String
	Char
	Punct
	Comment
	Directive
	Whitespace
	Newline
	LexError
	Other
)

var kindNames = [...]string{
	EOF:        "eof",
	Ident:      "identifier",
	Keyword:    "keyword",
	Number:     "number",
	String:     "string",
	Char:       "char",
	Punct:      "punctuator",
	Comment:    "comment",
	Directive:  "directive",
	Whitespace: "whitespace",
	Newline:    "newline",
	LexError:   "lex-error",
	Other:      "other",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Keywords of C99/C11 plus the common extension spellings. Identifiers found
// here are emitted with Kind Keyword.
var Keywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true, "sizeof": true,
	"static": true, "struct": true, "switch": true, "typedef": true, "union": true,
	"unsigned": true, "void": true, "volatile": true, "while": true,
	"_Bool": true, "_Alignas": true, "_Alignof": true, "_Atomic": true,
	"_Noreturn": true, "_Static_assert": true, "_Thread_local": true,
	"bool": true, "__inline": true, "__inline__": true, "__asm__": true,
}

// TypeWords are keywords that may start or continue a declaration's
// specifier list.
var TypeWords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true, "bool": true, "const": true, "volatile": true,
	"static": true, "extern": true, "register": true, "inline": true,
	"auto": true, "restrict": true, "struct": true, "union": true, "enum": true,
	"typedef": true, "_Atomic": true, "_Noreturn": true, "_Thread_local": true,
	"__inline": true, "__inline__": true,
}

type Token struct {
	Kind   Kind
	Text   string
	Line   int
	Column int
	Offset int
}

// End returns the byte offset just past the token.
func (t Token) End() int { return t.Offset + len(t.Text) }

func (t Token) Is(text string) bool {
	return t.Text == text && (t.Kind == Punct || t.Kind == Keyword || t.Kind == Ident)
}

func (t Token) IsKeyword(words ...string) bool {
	if t.Kind != Keyword {
		return false
	}
	for _, w := range words {
		if t.Text == w {
			return true
		}
	}
	return false
}

// Significant reports whether the token carries program structure, that is,
// it is neither layout nor commentary nor a preprocessor line.
func (t Token) Significant() bool {
	switch t.Kind {
	case Whitespace, Newline, Comment, Directive, LexError, EOF:
		return false
	}
	return true
}

// IsTypeWord reports whether the token can be part of a declaration's type:
// a specifier keyword or an identifier following the _t convention.
func (t Token) IsTypeWord() bool {
	switch t.Kind {
	case Keyword:
		return TypeWords[t.Text]
	case Ident:
		return len(t.Text) > 2 && t.Text[len(t.Text)-2:] == "_t"
	}
	return false
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%d %s %q", t.Line, t.Column, t.Kind, t.Text)
}
