package source

import (
	"path/filepath"
	"strings"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/lexer"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

type Role int

const (
	Source Role = iota
	Header
)

func (r Role) String() string {
	if r == Header {
		return "header"
	}
	return "source"
}

// RoleOf derives the role of a file from its extension.
func RoleOf(path string) Role {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h", ".hh", ".hpp", ".hxx":
		return Header
	}
	return Source
}

// File names one input of a unit. Content may be nil, in which case the
// engine reads Path from its filesystem.
type File struct {
	Path    string
	Role    Role
	Content []byte
}

// Text is a file that has been split into physical lines and tokens. It is
// built once per check and discarded with the unit's report.
type Text struct {
	Path    string
	Role    Role
	Content []byte
	Lines   []string // without terminators; a trailing \r is dropped
	Tokens  []token.Token
}

func NewText(path string, role Role, content []byte) *Text {
	t := &Text{Path: path, Role: role, Content: content, Tokens: lexer.Tokenize(content)}
	s := string(content)
	s = strings.TrimSuffix(s, "\n")
	if len(content) > 0 {
		t.Lines = strings.Split(s, "\n")
		for i, l := range t.Lines {
			t.Lines[i] = strings.TrimSuffix(l, "\r")
		}
	}
	return t
}

// Base is the file name without directory.
func (t *Text) Base() string { return filepath.Base(t.Path) }

// Line returns the text of a 1-based line, or "" when out of range.
func (t *Text) Line(n int) string {
	if n < 1 || n > len(t.Lines) {
		return ""
	}
	return t.Lines[n-1]
}

// LastLine is the line number used for end-of-file diagnostics.
func (t *Text) LastLine() int {
	if len(t.Lines) == 0 {
		return 1
	}
	return len(t.Lines)
}

// PrevSig returns the index of the nearest significant token before i, or -1.
func (t *Text) PrevSig(i int) int {
	for j := i - 1; j >= 0; j-- {
		if t.Tokens[j].Significant() {
			return j
		}
	}
	return -1
}

// NextSig returns the index of the nearest significant token after i. When
// there is none it returns the index of the EOF token.
func (t *Text) NextSig(i int) int {
	for j := i + 1; j < len(t.Tokens); j++ {
		if t.Tokens[j].Significant() {
			return j
		}
	}
	return len(t.Tokens) - 1
}

// At returns the token at i, or an EOF token when i is out of range.
func (t *Text) At(i int) token.Token {
	if i < 0 || i >= len(t.Tokens) {
		return token.Token{Kind: token.EOF}
	}
	return t.Tokens[i]
}

// FirstOnLine reports whether only blanks precede token i on its line.
func (t *Text) FirstOnLine(i int) bool {
	j := i - 1
	if j >= 0 && t.Tokens[j].Kind == token.Whitespace {
		j--
	}
	return j < 0 || t.Tokens[j].Kind == token.Newline
}

// LastOnLine reports whether only blanks follow token i on its line.
func (t *Text) LastOnLine(i int) bool {
	j := i + 1
	if j < len(t.Tokens) && t.Tokens[j].Kind == token.Whitespace {
		j++
	}
	return j >= len(t.Tokens) || t.Tokens[j].Kind == token.Newline || t.Tokens[j].Kind == token.EOF
}

// NewlineBetween reports whether a line break separates tokens i and j (i < j).
func (t *Text) NewlineBetween(i, j int) bool {
	for k := i + 1; k < j && k < len(t.Tokens); k++ {
		switch t.Tokens[k].Kind {
		case token.Newline:
			return true
		case token.Comment, token.LexError:
			if strings.Contains(t.Tokens[k].Text, "\n") {
				return true
			}
		}
	}
	return false
}

// StatementPrev collects up to max significant tokens before i, nearest
// first, stopping at a statement boundary (; { } or a directive line).
func (t *Text) StatementPrev(i, max int) []token.Token {
	var out []token.Token
	for j := i - 1; j >= 0 && len(out) < max; j-- {
		tok := t.Tokens[j]
		if tok.Kind == token.Directive {
			break
		}
		if !tok.Significant() {
			continue
		}
		if tok.Kind == token.Punct && (tok.Text == ";" || tok.Text == "{" || tok.Text == "}") {
			break
		}
		out = append(out, tok)
	}
	return out
}

// NextSigN collects up to n significant tokens after i, nearest first.
func (t *Text) NextSigN(i, n int) []token.Token {
	var out []token.Token
	for j := i + 1; j < len(t.Tokens) && len(out) < n; j++ {
		if t.Tokens[j].Significant() {
			out = append(out, t.Tokens[j])
		}
	}
	return out
}

// MatchParen returns the index of the ) that closes the ( at i, or -1.
func (t *Text) MatchParen(i int) int {
	depth := 0
	for j := i; j < len(t.Tokens); j++ {
		tok := t.Tokens[j]
		if tok.Kind != token.Punct {
			continue
		}
		switch tok.Text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return j
			}
		case ";", "{", "}":
			return -1
		}
	}
	return -1
}
