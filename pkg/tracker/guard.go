package tracker

import (
	"fmt"
	"strings"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/lexer"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

type GuardState int

const (
	GuardStart GuardState = iota
	GuardSawIfndef
	GuardGuarded
	GuardClosed
	GuardBroken
)

var guardStateNames = [...]string{"start", "saw-ifndef", "guarded", "closed", "broken"}

func (s GuardState) String() string { return guardStateNames[s] }

// GuardInfo exposes the header-guard machine to rules.
type GuardInfo struct {
	State  GuardState
	Name   string
	Ifndef token.Token
	Endif  token.Token
}

// guardMachine checks the #ifndef X / #define X / ... / #endif shape of a
// header. The first deviation is kept and reported once at end of file.
type guardMachine struct {
	state  GuardState
	name   string
	ifndef token.Token
	endif  token.Token
	depth  int

	brokenAt  token.Token
	brokenMsg string
}

func (t *Tracker) Guard() GuardInfo {
	g := &t.guard
	return GuardInfo{State: g.state, Name: g.name, Ifndef: g.ifndef, Endif: g.endif}
}

func (g *guardMachine) breakAt(tok token.Token, format string, args ...any) {
	g.state = GuardBroken
	g.brokenAt = tok
	g.brokenMsg = fmt.Sprintf(format, args...)
}

func (g *guardMachine) directive(tok token.Token) {
	d := lexer.ParseDirective(tok.Text)
	switch g.state {
	case GuardStart:
		if name, ok := guardCondition(d); ok {
			g.state, g.name, g.ifndef = GuardSawIfndef, name, tok
			return
		}
		g.breakAt(tok, "#%s before the include guard; the header must open with #ifndef", d.Name)
	case GuardSawIfndef:
		switch {
		case d.Name == "define" && d.Arg == g.name:
			g.state = GuardGuarded
		case d.Name == "define":
			g.breakAt(tok, "#define %s does not match #ifndef %s", d.Arg, g.name)
		default:
			g.breakAt(tok, "#ifndef %s must be followed by #define %s", g.name, g.name)
		}
	case GuardGuarded:
		switch d.Name {
		case "if", "ifdef", "ifndef":
			g.depth++
		case "endif":
			if g.depth == 0 {
				g.state, g.endif = GuardClosed, tok
				return
			}
			g.depth--
		}
	case GuardClosed:
		g.breakAt(tok, "#%s after the closing #endif of include guard %s", d.Name, g.name)
	}
}

func (g *guardMachine) code(tok token.Token) {
	switch g.state {
	case GuardStart:
		g.breakAt(tok, "code before the include guard")
	case GuardSawIfndef:
		g.breakAt(tok, "#ifndef %s must be followed by #define %s", g.name, g.name)
	case GuardClosed:
		g.breakAt(tok, "code after the closing #endif of include guard %s", g.name)
	}
}

func (g *guardMachine) finish(t *Tracker, lastLine int) {
	eof := token.Token{Kind: token.EOF, Line: lastLine, Column: 1}
	switch g.state {
	case GuardStart:
		t.emit(Event{Kind: GuardViolation, Tok: eof, Message: "header has no include guard"})
	case GuardSawIfndef:
		t.emit(Event{Kind: GuardViolation, Tok: eof, Message: fmt.Sprintf("#ifndef %s is never followed by #define %s", g.name, g.name)})
	case GuardGuarded:
		t.emit(Event{Kind: GuardViolation, Tok: eof, Message: fmt.Sprintf("include guard %s is not closed by #endif", g.name)})
	case GuardBroken:
		t.emit(Event{Kind: GuardViolation, Tok: g.brokenAt, Message: g.brokenMsg})
	}
}

// guardCondition accepts `#ifndef X` and `#if !defined(X)`.
func guardCondition(d lexer.Directive) (string, bool) {
	switch d.Name {
	case "ifndef":
		return d.Arg, d.Arg != ""
	case "if":
		body := strings.ReplaceAll(d.Body, " ", "")
		if !strings.HasPrefix(body, "!defined") {
			return "", false
		}
		name := strings.Trim(strings.TrimPrefix(body, "!defined"), "()")
		if name == "" || strings.ContainsAny(name, "()&|!") {
			return "", false
		}
		return name, true
	}
	return "", false
}
