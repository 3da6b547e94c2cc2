package tracker

import (
	"regexp"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

type SwitchState int

const (
	OutsideSwitch SwitchState = iota
	InSwitch
	InCase
)

// switchState is the case machine of one switch frame.
type switchState struct {
	state      SwitchState
	caseTok    token.Token
	inLabel    bool
	body       bool
	terminated bool
	stmtEnded  bool
	fall       bool
	sawDefault bool
}

// SwitchInfo describes the innermost switch around the current token.
type SwitchInfo struct {
	State   SwitchState
	Case    token.Token // the label of the current case
	Switch  token.Token // the switch keyword
	Direct  bool        // the switch is the innermost frame
	InLabel bool
}

var fallthroughComment = regexp.MustCompile(`(?i)fall[\s-]*(s\s+)?thr(ough|u)`)

// IsFallthroughComment reports whether a comment excuses a missing break.
func IsFallthroughComment(text string) bool { return fallthroughComment.MatchString(text) }

func (t *Tracker) innerSwitch() *Frame {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if t.frames[i].Kind == Switch {
			return t.frames[i]
		}
	}
	return nil
}

func (t *Tracker) Switch() (SwitchInfo, bool) {
	f := t.innerSwitch()
	if f == nil {
		return SwitchInfo{State: OutsideSwitch}, false
	}
	s := f.sw
	state := s.state
	if state == OutsideSwitch {
		state = InSwitch
	}
	return SwitchInfo{
		State:   state,
		Case:    s.caseTok,
		Switch:  f.Keyword,
		Direct:  t.Top() == f,
		InLabel: s.inLabel,
	}, true
}

func (t *Tracker) comment(tok token.Token) {
	if f := t.innerSwitch(); f != nil && f.sw.state == InCase && IsFallthroughComment(tok.Text) {
		f.sw.fall = true
	}
}

// switchStep runs the case machine of the innermost switch for a
// significant token. The closing brace of the switch itself is handled when
// the frame is popped.
func (t *Tracker) switchStep(tok token.Token) {
	f := t.innerSwitch()
	if f == nil {
		return
	}
	s := f.sw
	if s.state == OutsideSwitch {
		s.state = InSwitch
	}

	if tok.IsKeyword("case", "default") && t.parens == 0 {
		t.checkCase(s)
		s.state = InCase
		s.caseTok = tok
		s.inLabel = true
		s.body, s.terminated, s.stmtEnded, s.fall = false, false, false, false
		if tok.Text == "default" {
			s.sawDefault = true
		}
		return
	}
	if s.inLabel {
		if tok.Is(":") {
			s.inLabel = false
		}
		return
	}
	if s.state != InCase || (tok.Is("}") && t.Top() == f) {
		return
	}

	s.fall = false
	if s.stmtEnded && !tok.Is("}") {
		s.terminated = false
	}
	s.stmtEnded = tok.Is(";") || tok.Is("}")
	s.body = true

	switch {
	case tok.IsKeyword("return", "goto"):
		s.terminated = true
	case tok.IsKeyword("break"):
		if t.breakTarget() == f {
			s.terminated = true
		}
	case tok.IsKeyword("continue"):
		if !t.loopInside(f) {
			s.terminated = true
		}
	}
}

// checkCase flags the case that is being left if control can run off its
// end into the next label.
func (t *Tracker) checkCase(s *switchState) {
	if s.state == InCase && s.body && !s.terminated && !s.fall {
		t.emit(Event{
			Kind:    CaseFallthrough,
			Tok:     s.caseTok,
			Message: "case falls through without break, return or a fallthrough comment",
		})
	}
}

func (t *Tracker) closeSwitch(f *Frame) {
	s := f.sw
	if s.state == InCase && s.body && !s.terminated && !s.fall {
		t.emit(Event{
			Kind:    CaseFallthrough,
			Tok:     s.caseTok,
			Message: "last case reaches the end of the switch without break or return",
		})
	}
	if !s.sawDefault {
		kw := f.Keyword
		if kw.Line == 0 {
			kw = f.Open
		}
		t.emit(Event{Kind: SwitchWithoutDefault, Tok: kw, Message: "switch has no default label", Frame: f})
	}
}

// breakTarget is the frame a break at the current position leaves.
func (t *Tracker) breakTarget() *Frame {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if k := t.frames[i].Kind; k.IsLoop() || k == Switch {
			return t.frames[i]
		}
	}
	return nil
}

// loopInside reports a loop frame between the top of the stack and sw.
func (t *Tracker) loopInside(sw *Frame) bool {
	for i := len(t.frames) - 1; i >= 0 && t.frames[i] != sw; i-- {
		if t.frames[i].Kind.IsLoop() {
			return true
		}
	}
	return false
}
