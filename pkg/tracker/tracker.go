package tracker

import (
	"fmt"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

// Kind is the construct a brace frame belongs to.
type Kind int

const (
	None Kind = iota
	Block
	Function
	If
	Else
	For
	While
	Do
	Switch
	Struct
	Union
	Enum
	Initializer
	Linkage
)

var kindNames = [...]string{
	None: "none", Block: "block", Function: "function", If: "if", Else: "else",
	For: "for", While: "while", Do: "do", Switch: "switch", Struct: "struct",
	Union: "union", Enum: "enum", Initializer: "initializer", Linkage: "linkage",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsLoop reports whether break and continue inside the construct refer to it.
func (k Kind) IsLoop() bool { return k == For || k == While || k == Do }

// IsControl reports constructs whose body follows a keyword or header.
func (k Kind) IsControl() bool {
	switch k {
	case If, Else, For, While, Do, Switch:
		return true
	}
	return false
}

// Frame is one open brace.
type Frame struct {
	Kind    Kind
	Open    token.Token // the {
	Keyword token.Token // if/for/else/... keyword, or the function name

	symbols map[string]Symbol
	sw      *switchState
	members []Member
}

// Members lists the fields declared directly in a struct or union frame.
func (f *Frame) Members() []Member { return f.members }

// Header is the parenthesised part of if/for/while/switch.
type Header struct {
	Kind    Kind
	Keyword token.Token
	Clause  int  // current for-clause, 0..2
	DoWhile bool // the while of a do-while
	depth   int
}

type EventKind int

const (
	CaseFallthrough EventKind = iota
	SwitchWithoutDefault
	GuardViolation
	AggregateClosed
)

type Event struct {
	Kind    EventKind
	Tok     token.Token
	Message string
	Frame   *Frame
}

// View is the read-only structural context handed to rules.
type View interface {
	Depth() int
	Top() *Frame
	InFunction() bool
	FileScope() bool
	CondDepth() int
	InTypedef() bool
	Header() (Header, bool)
	ClosedHeader() (Header, bool)
	LastClosed() *Frame
	Lookup(name string) (Symbol, bool)
	Switch() (SwitchInfo, bool)
	Guard() GuardInfo
	SawLinkage() bool
}

// Tracker follows the nesting of one file as its tokens are fed in order.
// It is not safe for concurrent use; the engine owns one per file.
type Tracker struct {
	header bool
	frames []*Frame
	parens int

	lastSig   token.Token
	awaitBody Kind
	bodyKw    token.Token
	closedDo  bool
	lastFunc  token.Token

	pendingHdr Header
	hdr        Header
	hdrActive  bool
	closedHdr  Header
	hdrClosed  bool
	lastClosed *Frame

	aggPending   Kind
	linkage      int
	sawLinkage   bool
	inTypedef    bool
	typedefDepth int

	guard   guardMachine
	decl    declScanner
	globals map[string]Symbol
	params  map[string]Symbol

	events []Event
}

var _ View = (*Tracker)(nil)

// New returns a tracker for one file. The header-guard machine only runs
// when header is true.
func New(header bool) *Tracker {
	return &Tracker{
		header:  header,
		globals: make(map[string]Symbol),
		params:  make(map[string]Symbol),
	}
}

// Step advances the tracker by one token. The returned slice is reused by
// the next call.
func (t *Tracker) Step(tok token.Token) []Event {
	t.events = t.events[:0]
	t.hdrClosed = false
	t.lastClosed = nil

	switch tok.Kind {
	case token.Directive:
		if t.header {
			t.guard.directive(tok)
		}
		return t.events
	case token.Comment:
		t.comment(tok)
		return t.events
	}
	if !tok.Significant() {
		return t.events
	}
	if t.header {
		t.guard.code(tok)
	}

	body, bodyKw := t.awaitBody, t.bodyKw
	t.awaitBody = None
	closedDo := t.closedDo
	t.closedDo = false

	t.switchStep(tok)
	t.decl.step(t, tok)
	t.structure(tok, body, bodyKw, closedDo)
	t.lastSig = tok
	return t.events
}

// Finish reports what can only be decided at end of file.
func (t *Tracker) Finish(lastLine int) []Event {
	t.events = t.events[:0]
	if t.header {
		t.guard.finish(t, lastLine)
	}
	return t.events
}

func (t *Tracker) emit(e Event) { t.events = append(t.events, e) }

func (t *Tracker) structure(tok token.Token, body Kind, bodyKw token.Token, closedDo bool) {
	if t.pendingHdr.Kind != None && !tok.Is("(") {
		t.pendingHdr = Header{}
	}
	if t.linkage == 1 && !(tok.Kind == token.String && tok.Text == `"C"`) {
		t.linkage = 0
	} else if t.linkage == 2 && !tok.Is("{") {
		t.linkage = 0
	}

	switch tok.Kind {
	case token.Keyword:
		switch tok.Text {
		case "if", "for", "while", "switch":
			t.pendingHdr = Header{Kind: headerKinds[tok.Text], Keyword: tok, DoWhile: tok.Text == "while" && closedDo}
		case "else":
			t.awaitBody, t.bodyKw = Else, tok
		case "do":
			t.awaitBody, t.bodyKw = Do, tok
		case "struct":
			t.aggPending = Struct
		case "union":
			t.aggPending = Union
		case "enum":
			t.aggPending = Enum
		case "typedef":
			t.inTypedef, t.typedefDepth = true, len(t.frames)
		case "extern":
			t.linkage = 1
		}
		return
	case token.String:
		if t.linkage == 1 && tok.Text == `"C"` {
			t.linkage, t.sawLinkage = 2, true
		}
		return
	case token.Punct:
	default:
		return
	}

	switch tok.Text {
	case "(":
		if t.parens == 0 && t.lastSig.Kind == token.Ident {
			t.lastFunc = t.lastSig
		}
		t.parens++
		t.aggPending = None
		switch {
		case t.pendingHdr.Kind != None:
			t.hdr, t.hdrActive = t.pendingHdr, true
			t.hdr.depth = 1
			t.pendingHdr = Header{}
		case t.hdrActive:
			t.hdr.depth++
		}
	case ")":
		if t.parens > 0 {
			t.parens--
		}
		t.aggPending = None
		if t.hdrActive {
			t.hdr.depth--
			if t.hdr.depth == 0 {
				t.closedHdr, t.hdrClosed, t.hdrActive = t.hdr, true, false
				if !t.hdr.DoWhile {
					t.awaitBody, t.bodyKw = t.hdr.Kind, t.hdr.Keyword
				}
			}
		}
	case ";":
		if t.hdrActive && t.hdr.Kind == For && t.hdr.depth == 1 {
			t.hdr.Clause++
			return
		}
		t.aggPending = None
		if t.inTypedef && len(t.frames) == t.typedefDepth {
			t.inTypedef = false
		}
		if t.parens == 0 {
			clear(t.params)
		}
	case "=":
		t.aggPending = None
	case "{":
		t.open(tok, body, bodyKw)
	case "}":
		t.close(tok)
	}
}

var headerKinds = map[string]Kind{"if": If, "for": For, "while": While, "switch": Switch}

func (t *Tracker) open(tok token.Token, body Kind, bodyKw token.Token) {
	top := t.Top()
	f := &Frame{Kind: Block, Open: tok}
	switch {
	case body != None:
		f.Kind, f.Keyword = body, bodyKw
	case t.aggPending != None:
		f.Kind = t.aggPending
	case t.lastSig.Is("="),
		top != nil && top.Kind == Initializer && (t.lastSig.Is(",") || t.lastSig.Is("{")):
		f.Kind = Initializer
	case t.linkage == 2:
		f.Kind = Linkage
	case t.lastSig.Is(")") && t.FileScope():
		f.Kind, f.Keyword = Function, t.lastFunc
	}
	t.aggPending = None
	t.linkage = 0
	t.parens = 0

	switch f.Kind {
	case Struct, Union, Enum, Initializer:
	default:
		if len(t.params) > 0 {
			f.symbols = t.params
			t.params = make(map[string]Symbol)
		}
	}
	if f.Kind == Switch {
		f.sw = &switchState{}
	}
	t.frames = append(t.frames, f)
}

func (t *Tracker) close(tok token.Token) {
	if len(t.frames) == 0 {
		return
	}
	f := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]
	t.lastClosed = f
	t.parens = 0
	switch f.Kind {
	case Switch:
		t.closeSwitch(f)
	case Struct, Union:
		t.emit(Event{Kind: AggregateClosed, Tok: tok, Frame: f})
	case Do:
		t.closedDo = true
	}
	if t.inTypedef && len(t.frames) < t.typedefDepth {
		t.inTypedef = false
	}
}

func (t *Tracker) Depth() int { return len(t.frames) }

func (t *Tracker) Top() *Frame {
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

func (t *Tracker) InFunction() bool {
	for _, f := range t.frames {
		if f.Kind == Function {
			return true
		}
	}
	return false
}

// FileScope is true outside every brace except extern "C" blocks.
func (t *Tracker) FileScope() bool {
	for _, f := range t.frames {
		if f.Kind != Linkage {
			return false
		}
	}
	return true
}

// CondDepth counts the enclosing if/else frames.
func (t *Tracker) CondDepth() int {
	n := 0
	for _, f := range t.frames {
		if f.Kind == If || f.Kind == Else {
			n++
		}
	}
	return n
}

// InTypedef is true at the declarator level of a typedef, not inside the
// body of the aggregate it defines.
func (t *Tracker) InTypedef() bool { return t.inTypedef && len(t.frames) == t.typedefDepth }

// Header returns the control header whose parentheses are open.
func (t *Tracker) Header() (Header, bool) { return t.hdr, t.hdrActive }

// ClosedHeader returns the header closed by the token just stepped.
func (t *Tracker) ClosedHeader() (Header, bool) { return t.closedHdr, t.hdrClosed }

// LastClosed returns the frame popped by the token just stepped.
func (t *Tracker) LastClosed() *Frame { return t.lastClosed }

func (t *Tracker) SawLinkage() bool { return t.sawLinkage }
