package tracker

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/lexer"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

// feed runs the tracker over src. visit, when set, sees the tracker right
// after each token has been stepped.
func feed(src string, header bool, visit func(*Tracker, token.Token)) []Event {
	tr := New(header)
	var events []Event
	last := 1
	for tok := range lexer.Tokens([]byte(src)) {
		events = append(events, tr.Step(tok)...)
		if visit != nil {
			visit(tr, tok)
		}
		last = tok.Line
	}
	return append(events, tr.Finish(last)...)
}

func eventKinds(events []Event, kind EventKind) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestFrameKinds(t *testing.T) {
	src := `
extern "C" {
int main(void)
{
    int a[] = { 1, 2 };
    if (a[0]) {
    } else {
    }
    for (;;) { }
    while (1) { }
    do { } while (0);
    switch (a[1]) { default: break; }
    { }
}
struct sPoint { int x; };
union uVal { int i; };
enum eColor { eRED };
}
`
	var got []string
	feed(src, false, func(tr *Tracker, tok token.Token) {
		if tok.Is("{") {
			got = append(got, tr.Top().Kind.String())
		}
	})
	want := []string{
		"linkage", "function", "initializer", "if", "else", "for", "while", "do",
		"switch", "block", "struct", "union", "enum",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frame kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestScopeQueries(t *testing.T) {
	src := "extern \"C\" {\nint g;\nvoid f(void)\n{\n    if (a) {\n        if (b) {\n            x;\n        }\n    }\n}\n}\n"
	feed(src, false, func(tr *Tracker, tok token.Token) {
		switch tok.Text {
		case "g":
			if !tr.FileScope() || tr.InFunction() || !tr.SawLinkage() {
				t.Errorf("g: FileScope=%v InFunction=%v", tr.FileScope(), tr.InFunction())
			}
		case "x":
			if tr.FileScope() || !tr.InFunction() || tr.CondDepth() != 2 || tr.Depth() != 4 {
				t.Errorf("x: CondDepth=%d Depth=%d", tr.CondDepth(), tr.Depth())
			}
			if tr.Top().Keyword.Text != "if" {
				t.Errorf("top keyword = %q", tr.Top().Keyword.Text)
			}
		}
	})
}

func TestFunctionFrameKeyword(t *testing.T) {
	var name string
	feed("static int add(int a, int b)\n{\n    return a + b;\n}\n", false, func(tr *Tracker, tok token.Token) {
		if tok.Is("{") {
			name = tr.Top().Keyword.Text
		}
	})
	if name != "add" {
		t.Errorf("function frame keyword = %q, want add", name)
	}
}

func TestHeaderClauses(t *testing.T) {
	type probe struct {
		Text   string
		Kind   Kind
		Clause int
		Do     bool
	}
	var got []probe
	feed("for (i = 0; i < 10; i++) { }\ndo { } while (n > 5);\n", false, func(tr *Tracker, tok token.Token) {
		if tok.Kind != token.Number {
			return
		}
		h, ok := tr.Header()
		if !ok {
			t.Fatalf("no header at %v", tok)
		}
		got = append(got, probe{tok.Text, h.Kind, h.Clause, h.DoWhile})
	})
	want := []probe{
		{"0", For, 0, false}, {"10", For, 1, false}, {"5", While, 0, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestClosedHeader(t *testing.T) {
	var closed []Kind
	feed("if (f(x)) y = 1;\nwhile (a) { }\n", false, func(tr *Tracker, tok token.Token) {
		if h, ok := tr.ClosedHeader(); ok {
			closed = append(closed, h.Kind)
		}
	})
	if diff := cmp.Diff([]Kind{If, While}, closed); diff != "" {
		t.Errorf("closed headers mismatch (-want +got):\n%s", diff)
	}
}

func TestFallthrough(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		lines []int
	}{
		{"break", "case 1:\n    x();\n    break;\ncase 2:\n    return;\ndefault:\n    break;\n", nil},
		{"missing", "case 1:\n    x();\ncase 2:\n    break;\ndefault:\n    break;\n", []int{1}},
		{"comment", "case 1:\n    x();\n    // Intentional fallthrough:\ncase 2:\n    break;\ndefault:\n    break;\n", nil},
		{"comment too early", "case 1:\n    /* fall through */\n    x();\ncase 2:\n    break;\ndefault:\n    break;\n", []int{1}},
		{"stacked labels", "case 1:\ncase 2:\n    x();\n    break;\ndefault:\n    break;\n", nil},
		{"conditional break", "case 1:\n    if (y) break;\n    x();\ncase 2:\n    break;\ndefault:\n    break;\n", []int{1}},
		{"break of inner loop", "case 1:\n    while (y) { break; }\ncase 2:\n    break;\ndefault:\n    break;\n", []int{1}},
		{"block body", "case 1:\n{\n    x();\n    break;\n}\ncase 2:\n    goto out;\ndefault:\n    break;\n", nil},
		{"last case", "case 1:\n    break;\ndefault:\n    x();\n", []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "void f(int v)\n{\nswitch (v) {\n" + tt.body + "}\n}\n"
			var lines []int
			for _, e := range eventKinds(feed(src, false, nil), CaseFallthrough) {
				lines = append(lines, e.Tok.Line-3)
			}
			if diff := cmp.Diff(tt.lines, lines); diff != "" {
				t.Errorf("fallthrough lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSwitchWithoutDefault(t *testing.T) {
	events := feed("void f(int v)\n{\n    switch (v) {\n    case 1:\n        break;\n    }\n}\n", false, nil)
	got := eventKinds(events, SwitchWithoutDefault)
	if len(got) != 1 || got[0].Tok.Line != 3 || got[0].Tok.Text != "switch" {
		t.Errorf("got %v", got)
	}
}

func TestSwitchInfo(t *testing.T) {
	var infos []SwitchInfo
	feed("switch (v) {\ncase 1:\n    break;\ncase 2: {\n    break;\n}\n}\n", false, func(tr *Tracker, tok token.Token) {
		if tok.IsKeyword("break") {
			info, _ := tr.Switch()
			infos = append(infos, info)
		}
	})
	if len(infos) != 2 {
		t.Fatalf("got %d infos", len(infos))
	}
	if !infos[0].Direct || infos[0].State != InCase || infos[0].Case.Line != 2 {
		t.Errorf("first break: %+v", infos[0])
	}
	if infos[1].Direct || infos[1].Case.Line != 4 {
		t.Errorf("second break: %+v", infos[1])
	}
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string // "line:message-fragment"
	}{
		{"valid", "#ifndef FOO_H\n#define FOO_H\n\nint foo(void);\n\n#endif // FOO_H\n", nil},
		{"valid with nested if", "/* banner */\n#ifndef FOO_H\n#define FOO_H\n#ifdef X\n#endif\n#endif\n", nil},
		{"if defined form", "#if !defined(FOO_H)\n#define FOO_H\n#endif\n", nil},
		{"missing endif", "#ifndef FOO_H\n#define FOO_H\nint foo(void);\n", []string{"3:not closed"}},
		{"no guard", "int foo(void);\n", []string{"1:code before"}},
		{"empty", "", []string{"1:no include guard"}},
		{"mismatched define", "#ifndef FOO_H\n#define BAR_H\n#endif\n", []string{"2:does not match"}},
		{"content after endif", "#ifndef FOO_H\n#define FOO_H\n#endif\nint x;\n", []string{"4:after the closing"}},
		{"include first", "#include <stdint.h>\n#ifndef FOO_H\n#define FOO_H\n#endif\n", []string{"1:before the include guard"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range eventKinds(feed(tt.src, true, nil), GuardViolation) {
				got = append(got, e.Message)
				if len(tt.want) > 0 {
					parts := strings.SplitN(tt.want[0], ":", 2)
					if want := parts[0]; want != strconv.Itoa(e.Tok.Line) || !strings.Contains(e.Message, parts[1]) {
						t.Errorf("event at line %d %q, want %s", e.Tok.Line, e.Message, tt.want[0])
					}
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("got %d guard violations %q, want %d", len(got), got, len(tt.want))
			}
		})
	}
}

func TestGuardNotCheckedInSources(t *testing.T) {
	if got := eventKinds(feed("int x;\n", false, nil), GuardViolation); len(got) != 0 {
		t.Errorf("source file reported %v", got)
	}
}

func TestGuardInfo(t *testing.T) {
	tr := New(true)
	for tok := range lexer.Tokens([]byte("#ifndef FOO_H\n#define FOO_H\n#endif /* FOO_H */\n")) {
		tr.Step(tok)
	}
	g := tr.Guard()
	if g.State != GuardClosed || g.Name != "FOO_H" || g.Ifndef.Line != 1 || g.Endif.Line != 3 {
		t.Errorf("guard info %+v", g)
	}
}

func TestSymbols(t *testing.T) {
	src := `static uint8_t gCount;
static const char *gName = "x", gFlag;
void f(int32_t delta, unsigned n)
{
    long total = 0, *p;
    unsigned char c[4];
    for (size_t i = 0; i < n; i++) {
        probe;
    }
}
`
	want := map[string]Symbol{
		"gCount": {Unsigned, 1},
		"gName":  {UnknownSign, 8},
		"gFlag":  {Signed, 1},
		"delta":  {Signed, 4},
		"n":      {Unsigned, 4},
		"total":  {Signed, 8},
		"p":      {UnknownSign, 8},
		"c":      {Unsigned, 1},
		"i":      {Unsigned, 8},
	}
	seen := false
	feed(src, false, func(tr *Tracker, tok token.Token) {
		if tok.Text != "probe" {
			return
		}
		seen = true
		for name, w := range want {
			got, ok := tr.Lookup(name)
			if !ok || got != w {
				t.Errorf("Lookup(%s) = %+v, %v; want %+v", name, got, ok, w)
			}
		}
		if _, ok := tr.Lookup("probe"); ok {
			t.Error("expression identifier recorded as a symbol")
		}
	})
	if !seen {
		t.Fatal("probe not reached")
	}
}

func TestParamsScopedToBody(t *testing.T) {
	var leaked bool
	feed("int proto(int a);\nint x;\n", false, func(tr *Tracker, tok token.Token) {
		if tok.Text == "x" {
			_, leaked = tr.Lookup("a")
		}
	})
	if leaked {
		t.Error("prototype parameter visible after the prototype")
	}
}

func TestAggregateMembers(t *testing.T) {
	src := "typedef struct {\n    uint8_t flag;\n    uint32_t count;\n    char *name;\n} sThing_t;\n"
	var members []Member
	var typedefAt []string
	events := feed(src, false, func(tr *Tracker, tok token.Token) {
		if tok.Kind == token.Ident && tr.InTypedef() {
			typedefAt = append(typedefAt, tok.Text)
		}
	})
	agg := eventKinds(events, AggregateClosed)
	if len(agg) != 1 {
		t.Fatalf("got %d aggregate events", len(agg))
	}
	for _, m := range agg[0].Frame.Members() {
		members = append(members, Member{Name: token.Token{Text: m.Name.Text}, Size: m.Size})
	}
	want := []Member{
		{Name: token.Token{Text: "flag"}, Size: 1},
		{Name: token.Token{Text: "count"}, Size: 4},
		{Name: token.Token{Text: "name"}, Size: 8},
	}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"sThing_t"}, typedefAt); diff != "" {
		t.Errorf("typedef declarator positions (-want +got):\n%s", diff)
	}
}
