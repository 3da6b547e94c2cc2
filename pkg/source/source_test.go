package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRoleOf(t *testing.T) {
	tests := map[string]Role{
		"foo.h": Header, "x/Bar.HPP": Header, "foo.c": Source, "foo": Source, "a.hh": Header,
	}
	for path, want := range tests {
		if got := RoleOf(path); got != want {
			t.Errorf("RoleOf(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestPair(t *testing.T) {
	files := FromPaths([]string{"src/foo.c", "inc/foo.h", "src/foo.h", "bar.c", "src/foo.hpp"})
	units := Pair(files)

	type shape struct{ Name, Header, Source string }
	var got []shape
	for _, u := range units {
		s := shape{Name: u.Name}
		if u.Header != nil {
			s.Header = u.Header.Path
		}
		if u.Source != nil {
			s.Source = u.Source.Path
		}
		got = append(got, s)
	}
	want := []shape{
		{Name: "bar", Source: "bar.c"},
		{Name: "inc/foo", Header: "inc/foo.h"},
		{Name: "src/foo", Header: "src/foo.h", Source: "src/foo.c"},
		{Name: "src/foo.hpp", Header: "src/foo.hpp"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Pair mismatch (-want +got):\n%s", diff)
	}
}

func TestTextLines(t *testing.T) {
	txt := NewText("a.c", Source, []byte("int a;\r\n\nb;\n"))
	if diff := cmp.Diff([]string{"int a;", "", "b;"}, txt.Lines); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
	if txt.LastLine() != 3 {
		t.Errorf("LastLine = %d", txt.LastLine())
	}
	if NewText("e.c", Source, nil).LastLine() != 1 {
		t.Error("empty file must report line 1")
	}
}

func TestStatementPrev(t *testing.T) {
	txt := NewText("a.c", Source, []byte("x = 1; static const int /* c */ gCount = 2;"))
	idx := -1
	for i, tok := range txt.Tokens {
		if tok.Text == "gCount" {
			idx = i
		}
	}
	var got []string
	for _, tok := range txt.StatementPrev(idx, 8) {
		got = append(got, tok.Text)
	}
	if diff := cmp.Diff([]string{"int", "const", "static"}, got); diff != "" {
		t.Errorf("StatementPrev mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSignature(t *testing.T) {
	src := "static inline uint8_t foo(const char *name, int a[4], struct bar, void (*cb)(int)) {\n}\nint baz(void);\n"
	txt := NewText("a.c", Source, []byte(src))
	find := func(name string) int {
		for i, tok := range txt.Tokens {
			if tok.Text == name {
				return i
			}
		}
		t.Fatalf("%s not found", name)
		return -1
	}

	i := find("foo")
	sig, ok := txt.ParseSignature(i, txt.StatementPrev(i, 8))
	if !ok {
		t.Fatal("foo not parsed")
	}
	if !sig.Static || !sig.Definition || sig.Return != "uint8_t" {
		t.Errorf("foo = %+v", sig)
	}
	wantParams := []string{"const char *", "int []", "struct bar", "void ( * ) ( int )"}
	if diff := cmp.Diff(wantParams, sig.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	i = find("baz")
	sig, ok = txt.ParseSignature(i, txt.StatementPrev(i, 8))
	if !ok || sig.Definition || sig.Static || sig.Params != nil || sig.Return != "int" {
		t.Errorf("baz = %+v, %v", sig, ok)
	}
}

func TestSignatureSame(t *testing.T) {
	h := NewText("a.h", Header, []byte("int add(int lhs, int rhs);"))
	c := NewText("a.c", Source, []byte("int add(int a, int b)\n{\n}\n"))
	sig := func(txt *Text) Signature {
		for i, tok := range txt.Tokens {
			if tok.Text == "add" {
				s, _ := txt.ParseSignature(i, txt.StatementPrev(i, 8))
				return s
			}
		}
		return Signature{}
	}
	if hs, cs := sig(h), sig(c); !hs.Same(cs) {
		t.Errorf("%s and %s should match", hs, cs)
	}
}
