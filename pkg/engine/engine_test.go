package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/config"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/diag"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/rules"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/source"
)

func compile(t *testing.T, cfg *config.Config) *rules.RuleSet {
	t.Helper()
	rs, err := rules.Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return rs
}

func file(path, content string) *source.File {
	return &source.File{Path: path, Role: source.RoleOf(path), Content: []byte(content)}
}

func checkOne(t *testing.T, cfg *config.Config, files ...*source.File) UnitReport {
	t.Helper()
	units := source.Pair(files)
	if len(units) != 1 {
		t.Fatalf("got %d units, want 1", len(units))
	}
	return New(compile(t, cfg)).Check(context.Background(), units[0])
}

func byRule(vs []diag.Violation, id string) []diag.Violation {
	var out []diag.Violation
	for _, v := range vs {
		if v.RuleID == id {
			out = append(out, v)
		}
	}
	return out
}

type pos struct{ Line, Column int }

func positions(vs []diag.Violation) []pos {
	var out []pos
	for _, v := range vs {
		out = append(out, pos{v.Line, v.Column})
	}
	return out
}

func TestLineWidth(t *testing.T) {
	src := "// " + strings.Repeat("x", 77) + "\n" + "// " + strings.Repeat("x", 78) + "\n"
	rep := checkOne(t, nil, file("w.c", src))
	if diff := cmp.Diff([]pos{{2, 81}}, positions(byRule(rep.Violations, "line-width"))); diff != "" {
		t.Errorf("line-width mismatch (-want +got):\n%s", diff)
	}

	cfg := config.NewConfig()
	cfg.MaxLineWidth = 40
	rep = checkOne(t, cfg, file("w.c", src))
	if diff := cmp.Diff([]pos{{1, 41}, {2, 41}}, positions(byRule(rep.Violations, "line-width"))); diff != "" {
		t.Errorf("line-width at 40 mismatch (-want +got):\n%s", diff)
	}
}

func TestTabOncePerOccurrence(t *testing.T) {
	src := "int\tx;\n" +
		"// a\tb\t\n" +
		"char *s = \"\t\";\n" +
		"char c = '\t';\n" +
		"#define A\t\"\t\"\n"
	rep := checkOne(t, nil, file("t.c", src))
	want := []pos{{1, 4}, {2, 5}, {2, 7}, {5, 10}}
	if diff := cmp.Diff(want, positions(byRule(rep.Violations, "tab-forbidden"))); diff != "" {
		t.Errorf("tab-forbidden mismatch (-want +got):\n%s", diff)
	}
}

func TestHeaderGuard(t *testing.T) {
	guarded := "#ifndef FOO_H\n#define FOO_H\n\nint foo(void);\n\n#endif // FOO_H\n"
	rep := checkOne(t, nil, file("inc/foo.h", guarded))
	if got := byRule(rep.Violations, "missing-guard"); len(got) != 0 {
		t.Errorf("guarded header: %v", got)
	}

	open := strings.TrimSuffix(guarded, "\n#endif // FOO_H\n")
	rep = checkOne(t, nil, file("inc/foo.h", open))
	got := byRule(rep.Violations, "missing-guard")
	if len(got) != 1 {
		t.Fatalf("missing #endif: got %d violations, want 1: %v", len(got), got)
	}
	if got[0].Line != 4 || got[0].Severity != diag.Error {
		t.Errorf("missing #endif reported as %v", got[0])
	}
	if rep.Status != Failed {
		t.Errorf("status = %s, want failed", rep.Status)
	}
}

func TestMacroNaming(t *testing.T) {
	rep := checkOne(t, nil, file("m.c", "#define max_val (1)\n"))
	if diff := cmp.Diff([]pos{{1, 9}}, positions(byRule(rep.Violations, "macro-naming"))); diff != "" {
		t.Errorf("macro-naming mismatch (-want +got):\n%s", diff)
	}
	rep = checkOne(t, nil, file("m.c", "#define MAX_VAL (1)\n"))
	if got := byRule(rep.Violations, "macro-naming"); len(got) != 0 {
		t.Errorf("MAX_VAL: %v", got)
	}
}

const switchSrc = `void f(int x)
{
    switch (x)
    {
    case 1:
        x++;
%s    case 2:
        x--;
        break;
    default:
        break;
    }
}
`

func TestFallthrough(t *testing.T) {
	rep := checkOne(t, nil, file("s.c", fmt.Sprintf(switchSrc, "")))
	if diff := cmp.Diff([]pos{{5, 5}}, positions(byRule(rep.Violations, "fallthrough"))); diff != "" {
		t.Errorf("fallthrough mismatch (-want +got):\n%s", diff)
	}

	rep = checkOne(t, nil, file("s.c", fmt.Sprintf(switchSrc, "        // Intentional fallthrough:\n")))
	if got := byRule(rep.Violations, "fallthrough"); len(got) != 0 {
		t.Errorf("excused case still reported: %v", got)
	}
}

const messy = "#define bad_name 1\n" +
	"static int counter=0;\n" +
	"int main(void) {\n" +
	"\tif(counter){ goto out; }\n" +
	"  out:\n" +
	"    return 0;   \n" +
	"}"

func TestDeterministic(t *testing.T) {
	encode := func() []byte {
		rep := checkOne(t, nil, file("x.c", messy))
		b, err := json.Marshal(rep)
		if err != nil {
			t.Fatal(err)
		}
		return b
	}
	first, second := encode(), encode()
	if !bytes.Equal(first, second) {
		t.Errorf("reports differ:\n%s\n%s", first, second)
	}
	if !bytes.Contains(first, []byte(`"rule":"macro-naming"`)) {
		t.Errorf("report lacks expected violation: %s", first)
	}
}

func TestUnitIsolation(t *testing.T) {
	var files []*source.File
	for i := range 24 {
		files = append(files,
			file(fmt.Sprintf("u%02d.c", i), "// "+strings.Repeat("x", 80+i)+"\n"+strings.Repeat("\n", i%4)),
			file(fmt.Sprintf("u%02d.h", i), "#ifndef X\n#define X\n#endif\n"))
	}
	units := source.Pair(files)
	rs := compile(t, nil)

	want := make([]UnitReport, 0, len(units))
	for _, u := range units {
		want = append(want, New(rs).Check(context.Background(), u))
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for _, workers := range []int{1, 3, 8} {
		shuffled := append([]source.Unit(nil), units...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := New(rs, WithWorkers(workers)).Run(context.Background(), shuffled)
		if diff := cmp.Diff(want, got.Units); diff != "" {
			t.Errorf("workers=%d: reports differ (-sequential +parallel):\n%s", workers, diff)
		}
	}

	for _, rep := range want {
		for _, v := range rep.Violations {
			if !strings.Contains(strings.Join(rep.Files, " "), v.File) {
				t.Errorf("unit %s reports %s outside its files", rep.Unit, v)
			}
		}
	}
}

func TestIOErrorKeepsOtherFile(t *testing.T) {
	mem := afero.NewMemMapFs()
	afero.WriteFile(mem, "/p/a.h", []byte("int a(void);\n"), 0o644)
	afero.WriteFile(mem, "/q/b.c", []byte("int b;\n"), 0o644)

	e := New(compile(t, nil), WithFS(mem))
	rep := e.Run(context.Background(), Units([]string{"/p/a.h", "/p/a.c", "/q/b.c"}))
	if len(rep.Units) != 2 {
		t.Fatalf("got %d units", len(rep.Units))
	}

	a := rep.Units[0]
	if a.Unit != "/p/a" || a.Status != Errored {
		t.Fatalf("unit a = %s %s", a.Unit, a.Status)
	}
	if len(a.Errors) != 1 {
		t.Fatalf("errors = %v", a.Errors)
	}
	var ioErr *IOError
	if err := error(a.Errors[0]); !errors.As(err, &ioErr) || ioErr.Path != "/p/a.c" || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v", err)
	}
	if len(byRule(a.Violations, "missing-guard")) != 1 {
		t.Errorf("header still has to be checked: %v", a.Violations)
	}
	for _, v := range a.Violations {
		if v.RuleID == "header-include" || v.RuleID == "prototype-missing" {
			t.Errorf("cross-file rule ran despite the read error: %v", v)
		}
	}

	if b := rep.Units[1]; b.Status == Errored || b.Status == Cancelled {
		t.Errorf("unit b = %s", b.Status)
	}
	if rep.ExitCode() != 1 {
		t.Errorf("exit code = %d", rep.ExitCode())
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	units := source.Pair([]*source.File{file("a.c", "int a;\n"), file("b.c", "int b;\n")})
	rep := New(compile(t, nil), WithWorkers(2)).Run(ctx, units)
	for _, u := range rep.Units {
		if u.Status != Cancelled || len(u.Violations) != 0 {
			t.Errorf("unit %s: status %s, %d violations", u.Unit, u.Status, len(u.Violations))
		}
	}
	if rep.Passed() {
		t.Error("cancelled run must not pass")
	}
}

// expiring reports context.Canceled once Err has been called n times.
type expiring struct {
	context.Context
	n int
}

func (c *expiring) Err() error {
	if c.n <= 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestCheckCancelled(t *testing.T) {
	long := strings.Repeat("int x;\n", 400)
	u := source.Pair([]*source.File{file("big.h", "int x;\n"), file("big.c", long)})[0]
	if n := len(source.NewText("big.c", source.Source, []byte(long)).Tokens); n <= 2*cancelEvery {
		t.Fatalf("source has %d tokens, want more than %d", n, 2*cancelEvery)
	}

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"before the first file", &expiring{Context: context.Background()}},
		{"between files", &expiring{Context: context.Background(), n: 2}},
		{"inside a long file", &expiring{Context: context.Background(), n: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := New(compile(t, nil)).Check(tt.ctx, u)
			if rep.Status != Cancelled {
				t.Errorf("status = %s, want cancelled", rep.Status)
			}
			if diff := cmp.Diff([]string{"big.h", "big.c"}, rep.Files); diff != "" {
				t.Errorf("files (-want +got):\n%s", diff)
			}
			if len(rep.Violations) != 0 {
				t.Errorf("cancelled unit kept %d violations", len(rep.Violations))
			}
			if code := (&RunReport{Units: []UnitReport{rep}}).ExitCode(); code == 0 {
				t.Error("cancelled unit exits 0")
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if rep := New(compile(t, nil)).Check(ctx, u); rep.Status != Cancelled || len(rep.Files) != 2 {
		t.Errorf("pre-cancelled check = %s %v", rep.Status, rep.Files)
	}
}

func TestUnitsOrderedByFilePath(t *testing.T) {
	long := "// " + strings.Repeat("x", 90) + "\n"
	units := source.Pair([]*source.File{file("uart.c", long), file("uart-dma.c", long)})
	rep := New(compile(t, nil), WithWorkers(2)).Run(context.Background(), units)

	var names []string
	for _, u := range rep.Units {
		names = append(names, u.Unit)
	}
	if diff := cmp.Diff([]string{"uart-dma", "uart"}, names); diff != "" {
		t.Errorf("unit order (-want +got):\n%s", diff)
	}

	var files, flat []string
	for _, v := range rep.Violations() {
		files = append(files, v.File)
	}
	for _, u := range rep.Units {
		for _, v := range u.Violations {
			flat = append(flat, v.File)
		}
	}
	if len(files) == 0 || files[0] != "uart-dma.c" {
		t.Errorf("violations start with %v", files)
	}
	if diff := cmp.Diff(files, flat); diff != "" {
		t.Errorf("unit order disagrees with violation order (-sorted +per unit):\n%s", diff)
	}
}

func TestCrossFileRules(t *testing.T) {
	header := "#ifndef DRV_H\n#define DRV_H\n\n" +
		"#ifdef __cplusplus\nextern \"C\" {\n#endif // __cplusplus\n\n" +
		"int drvInit(int rate);\nvoid drvStop(void);\n\n" +
		"#ifdef __cplusplus\n}\n#endif // __cplusplus\n\n#endif // DRV_H\n"
	src := "#include <stdio.h>\n\n" +
		"int drvInit(long rate)\n{\n    return (int)rate;\n}\n\n" +
		"void drvStop(void)\n{\n}\n\n" +
		"int drvPoll(void)\n{\n    return 0;\n}\n"

	rep := checkOne(t, nil, file("drv.h", header), file("drv.c", src))
	got := map[string][]pos{}
	for _, id := range []string{"header-include", "prototype-match", "prototype-missing", "cplusplus-linkage"} {
		got[id] = positions(byRule(rep.Violations, id))
	}
	want := map[string][]pos{
		"header-include":    {{1, 1}},
		"prototype-match":   {{3, 5}},
		"prototype-missing": {{12, 5}},
		"cplusplus-linkage": nil,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cross-file mismatch (-want +got):\n%s", diff)
	}
	if rep.Status != Failed {
		t.Errorf("status = %s, want failed for a prototype mismatch", rep.Status)
	}
}
