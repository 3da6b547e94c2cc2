package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/diag"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/engine"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/rules"
)

func sample() *engine.RunReport {
	return &engine.RunReport{Units: []engine.UnitReport{
		{
			Unit:   "a",
			Files:  []string{"a.c"},
			Status: engine.Failed,
			Violations: []diag.Violation{
				{File: "a.c", Line: 1, Column: 5, RuleID: "global-naming", Severity: diag.Error, Message: "global name 'x' does not match ^g_"},
				{File: "a.c", Line: 2, Column: 6, RuleID: "space-brackets", Severity: diag.Warning, Message: "space after ("},
			},
		},
		{
			Unit:   "b",
			Files:  []string{"b.c"},
			Status: engine.Errored,
			Errors: []*engine.IOError{{Path: "b.c", Err: fs.ErrNotExist}},
		},
		{Unit: "c", Files: []string{"c.c"}, Status: engine.Cancelled},
		{Unit: "d", Files: []string{"d.c"}, Status: engine.Passed},
	}}
}

func TestWriteText(t *testing.T) {
	mem := afero.NewMemMapFs()
	afero.WriteFile(mem, "a.c", []byte("int x;\n\tfoo( );\n"), 0o644)

	var buf bytes.Buffer
	if err := WriteText(&buf, sample(), TextOptions{FS: mem}); err != nil {
		t.Fatal(err)
	}
	want := "a.c:1:5: error: global name 'x' does not match ^g_ [global-naming]\n" +
		"  int x;\n" +
		"      ^\n" +
		"a.c:2:6: warning: space after ( [space-brackets]\n" +
		"  \tfoo( );\n" +
		"  \t    ^\n" +
		"b.c: error: file does not exist\n" +
		"c: cancelled\n" +
		"4 units checked, 3 failed: 1 errors, 1 warnings\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTextColorAndNoSource(t *testing.T) {
	rep := &engine.RunReport{Units: []engine.UnitReport{{Unit: "d", Files: []string{"d.c"}, Status: engine.Passed}}}
	var buf bytes.Buffer
	if err := WriteText(&buf, rep, TextOptions{Color: true}); err != nil {
		t.Fatal(err)
	}
	want := cBold + cGreen + "1 units checked, 0 failed: 0 errors, 0 warnings" + cNone + "\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// without a file system only the diagnostic line is printed
	buf.Reset()
	if err := WriteText(&buf, sample(), TextOptions{}); err != nil {
		t.Fatal(err)
	}
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if bytes.HasPrefix(line, []byte("  ")) {
			t.Errorf("source quoted without a file system: %q", line)
		}
	}
	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 5 {
		t.Errorf("got %d lines, want 5:\n%s", n, buf.String())
	}
}

func TestWriteTextOrdersByFile(t *testing.T) {
	long := func(file string, line int) diag.Violation {
		return diag.Violation{File: file, Line: line, Column: 81, RuleID: "line-width", Severity: diag.Warning, Message: "line is 90 columns, limit is 80"}
	}
	rep := &engine.RunReport{Units: []engine.UnitReport{
		{Unit: "uart", Files: []string{"uart.c"}, Status: engine.Passed, Violations: []diag.Violation{long("uart.c", 3)}},
		{Unit: "uart-dma", Files: []string{"uart-dma.c"}, Status: engine.Passed, Violations: []diag.Violation{long("uart-dma.c", 1), long("uart-dma.c", 7)}},
	}}
	var buf bytes.Buffer
	if err := WriteText(&buf, rep, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	want := "uart-dma.c:1:81: warning: line is 90 columns, limit is 80 [line-width]\n" +
		"uart-dma.c:7:81: warning: line is 90 columns, limit is 80 [line-width]\n" +
		"uart.c:3:81: warning: line is 90 columns, limit is 80 [line-width]\n" +
		"2 units checked, 0 failed: 0 errors, 3 warnings\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	var got Run
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if got.Passed {
		t.Error("run with failures decoded as passed")
	}
	statuses := []string{}
	for _, u := range got.Units {
		statuses = append(statuses, u.Status)
	}
	if diff := cmp.Diff([]string{"failed", "error", "cancelled", "passed"}, statuses); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sample().Units[0].Violations, got.Units[0].Violations); diff != "" {
		t.Errorf("violations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"reading b.c: file does not exist"}, got.Units[1].Errors); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"violations": []`)) {
		t.Errorf("empty violations must encode as []:\n%s", buf.String())
	}
}

func TestWriteSARIF(t *testing.T) {
	rs, err := rules.Compile(nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteSARIF(&buf, sample(), rs, "1.2.3"); err != nil {
		t.Fatal(err)
	}
	var got SARIFReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != "2.1.0" || len(got.Runs) != 1 {
		t.Fatalf("version %q with %d runs", got.Version, len(got.Runs))
	}
	run := got.Runs[0]
	if run.Tool.Driver.Name != "cstyle" || run.Tool.Driver.Version != "1.2.3" {
		t.Errorf("driver = %+v", run.Tool.Driver)
	}
	if len(run.Tool.Driver.Rules) != len(rs.Active()) {
		t.Errorf("got %d rules, want %d", len(run.Tool.Driver.Rules), len(rs.Active()))
	}
	if len(run.Results) != 2 {
		t.Fatalf("got %d results", len(run.Results))
	}
	for _, r := range run.Results {
		if run.Tool.Driver.Rules[r.RuleIndex].ID != r.RuleID {
			t.Errorf("result %s points at rule %d", r.RuleID, r.RuleIndex)
		}
	}
	first := run.Results[0]
	if first.Level != "error" || first.Locations[0].PhysicalLocation.Region != (SARIFRegion{StartLine: 1, StartColumn: 5}) {
		t.Errorf("first result = %+v", first)
	}
	if run.Invocations[0].ExecutionSuccessful || len(run.Invocations[0].Notifications) != 2 {
		t.Errorf("invocation = %+v", run.Invocations[0])
	}
}

func TestFingerprint(t *testing.T) {
	v := diag.Violation{File: "a.c", Line: 3, Column: 1, RuleID: "goto-forbidden", Message: "goto"}
	moved := v
	moved.Column = 9
	if Fingerprint(v) != Fingerprint(moved) {
		t.Error("column must not change the fingerprint")
	}
	other := v
	other.Line = 4
	if Fingerprint(v) == Fingerprint(other) {
		t.Error("different lines share a fingerprint")
	}
	if len(Fingerprint(v)) != 16 {
		t.Errorf("fingerprint %q", Fingerprint(v))
	}
}

func TestIOErrorUnwraps(t *testing.T) {
	err := error(sample().Units[1].Errors[0])
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("%v does not unwrap", err)
	}
}
