package diag

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSortOrderAndDedup(t *testing.T) {
	vs := []Violation{
		{File: "b.c", Line: 1, Column: 1, RuleID: "x"},
		{File: "a.c", Line: 2, Column: 1, RuleID: "x"},
		{File: "a.c", Line: 1, Column: 5, RuleID: "z"},
		{File: "a.c", Line: 1, Column: 5, RuleID: "a"},
		{File: "a.c", Line: 1, Column: 5, RuleID: "a"},
	}
	got := Sort(vs)
	want := []Violation{
		{File: "a.c", Line: 1, Column: 5, RuleID: "a"},
		{File: "a.c", Line: 1, Column: 5, RuleID: "z"},
		{File: "a.c", Line: 2, Column: 1, RuleID: "x"},
		{File: "b.c", Line: 1, Column: 1, RuleID: "x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sort mismatch (-want +got):\n%s", diff)
	}
}

func TestSeverityText(t *testing.T) {
	b, err := json.Marshal(Violation{File: "f.h", Line: 3, Column: 1, RuleID: "missing-guard", Severity: Error, Message: "m"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"file":"f.h","line":3,"column":1,"rule":"missing-guard","severity":"error","message":"m"}`
	if string(b) != want {
		t.Errorf("got %s", b)
	}

	var s Severity
	if err := s.UnmarshalText([]byte("Warning")); err != nil || s != Warning {
		t.Errorf("UnmarshalText warning = %v, %v", s, err)
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Error("expected error for unknown severity")
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Violation{{Severity: Warning}}) {
		t.Error("warnings only must not count as errors")
	}
	if !HasErrors([]Violation{{Severity: Warning}, {Severity: Error}}) {
		t.Error("expected error")
	}
}
