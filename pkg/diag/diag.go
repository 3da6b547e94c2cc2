package diag

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	}
	return Warning, fmt.Errorf("unknown severity %q (want \"error\" or \"warning\")", name)
}

// Violation is one reported instance of a rule failing at a location.
type Violation struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	RuleID   string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s [%s]", v.File, v.Line, v.Column, v.Severity, v.Message, v.RuleID)
}

func Compare(a, b Violation) int {
	return cmp.Or(
		cmp.Compare(a.File, b.File),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Column, b.Column),
		cmp.Compare(a.RuleID, b.RuleID),
		cmp.Compare(a.Message, b.Message),
	)
}

// Sort orders violations by file, line, column, rule id and message and
// drops exact duplicates.
func Sort(vs []Violation) []Violation {
	slices.SortFunc(vs, Compare)
	return slices.Compact(vs)
}

// HasErrors reports whether any violation has Error severity.
func HasErrors(vs []Violation) bool {
	return slices.ContainsFunc(vs, func(v Violation) bool { return v.Severity == Error })
}
