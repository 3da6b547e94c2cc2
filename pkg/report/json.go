package report

import (
	"encoding/json"
	"io"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/diag"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/engine"
)

// Unit is the serialized form of one unit report.
type Unit struct {
	Unit       string           `json:"unit"`
	Files      []string         `json:"files"`
	Status     string           `json:"status"`
	Violations []diag.Violation `json:"violations"`
	Errors     []string         `json:"errors,omitempty"`
}

type Run struct {
	Passed bool   `json:"passed"`
	Units  []Unit `json:"units"`
}

// Convert turns a run report into its serialized form. Slices are never nil
// so empty reports encode as [].
func Convert(rep *engine.RunReport) Run {
	out := Run{Passed: rep.Passed(), Units: make([]Unit, 0, len(rep.Units))}
	for _, u := range rep.Units {
		ju := Unit{
			Unit:       u.Unit,
			Files:      append([]string{}, u.Files...),
			Status:     u.Status.String(),
			Violations: append([]diag.Violation{}, u.Violations...),
		}
		for _, e := range u.Errors {
			ju.Errors = append(ju.Errors, e.Error())
		}
		out.Units = append(out.Units, ju)
	}
	return out
}

func WriteJSON(w io.Writer, rep *engine.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Convert(rep))
}
