package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/diag"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/engine"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/rules"
)

// SARIF 2.1.0, reduced to what a style checker fills in.

const (
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	sarifVersion = "2.1.0"
	toolName     = "cstyle"
)

type SARIFReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

type SARIFRun struct {
	Tool        SARIFTool         `json:"tool"`
	Results     []SARIFResult     `json:"results"`
	Invocations []SARIFInvocation `json:"invocations,omitempty"`
}

type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

type SARIFDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []SARIFRule `json:"rules,omitempty"`
}

type SARIFRule struct {
	ID                   string             `json:"id"`
	ShortDescription     *SARIFMessage      `json:"shortDescription,omitempty"`
	DefaultConfiguration *SARIFRuleDefaults `json:"defaultConfiguration,omitempty"`
	Properties           map[string]any     `json:"properties,omitempty"`
}

type SARIFRuleDefaults struct {
	Level string `json:"level,omitempty"`
}

type SARIFResult struct {
	RuleID       string            `json:"ruleId"`
	RuleIndex    int               `json:"ruleIndex"`
	Level        string            `json:"level"`
	Message      SARIFMessage      `json:"message"`
	Locations    []SARIFLocation   `json:"locations"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

type SARIFMessage struct {
	Text string `json:"text"`
}

type SARIFLocation struct {
	PhysicalLocation SARIFPhysicalLocation `json:"physicalLocation"`
}

type SARIFPhysicalLocation struct {
	ArtifactLocation SARIFArtifactLocation `json:"artifactLocation"`
	Region           SARIFRegion           `json:"region"`
}

type SARIFArtifactLocation struct {
	URI string `json:"uri"`
}

type SARIFRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
}

type SARIFInvocation struct {
	ExecutionSuccessful bool                `json:"executionSuccessful"`
	Notifications       []SARIFNotification `json:"toolExecutionNotifications,omitempty"`
}

type SARIFNotification struct {
	Level   string       `json:"level"`
	Message SARIFMessage `json:"message"`
}

func sarifLevel(s diag.Severity) string {
	if s == diag.Error {
		return "error"
	}
	return "warning"
}

// Fingerprint identifies a violation independently of its column, so a
// finding keeps its identity when a line is reindented.
func Fingerprint(v diag.Violation) string {
	h := xxhash.New()
	for _, part := range []string{v.RuleID, filepath.ToSlash(v.File), strconv.Itoa(v.Line), v.Message} {
		h.WriteString(part)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// BuildSARIF converts a run report; rs supplies the rule metadata.
func BuildSARIF(rep *engine.RunReport, rs *rules.RuleSet, version string) SARIFReport {
	index := make(map[string]int)
	var driverRules []SARIFRule
	for _, a := range rs.Active() {
		index[a.Spec.ID] = len(driverRules)
		driverRules = append(driverRules, SARIFRule{
			ID:                   a.Spec.ID,
			ShortDescription:     &SARIFMessage{Text: a.Spec.Description},
			DefaultConfiguration: &SARIFRuleDefaults{Level: sarifLevel(a.Severity)},
			Properties:           map[string]any{"category": a.Spec.Category},
		})
	}

	results := make([]SARIFResult, 0)
	inv := SARIFInvocation{ExecutionSuccessful: true}
	for _, v := range rep.Violations() {
		results = append(results, SARIFResult{
			RuleID:    v.RuleID,
			RuleIndex: index[v.RuleID],
			Level:     sarifLevel(v.Severity),
			Message:   SARIFMessage{Text: v.Message},
			Locations: []SARIFLocation{{PhysicalLocation: SARIFPhysicalLocation{
				ArtifactLocation: SARIFArtifactLocation{URI: filepath.ToSlash(v.File)},
				Region:           SARIFRegion{StartLine: v.Line, StartColumn: v.Column},
			}}},
			Fingerprints: map[string]string{toolName + "/v1": Fingerprint(v)},
		})
	}
	for _, u := range rep.Units {
		for _, e := range u.Errors {
			inv.ExecutionSuccessful = false
			inv.Notifications = append(inv.Notifications, SARIFNotification{Level: "error", Message: SARIFMessage{Text: e.Error()}})
		}
		if u.Status == engine.Cancelled {
			inv.ExecutionSuccessful = false
			inv.Notifications = append(inv.Notifications, SARIFNotification{Level: "warning", Message: SARIFMessage{Text: u.Unit + ": cancelled"}})
		}
	}

	return SARIFReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []SARIFRun{{
			Tool:        SARIFTool{Driver: SARIFDriver{Name: toolName, Version: version, Rules: driverRules}},
			Results:     results,
			Invocations: []SARIFInvocation{inv},
		}},
	}
}

func WriteSARIF(w io.Writer, rep *engine.RunReport, rs *rules.RuleSet, version string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildSARIF(rep, rs, version))
}
