package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/classify"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/config"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/diag"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/source"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/tracker"
)

// Param is a tunable of a rule. Default is an int or a string; configured
// values are converted to the same type.
type Param struct {
	Name    string
	Default any
	Doc     string
}

// Spec is the static definition of a rule. Hooks only report; they never
// keep state between calls or look at other rules.
type Spec struct {
	ID          string
	Category    string
	Severity    diag.Severity
	Description string
	Default     bool
	HeaderOnly  bool
	Params      []Param

	Token func(c *Context, i int)
	Line  func(c *Context, n int, text string)
	Event func(c *Context, e tracker.Event)
	File  func(c *Context)
	Unit  func(u *UnitContext)
}

// Active is a rule switched on in a RuleSet, with its resolved severity
// and parameters.
type Active struct {
	Spec     *Spec
	Severity diag.Severity
	params   map[string]any
}

// RuleSet is the compiled, read-only configuration of a run. It is safe
// for concurrent use.
type RuleSet struct {
	MaxLineWidth int
	IndentWidth  int

	naming map[classify.Class]*regexp.Regexp
	active []*Active
	byID   map[string]*Active

	tokenRules, lineRules, eventRules, fileRules, unitRules []*Active
}

// Active returns the enabled rules in catalog order.
func (rs *RuleSet) Active() []*Active { return slices.Clone(rs.active) }

func (rs *RuleSet) Enabled(id string) bool {
	_, ok := rs.byID[id]
	return ok
}

// Naming returns the pattern names of class c must match, or nil.
func (rs *RuleSet) Naming(c classify.Class) *regexp.Regexp { return rs.naming[c] }

// DefaultNaming holds the built-in patterns per class; classes not listed
// are not checked unless configured.
var DefaultNaming = map[classify.Class]string{
	classify.Macro:          `^[A-Z0-9_]+$`,
	classify.TypeName:       `^[seu][A-Z][A-Za-z0-9]*_t$`,
	classify.GlobalVariable: `^g[A-Za-z0-9_]*$`,
}

// ConfigError rejects a configuration before any file is scanned.
type ConfigError struct {
	Rule string // empty for settings that are not tied to a rule
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid rule configuration")
	if e.Rule != "" {
		fmt.Fprintf(&b, ": rule '%s'", e.Rule)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, ": '%s'", e.Key)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(rule, key, format string, args ...any) *ConfigError {
	return &ConfigError{Rule: rule, Key: key, Err: fmt.Errorf(format, args...)}
}

// Default compiles the built-in configuration. It panics if the catalog
// rejects its own defaults.
func Default() *RuleSet {
	rs, err := Compile(nil)
	if err != nil {
		panic(fmt.Sprintf("rules: default configuration: %v", err))
	}
	return rs
}

// Compile validates cfg against the catalog and freezes it. A nil cfg
// means the defaults.
func Compile(cfg *config.Config) (*RuleSet, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if cfg.MaxLineWidth <= 0 {
		return nil, configErr("", "maxLineWidth", "must be positive, got %d", cfg.MaxLineWidth)
	}
	if cfg.IndentWidth <= 0 {
		return nil, configErr("", "indentWidth", "must be positive, got %d", cfg.IndentWidth)
	}

	rs := &RuleSet{
		MaxLineWidth: cfg.MaxLineWidth,
		IndentWidth:  cfg.IndentWidth,
		naming:       make(map[classify.Class]*regexp.Regexp),
		byID:         make(map[string]*Active),
	}

	for c, pattern := range DefaultNaming {
		rs.naming[c] = regexp.MustCompile(pattern)
	}
	classes := make([]string, 0, len(cfg.Naming))
	for name := range cfg.Naming {
		classes = append(classes, name)
	}
	slices.Sort(classes)
	for _, name := range classes {
		class, ok := classify.ParseClass(name)
		if !ok {
			return nil, configErr("", "naming."+name, "unknown identifier class (want macro, type, public-function, private-function, global or local)")
		}
		pattern := cfg.Naming[name]
		if pattern == "" {
			delete(rs.naming, class)
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &ConfigError{Key: "naming." + name, Err: err}
		}
		rs.naming[class] = re
	}

	for _, id := range cfg.RuleIDs() {
		if _, ok := Lookup(id); !ok {
			return nil, configErr(id, "", "unknown rule")
		}
	}

	for _, spec := range catalog {
		rc := cfg.Rules[spec.ID]
		enabled := spec.Default
		if cfg.All != nil {
			enabled = *cfg.All
		}
		if rc.Enabled != nil {
			enabled = *rc.Enabled
		}

		a := &Active{Spec: spec, Severity: spec.Severity, params: make(map[string]any)}
		if rc.Severity != "" {
			sev, err := diag.ParseSeverity(rc.Severity)
			if err != nil {
				return nil, &ConfigError{Rule: spec.ID, Key: "severity", Err: err}
			}
			a.Severity = sev
		}
		for _, p := range spec.Params {
			a.params[p.Name] = p.Default
		}
		names := make([]string, 0, len(rc.Params))
		for name := range rc.Params {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			p, ok := spec.param(name)
			if !ok {
				return nil, configErr(spec.ID, name, "unknown parameter")
			}
			v, err := convertParam(p.Default, rc.Params[name])
			if err != nil {
				return nil, &ConfigError{Rule: spec.ID, Key: name, Err: err}
			}
			a.params[name] = v
		}

		if !enabled {
			continue
		}
		rs.active = append(rs.active, a)
		rs.byID[spec.ID] = a
		if spec.Token != nil {
			rs.tokenRules = append(rs.tokenRules, a)
		}
		if spec.Line != nil {
			rs.lineRules = append(rs.lineRules, a)
		}
		if spec.Event != nil {
			rs.eventRules = append(rs.eventRules, a)
		}
		if spec.File != nil {
			rs.fileRules = append(rs.fileRules, a)
		}
		if spec.Unit != nil {
			rs.unitRules = append(rs.unitRules, a)
		}
	}
	return rs, nil
}

func (s *Spec) param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// convertParam coerces a decoded YAML/TOML value to the type of def.
func convertParam(def, v any) (any, error) {
	switch def.(type) {
	case int:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case uint64:
			return int(n), nil
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("want an integer, got %v", n)
			}
			return int(n), nil
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, fmt.Errorf("want an integer, got %q", n)
			}
			return i, nil
		}
		return nil, fmt.Errorf("want an integer, got %T", v)
	case string:
		switch s := v.(type) {
		case string:
			return s, nil
		case int, int64:
			return fmt.Sprint(s), nil
		}
		return nil, fmt.Errorf("want a string, got %T", v)
	}
	return nil, fmt.Errorf("unsupported parameter type %T", def)
}

// Context is what token, line, event and file hooks see. The engine owns
// one per file and binds it to each rule in turn.
type Context struct {
	File  *source.Text
	View  tracker.View
	Facts *source.Facts
	Rules *RuleSet

	// Class and Window describe the current token when it is an identifier.
	Class  classify.Class
	Window classify.Window

	active *Active
	sink   func(diag.Violation)
}

func NewContext(file *source.Text, view tracker.View, facts *source.Facts, rs *RuleSet, sink func(diag.Violation)) *Context {
	return &Context{File: file, View: view, Facts: facts, Rules: rs, sink: sink}
}

func (c *Context) Report(tok token.Token, format string, args ...any) {
	c.ReportAt(tok.Line, tok.Column, format, args...)
}

func (c *Context) ReportAt(line, col int, format string, args ...any) {
	c.sink(diag.Violation{
		File:     c.File.Path,
		Line:     line,
		Column:   col,
		RuleID:   c.active.Spec.ID,
		Severity: c.active.Severity,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *Context) Int(name string) int {
	n, _ := c.active.params[name].(int)
	return n
}

func (c *Context) Text(name string) string {
	s, _ := c.active.params[name].(string)
	return s
}

func (c *Context) applies(a *Active) bool {
	return !a.Spec.HeaderOnly || c.File.Role == source.Header
}

func (rs *RuleSet) RunToken(c *Context, i int) {
	for _, a := range rs.tokenRules {
		if c.applies(a) {
			c.active = a
			a.Spec.Token(c, i)
		}
	}
}

func (rs *RuleSet) RunLine(c *Context, n int, text string) {
	for _, a := range rs.lineRules {
		if c.applies(a) {
			c.active = a
			a.Spec.Line(c, n, text)
		}
	}
}

func (rs *RuleSet) RunEvent(c *Context, e tracker.Event) {
	for _, a := range rs.eventRules {
		if c.applies(a) {
			c.active = a
			a.Spec.Event(c, e)
		}
	}
}

func (rs *RuleSet) RunFile(c *Context) {
	for _, a := range rs.fileRules {
		if c.applies(a) {
			c.active = a
			a.Spec.File(c)
		}
	}
}

// UnitContext is what cross-file hooks see once both files of a unit have
// been scanned. Either side may be nil.
type UnitContext struct {
	Name   string
	Header *source.Facts
	Source *source.Facts
	Rules  *RuleSet

	active *Active
	sink   func(diag.Violation)
}

func NewUnitContext(name string, header, src *source.Facts, rs *RuleSet, sink func(diag.Violation)) *UnitContext {
	return &UnitContext{Name: name, Header: header, Source: src, Rules: rs, sink: sink}
}

func (u *UnitContext) Report(path string, tok token.Token, format string, args ...any) {
	u.sink(diag.Violation{
		File:     path,
		Line:     max(tok.Line, 1),
		Column:   max(tok.Column, 1),
		RuleID:   u.active.Spec.ID,
		Severity: u.active.Severity,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (rs *RuleSet) RunUnit(u *UnitContext) {
	for _, a := range rs.unitRules {
		u.active = a
		a.Spec.Unit(u)
	}
}
