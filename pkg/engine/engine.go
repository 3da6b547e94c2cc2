package engine

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/classify"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/diag"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/lexer"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/rules"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/source"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/tracker"
)

const (
	// windowSize bounds how far back the classifier looks in a statement.
	windowSize = 8
	// cancelEvery is how many tokens are scanned between context checks.
	cancelEvery = 512
)

type Status int

const (
	Passed Status = iota
	Failed
	Errored
	Cancelled
)

var statusNames = [...]string{"passed", "failed", "error", "cancelled"}

func (s Status) String() string { return statusNames[s] }

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// IOError records a file of a unit that could not be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("reading %s: %v", e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// UnitReport is the outcome of checking one unit. Violations are sorted by
// file, line, column, rule and message.
type UnitReport struct {
	Unit       string           `json:"unit"`
	Files      []string         `json:"files"`
	Status     Status           `json:"status"`
	Violations []diag.Violation `json:"violations"`
	Errors     []*IOError       `json:"-"`
}

func (r *UnitReport) Passed() bool { return r.Status == Passed }

// RunReport holds the unit reports of a run, ordered by unit name.
type RunReport struct {
	Units []UnitReport
}

func (r *RunReport) Passed() bool {
	for i := range r.Units {
		if !r.Units[i].Passed() {
			return false
		}
	}
	return true
}

// Violations merges the violations of every unit in report order.
func (r *RunReport) Violations() []diag.Violation {
	var out []diag.Violation
	for _, u := range r.Units {
		out = append(out, u.Violations...)
	}
	return diag.Sort(out)
}

// ExitCode is 0 when every unit passed and 1 otherwise.
func (r *RunReport) ExitCode() int {
	if r.Passed() {
		return 0
	}
	return 1
}

type Engine struct {
	rules   *rules.RuleSet
	workers int
	log     *slog.Logger
	fs      afero.Fs
}

type Option func(*Engine)

// WithWorkers sets the size of the worker pool used by Run.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithFS sets the filesystem files without inline content are read from.
func WithFS(fs afero.Fs) Option {
	return func(e *Engine) {
		if fs != nil {
			e.fs = fs
		}
	}
}

// New returns an engine for rs; a nil rs means the default rules.
func New(rs *rules.RuleSet, opts ...Option) *Engine {
	if rs == nil {
		rs = rules.Default()
	}
	e := &Engine{
		rules:   rs,
		workers: runtime.NumCPU(),
		log:     slog.New(slog.DiscardHandler),
		fs:      afero.NewOsFs(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Units groups paths into header/source units.
func Units(paths []string) []source.Unit {
	return source.Pair(source.FromPaths(paths))
}

// Check runs every enabled rule over one unit. Cross-file rules only run
// when all of the unit's files could be read.
func (e *Engine) Check(ctx context.Context, u source.Unit) UnitReport {
	rep := UnitReport{Unit: u.Name}
	start := time.Now()
	e.log.Debug("checking unit", "unit", u.Name)

	var vs []diag.Violation
	sink := func(v diag.Violation) { vs = append(vs, v) }
	var header, src *source.Facts

	for _, f := range u.Files() {
		rep.Files = append(rep.Files, f.Path)
		if ctx.Err() != nil {
			return cancelled(u)
		}
		content := f.Content
		if content == nil {
			data, err := afero.ReadFile(e.fs, f.Path)
			if err != nil {
				e.log.Warn("cannot read file", "unit", u.Name, "path", f.Path, "error", err)
				rep.Errors = append(rep.Errors, &IOError{Path: f.Path, Err: err})
				continue
			}
			content = data
		}
		facts, ok := e.scan(ctx, f, content, sink)
		if !ok {
			return cancelled(u)
		}
		if f.Role == source.Header {
			header = facts
		} else {
			src = facts
		}
	}

	if len(rep.Errors) == 0 {
		e.rules.RunUnit(rules.NewUnitContext(u.Name, header, src, e.rules, sink))
	}
	rep.Violations = diag.Sort(vs)

	switch {
	case len(rep.Errors) > 0:
		rep.Status = Errored
	case diag.HasErrors(rep.Violations):
		rep.Status = Failed
	default:
		rep.Status = Passed
	}
	e.log.Debug("checked unit", "unit", u.Name, "status", rep.Status,
		"violations", len(rep.Violations), "elapsed", time.Since(start))
	return rep
}

func cancelled(u source.Unit) UnitReport {
	rep := UnitReport{Unit: u.Name, Status: Cancelled}
	for _, f := range u.Files() {
		rep.Files = append(rep.Files, f.Path)
	}
	return rep
}

// scan is the single forward pass over one file: tracker, classifier and
// token rules per token, then line rules, end-of-file events and file
// rules. It returns false when ctx is cancelled midway.
func (e *Engine) scan(ctx context.Context, f *source.File, content []byte, sink func(diag.Violation)) (*source.Facts, bool) {
	text := source.NewText(f.Path, f.Role, content)
	tr := tracker.New(f.Role == source.Header)
	facts := &source.Facts{Path: f.Path, Role: f.Role}
	c := rules.NewContext(text, tr, facts, e.rules, sink)

	for i, tok := range text.Tokens {
		if tok.Kind == token.EOF {
			break
		}
		if i%cancelEvery == 0 && ctx.Err() != nil {
			return nil, false
		}
		for _, ev := range tr.Step(tok) {
			e.rules.RunEvent(c, ev)
		}

		c.Class, c.Window = classify.Unclassifiable, classify.Window{}
		switch tok.Kind {
		case token.Ident:
			c.Window = classify.Window{
				Tok:        tok,
				Prev:       text.StatementPrev(i, windowSize),
				Next:       text.NextSigN(i, 3),
				InFunction: tr.InFunction(),
				FileScope:  tr.FileScope(),
				InTypedef:  tr.InTypedef(),
			}
			c.Class = classify.Classify(c.Window)
			if c.Class == classify.PublicFunction || c.Class == classify.PrivateFunction {
				if sig, ok := text.ParseSignature(i, c.Window.Prev); ok {
					facts.Signatures = append(facts.Signatures, sig)
				}
			}
		case token.Directive:
			if d := lexer.ParseDirective(tok.Text); d.Name == "include" {
				if path, quoted := d.IncludePath(); path != "" {
					facts.Includes = append(facts.Includes, source.Include{Path: path, Quoted: quoted, Tok: tok})
				}
			}
		}
		e.rules.RunToken(c, i)
	}

	c.Class, c.Window = classify.Unclassifiable, classify.Window{}
	for n, line := range text.Lines {
		e.rules.RunLine(c, n+1, line)
	}
	for _, ev := range tr.Finish(text.LastLine()) {
		e.rules.RunEvent(c, ev)
	}
	e.rules.RunFile(c)
	return facts, true
}

// Run checks units on a fixed pool of workers. Units not started before ctx
// is cancelled are reported as Cancelled. Units are ordered by their first
// file path, so the result does not depend on the order in which workers
// finish and reads in the same order as RunReport.Violations.
func (e *Engine) Run(ctx context.Context, units []source.Unit) *RunReport {
	tasks := make(chan source.Unit, len(units))
	results := make(chan UnitReport, len(units))
	var wg sync.WaitGroup

	for i := 0; i < min(e.workers, max(len(units), 1)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range tasks {
				if ctx.Err() != nil {
					results <- cancelled(u)
					continue
				}
				results <- e.Check(ctx, u)
			}
		}()
	}

	for _, u := range units {
		tasks <- u
	}
	close(tasks)

	wg.Wait()
	close(results)

	rep := &RunReport{Units: make([]UnitReport, 0, len(units))}
	for r := range results {
		rep.Units = append(rep.Units, r)
	}
	slices.SortFunc(rep.Units, func(a, b UnitReport) int {
		return cmp.Or(strings.Compare(firstPath(a), firstPath(b)),
			strings.Compare(a.Unit, b.Unit), slices.Compare(a.Files, b.Files))
	})
	return rep
}

// firstPath is the smallest path of r's files; "uart-dma.c" sorts before
// "uart.c" even though unit "uart" sorts before "uart-dma".
func firstPath(r UnitReport) string {
	if len(r.Files) == 0 {
		return r.Unit
	}
	return slices.Min(r.Files)
}
