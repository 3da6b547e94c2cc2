package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/afero"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/cli"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/config"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/engine"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/report"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/rules"
)

var version = "dev"

const (
	exitClean = 0
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath   string
	maxLineWidth int
	indentWidth  int
	jobs         int
	format       string
	output       string
	noColor      bool
	verbose      bool
	listRules    bool
	warnings     []string
}

func newApp(o *options, stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp("cstyle")
	app.Synopsis = "[options] <file.c|file.h> ..."
	app.Description = "Checks C sources and headers against the embedded C coding style. " +
		"A .c file and the .h file with the same root name are checked together as one unit."
	app.Repository = "<https://github.com/mirzafahad/embedded-c-style-guide>"
	app.Stdout, app.Stderr = stdout, stderr

	fs := app.FlagSet
	fs.String(&o.configPath, "config", "c", "", "Read rule configuration from a .yaml or .toml file.", "file")
	fs.Int(&o.maxLineWidth, "max-line-width", "", config.DefaultMaxLineWidth, "Longest allowed line in bytes.", "n")
	fs.Int(&o.indentWidth, "indent-width", "", config.DefaultIndentWidth, "Indentation step in spaces.", "n")
	fs.Int(&o.jobs, "jobs", "j", runtime.NumCPU(), "Number of units checked in parallel.", "n")
	fs.String(&o.format, "format", "f", "text", "Report format: text, json or sarif.", "format")
	fs.String(&o.output, "output", "o", "-", "Write the report to <file>.", "file")
	fs.Bool(&o.noColor, "no-color", "", false, "Never colour the text report.")
	fs.Bool(&o.verbose, "verbose", "v", false, "Log progress to stderr.")
	fs.Bool(&o.listRules, "list-rules", "", false, "List the rules and exit.")
	fs.Special(&o.warnings, "W", "Enable or disable a rule", "rule")

	entries := make([]cli.FlagGroupEntry, 0, len(rules.Catalog()))
	for _, s := range rules.Catalog() {
		entries = append(entries, cli.FlagGroupEntry{Name: s.ID, Usage: s.Description, Enabled: s.Default})
	}
	fs.AddFlagGroup(cli.FlagGroup{
		Name:    "Rules",
		Prefix:  "W",
		Kind:    "rule",
		Header:  "Available rules (-Wall enables every rule):",
		Entries: entries,
	})
	return app
}

// buildConfig layers the configuration file, the numeric flags, CSTYLE_FLAGS
// and the -W flags, in that order.
func buildConfig(o *options, fs *cli.FlagSet) (*config.Config, error) {
	cfg := config.NewConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(afero.NewOsFs(), o.configPath); err != nil {
			return nil, err
		}
	}
	if fs.Lookup("max-line-width").Changed {
		cfg.MaxLineWidth = o.maxLineWidth
	}
	if fs.Lookup("indent-width").Changed {
		cfg.IndentWidth = o.indentWidth
	}
	if env := os.Getenv("CSTYLE_FLAGS"); env != "" {
		if err := cfg.ProcessFlagString(env); err != nil {
			return nil, fmt.Errorf("CSTYLE_FLAGS: %w", err)
		}
	}
	err := cfg.ProcessFlags(func(fn func(string)) {
		for _, w := range o.warnings {
			fn("W" + w)
		}
	})
	return cfg, err
}

func listRules(w io.Writer, rs *rules.RuleSet) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	severity := make(map[string]string)
	for _, a := range rs.Active() {
		severity[a.Spec.ID] = a.Severity.String()
	}
	for _, s := range rules.Catalog() {
		state := "off"
		if sev, ok := severity[s.ID]; ok {
			state = sev
		}
		scope := s.Category
		if s.HeaderOnly {
			scope += " (headers)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, state, scope, s.Description)
	}
	return tw.Flush()
}

func writeReport(o *options, rep *engine.RunReport, rs *rules.RuleSet, stdout io.Writer) (err error) {
	w := stdout
	if o.output != "-" {
		f, ferr := os.Create(o.output)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	switch o.format {
	case "json":
		return report.WriteJSON(w, rep)
	case "sarif":
		return report.WriteSARIF(w, rep, rs, version)
	}
	color := false
	if f, ok := w.(*os.File); ok && !o.noColor {
		color = report.ColorEnabled(f)
	}
	return report.WriteText(w, rep, report.TextOptions{Color: color, FS: afero.NewOsFs()})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var o options
	app := newApp(&o, stdout, stderr)
	code := exitClean

	app.Action = func(files []string) error {
		switch o.format {
		case "text", "json", "sarif":
		default:
			return fmt.Errorf("unknown format '%s' (want text, json or sarif)", o.format)
		}
		if o.jobs < 1 {
			return fmt.Errorf("--jobs must be at least 1, got %d", o.jobs)
		}

		cfg, err := buildConfig(&o, app.FlagSet)
		if err != nil {
			return err
		}
		rs, err := rules.Compile(cfg)
		if err != nil {
			return err
		}
		if o.listRules {
			return listRules(stdout, rs)
		}
		if len(files) == 0 {
			return errors.New("no input files")
		}

		log := slog.New(slog.DiscardHandler)
		if o.verbose {
			log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		log.Debug("run start", "files", len(files), "rules", len(rs.Active()), "jobs", o.jobs)

		rep := engine.New(rs, engine.WithWorkers(o.jobs), engine.WithLogger(log)).Run(ctx, engine.Units(files))
		if err := writeReport(&o, rep, rs, stdout); err != nil {
			return err
		}
		if ctx.Err() != nil {
			log.Warn("run interrupted", "err", context.Cause(ctx))
		}
		code = rep.ExitCode()
		return nil
	}

	err := app.Run(args)
	if err == nil {
		return code
	}
	// the app prints its own parse errors next to the usage page
	if usage := (*cli.UsageError)(nil); !errors.As(err, &usage) {
		fmt.Fprintf(stderr, "cstyle: error: %v\n", err)
	}
	return exitUsage
}
