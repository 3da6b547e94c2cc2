package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type opts struct {
	output  string
	jobs    int
	verbose bool
	warn    []string
	files   []string
}

func newTestApp(o *opts) (*App, *bytes.Buffer, *bytes.Buffer) {
	app := NewApp("tool")
	app.Synopsis = "[options] <file> ..."
	app.Width = 100
	var stdout, stderr bytes.Buffer
	app.Stdout, app.Stderr = &stdout, &stderr

	fs := app.FlagSet
	fs.String(&o.output, "output", "o", "-", "Write the report to <file>.", "file")
	fs.Int(&o.jobs, "jobs", "j", 1, "Number of parallel checks.", "n")
	fs.Bool(&o.verbose, "verbose", "v", false, "Log progress to stderr.")
	fs.Special(&o.warn, "W", "Enable or disable a rule", "rule")
	fs.AddFlagGroup(FlagGroup{
		Name:   "Rules",
		Prefix: "W",
		Kind:   "rule",
		Header: "Available rules:",
		Entries: []FlagGroupEntry{
			{Name: "tab-forbidden", Usage: "Tab characters", Enabled: true},
			{Name: "file-banner", Usage: "File starts with a banner comment"},
		},
	})
	app.Action = func(args []string) error {
		o.files = args
		return nil
	}
	return app, &stdout, &stderr
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want opts
	}{
		{"defaults", []string{"a.c"}, opts{output: "-", jobs: 1, warn: []string{}, files: []string{"a.c"}}},
		{"long", []string{"--output", "r.json", "--jobs=4", "--verbose", "a.c"},
			opts{output: "r.json", jobs: 4, verbose: true, warn: []string{}, files: []string{"a.c"}}},
		{"short", []string{"-o", "r.json", "-j8", "-v", "a.c", "b.h"},
			opts{output: "r.json", jobs: 8, verbose: true, warn: []string{}, files: []string{"a.c", "b.h"}}},
		{"single dash long", []string{"-jobs", "2", "-output=x"}, opts{output: "x", jobs: 2, warn: []string{}, files: []string{}}},
		{"prefix", []string{"-Wall", "-Wno-tab-forbidden", "-Werror=goto-forbidden", "a.c"},
			opts{output: "-", jobs: 1, warn: []string{"all", "no-tab-forbidden", "error=goto-forbidden"}, files: []string{"a.c"}}},
		{"terminator", []string{"-v", "--", "-odd.c"}, opts{output: "-", jobs: 1, verbose: true, warn: []string{}, files: []string{"-odd.c"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got opts
			app, _, _ := newTestApp(&got)
			if err := app.Run(tt.args); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(opts{})); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--nope"},
		{"-x"},
		{"--jobs", "many"},
		{"--output"},
		{"-vq"},
	} {
		var o opts
		app, _, stderr := newTestApp(&o)
		err := app.Run(args)
		var usage *UsageError
		if !errors.As(err, &usage) {
			t.Errorf("%v: err = %v, want a usage error", args, err)
			continue
		}
		if !strings.HasPrefix(stderr.String(), "tool: error: ") || !strings.Contains(stderr.String(), "Usage: tool [options] <file> ...") {
			t.Errorf("%v: stderr = %q", args, stderr.String())
		}
	}
}

func TestChanged(t *testing.T) {
	var o opts
	app, _, _ := newTestApp(&o)
	if err := app.Run([]string{"-j", "1"}); err != nil {
		t.Fatal(err)
	}
	if !app.FlagSet.Lookup("jobs").Changed || app.FlagSet.Lookup("output").Changed {
		t.Error("Changed does not track the command line")
	}
}

func TestHelpPage(t *testing.T) {
	var o opts
	app, stdout, _ := newTestApp(&o)
	if err := app.Run([]string{"--help"}); err != nil {
		t.Fatal(err)
	}
	if o.files != nil {
		t.Error("action ran after --help")
	}
	page := stdout.String()
	for _, want := range []string{
		"    Synopsis\n        tool <options> <file> ...\n",
		"-o <file>, --output <file>",
		"|1|",
		"-W<rule>",
		"-Wno-<rule>",
		"-Werror=<rule>",
		"Available rules:",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("help page lacks %q:\n%s", want, page)
		}
	}
	banner := strings.Index(page, "file-banner")
	tab := strings.Index(page, "tab-forbidden")
	if banner < 0 || tab < banner {
		t.Errorf("rules not sorted:\n%s", page)
	}
	for _, line := range strings.Split(page, "\n") {
		if strings.Contains(line, "tab-forbidden") && !strings.HasSuffix(line, "|x|") {
			t.Errorf("enabled rule line %q", line)
		}
		if strings.Contains(line, "file-banner") && !strings.HasSuffix(line, "|-|") {
			t.Errorf("disabled rule line %q", line)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if diff := cmp.Diff([]string{"one two", "three", "four"}, got); diff != "" {
		t.Errorf("wrap (-want +got):\n%s", diff)
	}
	if got := wrapText("   ", 10); len(got) != 0 {
		t.Errorf("blank text wrapped to %q", got)
	}
}
