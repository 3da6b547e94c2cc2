package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/diag"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/engine"
)

const (
	cRed    = "\033[31m"
	cYellow = "\033[33m"
	cGreen  = "\033[32m"
	cBold   = "\033[1m"
	cNone   = "\033[0m"
)

// TextOptions controls WriteText. Source lines are quoted under each
// violation when FS is set.
type TextOptions struct {
	Color bool
	FS    afero.Fs
}

// ColorEnabled reports whether f is a terminal and NO_COLOR is unset.
func ColorEnabled(f *os.File) bool {
	return os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(f.Fd()))
}

type textWriter struct {
	w     *bufio.Writer
	opts  TextOptions
	lines map[string][]string
}

func (t *textWriter) paint(code, s string) string {
	if !t.opts.Color {
		return s
	}
	return code + s + cNone
}

// sourceLine returns line n of path, reading each file at most once.
func (t *textWriter) sourceLine(path string, n int) (string, bool) {
	if t.opts.FS == nil {
		return "", false
	}
	lines, ok := t.lines[path]
	if !ok {
		data, err := afero.ReadFile(t.opts.FS, path)
		if err == nil {
			lines = strings.Split(string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))), "\n")
		}
		t.lines[path] = lines
	}
	if n < 1 || n > len(lines) {
		return "", false
	}
	return lines[n-1], true
}

func (t *textWriter) violation(v diag.Violation) {
	level := t.paint(cYellow, "warning:")
	if v.Severity == diag.Error {
		level = t.paint(cRed, "error:")
	}
	fmt.Fprintf(t.w, "%s:%d:%d: %s %s [%s]\n", v.File, v.Line, v.Column, level, v.Message, v.RuleID)

	line, ok := t.sourceLine(v.File, v.Line)
	if !ok {
		return
	}
	fmt.Fprintf(t.w, "  %s\n", line)
	// tabs keep their width so the caret stays under the column
	pad := []byte(line[:max(min(v.Column-1, len(line)), 0)])
	for i, ch := range pad {
		if ch != '\t' {
			pad[i] = ' '
		}
	}
	pad = append(pad, bytes.Repeat([]byte{' '}, max(v.Column-1-len(pad), 0))...)
	fmt.Fprintf(t.w, "  %s%s\n", pad, t.paint(cGreen, "^"))
}

// WriteText prints violations compiler style ordered by file and position,
// followed by read errors, cancelled units and a summary line.
func WriteText(w io.Writer, rep *engine.RunReport, opts TextOptions) error {
	t := &textWriter{w: bufio.NewWriter(w), opts: opts, lines: make(map[string][]string)}
	var errs, warns, failed int
	for _, v := range rep.Violations() {
		t.violation(v)
		if v.Severity == diag.Error {
			errs++
		} else {
			warns++
		}
	}
	for _, u := range rep.Units {
		for _, e := range u.Errors {
			fmt.Fprintf(t.w, "%s: %s %v\n", e.Path, t.paint(cRed, "error:"), e.Err)
		}
		if u.Status == engine.Cancelled {
			fmt.Fprintf(t.w, "%s: %s\n", u.Unit, t.paint(cYellow, "cancelled"))
		}
		if !u.Passed() {
			failed++
		}
	}

	summary := fmt.Sprintf("%d units checked, %d failed: %d errors, %d warnings", len(rep.Units), failed, errs, warns)
	if failed == 0 {
		fmt.Fprintln(t.w, t.paint(cBold+cGreen, summary))
	} else {
		fmt.Fprintln(t.w, t.paint(cBold+cRed, summary))
	}
	return t.w.Flush()
}
