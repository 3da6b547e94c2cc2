package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type IndentState struct{ baseUnit uint8 }

func NewIndentState() *IndentState { return &IndentState{baseUnit: 4} }

func (is *IndentState) AtLevel(level int) string {
	return strings.Repeat(" ", int(is.baseUnit*uint8(level)))
}

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	val, err := strconv.ParseBool(s)
	if err != nil && s != "" {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val || s == ""
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer value '%s'", s)
	}
	*v.p = n
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }
func (v *intValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
	// Changed is set once the flag appears on the command line.
	Changed bool
}

// FlagGroup is a help-page listing of names accepted by a prefix flag,
// such as the rules behind -W.
type FlagGroup struct {
	Name    string
	Prefix  string
	Kind    string
	Header  string
	Entries []FlagGroupEntry
}

type FlagGroupEntry struct {
	Name    string
	Usage   string
	Enabled bool
}

type FlagSet struct {
	name          string
	flags         map[string]*Flag
	shorthands    map[string]*Flag
	specialPrefix map[string]*Flag
	args          []string
	flagGroups    []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:          name,
		flags:         make(map[string]*Flag),
		shorthands:    make(map[string]*Flag),
		specialPrefix: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, expectedType string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), expectedType)
}

// Special registers a prefix flag: every -<prefix>xyz argument appends xyz
// to p in command-line order.
func (f *FlagSet) Special(p *[]string, prefix, usage, expectedType string) {
	*p = []string{}
	f.Var(&listValue{p}, prefix, "", usage, "", expectedType)
	f.specialPrefix[prefix] = f.flags[prefix]
}

func (f *FlagSet) AddFlagGroup(g FlagGroup) {
	f.flagGroups = append(f.flagGroups, g)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

func (f *FlagSet) set(flag *Flag, value string) error {
	flag.Changed = true
	return flag.Value.Set(value)
}

// value sets flag from its inline argument or, for non-boolean flags, from
// the next command-line argument.
func (f *FlagSet) value(flag *Flag, display string, inline *string, arguments []string, i *int) error {
	if inline != nil {
		return f.set(flag, *inline)
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		return f.set(flag, "")
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: %s", display)
	}
	*i++
	return f.set(flag, arguments[*i])
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case strings.HasPrefix(arg, "--"):
			name, val, hasVal := strings.Cut(arg[2:], "=")
			if name == "" {
				return errors.New("empty flag name")
			}
			flag, ok := f.flags[name]
			if !ok {
				return fmt.Errorf("unknown flag: --%s", name)
			}
			var inline *string
			if hasVal {
				inline = &val
			}
			if err := f.value(flag, "--"+name, inline, arguments, &i); err != nil {
				return err
			}
		default:
			if err := f.parseShortFlag(arg, arguments, &i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FlagSet) parseShortFlag(arg string, arguments []string, i *int) error {
	name, val, hasVal := strings.Cut(arg[1:], "=")
	if flag, ok := f.flags[name]; ok && f.specialPrefix[name] == nil {
		var inline *string
		if hasVal {
			inline = &val
		}
		return f.value(flag, "-"+name, inline, arguments, i)
	}

	// longest prefix first so -Werror= is not swallowed by a shorter prefix
	prefixes := make([]string, 0, len(f.specialPrefix))
	for p := range f.specialPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(a, b int) bool { return len(prefixes[a]) > len(prefixes[b]) })
	for _, prefix := range prefixes {
		if strings.HasPrefix(arg, "-"+prefix) && len(arg) > len(prefix)+1 {
			return f.set(f.specialPrefix[prefix], arg[len(prefix)+1:])
		}
	}

	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown shorthand flag: -%s", shorthand)
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		if len(arg) > 2 {
			return fmt.Errorf("unknown flag: %s", arg)
		}
		return f.set(flag, "")
	}
	if value := arg[2:]; value != "" {
		return f.set(flag, strings.TrimPrefix(value, "="))
	}
	return f.value(flag, "-"+shorthand, nil, arguments, i)
}

// UsageError is returned by App.Run when the command line cannot be parsed.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error

	Stdout io.Writer
	Stderr io.Writer
	// Width of the help page; the terminal width when zero.
	Width int
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(a.Stderr, "%s: error: %v\n", a.Name, err)
		a.generateUsagePage(a.Stderr)
		return &UsageError{err}
	}
	if help {
		a.generateHelpPage(a.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) width() int {
	if a.Width > 0 {
		return a.Width
	}
	return getTerminalWidth()
}

func (a *App) generateUsagePage(w io.Writer) {
	var sb strings.Builder
	indent := NewIndentState()

	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	optionFlags := a.getOptionFlags()
	if len(optionFlags) > 0 {
		leftWidth, usageWidth := 0, 0
		for _, flag := range optionFlags {
			leftWidth = max(leftWidth, len(a.formatFlagString(flag)))
			usageWidth = max(usageWidth, len(flag.Usage))
		}
		fmt.Fprintf(&sb, "\n%sOptions\n", indent.AtLevel(1))
		for _, flag := range optionFlags {
			a.formatFlagLine(&sb, flag, indent, a.width(), leftWidth, usageWidth)
		}
	}
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	fmt.Fprint(w, sb.String())
}

func (a *App) generateHelpPage(w io.Writer) {
	var sb strings.Builder
	termWidth := a.width()
	indent := NewIndentState()

	leftWidth := a.calculateGlobalMaxWidth()
	usageWidth := 0
	optionFlags := a.getOptionFlags()
	for _, flag := range optionFlags {
		usageWidth = max(usageWidth, len(flag.Usage))
	}
	for _, group := range a.FlagSet.flagGroups {
		for _, entry := range group.Entries {
			usageWidth = max(usageWidth, len(entry.Usage))
		}
	}

	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\n%sCopyright (c): %s\n", indent.AtLevel(1), strings.Join(a.Authors, ", ")+" and contributors")
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indent.AtLevel(1), a.Repository)
	}
	if a.Synopsis != "" {
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indent.AtLevel(1), indent.AtLevel(2), a.Name, synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indent.AtLevel(1))
		for _, line := range wrapText(a.Description, termWidth-len(indent.AtLevel(2))) {
			fmt.Fprintf(&sb, "%s%s\n", indent.AtLevel(2), line)
		}
	}
	if len(optionFlags) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indent.AtLevel(1))
		for _, flag := range optionFlags {
			a.formatFlagLine(&sb, flag, indent, termWidth, leftWidth, usageWidth)
		}
	}
	for _, group := range a.FlagSet.flagGroups {
		a.formatFlagGroup(&sb, group, indent, termWidth, leftWidth, usageWidth)
	}
	fmt.Fprint(w, sb.String())
}

// getOptionFlags returns the ordinary flags sorted by name.
func (a *App) getOptionFlags() []*Flag {
	var optionFlags []*Flag
	for _, flag := range a.FlagSet.flags {
		if _, isSpecial := a.FlagSet.specialPrefix[flag.Name]; isSpecial {
			continue
		}
		optionFlags = append(optionFlags, flag)
	}
	sort.Slice(optionFlags, func(i, j int) bool { return optionFlags[i].Name < optionFlags[j].Name })
	return optionFlags
}

func groupForms(g FlagGroup) []string {
	return []string{
		fmt.Sprintf("-%s<%s>", g.Prefix, g.Kind),
		fmt.Sprintf("-%sno-<%s>", g.Prefix, g.Kind),
		fmt.Sprintf("-%serror=<%s>", g.Prefix, g.Kind),
	}
}

func (a *App) calculateGlobalMaxWidth() int {
	maxWidth := 0
	for _, flag := range a.getOptionFlags() {
		maxWidth = max(maxWidth, len(a.formatFlagString(flag)))
	}
	for _, group := range a.FlagSet.flagGroups {
		for _, form := range groupForms(group) {
			maxWidth = max(maxWidth, len(form))
		}
		for _, entry := range group.Entries {
			maxWidth = max(maxWidth, len(entry.Name))
		}
	}
	return maxWidth
}

func (a *App) formatFlagString(flag *Flag) string {
	var flagStr strings.Builder
	_, isBool := flag.Value.(*boolValue)

	if flag.Shorthand != "" {
		fmt.Fprintf(&flagStr, "-%s", flag.Shorthand)
		if !isBool {
			fmt.Fprintf(&flagStr, " <%s>", flag.ExpectedType)
		}
		fmt.Fprintf(&flagStr, ", --%s", flag.Name)
		if !isBool {
			fmt.Fprintf(&flagStr, " <%s>", flag.ExpectedType)
		}
	} else {
		fmt.Fprintf(&flagStr, "--%s", flag.Name)
		if !isBool && flag.ExpectedType != "" {
			fmt.Fprintf(&flagStr, "=%s", flag.ExpectedType)
		}
	}
	return flagStr.String()
}

func (a *App) formatEntry(sb *strings.Builder, indent *IndentState, termWidth int, leftPart, usagePart, rightPart string, leftWidth, usageWidth int) {
	indentStr := indent.AtLevel(2)
	maxFirstUsageWidth := max(termWidth-(len(indentStr)+leftWidth+3+len(rightPart)), 10)
	usageLines := wrapText(usagePart, maxFirstUsageWidth)

	firstUsageLine := ""
	if len(usageLines) > 0 {
		firstUsageLine = usageLines[0]
	}
	if rightPart != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indentStr, leftWidth, leftPart, min(usageWidth, maxFirstUsageWidth), firstUsageLine, rightPart)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indentStr, leftWidth, leftPart, firstUsageLine)
	}

	wrappedIndent := strings.Repeat(" ", leftWidth+1)
	for _, line := range usageLines[min(1, len(usageLines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", indentStr, wrappedIndent, line)
	}
}

func (a *App) formatFlagLine(sb *strings.Builder, flag *Flag, indent *IndentState, termWidth, leftWidth, usageWidth int) {
	rightPart := ""
	if flag.DefValue != "" && flag.DefValue != "false" && flag.DefValue != "[]" {
		if _, isBool := flag.Value.(*boolValue); !isBool {
			rightPart = fmt.Sprintf("|%s|", flag.DefValue)
		}
	}
	a.formatEntry(sb, indent, termWidth, a.formatFlagString(flag), flag.Usage, rightPart, leftWidth, usageWidth)
}

func (a *App) formatFlagGroup(sb *strings.Builder, group FlagGroup, indent *IndentState, termWidth, leftWidth, usageWidth int) {
	fmt.Fprintf(sb, "\n%s%s\n", indent.AtLevel(1), group.Name)
	forms := groupForms(group)
	fmt.Fprintf(sb, "%s%-*s Enable a specific %s\n", indent.AtLevel(2), leftWidth, forms[0], group.Kind)
	fmt.Fprintf(sb, "%s%-*s Disable a specific %s\n", indent.AtLevel(2), leftWidth, forms[1], group.Kind)
	fmt.Fprintf(sb, "%s%-*s Enable a %s and report it as an error\n", indent.AtLevel(2), leftWidth, forms[2], group.Kind)
	if group.Header != "" {
		fmt.Fprintf(sb, "%s%s\n", indent.AtLevel(1), group.Header)
	}

	entries := append([]FlagGroupEntry(nil), group.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, entry := range entries {
		rightPart := "|-|"
		if entry.Enabled {
			rightPart = "|x|"
		}
		a.formatEntry(sb, indent, termWidth, entry.Name, entry.Usage, rightPart, leftWidth, usageWidth)
	}
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range words {
		if currentLine.Len() > 0 && currentLine.Len()+len(word)+1 > maxWidth {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}
		if currentLine.Len() > 0 {
			currentLine.WriteByte(' ')
		}
		currentLine.WriteString(word)
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	return lines
}
