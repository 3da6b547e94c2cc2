package lexer

import "strings"

// Directive is the shallow structure of a preprocessor line. Nothing is
// expanded or evaluated.
type Directive struct {
	Name      string // define, ifndef, include, ...
	Arg       string // first identifier, or the <...> / "..." operand of include
	ArgOffset int    // byte offset of Arg inside the directive text, -1 when absent
	Body      string // everything after Name with comments removed
	Comment   string // text of the first trailing comment, delimiters removed
}

func ParseDirective(text string) Directive {
	d := Directive{ArgOffset: -1}
	i := skipBlanks(text, 0)
	if i >= len(text) || text[i] != '#' {
		return d
	}
	i = skipBlanks(text, i+1)
	start := i
	for i < len(text) && isIdentChar(text[i]) {
		i++
	}
	d.Name = text[start:i]

	rest := text[i:]
	code, comment := splitComment(rest)
	d.Comment = comment
	d.Body = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(code, "\\\r\n", " "), "\\\n", " "))

	j := skipBlanks(text, i)
	if j >= i+len(code) {
		return d
	}
	switch {
	case d.Name == "include" && j < len(text) && (text[j] == '"' || text[j] == '<'):
		closer := byte('"')
		if text[j] == '<' {
			closer = '>'
		}
		if end := strings.IndexByte(text[j+1:], closer); end >= 0 {
			d.Arg = text[j : j+end+2]
			d.ArgOffset = j
		}
	case j < len(text) && isIdentStart(text[j]):
		k := j
		for k < len(text) && isIdentChar(text[k]) {
			k++
		}
		d.Arg = text[j:k]
		d.ArgOffset = j
	}
	return d
}

// IncludePath strips the delimiters from an include operand and reports
// whether it was the quoted (project) form.
func (d Directive) IncludePath() (path string, quoted bool) {
	if len(d.Arg) < 2 {
		return "", false
	}
	return d.Arg[1 : len(d.Arg)-1], d.Arg[0] == '"'
}

func skipBlanks(s string, i int) int {
	for i < len(s) {
		switch {
		case s[i] == ' ' || s[i] == '\t':
			i++
		case strings.HasPrefix(s[i:], "\\\n"):
			i += 2
		case strings.HasPrefix(s[i:], "\\\r\n"):
			i += 3
		default:
			return i
		}
	}
	return i
}

// splitComment separates code from the first comment, ignoring comment
// markers inside quotes.
func splitComment(s string) (code, comment string) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.HasPrefix(s[i:], "//"):
			return s[:i], strings.TrimSpace(s[i+2:])
		case strings.HasPrefix(s[i:], "/*"):
			body := s[i+2:]
			if end := strings.Index(body, "*/"); end >= 0 {
				body = body[:end]
			}
			return s[:i], strings.TrimSpace(body)
		}
	}
	return s, ""
}
