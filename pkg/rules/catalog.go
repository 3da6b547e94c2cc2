package rules

import (
	"slices"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/diag"
)

const (
	catLexical = "lexical"
	catLayout  = "layout"
	catBraces  = "braces"
	catSpacing = "spacing"
	catNaming  = "naming"
	catHeader  = "header"
	catControl = "control"
	catTypes   = "types"
	catUnit    = "unit"
)

// catalog lists every rule in evaluation and reporting order.
var catalog = []*Spec{
	{ID: "lex-error", Category: catLexical, Severity: diag.Error, Default: true,
		Description: "Malformed string, character literal or comment.",
		Token:       lexErrorRule},
	{ID: "line-width", Category: catLayout, Severity: diag.Error, Default: true,
		Description: "Lines must not be longer than maxLineWidth bytes.",
		Line:        lineWidthRule},
	{ID: "tab-forbidden", Category: catLayout, Severity: diag.Error, Default: true,
		Description: "Tab characters are not allowed outside string and character literals.",
		Token:       tabRule},
	{ID: "trailing-whitespace", Category: catLayout, Severity: diag.Warning, Default: true,
		Description: "Lines must not end with blanks.",
		Line:        trailingWhitespaceRule},
	{ID: "eof-newline", Category: catLayout, Severity: diag.Warning, Default: true,
		Description: "Files must end with a newline.",
		File:        eofNewlineRule},
	{ID: "blank-lines", Category: catLayout, Severity: diag.Warning, Default: true,
		Description: "No more than max consecutive blank lines.",
		Params:      []Param{{Name: "max", Default: 2, Doc: "consecutive blank lines allowed"}},
		Line:        blankLinesRule},
	{ID: "indent-multiple", Category: catLayout, Severity: diag.Warning, Default: true,
		Description: "Statements are indented by a multiple of indentWidth.",
		Token:       indentRule},
	{ID: "brace-placement", Category: catBraces, Severity: diag.Error, Default: true,
		Description: "Opening braces of functions and control statements go on their own line; closing braces line up with them.",
		Token:       bracePlacementRule},
	{ID: "brace-required", Category: catBraces, Severity: diag.Warning, Default: true,
		Description: "Bodies of if, else, for, while, do and switch are always braced.",
		Token:       braceRequiredRule},
	{ID: "keyword-space", Category: catSpacing, Severity: diag.Warning, Default: true,
		Description: "One space between if/for/while/switch/return and the following parenthesis.",
		Token:       keywordSpaceRule},
	{ID: "comma-space", Category: catSpacing, Severity: diag.Warning, Default: true,
		Description: "No blank before a comma and exactly one after it.",
		Token:       commaSpaceRule},
	{ID: "space-around-operator", Category: catSpacing, Severity: diag.Warning, Default: true,
		Description: "Binary operators have exactly one space on each side.",
		Token:       operatorSpaceRule},
	{ID: "space-member-access", Category: catSpacing, Severity: diag.Warning, Default: true,
		Description: "No blanks around -> and the member-access dot.",
		Token:       memberAccessRule},
	{ID: "space-brackets", Category: catSpacing, Severity: diag.Warning, Default: true,
		Description: "No blanks before [ or inside the brackets.",
		Token:       bracketSpaceRule},
	{ID: "space-call-paren", Category: catSpacing, Severity: diag.Warning, Default: true,
		Description: "No blank between a function name and its argument list.",
		Token:       callParenRule},
	{ID: "macro-naming", Category: catNaming, Severity: diag.Error, Default: true,
		Description: "Macro names are upper case.",
		Token:       macroNamingRule},
	{ID: "type-naming", Category: catNaming, Severity: diag.Error, Default: true,
		Description: "Typedef names carry an s/e/u prefix and the _t suffix.",
		Token:       typeNamingRule},
	{ID: "global-naming", Category: catNaming, Severity: diag.Error, Default: true,
		Description: "Static file-scope variables begin with g.",
		Token:       globalNamingRule},
	{ID: "function-naming", Category: catNaming, Severity: diag.Warning, Default: true,
		Description: "Public function names match the configured pattern.",
		Token:       functionNamingRule},
	{ID: "static-function-naming", Category: catNaming, Severity: diag.Warning, Default: true,
		Description: "Static function names match the configured pattern.",
		Token:       staticFunctionNamingRule},
	{ID: "local-naming", Category: catNaming, Severity: diag.Warning, Default: true,
		Description: "Local variable names match the configured pattern.",
		Token:       localNamingRule},
	{ID: "missing-guard", Category: catHeader, Severity: diag.Error, Default: true, HeaderOnly: true,
		Description: "Headers are wrapped in #ifndef X / #define X / #endif.",
		Event:       missingGuardRule},
	{ID: "guard-naming", Category: catHeader, Severity: diag.Warning, Default: true, HeaderOnly: true,
		Description: "The guard macro is the file name in upper case, FOO_H for foo.h.",
		File:        guardNamingRule},
	{ID: "endif-comment", Category: catHeader, Severity: diag.Warning, Default: true, HeaderOnly: true,
		Description: "The closing #endif of the guard repeats the guard name in a comment.",
		File:        endifCommentRule},
	{ID: "cplusplus-linkage", Category: catHeader, Severity: diag.Warning, Default: true, HeaderOnly: true,
		Description: "Headers that declare functions wrap them in extern \"C\" for C++ callers.",
		File:        linkageRule},
	{ID: "file-banner", Category: catHeader, Severity: diag.Warning, Default: false,
		Description: "Files open with a comment block naming the file with @file.",
		File:        fileBannerRule},
	{ID: "fallthrough", Category: catControl, Severity: diag.Error, Default: true,
		Description: "A non-empty case ends in break, return, continue or goto, or is marked with a fallthrough comment.",
		Event:       fallthroughRule},
	{ID: "case-break-alignment", Category: catControl, Severity: diag.Warning, Default: true,
		Description: "break is indented one level past its case label.",
		Token:       caseBreakRule},
	{ID: "switch-default", Category: catControl, Severity: diag.Warning, Default: true,
		Description: "Every switch has a default label.",
		Event:       switchDefaultRule},
	{ID: "nesting-depth", Category: catControl, Severity: diag.Warning, Default: true,
		Description: "if statements nest at most max levels deep.",
		Params:      []Param{{Name: "max", Default: 2, Doc: "nesting levels allowed"}},
		Token:       nestingRule},
	{ID: "magic-number-in-loop", Category: catControl, Severity: diag.Warning, Default: true,
		Description: "Loop bounds are named constants, not numeric literals.",
		Params:      []Param{{Name: "allow", Default: "0,1", Doc: "comma separated literals that may appear"}},
		Token:       magicNumberRule},
	{ID: "goto-forbidden", Category: catControl, Severity: diag.Warning, Default: true,
		Description: "goto is not used.",
		Token:       gotoRule},
	{ID: "unsafe-function", Category: catControl, Severity: diag.Warning, Default: true,
		Description: "Unbounded library functions are replaced by their bounded variants.",
		Token:       unsafeFunctionRule},
	{ID: "signed-unsigned-mix", Category: catTypes, Severity: diag.Warning, Default: true,
		Description: "Binary expressions do not mix signed and unsigned operands.",
		Token:       signMixRule},
	{ID: "struct-packing", Category: catTypes, Severity: diag.Warning, Default: true,
		Description: "Structure members are ordered from largest to smallest to avoid padding.",
		Event:       structPackingRule},
	{ID: "header-include", Category: catUnit, Severity: diag.Warning, Default: true,
		Description: "A source file includes its own header.",
		Unit:        headerIncludeRule},
	{ID: "prototype-match", Category: catUnit, Severity: diag.Error, Default: true,
		Description: "Public function definitions match the prototype in their header.",
		Unit:        prototypeMatchRule},
	{ID: "prototype-missing", Category: catUnit, Severity: diag.Warning, Default: true,
		Description: "Public function definitions have a prototype in their header.",
		Unit:        prototypeMissingRule},
}

// Catalog returns every known rule in order.
func Catalog() []*Spec { return slices.Clone(catalog) }

func Lookup(id string) (*Spec, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}
