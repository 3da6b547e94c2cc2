package rules

import (
	"path/filepath"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/token"
)

var fileStart = token.Token{Line: 1, Column: 1}

func headerIncludeRule(u *UnitContext) {
	if u.Header == nil || u.Source == nil {
		return
	}
	base := filepath.Base(u.Header.Path)
	for _, inc := range u.Source.Includes {
		if inc.Quoted && filepath.Base(inc.Path) == base {
			return
		}
	}
	u.Report(u.Source.Path, fileStart, "%s does not include its header %s", filepath.Base(u.Source.Path), base)
}

func prototypeMatchRule(u *UnitContext) {
	if u.Header == nil || u.Source == nil {
		return
	}
	protos := u.Header.Prototypes()
	for _, s := range u.Source.Signatures {
		if !s.Definition || s.Static {
			continue
		}
		p, ok := protos[s.Name.Text]
		if !ok || s.Same(p) {
			continue
		}
		u.Report(u.Source.Path, s.Name, "definition %s does not match the prototype %s at %s:%d",
			s, p, filepath.Base(u.Header.Path), p.Name.Line)
	}
}

func prototypeMissingRule(u *UnitContext) {
	if u.Header == nil || u.Source == nil {
		return
	}
	protos := u.Header.Prototypes()
	for _, s := range u.Source.Signatures {
		if !s.Definition || s.Static || s.Name.Text == "main" {
			continue
		}
		if _, ok := protos[s.Name.Text]; !ok {
			u.Report(u.Source.Path, s.Name, "public function %s has no prototype in %s",
				s.Name.Text, filepath.Base(u.Header.Path))
		}
	}
}
