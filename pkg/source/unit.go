package source

import (
	"path/filepath"
	"slices"
	"strings"
)

// Unit is a header/source pair sharing a root name. Either side may be nil.
type Unit struct {
	Name   string
	Header *File
	Source *File
}

// Files returns the unit's files, header first.
func (u Unit) Files() []*File {
	var out []*File
	if u.Header != nil {
		out = append(out, u.Header)
	}
	if u.Source != nil {
		out = append(out, u.Source)
	}
	return out
}

// RootName strips the directory-relative extension: src/foo.c -> src/foo.
func RootName(path string) string {
	return strings.TrimSuffix(filepath.Clean(path), filepath.Ext(path))
}

// Pair groups files into units by directory and root name. A second file
// with the same role and root becomes a unit of its own, named after its
// full path. Units come back sorted by name.
func Pair(files []*File) []Unit {
	byName := make(map[string]*Unit)
	var order []string
	add := func(name string) *Unit {
		u, ok := byName[name]
		if !ok {
			u = &Unit{Name: name}
			byName[name] = u
			order = append(order, name)
		}
		return u
	}
	for _, f := range files {
		if f == nil {
			continue
		}
		u := add(RootName(f.Path))
		slot := &u.Source
		if f.Role == Header {
			slot = &u.Header
		}
		if *slot != nil {
			u = add(filepath.Clean(f.Path))
			slot = &u.Source
			if f.Role == Header {
				slot = &u.Header
			}
		}
		*slot = f
	}
	units := make([]Unit, 0, len(order))
	for _, name := range order {
		units = append(units, *byName[name])
	}
	slices.SortFunc(units, func(a, b Unit) int { return strings.Compare(a.Name, b.Name) })
	return units
}

// FromPaths builds files from paths, deriving each role from the extension.
func FromPaths(paths []string) []*File {
	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		files = append(files, &File{Path: p, Role: RoleOf(p)})
	}
	return files
}
