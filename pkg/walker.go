package versionscan

import (
	"os"
	"path/filepath"
	"sort"
)

const (
	// DefaultMaxDepth is how many directory levels below the root are listed.
	DefaultMaxDepth = 6
	// MaxRecursionDepth caps any configured depth.
	MaxRecursionDepth = 16
)

// PathSet is a set of absolute file paths.
type PathSet map[string]struct{}

// Add inserts p.
func (s PathSet) Add(p string) {
	s[p] = struct{}{}
}

// Has reports whether p is in the set.
func (s PathSet) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the paths in lexical order.
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Enumerate lists candidate files below root and any extra roots. An extra
// root that is a file is added directly; an extra directory is walked with the
// same depth budget as root. Directories that cannot be read are skipped.
func Enumerate(root string, extraRoots []string, maxDepth int, rules *Rules) PathSet {
	if rules == nil {
		rules = DefaultRules()
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxDepth > MaxRecursionDepth {
		maxDepth = MaxRecursionDepth
	}
	set := make(PathSet)
	w := walker{rules: rules, maxDepth: maxDepth, set: set}

	if abs, err := filepath.Abs(root); err == nil {
		w.base = abs
		w.walk(abs, 0)
	}
	for _, extra := range extraRoots {
		abs, err := filepath.Abs(extra)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			set.Add(abs)
			continue
		}
		w.walk(abs, 0)
	}
	return set
}

type walker struct {
	rules    *Rules
	maxDepth int
	base     string
	set      PathSet
}

func (w *walker) walk(dir string, depth int) {
	if depth > w.maxDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var subdirs []string
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if !w.rules.Excluded(e.Name(), FilterFolder) && !w.rules.ignored(w.rel(full)) {
				subdirs = append(subdirs, full)
			}
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		if w.rules.excludedFile(e.Name()) || w.rules.ignored(w.rel(full)) {
			continue
		}
		w.set.Add(full)
	}
	sort.Strings(subdirs)
	for _, sub := range subdirs {
		w.walk(sub, depth+1)
	}
}

func (w *walker) rel(full string) string {
	if w.base == "" {
		return filepath.Base(full)
	}
	rel, err := filepath.Rel(w.base, full)
	if err != nil {
		return filepath.Base(full)
	}
	return filepath.ToSlash(rel)
}
