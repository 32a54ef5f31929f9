package versionscan

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Excluded reports whether name is rejected by any regex of the given filter list.
// Extensions may be passed with or without the leading dot.
func (r *Rules) Excluded(name string, cat FilterCategory) bool {
	var list = r.Filenames
	switch cat {
	case FilterFolder:
		list = r.Folders
	case FilterExtension:
		list = r.Extensions
		name = strings.TrimPrefix(name, ".")
	}
	for _, re := range list {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// ExcludedPath applies the folder filter to every directory component of a
// root-relative path and the ignore globs to the whole path.
func (r *Rules) ExcludedPath(rel string) bool {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || rel == "" {
		return false
	}
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if dir == ".." || dir == "." {
			continue
		}
		if r.Excluded(dir, FilterFolder) {
			return true
		}
	}
	return r.ignored(rel)
}

// excludedFile applies the extension and filename filters to a base name.
func (r *Rules) excludedFile(name string) bool {
	if ext := filepath.Ext(name); ext != "" && r.Excluded(ext, FilterExtension) {
		return true
	}
	return r.Excluded(name, FilterFilename)
}

func (r *Rules) ignored(rel string) bool {
	for _, g := range r.IgnoreGlobs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}
