package versionscan

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Span is a half-open [Start, End) byte range within a line.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether s fully covers o.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && s.End >= o.End
}

// Intersects reports whether the two spans share at least one byte.
func (s Span) Intersects(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// FileMatch is one detected version or build-number occurrence.
type FileMatch struct {
	Path     string // absolute path of the file
	Ext      string // lower-case extension without the dot
	Encoding string // name of the encoding the file was decoded with
	Line     int    // 1-based line number
	Text     string // the full line, without its terminator
	Span     Span
	Kind     DetectionKind
	PrevLine string // "" when unavailable
	NextLine string // "" when unavailable
	Original string // matched text before any bump was applied

	canonical *ParseResult
}

// MatchKey identifies a FileMatch for deduplication and bucketing.
type MatchKey struct {
	Path  string
	Line  int
	Start int
	End   int
	Text  string
	Kind  DetectionKind
}

// Key returns the value-comparable identity of the match. Paths compare case-insensitively.
func (m FileMatch) Key() MatchKey {
	return MatchKey{
		Path:  strings.ToLower(m.Path),
		Line:  m.Line,
		Start: m.Span.Start,
		End:   m.Span.End,
		Text:  m.Text,
		Kind:  m.Kind,
	}
}

// bucketKey groups matches that live on the same line of the same file.
type bucketKey struct {
	path string
	line int
}

func (m FileMatch) bucket() bucketKey {
	return bucketKey{path: strings.ToLower(m.Path), line: m.Line}
}

// Matched returns the substring of the line covered by the span.
func (m FileMatch) Matched() string {
	if m.Kind == KindUnknown || m.Span.Start < 0 || m.Span.End > len(m.Text) || m.Span.Start > m.Span.End {
		return ""
	}
	return m.Text[m.Span.Start:m.Span.End]
}

// Filename returns the base name of the file.
func (m FileMatch) Filename() string {
	return filepath.Base(m.Path)
}

// Canonical returns the canonical version of the matched text, computing it once.
func (m *FileMatch) Canonical() ParseResult {
	if m.canonical == nil {
		r := Canonicalize(m.Matched())
		m.canonical = &r
	}
	return *m.canonical
}

func (m FileMatch) String() string {
	return fmt.Sprintf("%s:%d [%d,%d) %s %q", m.Filename(), m.Line, m.Span.Start, m.Span.End, m.Kind, m.Matched())
}

// extOf returns the lower-case extension of path without its leading dot.
func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
