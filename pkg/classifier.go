package versionscan

import (
	"strings"
	"unicode/utf8"
)

var commentOnly = map[string]bool{
	"//":  true,
	"///": true,
	"#":   true,
	"##":  true,
	"{":   true,
	"}":   true,
}

// IsEligible reports whether a line is worth matching against.
func (r *Rules) IsEligible(line string) bool {
	stripped := strings.TrimSpace(line)
	n := utf8.RuneCountInString(stripped)
	if n < r.MinLineLen || n > r.MaxLineLen {
		return false
	}
	return !commentOnly[stripped]
}

// IsValidContext applies the veto tables for cat, plus the ones for every category,
// to a candidate span of cur. Empty prev or next lines never veto.
func (r *Rules) IsValidContext(span Span, prev, cur, next string, cat FileCategory) bool {
	cats := []FileCategory{CategoryAny}
	if cat != CategoryAny {
		cats = append(cats, cat)
	}
	for _, c := range cats {
		if prev != "" {
			for _, re := range r.PrevLine[c] {
				if re.MatchString(prev) {
					return false
				}
			}
		}
		for _, re := range r.Overlap[c] {
			for _, loc := range re.FindAllStringIndex(cur, -1) {
				if span.Intersects(Span{Start: loc[0], End: loc[1]}) {
					return false
				}
			}
		}
		if next != "" {
			for _, re := range r.NextLine[c] {
				if re.MatchString(next) {
					return false
				}
			}
		}
		for _, sp := range r.InLine[c] {
			if sp.Re.MatchString(scoped(cur, span, sp.Scope)) {
				return false
			}
		}
	}
	return true
}

func scoped(line string, span Span, scope LineScope) string {
	switch scope {
	case ScopeBefore:
		if span.Start >= 0 && span.Start <= len(line) {
			return line[:span.Start]
		}
	case ScopeAfter:
		if span.End >= 0 && span.End <= len(line) {
			return line[span.End:]
		}
	}
	return line
}
