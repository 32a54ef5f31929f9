package versionscan

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxBuildNr is the exclusive upper bound for decimal build numbers.
const MaxBuildNr = 9999

// Match runs each pattern once against line, in order, and returns the
// accepted detections keyed by matched text (or "no_caps|<regex>|<group>"
// for patterns without named groups). With stopOnFirst it returns after the
// first pattern that produced anything.
func Match(line string, patterns []*Pattern, caseSensitive, stopOnFirst bool) map[string]FileMatch {
	return matchLine(line, patterns, caseSensitive, stopOnFirst, NopLogger{})
}

func matchLine(line string, patterns []*Pattern, caseSensitive, stopOnFirst bool, log Logger) map[string]FileMatch {
	found := make(map[string]FileMatch)
	for _, p := range patterns {
		re := p.Regexp(caseSensitive)
		loc := re.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		before := len(found)
		if p.Named() {
			span, kind, ok := classifyNamed(line, re.SubexpNames(), loc, log)
			if ok {
				span = validateSpan(line, span)
				text := line[span.Start:span.End]
				found[text] = FileMatch{Text: line, Span: span, Kind: kind, Original: text}
			}
		} else {
			addUnnamed(found, line, p, loc)
		}
		if stopOnFirst && len(found) > before {
			return found
		}
	}
	return found
}

func addUnnamed(found map[string]FileMatch, line string, p *Pattern, loc []int) {
	groups := len(loc)/2 - 1
	hit := false
	for i := 1; i <= groups; i++ {
		s, e := loc[2*i], loc[2*i+1]
		if s < 0 || e <= s {
			continue
		}
		hit = true
		span := validateSpan(line, Span{Start: s, End: e})
		found[fmt.Sprintf("no_caps|%s|%d", p.Source, i)] = FileMatch{
			Text: line, Span: span, Kind: KindNoCaps, Original: line[span.Start:span.End],
		}
	}
	if !hit && groups == 0 && loc[1] > loc[0] {
		span := validateSpan(line, Span{Start: loc[0], End: loc[1]})
		found[fmt.Sprintf("no_caps|%s|0", p.Source)] = FileMatch{
			Text: line, Span: span, Kind: KindNoCaps, Original: line[span.Start:span.End],
		}
	}
}

// classifyNamed picks the detection kind from the first named group that participated.
func classifyNamed(line string, names []string, loc []int, log Logger) (Span, DetectionKind, bool) {
	first := -1
	for i := 1; i < len(names); i++ {
		if names[i] != "" && loc[2*i] >= 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return Span{}, KindUnknown, false
	}
	name := names[first]
	span := Span{Start: loc[2*first], End: loc[2*first+1]}
	text := line[span.Start:span.End]

	switch {
	case strings.HasPrefix(name, "semver"):
		got := map[string]bool{}
		union := Span{Start: -1}
		for i := 1; i < len(names); i++ {
			if !strings.HasPrefix(names[i], "semver") || loc[2*i] < 0 {
				continue
			}
			got[names[i]] = true
			if union.Start < 0 || loc[2*i] < union.Start {
				union.Start = loc[2*i]
			}
			if loc[2*i+1] > union.End {
				union.End = loc[2*i+1]
			}
		}
		if !got["semver_major"] || !got["semver_minor"] || !got["semver_patch"] {
			log.Debugf("dropping %q: semver needs major, minor and patch", text)
			return Span{}, KindUnknown, false
		}
		return union, KindSemver, union.Len() > 0
	case name == "build_nr_hex":
		if len(text) < 3 || !strings.EqualFold(text[:2], "0x") {
			log.Debugf("dropping %q: hex build number without 0x prefix", text)
			return Span{}, KindUnknown, false
		}
		return span, KindBuildNrHex, true
	case strings.HasPrefix(name, "build_nr"):
		if reason := checkDecimalBuild(text); reason != "" {
			log.Debugf("dropping %q: %s", text, reason)
			return Span{}, KindUnknown, false
		}
		return span, KindBuildNr, true
	}
	return Span{}, KindUnknown, false
}

func checkDecimalBuild(text string) string {
	whole, frac, hasFrac := strings.Cut(text, ".")
	if hasFrac && frac != "0" && frac != "00" {
		return "fraction must be .0 or .00"
	}
	n, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return "not a decimal number"
	}
	if n >= MaxBuildNr {
		return fmt.Sprintf("exceeds %d", MaxBuildNr-1)
	}
	return ""
}

// validateSpan narrows a span to its content without surrounding punctuation,
// as long as the trimmed text keeps most of the original.
func validateSpan(line string, span Span) Span {
	text := line[span.Start:span.End]
	trimmed := strings.Trim(text, asciiPunct+" \t")
	n := len(text)
	if trimmed == "" || len(trimmed) >= n {
		return span
	}
	if len(trimmed) <= max(n/2, n-4, 1) {
		return span
	}
	off := strings.Index(text, trimmed)
	return Span{Start: span.Start + off, End: span.Start + off + len(trimmed)}
}
