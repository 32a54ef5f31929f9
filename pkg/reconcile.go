package versionscan

// Resolve removes detections that lose to an overlapping detection on the
// same line of the same file. Every intersecting pair is compared, including
// pairs whose members already lost elsewhere, and the survivors are the
// detections that never lost. Survivors keep their input order, and no two
// survivors on one line overlap, so Resolve(Resolve(m)) == Resolve(m).
func Resolve(matches []FileMatch) []FileMatch {
	buckets := make(map[bucketKey][]int)
	for i, m := range matches {
		k := m.bucket()
		buckets[k] = append(buckets[k], i)
	}

	defeated := make([]bool, len(matches))
	for _, idx := range buckets {
		if len(idx) < 2 {
			continue
		}
		for x := 0; x < len(idx); x++ {
			i := idx[x]
			for y := x + 1; y < len(idx); y++ {
				j := idx[y]
				a, b := matches[i], matches[j]
				if a.Key() != b.Key() && !a.Span.Intersects(b.Span) {
					continue
				}
				if Keep(a, b) {
					defeated[j] = true
				} else {
					defeated[i] = true
				}
			}
		}
	}

	out := make([]FileMatch, 0, len(matches))
	for i, m := range matches {
		if !defeated[i] {
			out = append(out, m)
		}
	}
	return out
}

// Keep reports whether a survives against b. Containment decides first;
// otherwise the longer matched text, the longer original text, the higher
// kind rank and the earlier start win, in that order. A full tie keeps a.
func Keep(a, b FileMatch) bool {
	if a.Key() != b.Key() && a.Span != b.Span {
		if a.Span.Contains(b.Span) {
			return true
		}
		if b.Span.Contains(a.Span) {
			return false
		}
	}
	if la, lb := len(a.Matched()), len(b.Matched()); la != lb {
		return la > lb
	}
	if la, lb := len(a.Original), len(b.Original); la != lb {
		return la > lb
	}
	if ra, rb := a.Kind.Rank(), b.Kind.Rank(); ra != rb {
		return ra > rb
	}
	if a.Span.Start != b.Span.Start {
		return a.Span.Start < b.Span.Start
	}
	return true
}
