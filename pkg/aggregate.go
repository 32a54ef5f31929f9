package versionscan

import (
	"fmt"
	"sort"
)

// DecisionKind tells how the project version was agreed on.
type DecisionKind int

const (
	DecisionNone DecisionKind = iota
	DecisionForced
	DecisionDetected
	DecisionAmbiguous
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionForced:
		return "forced"
	case DecisionDetected:
		return "detected"
	case DecisionAmbiguous:
		return "ambiguous"
	default:
		return "none"
	}
}

// Candidate is one distinct canonical version with the detections that produced it.
type Candidate struct {
	Version CanonicalVersion
	Count   int
	Matches []FileMatch
}

// Decision is the outcome of aggregating every detection of a run.
type Decision struct {
	Kind        DecisionKind
	Version     CanonicalVersion
	Candidates  []Candidate // ranked by count, then version, both descending
	Unparseable int
	Total       int // detections after deduplication
}

// Decide agrees on one version for the whole project. A forced version that
// parses wins outright; otherwise the canonical version seen most often wins,
// and a tie for first place (or nothing parseable) is ambiguous.
func Decide(matches []FileMatch, forced string) Decision {
	var d Decision
	seen := make(map[MatchKey]bool, len(matches))
	byVersion := make(map[[5]string]*Candidate)
	var order [][5]string
	for _, m := range matches {
		k := m.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		d.Total++
		res := m.Canonical()
		if !res.Ok() {
			d.Unparseable++
			continue
		}
		key := res.Version.Key()
		c, ok := byVersion[key]
		if !ok {
			c = &Candidate{Version: res.Version}
			byVersion[key] = c
			order = append(order, key)
		}
		c.Count++
		c.Matches = append(c.Matches, m)
	}
	for _, k := range order {
		d.Candidates = append(d.Candidates, *byVersion[k])
	}
	sort.SliceStable(d.Candidates, func(i, j int) bool {
		a, b := d.Candidates[i], d.Candidates[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Version.Compare(b.Version) > 0
	})

	if forced != "" {
		if v, err := ParseVersion(forced); err == nil {
			d.Kind = DecisionForced
			d.Version = v
			return d
		}
	}
	switch {
	case d.Total == 0:
		d.Kind = DecisionNone
	case len(d.Candidates) == 0:
		d.Kind = DecisionAmbiguous
	case len(d.Candidates) == 1 || d.Candidates[0].Count > d.Candidates[1].Count:
		d.Kind = DecisionDetected
		d.Version = d.Candidates[0].Version
	default:
		d.Kind = DecisionAmbiguous
	}
	return d
}

// Resolve returns the agreed version, asking ch when the decision is ambiguous.
func (d Decision) Resolve(ch Chooser) (CanonicalVersion, error) {
	switch d.Kind {
	case DecisionForced, DecisionDetected:
		return d.Version, nil
	case DecisionNone:
		return CanonicalVersion{}, ErrNoMatches
	}
	if ch == nil || len(d.Candidates) == 0 {
		return CanonicalVersion{}, fmt.Errorf("%w: %d candidates, %d unparseable", ErrAmbiguous, len(d.Candidates), d.Unparseable)
	}
	v, err := ch.Choose(d.Candidates)
	if err != nil {
		return CanonicalVersion{}, fmt.Errorf("%w: %v", ErrAmbiguous, err)
	}
	return v, nil
}
