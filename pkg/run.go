package versionscan

import (
	"path/filepath"

	"github.com/google/uuid"
)

// SearchRun owns the state of one scan: the candidate paths, the detections
// collected so far and whether the run was aborted.
type SearchRun struct {
	ID    string
	Root  string
	Paths PathSet

	FilesScanned int
	FilesSkipped int
	Unparseable  int

	matches []FileMatch
	seen    map[MatchKey]struct{}
	reason  string
	aborted bool
}

// NewSearchRun starts a run rooted at root, resolved to an absolute path.
func NewSearchRun(root string) *SearchRun {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &SearchRun{
		ID:    uuid.NewString(),
		Root:  abs,
		Paths: make(PathSet),
		seen:  make(map[MatchKey]struct{}),
	}
}

// Add records matches that were not seen before and reports how many were new.
func (r *SearchRun) Add(ms ...FileMatch) int {
	added := 0
	for _, m := range ms {
		k := m.Key()
		if _, ok := r.seen[k]; ok {
			continue
		}
		r.seen[k] = struct{}{}
		r.matches = append(r.matches, m)
		added++
	}
	return added
}

// Matches returns the collected detections in insertion order.
func (r *SearchRun) Matches() []FileMatch {
	return r.matches
}

// Abort stops the run. Only the first reason is kept.
func (r *SearchRun) Abort(reason string) {
	if r.aborted {
		return
	}
	r.aborted = true
	r.reason = reason
}

// Aborted reports whether Abort was called.
func (r *SearchRun) Aborted() bool {
	return r.aborted
}

// Reason returns the first abort reason, or "".
func (r *SearchRun) Reason() string {
	return r.reason
}

// ExitCode is 1 for an aborted run and 0 otherwise.
func (r *SearchRun) ExitCode() int {
	if r.aborted {
		return 1
	}
	return 0
}
