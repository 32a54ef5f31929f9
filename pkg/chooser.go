package versionscan

import (
	"errors"
	"fmt"
)

// Chooser picks one version out of ranked, disagreeing candidates.
type Chooser interface {
	Choose(candidates []Candidate) (CanonicalVersion, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func([]Candidate) (CanonicalVersion, error)

func (f ChooserFunc) Choose(c []Candidate) (CanonicalVersion, error) {
	return f(c)
}

// Approver confirms a rewrite before anything is written.
type Approver interface {
	Approve(from, to CanonicalVersion, targets []FileMatch) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(from, to CanonicalVersion, targets []FileMatch) (bool, error)

func (f ApproverFunc) Approve(from, to CanonicalVersion, targets []FileMatch) (bool, error) {
	return f(from, to, targets)
}

// AutoApprove approves everything.
var AutoApprove = ApproverFunc(func(CanonicalVersion, CanonicalVersion, []FileMatch) (bool, error) {
	return true, nil
})

// GitTagChooser prefers the candidate equal to the latest git tag of Dir,
// comparing without build metadata. When no candidate matches it defers to
// Fallback, if any.
type GitTagChooser struct {
	Dir      string
	Fallback Chooser
}

func (g GitTagChooser) Choose(candidates []Candidate) (CanonicalVersion, error) {
	repo, err := LocateGitDir(g.Dir)
	if err == nil {
		var tag string
		if tag, err = LatestTag(repo); err == nil {
			var tagged CanonicalVersion
			if tagged, err = ParseVersion(tag); err == nil {
				for _, c := range candidates {
					if c.Version.semverString() == tagged.semverString() {
						return c.Version, nil
					}
				}
				err = fmt.Errorf("no candidate matches tag %s", tag)
			}
		}
	}
	if g.Fallback != nil {
		return g.Fallback.Choose(candidates)
	}
	return CanonicalVersion{}, errors.Join(errors.New("git tag does not settle the version"), err)
}
