package versionscan

import "errors"

var (
	// ErrNoFiles is returned when the walk yields no file worth reading.
	ErrNoFiles = errors.New("no eligible files found")
	// ErrNoMatches is returned when no file holds a version or build number.
	ErrNoMatches = errors.New("no version detected")
	// ErrAmbiguous is returned when detections disagree and nobody picked one.
	ErrAmbiguous = errors.New("ambiguous version")
	// ErrNotApproved is returned when the rewrite was declined.
	ErrNotApproved = errors.New("changes not approved")
	// ErrInvalidPart is returned for an unknown bump part.
	ErrInvalidPart = errors.New("invalid version part")
)
