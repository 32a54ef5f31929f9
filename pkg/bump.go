package versionscan

import (
	"fmt"
	"strconv"
	"strings"
)

// Part names the component of a version that a bump increments.
type Part int

const (
	PartBuild Part = iota
	PartPatch
	PartMinor
	PartMajor
)

var partNames = map[Part]string{
	PartBuild: "build",
	PartPatch: "patch",
	PartMinor: "minor",
	PartMajor: "major",
}

func (p Part) String() string {
	return partNames[p]
}

// ParsePart accepts major, minor, patch or build. An empty string means build.
func ParsePart(s string) (Part, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PartBuild, nil
	}
	for p, name := range partNames {
		if name == s {
			return p, nil
		}
	}
	return PartBuild, fmt.Errorf("%w: %q (want major, minor, patch or build)", ErrInvalidPart, s)
}

// Bump increments one part of v. Major, minor and patch bumps reset the lower
// parts, clear the prerelease and zero a non-empty build. A build bump
// increments the last numeric build identifier, or starts the build at 1.
func Bump(v CanonicalVersion, part Part) (CanonicalVersion, error) {
	switch part {
	case PartMajor:
		v.Major++
		v.Minor = 0
		v.Patch = 0
		v.Prerelease = ""
		v.Build = zeroBuild(v.Build)
	case PartMinor:
		v.Minor++
		v.Patch = 0
		v.Prerelease = ""
		v.Build = zeroBuild(v.Build)
	case PartPatch:
		v.Patch++
		v.Prerelease = ""
		v.Build = zeroBuild(v.Build)
	case PartBuild:
		if v.Build == "" {
			v.Build = "1"
			break
		}
		parts := strings.Split(v.Build, ".")
		last := len(parts) - 1
		n, err := strconv.ParseUint(parts[last], 10, 64)
		if err != nil {
			return v, fmt.Errorf("build metadata %q does not end in a number", v.Build)
		}
		parts[last] = strconv.FormatUint(n+1, 10)
		v.Build = strings.Join(parts, ".")
	default:
		return v, fmt.Errorf("%w: %d", ErrInvalidPart, int(part))
	}
	return v, nil
}

func zeroBuild(b string) string {
	if b == "" {
		return ""
	}
	return "0"
}

// NextVersion bumps current by part, unless exact is set, in which case exact is returned as given.
func NextVersion(current CanonicalVersion, part Part, exact string) (CanonicalVersion, error) {
	if exact != "" {
		return ParseVersion(exact)
	}
	return Bump(current, part)
}
