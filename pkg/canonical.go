package versionscan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blang/semver"
	modsemver "golang.org/x/mod/semver"
)

// MaxSemverLen is the longest text considered for canonicalization.
const MaxSemverLen = 128

// asciiPunct mirrors the punctuation set that surrounds versions in prose and code.
const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// CanonicalVersion is the normalized form every detection is reduced to.
// A bare build number is (0,0,0,"",build).
type CanonicalVersion struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string
	Build      string
}

// ParseStatus distinguishes a parsed version from text that looked like one but was not.
type ParseStatus int

const (
	ParseNotApplicable ParseStatus = iota
	ParseParsed
	ParseMalformed
)

func (s ParseStatus) String() string {
	switch s {
	case ParseParsed:
		return "parsed"
	case ParseMalformed:
		return "malformed"
	default:
		return "not-applicable"
	}
}

// ParseResult is the outcome of canonicalizing a piece of text.
type ParseResult struct {
	Status  ParseStatus
	Version CanonicalVersion
	Reason  string
}

// Ok reports whether the result carries a usable version.
func (r ParseResult) Ok() bool {
	return r.Status == ParseParsed
}

func parsed(v CanonicalVersion) ParseResult {
	return ParseResult{Status: ParseParsed, Version: v}
}

func malformed(format string, args ...any) ParseResult {
	return ParseResult{Status: ParseMalformed, Reason: fmt.Sprintf(format, args...)}
}

func notApplicable(reason string) ParseResult {
	return ParseResult{Status: ParseNotApplicable, Reason: reason}
}

// BuildOnly returns the canonical form of a standalone build number.
func BuildOnly(build uint64) CanonicalVersion {
	return CanonicalVersion{Build: strconv.FormatUint(build, 10)}
}

// String formats the version as major.minor.patch[-prerelease][+build].
func (v CanonicalVersion) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// IsBuildOnly reports whether the version only carries a build number.
func (v CanonicalVersion) IsBuildOnly() bool {
	return v.Major == 0 && v.Minor == 0 && v.Patch == 0 && v.Prerelease == "" && v.Build != ""
}

// BuildNumber returns the trailing numeric identifier of the build metadata.
func (v CanonicalVersion) BuildNumber() (uint64, bool) {
	if v.Build == "" {
		return 0, false
	}
	parts := strings.Split(v.Build, ".")
	n, err := strconv.ParseUint(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Key returns the (major, minor, patch, prerelease, build) tuple used to group detections.
func (v CanonicalVersion) Key() [5]string {
	return [5]string{
		strconv.FormatUint(v.Major, 10),
		strconv.FormatUint(v.Minor, 10),
		strconv.FormatUint(v.Patch, 10),
		v.Prerelease,
		v.Build,
	}
}

// semverString renders the precedence-relevant part with the "v" prefix x/mod/semver expects.
func (v CanonicalVersion) semverString() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Compare orders versions by major, minor, patch and prerelease precedence.
// Build metadata only breaks ties, numerically when possible.
func (v CanonicalVersion) Compare(o CanonicalVersion) int {
	if c := modsemver.Compare(v.semverString(), o.semverString()); c != 0 {
		return c
	}
	vb, vok := v.BuildNumber()
	ob, ook := o.BuildNumber()
	switch {
	case vok && ook && vb != ob:
		if vb < ob {
			return -1
		}
		return 1
	case v.Build < o.Build:
		return -1
	case v.Build > o.Build:
		return 1
	}
	return 0
}

// Canonicalize reduces a detected substring to a CanonicalVersion.
// Semantic versions need at least two periods; everything else is tried as a
// decimal or hexadecimal build number. Build numbers with a non-zero fraction
// are malformed, a bare zero carries no information.
func Canonicalize(text string) ParseResult {
	cleaned := trimVersionText(text)
	if cleaned == "" {
		return notApplicable("empty text")
	}
	if len(cleaned) > MaxSemverLen {
		return malformed("text longer than %d characters", MaxSemverLen)
	}

	if strings.Count(cleaned, ".") > 1 {
		if v, err := parseSemver(cleaned); err == nil {
			return parsed(v)
		}
	}
	return parseBuildNumber(cleaned)
}

// ParseVersion parses an explicitly supplied semantic version such as "1.2.3" or "v1.2.3-rc.1".
func ParseVersion(s string) (CanonicalVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CanonicalVersion{}, fmt.Errorf("empty version")
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	if !modsemver.IsValid(s) {
		return CanonicalVersion{}, fmt.Errorf("%q is not valid semver", strings.TrimPrefix(s, "v"))
	}
	return parseSemver(strings.TrimPrefix(s, "v"))
}

func parseSemver(s string) (CanonicalVersion, error) {
	sv, err := semver.Parse(s)
	if err != nil {
		return CanonicalVersion{}, err
	}
	pre := make([]string, 0, len(sv.Pre))
	for _, p := range sv.Pre {
		pre = append(pre, p.String())
	}
	return CanonicalVersion{
		Major:      sv.Major,
		Minor:      sv.Minor,
		Patch:      sv.Patch,
		Prerelease: strings.Join(pre, "."),
		Build:      strings.Join(sv.Build, "."),
	}, nil
}

func parseBuildNumber(cleaned string) ParseResult {
	hasPeriods := strings.Contains(cleaned, ".")
	isRound := strings.HasSuffix(cleaned, ".0") || strings.HasSuffix(cleaned, ".00")
	lower := strings.ToLower(cleaned)

	var (
		n   uint64
		err error
	)
	switch {
	case isRound && strings.Count(cleaned, ".") == 1:
		n, err = strconv.ParseUint(cleaned[:strings.IndexByte(cleaned, '.')], 10, 64)
	case strings.HasPrefix(lower, "0x") && !hasPeriods:
		n, err = strconv.ParseUint(lower[2:], 16, 64)
	case !hasPeriods:
		n, err = strconv.ParseUint(cleaned, 10, 64)
	default:
		return malformed("build number %q has a non-zero fraction", cleaned)
	}
	if err != nil {
		return malformed("%q is not a build number: %v", cleaned, err)
	}
	if n == 0 {
		return notApplicable("zero build number")
	}
	return parsed(BuildOnly(n))
}

// trimVersionText strips whitespace, surrounding punctuation and a leading "v" before a digit.
func trimVersionText(s string) string {
	s = strings.Trim(strings.TrimSpace(s), asciiPunct)
	if len(s) > 1 && (s[0] == 'v' || s[0] == 'V') && s[1] >= '0' && s[1] <= '9' {
		s = s[1:]
	}
	return s
}
