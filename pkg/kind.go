package versionscan

// DetectionKind labels where a FileMatch came from and how much it can be trusted.
type DetectionKind int

const (
	KindUnknown DetectionKind = iota
	KindSemver
	KindBuildNr
	KindBuildNrHex
	KindInStr
	KindNoCaps
	KindFindVerStr
)

var kindNames = map[DetectionKind]string{
	KindUnknown:    "unknown",
	KindSemver:     "semver",
	KindBuildNr:    "build_nr",
	KindBuildNrHex: "build_nr_hex",
	KindInStr:      "in_str",
	KindNoCaps:     "no_caps",
	KindFindVerStr: "find_ver_str",
}

func (k DetectionKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Rank orders kinds for overlap tie-breaks: semver > build_nr_hex > build_nr > no_caps > everything else.
func (k DetectionKind) Rank() int {
	switch k {
	case KindSemver:
		return 4
	case KindBuildNrHex:
		return 3
	case KindBuildNr:
		return 2
	case KindNoCaps:
		return 1
	default:
		return 0
	}
}

// IsBuild reports whether the kind describes a standalone build number.
func (k DetectionKind) IsBuild() bool {
	return k == KindBuildNr || k == KindBuildNrHex
}
