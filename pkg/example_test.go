package versionscan_test

import (
	"fmt"
	"sort"

	versionscan "github.com/bcomnes/versionscan/pkg"
)

func ExampleCanonicalize() {
	for _, s := range []string{"2.5.10", "v1.2.3-rc.1", "0x1A", "417", "417.0", "417.5", "0"} {
		r := versionscan.Canonicalize(s)
		fmt.Printf("%s -> %s %s\n", s, r.Status, r.Version)
	}
	// Output:
	// 2.5.10 -> parsed 2.5.10
	// v1.2.3-rc.1 -> parsed 1.2.3-rc.1
	// 0x1A -> parsed 0.0.0+26
	// 417 -> parsed 0.0.0+417
	// 417.0 -> parsed 0.0.0+417
	// 417.5 -> malformed 0.0.0
	// 0 -> not-applicable 0.0.0
}

func ExampleBump() {
	v, err := versionscan.ParseVersion("1.2.3+417")
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, part := range []versionscan.Part{versionscan.PartMajor, versionscan.PartMinor, versionscan.PartPatch, versionscan.PartBuild} {
		next, _ := versionscan.Bump(v, part)
		fmt.Printf("%s: %s\n", part, next)
	}
	// Output:
	// major: 2.0.0+0
	// minor: 1.3.0+0
	// patch: 1.2.4+0
	// build: 1.2.3+418
}

func ExampleMatch() {
	found := versionscan.Match(`version = "1.0.0"`, versionscan.DefaultRules().Patterns, false, false)
	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var ms []versionscan.FileMatch
	for _, k := range keys {
		m := found[k]
		fmt.Printf("%s %s [%d,%d)\n", k, m.Kind, m.Span.Start, m.Span.End)
		ms = append(ms, m)
	}
	for _, m := range versionscan.Resolve(ms) {
		fmt.Println("kept:", m.Matched())
	}
	// Output:
	// 1.0 build_nr [11,14)
	// 1.0.0 semver [11,16)
	// kept: 1.0.0
}

func ExampleRender() {
	to := versionscan.BuildOnly(27)
	for _, orig := range []string{"26", "26.0", "0x1A", "0x001a"} {
		m := versionscan.FileMatch{
			Text:     orig,
			Span:     versionscan.Span{Start: 0, End: len(orig)},
			Kind:     versionscan.KindBuildNr,
			Original: orig,
		}
		s, _ := versionscan.Render(m, to)
		fmt.Printf("%s -> %s\n", orig, s)
	}
	// Output:
	// 26 -> 27
	// 26.0 -> 27.0
	// 0x1A -> 0x1B
	// 0x001a -> 0x001b
}
