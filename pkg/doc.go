// Package versionscan provides a library for finding and bumping the version of a project
// wherever it is written in the source tree.
//
// It provides functionalities for:
//   - Walking a source tree while skipping build output, vendored code, binaries and media.
//   - Detecting semantic versions, decimal build numbers and hexadecimal build numbers line by line,
//     while rejecting dates, switch cases, comments and lines marked "versionscan: ignore".
//   - Reconciling overlapping detections on the same line and agreeing on one project version
//     by counting how often each canonical version appears.
//   - Bumping the major, minor, patch or build part (or setting an exact version), rewriting every
//     occurrence in its original representation, and optionally committing and tagging with git.
//
// This library is designed to be used both as a standalone command-line tool via the provided CLI
// and as a programmatic API.
//
// Usage Example:
//
//	import (
//	    "log"
//	    versionscan "github.com/bcomnes/versionscan/pkg"
//	)
//
//	func main() {
//	    meta, err := versionscan.Run(versionscan.Options{Root: ".", Part: versionscan.PartPatch})
//	    if err != nil {
//	        log.Fatalf("version bump failed: %v", err)
//	    }
//	    log.Printf("bumped %s to %s", meta.OldVersion, meta.NewVersion)
//	}
package versionscan
