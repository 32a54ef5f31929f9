// Package main implements the versionscan CLI tool.
//
// The versionscan tool walks a source tree (default "..", the parent of a
// Scripts folder), finds every line that carries the project's semantic
// version or build number, agrees on the current version, bumps it and
// rewrites every occurrence in the representation it was found in. With -g
// the rewritten files are committed with the new version as the message
// (without the "v" prefix) and tagged with the new version (prefixed with "v").
//
// Command Usage:
//
//	versionscan [flags]
//
// Flags:
//
//	-p, --path:      Root folder to scan. (Defaults to "..")
//	-f, --file:      Source file holding the version. It is scanned first.
//	-r, --regex:     Regex replacing the detection patterns for --file only.
//	-e, --exact:     Exact semver written everywhere instead of bumping.
//	-s, --part:      Part to bump: major, minor, patch or build. (Defaults to "build")
//	-l, --verbose:   Log every detection and veto.
//	-g, --git:       Commit the rewritten files and tag the new version.
//	    --dry:       Report what would change without writing anything.
//	-y, --yes:       Rewrite without asking for approval.
//	    --max-depth: Folder levels below the root to scan. (Defaults to 6, at most 16)
//	    --config:    YAML config file. (Defaults to <path>/.versionscan.yaml)
//	    --version:   Displays the version of the versionscan CLI tool and exits.
//
// Environment:
//
//	VERSIONSCAN_LOG_LEVEL, VERSIONSCAN_MAX_DEPTH and VERSIONSCAN_PART override
//	the config file and may be set in <path>/.env. Flags override both.
//
// Examples:
//
//	# Bump the build number (e.g. 1.2.3+417 → 1.2.3+418, 417 → 418)
//	versionscan -p . -y
//
//	# Bump the minor version (e.g. 1.2.3 → 1.3.0)
//	versionscan -p . -s minor
//
//	# Set an explicit version everywhere, then commit and tag it
//	versionscan -p . -e 2.1.0 -g
//
//	# Only look at the build number inside Info.plist
//	versionscan -p . -f App/Info.plist -r '<string>(\d+)</string>'
//
//	# See what would change
//	versionscan -p . --dry -l
//
// Exit status is 0 on success and 1 when the run was aborted (no files, no
// version found, ambiguous version, changes declined) or failed.
//
// For more detailed API documentation, please see the documentation in the "pkg" package.
package main
