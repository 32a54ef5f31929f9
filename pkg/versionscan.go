package versionscan

import (
	"errors"
	"fmt"
	"sort"
)

// VersionMeta holds metadata about a scan and the bump that followed it.
type VersionMeta struct {
	RunID      string
	OldVersion string // the agreed current version
	NewVersion string // the version written (or that would be written)
	BumpType   string // the bumped part, or "exact"
	Decision   DecisionKind

	Matches      []FileMatch // every reconciled detection
	Targets      []FileMatch // the detections rewritten
	UpdatedFiles []string    // files written, or that a dry run would write
	Applied      SuccessCounter
	Unparseable  int

	ExitCode int
	Reason   string // abort reason, if any
}

// Options configures Run and DryRun. Zero values pick the defaults.
type Options struct {
	Root string
	// SourceFile is scanned first; Regex, when set, replaces the detection
	// patterns for that file only.
	SourceFile string
	Regex      string
	Exact      string
	Part       Part
	MaxDepth   int

	Rules    *Rules
	Resolver EncodingResolver
	Log      Logger
	Progress Progress
	Chooser  Chooser
	Approver Approver
	GitTag   bool
}

// Run scans opts.Root, agrees on the current version, bumps it, asks for
// approval, rewrites every occurrence and optionally commits and tags.
func Run(opts Options) (VersionMeta, error) {
	return run(opts, false)
}

// DryRun does everything Run does up to the approval step and reports what
// would change without touching any file or the git repository.
func DryRun(opts Options) (VersionMeta, error) {
	return run(opts, true)
}

func run(opts Options, dry bool) (VersionMeta, error) {
	log := orNop(opts.Log)
	var meta VersionMeta

	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	if opts.Regex != "" {
		if opts.SourceFile == "" {
			return meta, errors.New("an override regex needs a source file")
		}
		if err := rules.SetOverride(opts.SourceFile, opts.Regex); err != nil {
			return meta, err
		}
	}
	exact := opts.Exact
	if exact != "" {
		if _, err := ParseVersion(exact); err != nil {
			log.Warnf("ignoring exact version: %v", err)
			exact = ""
		}
	}
	root := opts.Root
	if root == "" {
		root = "."
	}

	sr := NewSearchRun(root)
	meta.RunID = sr.ID
	fail := func(err error) (VersionMeta, error) {
		sr.Abort(err.Error())
		meta.ExitCode = sr.ExitCode()
		meta.Reason = sr.Reason()
		return meta, err
	}
	log.Infof("run %s: scanning %s", sr.ID, sr.Root)

	scanner := &Scanner{
		Rules:      rules,
		Resolver:   opts.Resolver,
		Log:        log,
		Progress:   opts.Progress,
		MaxDepth:   opts.MaxDepth,
		SourceFile: opts.SourceFile,
	}
	if scanner.Resolver == nil {
		scanner.Resolver = NewCharsetResolver(0)
	}
	matches := scanner.Scan(sr)
	meta.Matches = matches
	if sr.Aborted() {
		if len(sr.Paths) == 0 {
			return fail(fmt.Errorf("%w: %s", ErrNoFiles, sr.Reason()))
		}
		return fail(fmt.Errorf("%w: %s", ErrNoMatches, sr.Reason()))
	}
	log.Infof("found %d detections in %d files (%d skipped)", len(matches), sr.FilesScanned, sr.FilesSkipped)

	decision := Decide(matches, exact)
	sr.Unparseable = decision.Unparseable
	meta.Unparseable = decision.Unparseable
	meta.Decision = decision.Kind
	if decision.Unparseable > 0 {
		log.Debugf("%d detections could not be parsed", decision.Unparseable)
	}

	from, err := decision.Resolve(opts.Chooser)
	if err != nil {
		return fail(err)
	}
	forced := decision.Kind == DecisionForced
	if forced && len(decision.Candidates) > 0 {
		meta.OldVersion = decision.Candidates[0].Version.String()
	} else {
		meta.OldVersion = from.String()
	}

	to, err := NextVersion(from, opts.Part, exact)
	if err != nil {
		return fail(err)
	}
	meta.NewVersion = to.String()
	meta.BumpType = opts.Part.String()
	if forced {
		meta.BumpType = "exact"
	}
	if !forced && to == from {
		return meta, fmt.Errorf("new version (%s) is the same as the current version", meta.NewVersion)
	}

	targets := Targets(matches, from, to, forced)
	meta.Targets = targets
	meta.UpdatedFiles = filesOf(targets)
	if len(targets) == 0 {
		return fail(fmt.Errorf("%w: no detection carries %s", ErrNoMatches, from))
	}
	log.Infof("%s -> %s in %d locations across %d files", meta.OldVersion, meta.NewVersion, len(targets), len(meta.UpdatedFiles))
	if dry {
		return meta, nil
	}

	if opts.Approver != nil {
		ok, err := opts.Approver.Approve(from, to, targets)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrNotApproved, err))
		}
		if !ok {
			return fail(ErrNotApproved)
		}
	}

	if opts.GitTag {
		if err := checkGit(); err != nil {
			return meta, err
		}
		repo, err := LocateGitDir(sr.Root)
		if err != nil {
			return meta, fmt.Errorf("no git repository within %d folders of %s", maxGitSearchDepth, sr.Root)
		}
		if err := checkUncommittedFiles(repo, meta.UpdatedFiles); err != nil {
			return meta, err
		}
	}

	applier := Applier{Resolver: scanner.Resolver, Log: log}
	res, err := applier.Apply(targets, to)
	meta.Applied = res.SuccessCounter
	meta.UpdatedFiles = res.UpdatedFiles
	if err != nil {
		return meta, err
	}
	if !res.AllSucceeded() {
		log.Warnf("rewrote %s locations", res.SuccessCounter)
	}

	if opts.GitTag && len(res.UpdatedFiles) > 0 {
		if err := CommitAndTag(sr.Root, to.String(), res.UpdatedFiles); err != nil {
			return meta, err
		}
	}
	return meta, nil
}

func filesOf(ms []FileMatch) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range ms {
		if !seen[m.Path] {
			seen[m.Path] = true
			out = append(out, m.Path)
		}
	}
	sort.Strings(out)
	return out
}
