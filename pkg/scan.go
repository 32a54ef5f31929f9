package versionscan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Progress is told about every file a Scanner visits.
type Progress interface {
	Step(index, total int, path string, patterns int)
	Done(total int)
}

// Scanner walks a tree and collects version detections into a SearchRun.
type Scanner struct {
	Rules    *Rules
	Resolver EncodingResolver
	Log      Logger
	Progress Progress

	MaxDepth int
	// SourceFile, when set, is scanned before every other file.
	SourceFile    string
	CaseSensitive bool
	StopOnFirst   bool
}

// NewScanner returns a Scanner with the default rules and a charset resolver.
func NewScanner(rules *Rules, log Logger) *Scanner {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Scanner{
		Rules:    rules,
		Resolver: NewCharsetResolver(0),
		Log:      orNop(log),
		MaxDepth: DefaultMaxDepth,
	}
}

// Scan enumerates the run's root, reads every eligible file and records the
// reconciled detections. The run is aborted when there is nothing to read or
// nothing was found.
func (s *Scanner) Scan(run *SearchRun) []FileMatch {
	log := orNop(s.Log)
	var extra []string
	var source string
	if s.SourceFile != "" {
		if abs, err := filepath.Abs(s.SourceFile); err == nil {
			source = abs
			extra = append(extra, abs)
		}
	}
	run.Paths = Enumerate(run.Root, extra, s.MaxDepth, s.Rules)
	if len(run.Paths) == 0 {
		run.Abort(fmt.Sprintf("no eligible files under %s", run.Root))
		return nil
	}

	paths := run.Paths.Sorted()
	if source != "" && run.Paths.Has(source) {
		ordered := []string{source}
		for _, p := range paths {
			if p != source {
				ordered = append(ordered, p)
			}
		}
		paths = ordered
	}
	log.Debugf("run %s: %d candidate files under %s", run.ID, len(paths), run.Root)

	for i, path := range paths {
		if run.Aborted() {
			break
		}
		patterns := s.Rules.PatternsFor(path)
		if s.Progress != nil {
			s.Progress.Step(i, len(paths), path, len(patterns))
		}
		found, err := s.ScanFile(path)
		if err != nil {
			log.Warnf("skipping %s: %v", path, err)
			run.FilesSkipped++
			continue
		}
		if found == nil {
			run.FilesSkipped++
			continue
		}
		run.FilesScanned++
		if n := run.Add(found...); n > 0 {
			log.Debugf("%s: %d detections", path, n)
		}
	}
	if s.Progress != nil {
		s.Progress.Done(len(paths))
	}

	if !run.Aborted() && len(run.Matches()) == 0 {
		run.Abort(fmt.Sprintf("no version detected in %d files", run.FilesScanned))
	}
	return run.Matches()
}

// ScanFile reads one file and returns its reconciled detections. A nil slice
// without error means the file was skipped for its size or encoding.
func (s *Scanner) ScanFile(path string) ([]FileMatch, error) {
	log := orNop(s.Log)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() < s.Rules.MinFileLen || info.Size() > s.Rules.MaxFileLen {
		log.Debugf("skipping %s: size %d outside [%d, %d]", path, info.Size(), s.Rules.MinFileLen, s.Rules.MaxFileLen)
		return nil, nil
	}
	resolver := s.Resolver
	if resolver == nil {
		resolver = NewCharsetResolver(0)
		s.Resolver = resolver
	}
	enc, ok := resolver.Detect(path)
	if !ok {
		log.Debugf("skipping %s: binary or unknown encoding", path)
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := enc.Decode(data)
	if err != nil {
		return nil, err
	}
	found := s.ScanText(path, enc.Name, text)
	if found == nil {
		found = []FileMatch{}
	}
	return found, nil
}

// ScanText matches every eligible line of text with a three-line window and
// returns the detections that survive the context vetoes and reconciliation.
func (s *Scanner) ScanText(path, encoding, text string) []FileMatch {
	log := orNop(s.Log)
	patterns := s.Rules.PatternsFor(path)
	ext := extOf(path)
	cat := CategoryForExt(ext)
	lines := splitLines(text)

	var out []FileMatch
	for i, line := range lines {
		if !s.Rules.IsEligible(line) {
			continue
		}
		var prev, next string
		if i > 0 {
			prev = lines[i-1]
		}
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		found := matchLine(line, patterns, s.CaseSensitive, s.StopOnFirst, log)
		for _, key := range sortedKeys(found) {
			m := found[key]
			if !s.Rules.IsValidContext(m.Span, prev, line, next, cat) {
				log.Debugf("%s:%d: %q vetoed by context", filepath.Base(path), i+1, m.Matched())
				continue
			}
			m.Path = path
			m.Ext = ext
			m.Encoding = encoding
			m.Line = i + 1
			m.PrevLine = prev
			m.NextLine = next
			out = append(out, m)
		}
	}
	return Resolve(out)
}

// splitLines splits on "\n" and drops a trailing "\r" from each line.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func sortedKeys(found map[string]FileMatch) []string {
	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := found[keys[i]], found[keys[j]]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		return keys[i] < keys[j]
	})
	return keys
}
