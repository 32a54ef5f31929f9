package versionscan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// SuccessCounter tallies rewrite attempts.
type SuccessCounter struct {
	Success int
	Total   int
}

// Ratio is Success/Total, or 0 when nothing was attempted.
func (c SuccessCounter) Ratio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Success) / float64(c.Total)
}

// AllSucceeded reports whether every attempt succeeded.
func (c SuccessCounter) AllSucceeded() bool {
	return c.Success == c.Total
}

func (c SuccessCounter) String() string {
	return fmt.Sprintf("%d/%d", c.Success, c.Total)
}

// ApplyResult describes what a rewrite changed.
type ApplyResult struct {
	SuccessCounter
	UpdatedFiles []string
}

// Targets picks the detections a rewrite from -> to should touch. Without
// forced, a detection qualifies when it canonicalizes to from, or when it is a
// bare build number equal to from's build. With forced every parsed detection
// qualifies, except bare build numbers when to has no build.
func Targets(matches []FileMatch, from, to CanonicalVersion, forced bool) []FileMatch {
	fromBuild, fromHasBuild := from.BuildNumber()
	_, toHasBuild := to.BuildNumber()
	var out []FileMatch
	for _, m := range matches {
		res := m.Canonical()
		if !res.Ok() {
			continue
		}
		v := res.Version
		if forced {
			if !v.IsBuildOnly() || toHasBuild {
				out = append(out, m)
			}
			continue
		}
		if v == from {
			out = append(out, m)
			continue
		}
		if v.IsBuildOnly() && fromHasBuild {
			if n, ok := v.BuildNumber(); ok && n == fromBuild {
				out = append(out, m)
			}
		}
	}
	return out
}

// Render formats to the way m was written: semver text keeps a "v" prefix,
// decimal build numbers keep their ".0" suffix, hex keeps its case and width.
func Render(m FileMatch, to CanonicalVersion) (string, error) {
	buildOnly := m.Kind.IsBuild()
	if !buildOnly {
		if res := m.Canonical(); res.Ok() && res.Version.IsBuildOnly() {
			buildOnly = true
		}
	}
	if !buildOnly {
		prefix := ""
		if o := m.Original; len(o) > 1 && (o[0] == 'v' || o[0] == 'V') {
			prefix = o[:1]
		}
		return prefix + to.String(), nil
	}

	n, ok := to.BuildNumber()
	if !ok {
		return "", fmt.Errorf("%s has no build number to write into %q", to, m.Original)
	}
	orig := strings.TrimSpace(m.Original)
	if len(orig) > 2 && strings.EqualFold(orig[:2], "0x") {
		digits := orig[2:]
		s := strconv.FormatUint(n, 16)
		if strings.ToUpper(digits) == digits && strings.ToLower(digits) != digits {
			s = strings.ToUpper(s)
		}
		if pad := len(digits) - len(s); pad > 0 {
			s = strings.Repeat("0", pad) + s
		}
		return orig[:2] + s, nil
	}
	s := strconv.FormatUint(n, 10)
	if _, frac, ok := strings.Cut(orig, "."); ok {
		s += "." + frac
	}
	return s, nil
}

// Applier rewrites detections in place.
type Applier struct {
	Resolver EncodingResolver
	Log      Logger
}

// Apply rewrites targets to the rendering of to, using a fresh charset resolver.
func Apply(targets []FileMatch, to CanonicalVersion, log Logger) (ApplyResult, error) {
	a := Applier{Resolver: NewCharsetResolver(0), Log: log}
	return a.Apply(targets, to)
}

// Apply groups targets by file, verifies every targeted line still reads as it
// did during the scan and writes each file once, under a lock and atomically.
// A stale or unrenderable target counts as a failure; I/O errors abort.
func (a Applier) Apply(targets []FileMatch, to CanonicalVersion) (ApplyResult, error) {
	log := orNop(a.Log)
	resolver := a.Resolver
	if resolver == nil {
		resolver = NewCharsetResolver(0)
	}
	var result ApplyResult
	var order []string
	byFile := make(map[string][]FileMatch)
	for _, m := range targets {
		if _, ok := byFile[m.Path]; !ok {
			order = append(order, m.Path)
		}
		byFile[m.Path] = append(byFile[m.Path], m)
	}

	for _, path := range order {
		ms := byFile[path]
		result.Total += len(ms)
		enc, ok := resolver.Detect(path)
		if !ok {
			log.Warnf("cannot determine encoding of %s, leaving it untouched", path)
			continue
		}
		ok, err := a.rewriteFile(path, enc, ms, to, &result.SuccessCounter)
		if err != nil {
			return result, err
		}
		if ok {
			result.UpdatedFiles = append(result.UpdatedFiles, path)
		}
	}
	return result, nil
}

func (a Applier) rewriteFile(path string, enc Encoding, ms []FileMatch, to CanonicalVersion, counter *SuccessCounter) (bool, error) {
	log := orNop(a.Log)
	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return false, fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}
	defer lock.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := enc.Decode(data)
	if err != nil {
		return false, err
	}

	lines := strings.SplitAfter(text, "\n")
	byLine := make(map[int][]FileMatch)
	for _, m := range ms {
		byLine[m.Line] = append(byLine[m.Line], m)
	}
	changed := false
	for lineNr, lms := range byLine {
		if lineNr < 1 || lineNr > len(lines) {
			log.Warnf("%s:%d: line no longer exists", path, lineNr)
			continue
		}
		raw := lines[lineNr-1]
		body, term := splitTerminator(raw)
		scanned := body
		// Right to left so earlier spans keep their offsets.
		sort.Slice(lms, func(i, j int) bool { return lms[i].Span.Start > lms[j].Span.Start })
		for _, m := range lms {
			if m.Text != scanned || m.Span.End > len(body) || body[m.Span.Start:m.Span.End] != m.Original {
				log.Warnf("%s:%d: line changed since the scan, skipping %q", path, lineNr, m.Original)
				continue
			}
			repl, err := Render(m, to)
			if err != nil {
				log.Warnf("%s:%d: %v", path, lineNr, err)
				continue
			}
			body = body[:m.Span.Start] + repl + body[m.Span.End:]
			counter.Success++
			changed = true
		}
		lines[lineNr-1] = body + term
	}
	if !changed {
		return false, nil
	}

	out, err := enc.Encode(strings.Join(lines, ""))
	if err != nil {
		return false, err
	}
	if err := atomicWrite(path, out, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

// lockPath names the advisory lock file for path. Lock files live in the temp
// directory, one per absolute path, and are never removed.
func lockPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(path)))
	return filepath.Join(os.TempDir(), "versionscan-"+id.String()+".lock")
}

func splitTerminator(line string) (body, term string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

// atomicWrite writes data to a temp file in the target's directory and renames it over path.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".versionscan-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	tempFile = nil
	return nil
}
