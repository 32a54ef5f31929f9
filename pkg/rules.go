package versionscan

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPattern is returned when a configured regex or glob cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

const (
	DefaultMinLineLen = 2
	DefaultMaxLineLen = 256
	DefaultMinFileLen = 3
	DefaultMaxFileLen = 256999
)

// semverCore matches major.minor.patch[-prerelease][+build] with named groups.
const semverCore = `(?P<semver_major>0|[1-9]\d*)\.(?P<semver_minor>0|[1-9]\d*)\.(?P<semver_patch>0|[1-9]\d*)` +
	`(?:-(?P<semver_prerelease>[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?` +
	`(?:\+(?P<semver_build>[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?`

// Default detection patterns, in the order they are applied.
const (
	SemverPattern     = `(?:^|[^0-9A-Za-z_.])[vV]?(?P<semver>` + semverCore + `)(?:$|[^0-9A-Za-z_])`
	BuildNrHexPattern = `(?:^|[^0-9A-Za-z_])(?P<build_nr_hex>0[xX][0-9a-fA-F]+)(?:$|[^0-9A-Za-z_])`
	BuildNrPattern    = `(?:^|[^0-9A-Za-z_.])(?P<build_nr_int>\d{1,5}(?:\.\d{1,5})?)(?:$|[^0-9A-Za-z_])`
)

// FileCategory groups file extensions that share context rules.
type FileCategory int

const (
	CategoryAny FileCategory = iota
	CategorySwift
	CategoryGo
	CategoryC
	CategoryJavaScript
	CategoryPython
	CategoryShell
	CategoryMarkdown
	CategoryData
	CategoryOther
)

var categoryNames = map[FileCategory]string{
	CategoryAny:        "*",
	CategorySwift:      "swift",
	CategoryGo:         "go",
	CategoryC:          "c",
	CategoryJavaScript: "javascript",
	CategoryPython:     "python",
	CategoryShell:      "shell",
	CategoryMarkdown:   "markdown",
	CategoryData:       "data",
	CategoryOther:      "other",
}

var categoryByExt = map[string]FileCategory{
	"swift": CategorySwift,
	"go":    CategoryGo,
	"c":     CategoryC, "h": CategoryC, "m": CategoryC, "mm": CategoryC,
	"cc": CategoryC, "cpp": CategoryC, "hpp": CategoryC, "cxx": CategoryC,
	"js": CategoryJavaScript, "jsx": CategoryJavaScript, "mjs": CategoryJavaScript,
	"cjs": CategoryJavaScript, "ts": CategoryJavaScript, "tsx": CategoryJavaScript,
	"py":   CategoryPython,
	"sh":   CategoryShell, "bash": CategoryShell, "zsh": CategoryShell, "mk": CategoryShell,
	"md":   CategoryMarkdown, "markdown": CategoryMarkdown, "rst": CategoryMarkdown, "txt": CategoryMarkdown,
	"json": CategoryData, "yaml": CategoryData, "yml": CategoryData, "toml": CategoryData,
	"xml": CategoryData, "plist": CategoryData, "gradle": CategoryData, "properties": CategoryData,
	"cfg": CategoryData, "conf": CategoryData,
}

func (c FileCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "other"
}

// CategoryForExt maps a file extension (with or without the dot) to its category.
func CategoryForExt(ext string) FileCategory {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if c, ok := categoryByExt[ext]; ok {
		return c
	}
	return CategoryOther
}

// ParseCategory accepts a category name ("swift", "*") or a file extension ("py").
func ParseCategory(name string) (FileCategory, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	if c, ok := categoryByExt[strings.TrimPrefix(name, ".")]; ok {
		return c, nil
	}
	return CategoryOther, fmt.Errorf("unknown file category %q", name)
}

// LineScope limits an in-line veto to part of the line.
type LineScope int

const (
	ScopeWhole  LineScope = iota
	ScopeBefore           // text preceding the candidate span
	ScopeAfter            // text following the candidate span
)

// ScopedPattern is an in-line veto regex with the part of the line it inspects.
type ScopedPattern struct {
	Re    *regexp.Regexp
	Scope LineScope
}

// Pattern is a validated detection regex compiled for both case modes.
type Pattern struct {
	Source string
	exact  *regexp.Regexp
	fold   *regexp.Regexp
	named  bool
}

// CompilePattern validates and compiles a detection regex. Named groups must
// start with "semver" or "build_nr".
func CompilePattern(src string) (*Pattern, error) {
	exact, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, src, err)
	}
	fold, err := regexp.Compile("(?i)" + src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, src, err)
	}
	p := &Pattern{Source: src, exact: exact, fold: fold}
	for _, name := range exact.SubexpNames()[1:] {
		if name == "" {
			continue
		}
		if !strings.HasPrefix(name, "semver") && !strings.HasPrefix(name, "build_nr") {
			return nil, fmt.Errorf("%w: %q: unsupported group name %q", ErrInvalidPattern, src, name)
		}
		p.named = true
	}
	return p, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(src string) *Pattern {
	p, err := CompilePattern(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Regexp returns the compiled form for the requested case sensitivity.
func (p *Pattern) Regexp(caseSensitive bool) *regexp.Regexp {
	if caseSensitive {
		return p.exact
	}
	return p.fold
}

// Named reports whether the pattern declares named capture groups.
func (p *Pattern) Named() bool {
	return p.named
}

func (p *Pattern) String() string {
	return p.Source
}

// FilterCategory selects which exclusion list Excluded consults.
type FilterCategory int

const (
	FilterFolder FilterCategory = iota
	FilterExtension
	FilterFilename
)

// RulesConfig is the uncompiled, string form of Rules.
// In-line veto sources may start with '<' (text before the candidate) or '>' (text after it).
type RulesConfig struct {
	ExcludeFolders    []string
	ExcludeExtensions []string
	ExcludeFilenames  []string
	IgnoreGlobs       []string

	PrevLine map[FileCategory][]string
	NextLine map[FileCategory][]string
	Overlap  map[FileCategory][]string
	InLine   map[FileCategory][]string

	Patterns     []string
	FilePatterns map[string][]string

	MinLineLen int
	MaxLineLen int
	MinFileLen int64
	MaxFileLen int64
}

// DefaultRulesConfig returns the built-in filter, veto and detection tables.
func DefaultRulesConfig() RulesConfig {
	cFamily := []string{`\bswitch\b`}
	slashComment := []string{`^\s*//`, `^\s*/?\*`}
	hashComment := []string{`^\s*#`}
	return RulesConfig{
		ExcludeFolders: []string{
			`^\.git`, `build`, `cocoa`, `pods`, `carthag`, `^\.swiftpm`,
			`^node_modules$`, `^vendor$`, `^\.idea$`, `^\.vscode$`, `^testdata$`,
		},
		ExcludeExtensions: []string{
			`^(log|db|sql|sqlite|postgre|mongo|temp|tmp|flake8|ini)$`,
			`^(doc|docx|xls|xlsx|pdf|eps|csv)$`,
			`^(xib|storyboard|png|gif|jpe?g|bmp|ico|tiff?|svg|pict|webp)$`,
			`^(mov|qtm|avi|mkv|flic|swf|lottie|mp4|mp3|wav)$`,
			`^(zip|gz|tgz|tar|jar|exe|dll|so|dylib|a|o|class|pyc|wasm)$`,
			`^(sum|lock)$`,
		},
		ExcludeFilenames: []string{
			`^\.`, `error.{0,4}code$`, `ds_store$`, `^package\.swift$`,
			`^package-lock\.json$`, `^go\.sum$`, `^license`, `^changelog`,
		},
		PrevLine: map[FileCategory][]string{
			CategorySwift:      cFamily,
			CategoryGo:         cFamily,
			CategoryC:          cFamily,
			CategoryJavaScript: cFamily,
		},
		NextLine: map[FileCategory][]string{
			CategorySwift:      cFamily,
			CategoryGo:         cFamily,
			CategoryC:          cFamily,
			CategoryJavaScript: cFamily,
		},
		Overlap: map[FileCategory][]string{
			CategoryAny: {
				`\b(?:0?[1-9]|[12]\d|3[01])[./\-_](?:0?[1-9]|1[0-2])[./\-_](?:19|20)\d{2}\b`,
				`\b(?:0?[1-9]|1[0-2])/(?:0?[1-9]|[12]\d|3[01])/\d{2}\b`,
				`\b(?:19|20)\d{2}[-/.](?:0?[1-9]|1[0-2])[-/.](?:0?[1-9]|[12]\d|3[01])\b`,
				`\b\d{1,2}:\d{2}(?::\d{2})?\b`,
			},
		},
		InLine: map[FileCategory][]string{
			CategoryAny:        {`<\bcase\s+[^:]{0,30}$`, `\s!=\s`, `versionscan:\s*ignore`},
			CategorySwift:      slashComment,
			CategoryGo:         slashComment,
			CategoryC:          slashComment,
			CategoryJavaScript: slashComment,
			CategoryPython:     hashComment,
			CategoryShell:      hashComment,
		},
		Patterns: []string{SemverPattern, BuildNrHexPattern, BuildNrPattern},
		FilePatterns: map[string][]string{
			"readme.md": {
				`^.{0,6}version\s*:?\s*[vV]?(?P<semver>` + semverCore + `)`,
				`^.{0,6}build\s*(?:nr|number)?\s*:?\s*(?P<build_nr_int>\d{1,5}(?:\.0{1,2})?)\b`,
			},
		},
		MinLineLen: DefaultMinLineLen,
		MaxLineLen: DefaultMaxLineLen,
		MinFileLen: DefaultMinFileLen,
		MaxFileLen: DefaultMaxFileLen,
	}
}

// Rules holds every compiled regex the engine consults.
type Rules struct {
	Folders     []*regexp.Regexp
	Extensions  []*regexp.Regexp
	Filenames   []*regexp.Regexp
	IgnoreGlobs []string

	PrevLine map[FileCategory][]*regexp.Regexp
	NextLine map[FileCategory][]*regexp.Regexp
	Overlap  map[FileCategory][]*regexp.Regexp
	InLine   map[FileCategory][]ScopedPattern

	Patterns     []*Pattern
	FilePatterns map[string][]*Pattern
	overrides    map[string][]*Pattern

	MinLineLen int
	MaxLineLen int
	MinFileLen int64
	MaxFileLen int64
}

// DefaultRules compiles DefaultRulesConfig.
func DefaultRules() *Rules {
	r, err := CompileRules(DefaultRulesConfig())
	if err != nil {
		panic(err)
	}
	return r
}

// CompileRules validates and compiles every regex and glob in c.
// Filter and veto regexes are case-insensitive.
func CompileRules(c RulesConfig) (*Rules, error) {
	var err error
	r := &Rules{
		MinLineLen:   orDefault(c.MinLineLen, DefaultMinLineLen),
		MaxLineLen:   orDefault(c.MaxLineLen, DefaultMaxLineLen),
		MinFileLen:   orDefault(c.MinFileLen, DefaultMinFileLen),
		MaxFileLen:   orDefault(c.MaxFileLen, DefaultMaxFileLen),
		FilePatterns: make(map[string][]*Pattern),
		overrides:    make(map[string][]*Pattern),
	}
	if r.MinLineLen > r.MaxLineLen {
		return nil, fmt.Errorf("min line length %d exceeds max %d", r.MinLineLen, r.MaxLineLen)
	}
	if r.Folders, err = compileFold(c.ExcludeFolders); err != nil {
		return nil, err
	}
	if r.Extensions, err = compileFold(c.ExcludeExtensions); err != nil {
		return nil, err
	}
	if r.Filenames, err = compileFold(c.ExcludeFilenames); err != nil {
		return nil, err
	}
	for _, g := range c.IgnoreGlobs {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("%w: glob %q", ErrInvalidPattern, g)
		}
		r.IgnoreGlobs = append(r.IgnoreGlobs, g)
	}
	if r.PrevLine, err = compileByCategory(c.PrevLine); err != nil {
		return nil, err
	}
	if r.NextLine, err = compileByCategory(c.NextLine); err != nil {
		return nil, err
	}
	if r.Overlap, err = compileByCategory(c.Overlap); err != nil {
		return nil, err
	}
	r.InLine = make(map[FileCategory][]ScopedPattern, len(c.InLine))
	for cat, sources := range c.InLine {
		for _, src := range sources {
			sp, err := compileScoped(src)
			if err != nil {
				return nil, err
			}
			r.InLine[cat] = append(r.InLine[cat], sp)
		}
	}
	if r.Patterns, err = compilePatterns(c.Patterns); err != nil {
		return nil, err
	}
	if len(r.Patterns) == 0 {
		return nil, fmt.Errorf("%w: no detection patterns configured", ErrInvalidPattern)
	}
	for name, sources := range c.FilePatterns {
		ps, err := compilePatterns(sources)
		if err != nil {
			return nil, err
		}
		r.FilePatterns[strings.ToLower(name)] = ps
	}
	return r, nil
}

// Extend appends the lists of extra to c; non-zero limits in extra win.
func (c RulesConfig) Extend(extra RulesConfig) RulesConfig {
	c.ExcludeFolders = append(append([]string{}, c.ExcludeFolders...), extra.ExcludeFolders...)
	c.ExcludeExtensions = append(append([]string{}, c.ExcludeExtensions...), extra.ExcludeExtensions...)
	c.ExcludeFilenames = append(append([]string{}, c.ExcludeFilenames...), extra.ExcludeFilenames...)
	c.IgnoreGlobs = append(append([]string{}, c.IgnoreGlobs...), extra.IgnoreGlobs...)
	c.PrevLine = mergeCategoryLists(c.PrevLine, extra.PrevLine)
	c.NextLine = mergeCategoryLists(c.NextLine, extra.NextLine)
	c.Overlap = mergeCategoryLists(c.Overlap, extra.Overlap)
	c.InLine = mergeCategoryLists(c.InLine, extra.InLine)
	if len(extra.Patterns) > 0 {
		c.Patterns = extra.Patterns
	}
	if len(extra.FilePatterns) > 0 {
		fp := make(map[string][]string, len(c.FilePatterns)+len(extra.FilePatterns))
		for k, v := range c.FilePatterns {
			fp[k] = v
		}
		for k, v := range extra.FilePatterns {
			fp[k] = v
		}
		c.FilePatterns = fp
	}
	if extra.MinLineLen != 0 {
		c.MinLineLen = extra.MinLineLen
	}
	if extra.MaxLineLen != 0 {
		c.MaxLineLen = extra.MaxLineLen
	}
	if extra.MinFileLen != 0 {
		c.MinFileLen = extra.MinFileLen
	}
	if extra.MaxFileLen != 0 {
		c.MaxFileLen = extra.MaxFileLen
	}
	return c
}

// SetOverride replaces the detection patterns for one file.
func (r *Rules) SetOverride(path string, sources ...string) error {
	ps, err := compilePatterns(sources)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", path, err)
	}
	r.overrides[abs] = ps
	return nil
}

// PatternsFor picks the detection patterns for a file: explicit override,
// then the per-filename table, then the defaults.
func (r *Rules) PatternsFor(path string) []*Pattern {
	if ps, ok := r.overrides[path]; ok {
		return ps
	}
	if ps, ok := r.FilePatterns[strings.ToLower(filepath.Base(path))]; ok {
		return ps
	}
	return r.Patterns
}

func orDefault[T int | int64](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func compileFold(sources []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, src, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func compileByCategory(in map[FileCategory][]string) (map[FileCategory][]*regexp.Regexp, error) {
	out := make(map[FileCategory][]*regexp.Regexp, len(in))
	for cat, sources := range in {
		res, err := compileFold(sources)
		if err != nil {
			return nil, err
		}
		out[cat] = res
	}
	return out, nil
}

func compileScoped(src string) (ScopedPattern, error) {
	scope := ScopeWhole
	switch {
	case strings.HasPrefix(src, "<"):
		scope, src = ScopeBefore, src[1:]
	case strings.HasPrefix(src, ">"):
		scope, src = ScopeAfter, src[1:]
	}
	res, err := compileFold([]string{src})
	if err != nil {
		return ScopedPattern{}, err
	}
	return ScopedPattern{Re: res[0], Scope: scope}, nil
}

func compilePatterns(sources []string) ([]*Pattern, error) {
	out := make([]*Pattern, 0, len(sources))
	for _, src := range sources {
		p, err := CompilePattern(src)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func mergeCategoryLists(a, b map[FileCategory][]string) map[FileCategory][]string {
	out := make(map[FileCategory][]string, len(a)+len(b))
	for k, v := range a {
		out[k] = append([]string{}, v...)
	}
	keys := make([]FileCategory, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		out[k] = append(out[k], b[k]...)
	}
	return out
}
