// Package display renders scan progress and detections for the CLI.
package display

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	versionscan "github.com/bcomnes/versionscan/pkg"
)

// ProgressIndicator prints one line per scanned file with the percentage done.
// On a terminal the line is rewritten in place.
type ProgressIndicator struct {
	writer  io.Writer
	base    string
	inPlace bool
	width   int
}

// NewProgressIndicator creates a progress indicator; paths are shown relative to base.
func NewProgressIndicator(w io.Writer, base string) *ProgressIndicator {
	inPlace := false
	if f, ok := w.(*os.File); ok {
		inPlace = isatty.IsTerminal(f.Fd())
	}
	return &ProgressIndicator{writer: w, base: base, inPlace: inPlace}
}

// Step shows "  12.50% | 03 regexes × path".
func (p *ProgressIndicator) Step(index, total int, path string, patterns int) {
	if p.writer == nil {
		return
	}
	line := FormatStep(index, total, p.rel(path), patterns)
	if !p.inPlace {
		fmt.Fprintln(p.writer, line)
		return
	}
	pad := ""
	if n := p.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	p.width = len(line)
	fmt.Fprint(p.writer, "\r"+line+pad)
}

// Done finishes the progress output.
func (p *ProgressIndicator) Done(total int) {
	if p.writer == nil {
		return
	}
	if p.inPlace {
		fmt.Fprintln(p.writer)
	}
	fmt.Fprintf(p.writer, "%s scanned %d files\n", color.GreenString("✓"), total)
}

func (p *ProgressIndicator) rel(path string) string {
	if p.base == "" {
		return path
	}
	if r, err := filepath.Rel(p.base, path); err == nil {
		return r
	}
	return path
}

// FormatStep renders one progress line.
func FormatStep(index, total int, path string, patterns int) string {
	total = max(total, 1)
	percent := fmt.Sprintf("%6.2f%%", 100*float64(index+1)/float64(total))
	if patterns == 0 {
		return fmt.Sprintf("  %s | ZERO regexes × %s", percent, path)
	}
	return fmt.Sprintf("  %s | %02d regexes × %s", percent, patterns, path)
}

// PrintMatches lists detections as "file:line [start,end) kind "text"" with the line quoted.
func PrintMatches(w io.Writer, base string, matches []versionscan.FileMatch) {
	for _, m := range matches {
		name := m.Path
		if r, err := filepath.Rel(base, m.Path); err == nil {
			name = r
		}
		fmt.Fprintf(w, "  %s:%d [%d,%d) %-12s %s | %s\n",
			name, m.Line, m.Span.Start, m.Span.End, m.Kind,
			color.CyanString("%q", m.Matched()), strings.TrimSpace(m.Text))
	}
}
