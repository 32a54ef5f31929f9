package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	versionscan "github.com/bcomnes/versionscan/pkg"
)

// isInteractive reports whether r is a terminal a user can answer prompts on.
func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// prompter asks the user on in/out to settle ambiguous versions and approve rewrites.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Choose lists the candidates and reads the number of the one to use. An empty answer picks the first.
func (p *prompter) Choose(candidates []versionscan.Candidate) (versionscan.CanonicalVersion, error) {
	fmt.Fprintln(p.out, "Detected versions disagree:")
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  [%d] %-20s %d occurrences\n", i+1, c.Version, c.Count)
	}
	fmt.Fprintf(p.out, "Which one is current? [1-%d] ", len(candidates))
	answer, err := p.readLine()
	if err != nil {
		return versionscan.CanonicalVersion{}, fmt.Errorf("reading answer: %w", err)
	}
	if answer == "" {
		return candidates[0].Version, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(candidates) {
		return versionscan.CanonicalVersion{}, fmt.Errorf("no candidate %q", answer)
	}
	return candidates[n-1].Version, nil
}

// Approve shows the planned rewrite and asks for a yes.
func (p *prompter) Approve(from, to versionscan.CanonicalVersion, targets []versionscan.FileMatch) (bool, error) {
	fmt.Fprintf(p.out, "Change %s -> %s in %d locations? [y/N] ",
		color.YellowString(from.String()), color.GreenString(to.String()), len(targets))
	answer, err := p.readLine()
	if err != nil {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
