// Package main implements a CLI tool that finds the version of a project
// wherever it is written, bumps it and rewrites every occurrence.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
