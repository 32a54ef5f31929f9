package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bcomnes/versionscan/internal/config"
	"github.com/bcomnes/versionscan/internal/display"
	"github.com/bcomnes/versionscan/internal/logger"
	versionscan "github.com/bcomnes/versionscan/pkg"
)

type cliOptions struct {
	path       string
	file       string
	regex      string
	exact      string
	part       string
	verbose    bool
	git        bool
	dry        bool
	yes        bool
	maxDepth   int
	configPath string
}

// newRootCommand creates the versionscan command. Prompts read from stdin;
// progress and results go to stdout, logs to stderr.
func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts cliOptions
	cmd := &cobra.Command{
		Use:   "versionscan [flags]",
		Short: "Find the project version wherever it is written and bump it everywhere",
		Long: `versionscan walks a source tree looking for semantic versions and build
numbers, agrees on the project's current version by counting how often each
one appears, bumps it and rewrites every occurrence in its original form.

Dates, switch cases, comment-only lines and lines containing
"versionscan: ignore" are never treated as versions.

Examples:
  versionscan                      # bump the build number of the project in ..
  versionscan -p . -s minor        # bump the minor version of the project in .
  versionscan -p . -e 2.0.0 -g     # write 2.0.0 everywhere, commit and tag v2.0.0
  versionscan -p . -f Info.plist -r '(\d+)</string>' --dry`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCLI(cmd, opts, stdin, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.path, "path", "p", "..", "root folder to scan")
	f.StringVarP(&opts.file, "file", "f", "", "source file holding the version, scanned first")
	f.StringVarP(&opts.regex, "regex", "r", "", "regex replacing the detection patterns for --file")
	f.StringVarP(&opts.exact, "exact", "e", "", "set this exact semver everywhere instead of bumping")
	f.StringVarP(&opts.part, "part", "s", "build", "part to bump: major, minor, patch or build")
	f.BoolVarP(&opts.verbose, "verbose", "l", false, "log every detection and veto")
	f.BoolVarP(&opts.git, "git", "g", false, "commit the rewritten files and tag the new version")
	f.BoolVar(&opts.dry, "dry", false, "report what would change without writing anything")
	f.BoolVarP(&opts.yes, "yes", "y", false, "rewrite without asking for approval")
	f.IntVar(&opts.maxDepth, "max-depth", versionscan.DefaultMaxDepth, "how many folder levels below the root to scan")
	f.StringVar(&opts.configPath, "config", "", "YAML config file (default <path>/"+config.FileName+")")
	return cmd
}

func loadConfig(cmd *cobra.Command, opts cliOptions, root string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		if _, statErr := os.Stat(opts.configPath); statErr != nil {
			return nil, fmt.Errorf("config file: %w", statErr)
		}
		cfg, err = config.LoadConfig(opts.configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(root)
	}
	if err != nil {
		return nil, err
	}
	if err := config.LoadEnv(root); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("part") {
		cfg.Part = opts.part
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = opts.maxDepth
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	if opts.git {
		cfg.GitTag = true
	}
	return cfg, cfg.Validate()
}

func runCLI(cmd *cobra.Command, opts cliOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	root, err := filepath.Abs(opts.path)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", opts.path, err)
	}
	if opts.regex != "" && opts.file == "" {
		return errors.New("--regex needs --file")
	}
	if opts.exact != "" {
		if _, err := versionscan.ParseVersion(opts.exact); err != nil {
			return fmt.Errorf("--exact: %w", err)
		}
	}

	cfg, err := loadConfig(cmd, opts, root)
	if err != nil {
		return err
	}
	part, err := versionscan.ParsePart(cfg.Part)
	if err != nil {
		return err
	}
	rc, err := cfg.Rules()
	if err != nil {
		return err
	}
	rules, err := versionscan.CompileRules(rc)
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(stderr, cfg.LogLevel)
	run := versionscan.Options{
		Root:       root,
		SourceFile: opts.file,
		Regex:      opts.regex,
		Exact:      opts.exact,
		Part:       part,
		MaxDepth:   cfg.MaxDepth,
		Rules:      rules,
		Log:        log,
		Progress:   display.NewProgressIndicator(stdout, root),
		GitTag:     cfg.GitTag && !opts.dry,
	}
	interactive := isInteractive(stdin)
	var chooser versionscan.Chooser = versionscan.GitTagChooser{Dir: root}
	if interactive {
		p := newPrompter(stdin, stdout)
		chooser = versionscan.GitTagChooser{Dir: root, Fallback: p}
		if !opts.yes {
			run.Approver = p
		}
	} else if !opts.yes && !opts.dry {
		return errors.New("stdin is not a terminal; pass --yes to rewrite without approval")
	}
	run.Chooser = chooser

	var meta versionscan.VersionMeta
	if opts.dry {
		meta, err = versionscan.DryRun(run)
	} else {
		meta, err = versionscan.Run(run)
	}
	if len(meta.Matches) > 0 && log.Level() == "debug" {
		fmt.Fprintln(stdout, "Detections:")
		display.PrintMatches(stdout, root, meta.Matches)
	}
	if err != nil {
		if meta.Reason != "" {
			log.Errorf("run %s aborted", meta.RunID)
		}
		return err
	}

	if opts.dry {
		fmt.Fprintln(stdout, "Dry run complete, no files were modified.")
	} else {
		fmt.Fprintln(stdout, "Version bump successful!")
	}
	fmt.Fprintf(stdout, "Old Version: %s\n", meta.OldVersion)
	fmt.Fprintf(stdout, "New Version: %s\n", meta.NewVersion)
	fmt.Fprintf(stdout, "Bump Type:   %s\n", meta.BumpType)
	if !opts.dry {
		fmt.Fprintf(stdout, "Rewritten:   %s locations\n", meta.Applied)
	}

	if len(meta.UpdatedFiles) > 0 {
		if opts.dry {
			fmt.Fprintln(stdout, "Files that would be updated:")
		} else {
			fmt.Fprintln(stdout, "Files updated:")
		}
		for _, f := range meta.UpdatedFiles {
			if rel, err := filepath.Rel(root, f); err == nil {
				f = rel
			}
			fmt.Fprintf(stdout, "  %s\n", f)
		}
	}
	return nil
}
