package versionscan

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	readme  = "# App\n\nversion: 1.2.3\n"
	infoPl  = "<key>CFBundleShortVersionString</key>\n<string>1.2.3</string>\n<key>CFBundleVersion</key>\n<string>417</string>\n"
	goFile  = "package version\n\nvar Version = \"1.2.3\"\n"
	noVerGo = "package main\n\nfunc main() {}\n"
)

// projectTree writes a small app whose version 1.2.3 appears in three files.
func projectTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"README.md":          readme,
		"App/Info.plist":     infoPl,
		"Sources/version.go": goFile,
		"Sources/main.go":    noVerGo,
	})
	return root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunPatchBump(t *testing.T) {
	root := projectTree(t)
	meta, err := Run(Options{Root: root, Part: PartPatch})
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", meta.OldVersion)
	assert.Equal(t, "1.2.4", meta.NewVersion)
	assert.Equal(t, "patch", meta.BumpType)
	assert.Equal(t, DecisionDetected, meta.Decision)
	assert.Equal(t, 0, meta.ExitCode)
	assert.NotEmpty(t, meta.RunID)
	assert.Len(t, meta.Matches, 4)
	assert.Len(t, meta.Targets, 3)
	assert.Equal(t, SuccessCounter{Success: 3, Total: 3}, meta.Applied)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "README.md"),
		filepath.Join(root, "App", "Info.plist"),
		filepath.Join(root, "Sources", "version.go"),
	}, meta.UpdatedFiles)

	assert.Equal(t, "# App\n\nversion: 1.2.4\n", readFile(t, filepath.Join(root, "README.md")))
	assert.Equal(t, strings.Replace(infoPl, "1.2.3", "1.2.4", 1), readFile(t, filepath.Join(root, "App", "Info.plist")))
	assert.Equal(t, "package version\n\nvar Version = \"1.2.4\"\n", readFile(t, filepath.Join(root, "Sources", "version.go")))
	assert.Equal(t, noVerGo, readFile(t, filepath.Join(root, "Sources", "main.go")))
}

func TestRunBuildBump(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"README.md":            readme,
		"App/Info.plist":       "<key>CFBundleVersion</key>\n<string>417</string>\n",
		"Extension/Info.plist": "<key>CFBundleVersion</key>\n<string>417</string>\n",
	})
	meta, err := Run(Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0+417", meta.OldVersion)
	assert.Equal(t, "0.0.0+418", meta.NewVersion)
	assert.Equal(t, "build", meta.BumpType)

	for _, f := range []string{"App/Info.plist", "Extension/Info.plist"} {
		assert.Equal(t, "<key>CFBundleVersion</key>\n<string>418</string>\n", readFile(t, filepath.Join(root, f)))
	}
	assert.Equal(t, readme, readFile(t, filepath.Join(root, "README.md")))
}

func TestRunExact(t *testing.T) {
	root := projectTree(t)
	meta, err := Run(Options{Root: root, Exact: "2.0.0"})
	require.NoError(t, err)
	assert.Equal(t, DecisionForced, meta.Decision)
	assert.Equal(t, "1.2.3", meta.OldVersion)
	assert.Equal(t, "2.0.0", meta.NewVersion)
	assert.Equal(t, "exact", meta.BumpType)
	assert.Equal(t, 3, meta.Applied.Success)
	assert.Contains(t, readFile(t, filepath.Join(root, "App", "Info.plist")), "<string>417</string>")
}

func TestRunInvalidExactIsIgnored(t *testing.T) {
	root := projectTree(t)
	meta, err := DryRun(Options{Root: root, Exact: "two", Part: PartMinor})
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", meta.NewVersion)
	assert.Equal(t, "minor", meta.BumpType)
}

func TestDryRun(t *testing.T) {
	root := projectTree(t)
	approver := ApproverFunc(func(CanonicalVersion, CanonicalVersion, []FileMatch) (bool, error) {
		t.Fatal("a dry run never asks for approval")
		return false, nil
	})
	meta, err := DryRun(Options{Root: root, Part: PartMajor, Approver: approver})
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", meta.NewVersion)
	assert.Len(t, meta.UpdatedFiles, 3)
	assert.Equal(t, SuccessCounter{}, meta.Applied)
	assert.Equal(t, readme, readFile(t, filepath.Join(root, "README.md")))
}

func TestRunAborts(t *testing.T) {
	meta, err := Run(Options{Root: t.TempDir()})
	assert.True(t, errors.Is(err, ErrNoFiles))
	assert.Equal(t, 1, meta.ExitCode)
	assert.Contains(t, meta.Reason, "no eligible files")

	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.go": noVerGo})
	meta, err = Run(Options{Root: root})
	assert.True(t, errors.Is(err, ErrNoMatches))
	assert.Equal(t, 1, meta.ExitCode)
}

func TestRunAmbiguous(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"README.md":  readme,
		"version.go": "package v\n\nconst V = \"1.2.4\"\n",
	})
	meta, err := Run(Options{Root: root, Part: PartPatch})
	assert.ErrorIs(t, err, ErrAmbiguous)
	assert.Equal(t, DecisionAmbiguous, meta.Decision)
	assert.Equal(t, 1, meta.ExitCode)

	var offered []string
	chooser := ChooserFunc(func(c []Candidate) (CanonicalVersion, error) {
		for _, cand := range c {
			offered = append(offered, cand.Version.String())
		}
		return c[1].Version, nil
	})
	meta, err = Run(Options{Root: root, Part: PartPatch, Chooser: chooser})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.4", "1.2.3"}, offered)
	assert.Equal(t, "1.2.4", meta.NewVersion)
	assert.Equal(t, "# App\n\nversion: 1.2.4\n", readFile(t, filepath.Join(root, "README.md")))
}

func TestRunNotApproved(t *testing.T) {
	root := projectTree(t)
	var seen int
	decline := ApproverFunc(func(from, to CanonicalVersion, targets []FileMatch) (bool, error) {
		seen = len(targets)
		assert.Equal(t, "1.2.3", from.String())
		assert.Equal(t, "1.3.0", to.String())
		return false, nil
	})
	meta, err := Run(Options{Root: root, Part: PartMinor, Approver: decline})
	assert.ErrorIs(t, err, ErrNotApproved)
	assert.Equal(t, 1, meta.ExitCode)
	assert.Equal(t, 3, seen)
	assert.Equal(t, readme, readFile(t, filepath.Join(root, "README.md")))

	_, err = Run(Options{Root: root, Part: PartMinor, Approver: AutoApprove})
	require.NoError(t, err)
	assert.Equal(t, "# App\n\nversion: 1.3.0\n", readFile(t, filepath.Join(root, "README.md")))
}

func TestRunSourceFileRegex(t *testing.T) {
	root := projectTree(t)
	plist := filepath.Join(root, "App", "Info.plist")

	_, err := Run(Options{Root: root, Regex: `(\d+)`})
	assert.Error(t, err, "an override regex without a source file")

	_, err = Run(Options{Root: root, SourceFile: plist, Regex: `(?P<bogus>\d+)`})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	meta, err := DryRun(Options{Root: root, SourceFile: plist, Regex: `<string>(\d+)</string>`})
	require.NoError(t, err)
	require.NotEmpty(t, meta.Matches)
	assert.Equal(t, plist, meta.Matches[0].Path)
	assert.Equal(t, KindNoCaps, meta.Matches[0].Kind)
}

// initRepo turns dir into a git repository with everything committed.
func initRepo(t *testing.T, dir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	runGit := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	runGit("init")
	runGit("config", "user.email", "test@example.com")
	runGit("config", "user.name", "Test User")
	runGit("config", "commit.gpgsign", "false")
	runGit("config", "tag.gpgsign", "false")
	runGit("add", ".")
	runGit("commit", "-m", "initial commit")
}

func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(out))
}

// TestGitIntegration bumps a committed project and checks the commit and tag.
func TestGitIntegration(t *testing.T) {
	root := projectTree(t)
	initRepo(t, root)

	meta, err := Run(Options{Root: root, Part: PartPatch, GitTag: true})
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", meta.NewVersion)

	assert.Equal(t, "v1.2.4", gitOutput(t, root, "tag"))
	assert.Equal(t, "1.2.4", gitOutput(t, root, "log", "-1", "--pretty=%s"))
	assert.Empty(t, gitOutput(t, root, "status", "--porcelain"))

	tag, err := LatestTag(root)
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", tag)
}

func TestRejectsDirtyWorkingDir(t *testing.T) {
	root := projectTree(t)
	initRepo(t, root)
	writeTree(t, root, map[string]string{"notes.txt": "todo\n"})

	_, err := Run(Options{Root: root, Part: PartPatch, GitTag: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "working directory is dirty")
	assert.Equal(t, readme, readFile(t, filepath.Join(root, "README.md")))
}

func TestGitTagChooser(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"README.md":  readme,
		"version.go": "package v\n\nconst V = \"1.2.4\"\n",
	})
	initRepo(t, root)
	gitOutput(t, root, "tag", "v1.2.3")

	meta, err := DryRun(Options{Root: root, Part: PartPatch, Chooser: GitTagChooser{Dir: root}})
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", meta.OldVersion)

	_, err = GitTagChooser{Dir: t.TempDir()}.Choose(nil)
	assert.Error(t, err)

	fallback := ChooserFunc(func(c []Candidate) (CanonicalVersion, error) {
		return CanonicalVersion{Major: 9}, nil
	})
	v, err := GitTagChooser{Dir: t.TempDir(), Fallback: fallback}.Choose(nil)
	require.NoError(t, err)
	assert.Equal(t, "9.0.0", v.String())
}

func TestLocateGitDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	got, err := LocateGitDir(deep)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	tooDeep := filepath.Join(root, "a", "b", "c", "d", "e", "f")
	require.NoError(t, os.MkdirAll(tooDeep, 0o755))
	_, err = LocateGitDir(tooDeep)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
