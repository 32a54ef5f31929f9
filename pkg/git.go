package versionscan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// maxGitSearchDepth is how many parent folders are searched for a .git directory.
const maxGitSearchDepth = 4

// checkGit verifies that git is available on the system.
func checkGit() error {
	cmd := exec.Command("git", "--version")
	if err := cmd.Run(); err != nil {
		return errors.New("git is not available on the system")
	}
	return nil
}

// LocateGitDir walks up from startDir, at most four parents, until it finds a
// folder holding .git. Returns os.ErrNotExist if none is found.
func LocateGitDir(startDir string) (string, error) {
	d, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for i := 0; i <= maxGitSearchDepth; i++ {
		if _, err := os.Stat(filepath.Join(d, ".git")); err == nil {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return "", os.ErrNotExist
}

// LatestTag returns the most recent tag reachable in dir, without a leading "v".
func LatestTag(dir string) (string, error) {
	cmd := exec.Command("git", "describe", "--tags", "--abbrev=0")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get version from git in %q: %v", dir, err)
	}
	tag := strings.TrimSpace(string(out))
	return strings.TrimPrefix(tag, "v"), nil
}

// checkUncommittedFiles ensures only allowed files are modified in the repository at dir.
func checkUncommittedFiles(dir string, allowed []string) error {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to check git status: %w", err)
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("failed to resolve path %q: %w", f, err)
		}
		allowedSet[abs] = struct{}{}
	}

	var disallowed []string
	for _, line := range bytes.Split(out, []byte("\n")) {
		if len(line) < 4 {
			continue
		}
		path := string(bytes.TrimSpace(line[3:]))
		if _, ok := allowedSet[filepath.Join(dir, path)]; !ok {
			disallowed = append(disallowed, path)
		}
	}

	if len(disallowed) > 0 {
		return fmt.Errorf("working directory is dirty; uncommitted files not included in commit: %v", disallowed)
	}
	return nil
}

// CommitAndTag stages files in the git repository nearest to dir, commits them
// with version as the message and tags the commit "v"+version.
func CommitAndTag(dir, version string, files []string) error {
	if err := checkGit(); err != nil {
		return err
	}
	repo, err := LocateGitDir(dir)
	if err != nil {
		return fmt.Errorf("no git repository within %d folders of %s", maxGitSearchDepth, dir)
	}
	version = strings.TrimPrefix(version, "v")

	run := func(args ...string) error {
		cmd := exec.Command("git", args...)
		cmd.Dir = repo
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("git %s failed: %v, detail: %s", args[0], err, stderr.String())
		}
		return nil
	}

	if len(files) > 0 {
		if err := run(append([]string{"add"}, files...)...); err != nil {
			return err
		}
	}
	if err := run("commit", "-m", version); err != nil {
		return err
	}
	return run("tag", "v"+version)
}
