package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// TestCLIBinaryIntegration builds the versionscan CLI and bumps the patch
// version of a temp repo whose version lives in a README, an Info.plist and a
// Go file, asserting every file is rewritten and a v1.2.4 tag is created.
func TestCLIBinaryIntegration(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	// 1. Build the CLI binary.
	// Since this test resides in cmd/integration, the main package is in its parent directory ("../../").
	binPath := filepath.Join(t.TempDir(), "versionscan")
	buildCmd := exec.Command("go", "build", "-o", binPath, "../../")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build CLI binary: %v; build output: %s", err, out)
	}

	// 2. Set up a temporary git repository for testing.
	tmpRepo := t.TempDir()
	runGit := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = tmpRepo
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	runGit("init")
	runGit("config", "user.email", "test@example.com")
	runGit("config", "user.name", "Test User")
	runGit("config", "commit.gpgsign", "false")
	runGit("config", "tag.gpgsign", "false")

	// 3. Write the project files.
	files := map[string]string{
		"README.md": "# Demo\n\nversion: 1.2.3\n",
		"App/Info.plist": "<key>CFBundleShortVersionString</key>\n<string>1.2.3</string>\n" +
			"<key>CFBundleVersion</key>\n<string>417</string>\n",
		"pkg/version.go": "package version\n\nvar (\n\tVersion = \"1.2.3\"\n)\n",
		"pkg/switch.go":  "package version\n\nfunc kind(n int) string {\n\tswitch n {\n\tcase 123:\n\t\treturn \"x\"\n\t}\n\treturn \"\"\n}\n",
	}
	for rel, content := range files {
		path := filepath.Join(tmpRepo, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}

	// 4. Stage and commit the initial files.
	runGit("add", ".")
	runGit("commit", "-m", "initial commit")

	// 5. Run the CLI binary.
	cliCmd := exec.Command(binPath, "-p", tmpRepo, "-s", "patch", "-y", "-g")
	cliCmd.Dir = tmpRepo
	var cliStdout, cliStderr bytes.Buffer
	cliCmd.Stdout = &cliStdout
	cliCmd.Stderr = &cliStderr
	if err := cliCmd.Run(); err != nil {
		t.Fatalf("CLI command failed: %v; stdout: %s; stderr: %s", err, cliStdout.String(), cliStderr.String())
	}
	if !strings.Contains(cliStdout.String(), "New Version: 1.2.4") {
		t.Errorf("expected the new version in the output, got:\n%s", cliStdout.String())
	}

	// 6. Verify every occurrence was rewritten and everything else was left alone.
	expectations := map[string][]string{
		"README.md":      {"version: 1.2.4"},
		"App/Info.plist": {"<string>1.2.4</string>", "<string>417</string>"},
		"pkg/version.go": {`Version = "1.2.4"`},
		"pkg/switch.go":  {"case 123:"},
	}
	for rel, wants := range expectations {
		content, err := os.ReadFile(filepath.Join(tmpRepo, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("failed to read %s: %v", rel, err)
		}
		for _, want := range wants {
			if !strings.Contains(string(content), want) {
				t.Errorf("%s: expected %q in content, got:\n%s", rel, want, content)
			}
		}
	}

	// 7. Verify that a git tag "v1.2.4" was created on a clean tree.
	gitTagCmd := exec.Command("git", "tag")
	gitTagCmd.Dir = tmpRepo
	tagOutput, err := gitTagCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git tag command failed: %v; output: %s", err, tagOutput)
	}
	tags := strings.Split(strings.TrimSpace(string(tagOutput)), "\n")
	if !slices.Contains(tags, "v1.2.4") {
		t.Errorf("expected git tag %q not found; got tags: %v", "v1.2.4", tags)
	}

	statusCmd := exec.Command("git", "status", "--porcelain")
	statusCmd.Dir = tmpRepo
	status, err := statusCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git status failed: %v; output: %s", err, status)
	}
	if len(bytes.TrimSpace(status)) != 0 {
		t.Errorf("expected a clean working tree, got:\n%s", status)
	}
}

// TestCLIBinaryAbortsOnEmptyTree checks the exit status of a run with nothing to scan.
func TestCLIBinaryAbortsOnEmptyTree(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "versionscan")
	buildCmd := exec.Command("go", "build", "-o", binPath, "../../")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build CLI binary: %v; build output: %s", err, out)
	}

	cmd := exec.Command(binPath, "-p", t.TempDir(), "-y")
	out, err := cmd.CombinedOutput()
	exitErr, ok := err.(*exec.ExitError)
	if !ok || exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit status 1, got %v\n%s", err, out)
	}
}
