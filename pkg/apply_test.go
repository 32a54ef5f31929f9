package versionscan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	v124, _ := ParseVersion("1.2.4")
	tests := []struct {
		name string
		m    FileMatch
		to   CanonicalVersion
		want string
	}{
		{"semver", detection("/p/a", 1, "1.2.3", 0, 5, KindSemver), v124, "1.2.4"},
		{"v prefix", detection("/p/a", 1, "tag v1.2.3", 4, 10, KindNoCaps), v124, "v1.2.4"},
		{"decimal", detection("/p/a", 1, "build 417", 6, 9, KindBuildNr), BuildOnly(418), "418"},
		{"round decimal", detection("/p/a", 1, "417.0;", 0, 5, KindBuildNr), BuildOnly(418), "418.0"},
		{"round decimal two zeros", detection("/p/a", 1, "417.00", 0, 6, KindBuildNr), BuildOnly(1000), "1000.00"},
		{"hex upper", detection("/p/a", 1, "0x1A", 0, 4, KindBuildNrHex), BuildOnly(27), "0x1B"},
		{"hex lower keeps width", detection("/p/a", 1, "0x001a", 0, 6, KindBuildNrHex), BuildOnly(27), "0x001b"},
		{"hex grows", detection("/p/a", 1, "0X00FF", 0, 6, KindBuildNrHex), BuildOnly(256), "0X0100"},
		{"bare number without a build kind", detection("/p/a", 1, "<string>417</string>", 8, 11, KindNoCaps), BuildOnly(418), "418"},
		{"build from a full version", detection("/p/a", 1, "417", 0, 3, KindBuildNr), CanonicalVersion{Major: 1, Build: "ci.418"}, "418"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Render(tc.m, tc.to)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := Render(detection("/p/a", 1, "417", 0, 3, KindBuildNr), v124)
	assert.Error(t, err, "a version without a build cannot replace a build number")
}

func TestTargets(t *testing.T) {
	ms := []FileMatch{
		detection("/p/a", 1, "version 1.2.3+417", 8, 17, KindSemver),
		detection("/p/a", 2, "build 417", 6, 9, KindBuildNr),
		detection("/p/a", 3, "version 1.2.3", 8, 13, KindSemver),
		detection("/p/a", 4, "ratio 417.5", 6, 11, KindBuildNr),
		detection("/p/a", 5, "build 9", 6, 7, KindBuildNr),
	}
	from, _ := ParseVersion("1.2.3+417")
	to, _ := Bump(from, PartBuild)

	got := Targets(ms, from, to, false)
	assert.Equal(t, []int{1, 2}, lineNumbers(got))

	plain, _ := ParseVersion("1.2.3")
	got = Targets(ms, plain, CanonicalVersion{Major: 1, Minor: 2, Patch: 4}, false)
	assert.Equal(t, []int{3}, lineNumbers(got))

	exact, _ := ParseVersion("2.0.0")
	got = Targets(ms, plain, exact, true)
	assert.Equal(t, []int{1, 3}, lineNumbers(got), "bare build numbers stay when the new version has no build")

	exact, _ = ParseVersion("2.0.0+5")
	got = Targets(ms, plain, exact, true)
	assert.Equal(t, []int{1, 2, 3, 5}, lineNumbers(got))
}

func lineNumbers(ms []FileMatch) []int {
	out := []int{}
	for _, m := range ms {
		out = append(out, m.Line)
	}
	return out
}

// scanOne scans a single file with the default rules.
func scanOne(t *testing.T, path string) []FileMatch {
	t.Helper()
	ms, err := NewScanner(nil, nil).ScanFile(path)
	require.NoError(t, err)
	return ms
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("version 1.2.3\r\nbuild 417\r\nother 9.9.9\r\nagain 1.2.3\r\n"), 0o600))

	ms := scanOne(t, path)
	from, _ := ParseVersion("1.2.3")
	to, _ := ParseVersion("1.2.4")
	targets := Targets(ms, from, to, false)
	require.Len(t, targets, 2)

	res, err := Apply(targets, to, nil)
	require.NoError(t, err)
	assert.Equal(t, SuccessCounter{Success: 2, Total: 2}, res.SuccessCounter)
	assert.True(t, res.AllSucceeded())
	assert.Equal(t, 1.0, res.Ratio())
	assert.Equal(t, []string{path}, res.UpdatedFiles)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version 1.2.4\r\nbuild 417\r\nother 9.9.9\r\nagain 1.2.4\r\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err), "no lock file next to the rewritten file")
	_, err = os.Stat(lockPath(path))
	assert.NoError(t, err, "the lock file stays in place after the rewrite")
	t.Cleanup(func() { os.Remove(lockPath(path)) })
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestLockPath(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")

	assert.Equal(t, lockPath(a), lockPath(a))
	assert.NotEqual(t, lockPath(a), lockPath(b))
	assert.Equal(t, os.TempDir(), filepath.Dir(lockPath(a)))
	assert.True(t, strings.HasSuffix(lockPath(a), ".lock"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	assert.Equal(t, lockPath(a), lockPath("a.txt"), "relative paths share the lock of their absolute path")
}

func TestApplySkipsStaleLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("version 1.2.3\nbuild 417\n"), 0o644))
	ms := scanOne(t, path)

	require.NoError(t, os.WriteFile(path, []byte("version 1.2.3 (edited)\nbuild 417\n"), 0o644))

	res, err := Apply(ms, BuildOnly(418), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success, "only the unchanged build line is rewritten")
	assert.Equal(t, 2, res.Total)
	assert.False(t, res.AllSucceeded())
	assert.Equal(t, "1/2", res.SuccessCounter.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version 1.2.3 (edited)\nbuild 418\n", string(data))
}

func TestApplyNothingChanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("version 1.2.3\n"), 0o644))
	ms := scanOne(t, path)
	require.NoError(t, os.WriteFile(path, []byte("version 2.0.0\n"), 0o644))

	res, err := Apply(ms, CanonicalVersion{Major: 1, Minor: 2, Patch: 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Success)
	assert.Empty(t, res.UpdatedFiles)
	assert.Equal(t, 0.0, SuccessCounter{}.Ratio())
}

func TestApplyKeepsEncoding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("caf\xe9 version 1.2.3\n"), 0o644))
	ms := scanOne(t, path)
	require.Len(t, ms, 1)
	assert.Equal(t, "windows-1252", ms[0].Encoding)

	res, err := Apply(ms, CanonicalVersion{Major: 1, Minor: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("caf\xe9 version 1.3.0\n"), data)
}
