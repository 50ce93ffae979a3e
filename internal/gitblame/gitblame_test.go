package gitblame

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func newTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))
	runGit(t, dir, "add", "a.go")
	runGit(t, dir, "commit", "-q", "-m", "add A")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc A() { return }\n"), 0o644))
	runGit(t, dir, "add", "a.go")
	runGit(t, dir, "commit", "-q", "-m", "tweak A")

	return dir
}

func TestBlame_ReturnsCommitsTouchingRange(t *testing.T) {
	repo := newTestRepo(t)

	entries, err := Blame(context.Background(), repo, "a.go", 1, 3, 0)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		assert.Len(t, e.CommitHash, 40)
		assert.NotEmpty(t, e.Author)
		assert.NotEmpty(t, e.Date)
	}
}

func TestBlame_InvalidRangeErrors(t *testing.T) {
	repo := newTestRepo(t)
	_, err := Blame(context.Background(), repo, "a.go", 5, 1, 0)
	assert.Error(t, err)
}

func TestBlame_CapsAtMaxEntries(t *testing.T) {
	repo := newTestRepo(t)
	entries, err := Blame(context.Background(), repo, "a.go", 1, 3, 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 1)
}
