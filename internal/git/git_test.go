package git

import (
	"context"
	stderrors "errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReader(t *testing.T) *Reader {
	t.Helper()
	reader, err := NewReader(context.Background())
	if err != nil {
		t.Skipf("git not available: %v", err)
	}
	return reader
}

func gitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func initRepo(t *testing.T, branch string) string {
	t.Helper()
	dir := t.TempDir()
	gitCmd(t, dir, "init", "--quiet")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "checkout", "--quiet", "-b", branch)
	return dir
}

func TestReader_CurrentBranch(t *testing.T) {
	reader := newReader(t)
	ctx := context.Background()

	t.Run("unborn branch in fresh repository", func(t *testing.T) {
		dir := initRepo(t, "feat/4176868-acomba-export")

		branch, err := reader.CurrentBranch(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, "feat/4176868-acomba-export", branch)
	})

	t.Run("branch after commit and checkout", func(t *testing.T) {
		dir := initRepo(t, "main")
		gitCmd(t, dir, "commit", "--quiet", "--allow-empty", "-m", "initial")
		gitCmd(t, dir, "checkout", "--quiet", "-b", "fix/123456-rounding")

		branch, err := reader.CurrentBranch(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, "fix/123456-rounding", branch)
	})

	t.Run("detached head is no branch", func(t *testing.T) {
		dir := initRepo(t, "main")
		gitCmd(t, dir, "commit", "--quiet", "--allow-empty", "-m", "initial")
		gitCmd(t, dir, "checkout", "--quiet", "--detach")

		_, err := reader.CurrentBranch(ctx, dir)
		assert.True(t, stderrors.Is(err, ErrNoBranch), "got %v", err)
	})

	t.Run("plain directory is no branch", func(t *testing.T) {
		_, err := reader.CurrentBranch(ctx, t.TempDir())
		assert.True(t, stderrors.Is(err, ErrNoBranch), "got %v", err)
	})

	t.Run("missing directory is no branch", func(t *testing.T) {
		_, err := reader.CurrentBranch(ctx, filepath.Join(t.TempDir(), "gone"))
		assert.True(t, stderrors.Is(err, ErrNoBranch), "got %v", err)
	})
}

func TestReader_RemoteOriginURL(t *testing.T) {
	reader := newReader(t)
	ctx := context.Background()
	dir := initRepo(t, "main")

	_, err := reader.RemoteOriginURL(ctx, dir)
	assert.True(t, stderrors.Is(err, ErrNoRemote), "got %v", err)

	gitCmd(t, dir, "remote", "add", "origin", "git@github.com:acme/payroll.git")
	url, err := reader.RemoteOriginURL(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:acme/payroll.git", url)
}
