package changes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (*git.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return repo, dir
}

// commitFiles writes files (empty content removes the file) and commits them.
func commitFiles(t *testing.T, repo *git.Repository, dir string, files map[string]string, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if content == "" {
			_, err := wt.Remove(name)
			require.NoError(t, err)
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestGoGit_ChangedFiles(t *testing.T) {
	repo, dir := initRepo(t)

	commitFiles(t, repo, dir, map[string]string{
		"packages/a/x.js": "a1",
		"packages/b/y.js": "b1",
		"packages/c/z.js": "c1",
		"README.md":       "readme",
	}, "initial")
	commitFiles(t, repo, dir, map[string]string{
		"packages/a/x.js": "a2",
		"packages/c/z.js": "",
		"packages/d/w.js": "d1",
	}, "second")

	files, err := NewGoGit(dir).ChangedFiles(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"packages/a/x.js", "packages/c/z.js", "packages/d/w.js"}, files)
	assert.Equal(t, []string{"a", "c", "d"}, ModifiedPackages(files, "packages"))
}

func TestGoGit_SubdirectoryDetectsRepo(t *testing.T) {
	repo, dir := initRepo(t)
	commitFiles(t, repo, dir, map[string]string{"packages/a/x.js": "1"}, "one")
	commitFiles(t, repo, dir, map[string]string{"packages/a/x.js": "2"}, "two")

	files, err := NewGoGit(filepath.Join(dir, "packages", "a")).ChangedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/a/x.js"}, files)
}

func TestGoGit_RootCommit(t *testing.T) {
	repo, dir := initRepo(t)
	commitFiles(t, repo, dir, map[string]string{"packages/a/x.js": "1"}, "root")

	files, err := NewGoGit(dir).ChangedFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGoGit_NotARepository(t *testing.T) {
	_, err := NewGoGit(t.TempDir()).ChangedFiles(context.Background())
	assert.Error(t, err)
}
