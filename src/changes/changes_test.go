package changes

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	files []string
	err   error
}

func (s staticLister) ChangedFiles(ctx context.Context) ([]string, error) {
	return s.files, s.err
}

func TestModifiedPackages(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		root  string
		want  []string
	}{
		{
			name:  "unique and sorted",
			paths: []string{"packages/web/src/app.js", "packages/api/main.go", "packages/web/package.json", "packages/api/go.mod"},
			root:  "packages",
			want:  []string{"api", "web"},
		},
		{
			name:  "paths outside root are ignored",
			paths: []string{"README.md", "docs/packages/x.md", "tools/packages/y/z.go", "packages/lib/index.ts"},
			root:  "packages",
			want:  []string{"lib"},
		},
		{
			name:  "files directly in root are not packages",
			paths: []string{"packages/README.md", "packages/core/a.go"},
			root:  "packages",
			want:  []string{"core"},
		},
		{
			name:  "root given with trailing slash and dot prefix",
			paths: []string{"packages/a/x.js"},
			root:  "./packages/",
			want:  []string{"a"},
		},
		{
			name:  "nested root",
			paths: []string{"src/packages/a/x.js", "packages/b/y.js"},
			root:  "src/packages",
			want:  []string{"a"},
		},
		{
			name:  "blank lines and whitespace",
			paths: []string{"", "  packages/a/x.js  ", "packages/"},
			root:  "packages",
			want:  []string{"a"},
		},
		{
			name:  "no paths",
			paths: nil,
			root:  "packages",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModifiedPackages(tt.paths, tt.root))
		})
	}
}

func TestExistingPackages(t *testing.T) {
	root := filepath.Join(t.TempDir(), "packages")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o600))

	got, err := ExistingPackages(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestExistingPackages_MissingRoot(t *testing.T) {
	got, err := ExistingPackages(filepath.Join(t.TempDir(), "packages"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetector_Detect(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "packages", "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "packages", "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "packages", "d"), 0o755))
	t.Chdir(tmp)

	files := []string{"packages/a/x.js", "packages/b/y.js", "packages/c/z.js"}
	d := &Detector{Lister: staticLister{files: files}, Root: "packages"}

	set, err := d.Detect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, files, set.Files)
	assert.Equal(t, []string{"a", "b", "c"}, set.Modified)
	assert.Equal(t, []string{"a", "b", "d"}, set.Existing)
	assert.Equal(t, []string{"a", "b"}, set.Present)
}

func TestDetector_ListerError(t *testing.T) {
	boom := errors.New("fatal: bad revision")
	d := &Detector{Lister: staticLister{err: boom}, Root: "packages"}

	_, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
