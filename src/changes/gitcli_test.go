package changes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const logArgs = "log -n 2 --pretty=format:%H"

type call struct {
	dir  string
	args string
}

// scriptedRunner answers git invocations from a map keyed by the joined arguments.
func scriptedRunner(calls *[]call, outputs map[string]string, failOn string) Runner {
	return func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		*calls = append(*calls, call{dir: dir, args: joined})
		if failOn != "" && strings.HasPrefix(joined, failOn) {
			return nil, errors.New("fatal: not a git repository")
		}
		return []byte(outputs[joined]), nil
	}
}

func TestGitCLI_ChangedFiles(t *testing.T) {
	diffArgs := "--no-pager diff --no-commit-id --name-only -r base222 HEAD"

	var calls []call
	g := &GitCLI{
		Dir: "/repo",
		Run: scriptedRunner(&calls, map[string]string{
			logArgs:  "head111\nbase222",
			diffArgs: "packages/a/x.js\npackages/b/y.js\n\nREADME.md\n",
		}, ""),
	}

	files, err := g.ChangedFiles(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"packages/a/x.js", "packages/b/y.js", "README.md"}, files)
	require.Len(t, calls, 2)
	assert.Equal(t, "/repo", calls[0].dir)
	assert.Equal(t, "/repo", calls[1].dir)
}

func TestGitCLI_SingleCommit(t *testing.T) {
	var calls []call
	g := &GitCLI{
		Run: scriptedRunner(&calls, map[string]string{
			logArgs: "only333",
		}, ""),
	}

	files, err := g.ChangedFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
	require.Len(t, calls, 2)
	assert.Equal(t, "--no-pager diff --no-commit-id --name-only -r only333 HEAD", calls[1].args)
}

func TestGitCLI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		outputs map[string]string
		failOn  string
	}{
		{
			name:   "log fails",
			failOn: "log",
		},
		{
			name:    "diff fails",
			outputs: map[string]string{logArgs: "a\nb"},
			failOn:  "--no-pager diff",
		},
		{
			name:    "no commits",
			outputs: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []call
			g := &GitCLI{Run: scriptedRunner(&calls, tt.outputs, tt.failOn)}

			_, err := g.ChangedFiles(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestExecRunner_IncludesStderr(t *testing.T) {
	_, err := ExecRunner(context.Background(), t.TempDir(), "git", "rev-parse", "--verify", "definitely-not-a-ref")
	if err == nil {
		t.Skip("git unexpectedly succeeded")
	}
	assert.Contains(t, err.Error(), "git rev-parse")
}
