package changes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a command in dir and returns its stdout.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// GitCLI lists changed files by shelling out to git.
type GitCLI struct {
	// Dir is the working directory git runs in. Empty means the current directory.
	Dir string
	// Run defaults to ExecRunner.
	Run Runner
}

// NewGitCLI returns a GitCLI that runs the real git binary in dir.
func NewGitCLI(dir string) *GitCLI {
	return &GitCLI{Dir: dir, Run: ExecRunner}
}

// ExecRunner runs the command with os/exec, folding stderr into the error.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}

// ChangedFiles diffs the second-most-recent commit against HEAD.
// With a single commit the base is HEAD itself and nothing is reported.
func (g *GitCLI) ChangedFiles(ctx context.Context) ([]string, error) {
	run := g.Run
	if run == nil {
		run = ExecRunner
	}

	out, err := run(ctx, g.Dir, "git", "log", "-n", "2", "--pretty=format:%H")
	if err != nil {
		return nil, err
	}
	commits := splitLines(out)
	if len(commits) == 0 {
		return nil, errors.New("git log returned no commits")
	}
	base := commits[len(commits)-1]

	out, err = run(ctx, g.Dir, "git", "--no-pager", "diff", "--no-commit-id", "--name-only", "-r", base, "HEAD")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func splitLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
