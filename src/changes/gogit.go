package changes

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GoGit lists changed files in-process with go-git.
type GoGit struct {
	// Dir is any path inside the repository.
	Dir string
}

// NewGoGit returns a GoGit lister for the repository containing dir.
func NewGoGit(dir string) *GoGit {
	return &GoGit{Dir: dir}
}

// ChangedFiles diffs HEAD's first parent tree against HEAD's tree. Deleted and
// renamed files report both their old and new paths.
func (g *GoGit) ChangedFiles(ctx context.Context) ([]string, error) {
	dir := g.Dir
	if dir == "" {
		dir = "."
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("get commit object: %w", err)
	}
	if commit.NumParents() == 0 {
		return nil, nil
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("get parent commit: %w", err)
	}

	headTree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get tree: %w", err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("get parent tree: %w", err)
	}

	diff, err := object.DiffTreeWithOptions(ctx, parentTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		files = append(files, name)
	}
	for _, change := range diff {
		add(change.From.Name)
		add(change.To.Name)
	}

	return files, nil
}
