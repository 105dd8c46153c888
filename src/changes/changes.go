// Package changes detects which monorepo packages were touched by the most
// recent commit.
package changes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// Lister returns the repository-relative paths changed between the
// second-most-recent and most-recent commits.
type Lister interface {
	ChangedFiles(ctx context.Context) ([]string, error)
}

// ChangeSet is the result of one detection pass.
type ChangeSet struct {
	// Files are the raw paths reported by the lister.
	Files []string
	// Modified are the packages with at least one changed file, sorted.
	Modified []string
	// Existing are the package directories currently on disk, sorted.
	Existing []string
	// Present is Modified restricted to Existing. It is informational only;
	// the trigger stage walks Modified.
	Present []string
}

// Detector turns a list of changed files into a ChangeSet.
type Detector struct {
	Lister Lister
	// Root is the packages directory, relative to the repository root.
	Root string
}

// Detect lists changed files and derives the package sets. A lister error is
// returned unchanged in meaning so the run aborts before any build is triggered.
func (d *Detector) Detect(ctx context.Context) (*ChangeSet, error) {
	files, err := d.Lister.ChangedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files: %w", err)
	}

	existing, err := ExistingPackages(d.Root)
	if err != nil {
		return nil, err
	}

	modified := ModifiedPackages(files, d.Root)
	return &ChangeSet{
		Files:    files,
		Modified: modified,
		Existing: existing,
		Present:  intersect(modified, existing),
	}, nil
}

// ModifiedPackages extracts the unique, sorted immediate subdirectory names of
// root from paths. Paths outside root and files sitting directly in root are ignored.
func ModifiedPackages(paths []string, root string) []string {
	prefix := strings.Trim(path.Clean(strings.ReplaceAll(root, "\\", "/")), "/") + "/"

	seen := make(map[string]struct{})
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		name, _, isDir := strings.Cut(rest, "/")
		if !isDir || name == "" {
			continue
		}
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExistingPackages returns the sorted directory names under root. A missing
// root yields no packages.
func ExistingPackages(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read packages directory %s: %w", root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func intersect(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, name := range b {
		in[name] = struct{}{}
	}
	var out []string
	for _, name := range a {
		if _, ok := in[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
