package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"monobuild/src/changes"
	"monobuild/src/config"
	"monobuild/src/provider"
)

// errCancelled is returned when the user quits the progress view mid-run.
var errCancelled = errors.New("run cancelled by user")

// requiredVars lists the environment a command needs before it may call CircleCI.
func requiredVars(command string, dryRun bool) []string {
	switch command {
	case "run", "trigger":
		if dryRun {
			return nil
		}
		return config.TriggerVars
	case "poll":
		return []string{config.EnvProjectUsername, config.EnvProjectRepoName, config.EnvToken}
	case "watch":
		return []string{config.EnvToken}
	}
	return nil
}

// stageError reports a stage cut short by quitting the view as a user cancellation.
func stageError(err error, quit bool) error {
	if quit && errors.Is(err, context.Canceled) {
		return errCancelled
	}
	return err
}

// readBuildMap decodes a package to build number map.
func readBuildMap(r io.Reader) (provider.BuildMap, error) {
	var builds provider.BuildMap
	if err := json.NewDecoder(r).Decode(&builds); err != nil {
		return nil, fmt.Errorf("failed to decode build map: %w", err)
	}
	for pkg, num := range builds {
		if num <= 0 {
			return nil, fmt.Errorf("invalid build number %d for %s", num, pkg)
		}
	}
	if builds == nil {
		builds = provider.BuildMap{}
	}
	return builds, nil
}

// writeBuildMap encodes builds as indented JSON with sorted keys.
func writeBuildMap(w io.Writer, builds provider.BuildMap) error {
	if builds == nil {
		builds = provider.BuildMap{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(builds); err != nil {
		return fmt.Errorf("failed to encode build map: %w", err)
	}
	return nil
}

// printChangeSet writes one modified package per line. With details, the
// existing and present package lists follow.
func printChangeSet(w io.Writer, set *changes.ChangeSet, details bool) {
	for _, pkg := range set.Modified {
		fmt.Fprintln(w, pkg)
	}
	if !details {
		return
	}
	fmt.Fprintf(w, "\nchanged files: %d\n", len(set.Files))
	fmt.Fprintf(w, "existing: %s\n", strings.Join(set.Existing, ", "))
	fmt.Fprintf(w, "present:  %s\n", strings.Join(set.Present, ", "))
}
