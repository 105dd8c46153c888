// Package trigger submits a CI build for every monorepo package changed by the
// most recent commit.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"monobuild/src/changes"
	"monobuild/src/logger"
	"monobuild/src/provider"
)

// ChangeDetector produces the set of changed packages.
type ChangeDetector interface {
	Detect(ctx context.Context) (*changes.ChangeSet, error)
}

// Observer is notified as builds are triggered or skipped.
type Observer interface {
	BuildTriggered(pkg string, buildNum int)
	BuildSkipped(pkg, reason string)
}

// Plan describes what the trigger stage will do for one modified package.
type Plan struct {
	Package    string
	ConfigPath string
	// Skip is set when the package has no CI configuration file.
	Skip bool
}

// Trigger runs change detection and submits one build per modified package.
type Trigger struct {
	Provider provider.Provider
	Detector ChangeDetector
	Branch   string
	// PackagesRoot is the directory holding the packages.
	PackagesRoot string
	// ConfigPath is the CI configuration file path relative to a package directory.
	ConfigPath string
	Log        logger.Logger
	Observers  []Observer
}

// Plan detects modified packages and resolves their configuration files
// without contacting the provider.
func (t *Trigger) Plan(ctx context.Context) ([]Plan, error) {
	set, err := t.Detector.Detect(ctx)
	if err != nil {
		return nil, err
	}

	t.Log.Info("Modified packages: %v", set.Modified)
	t.Log.Debug("Existing packages: %v", set.Existing)
	t.Log.Debug("Modified packages present on disk: %v", set.Present)

	plans := make([]Plan, 0, len(set.Modified))
	for _, pkg := range set.Modified {
		configPath := filepath.Join(t.PackagesRoot, pkg, t.ConfigPath)
		exists, err := fileExists(configPath)
		if err != nil {
			return nil, err
		}
		plans = append(plans, Plan{Package: pkg, ConfigPath: configPath, Skip: !exists})
	}
	return plans, nil
}

// Run triggers a build for every planned package that has a configuration
// file, one at a time, and returns the resulting build map. A trigger failure
// aborts the run.
func (t *Trigger) Run(ctx context.Context) (provider.BuildMap, error) {
	plans, err := t.Plan(ctx)
	if err != nil {
		return nil, err
	}

	builds := make(provider.BuildMap)
	for _, plan := range plans {
		if plan.Skip {
			t.Log.Info("%s not found, skipping %s", plan.ConfigPath, plan.Package)
			for _, o := range t.Observers {
				o.BuildSkipped(plan.Package, "missing CI configuration")
			}
			continue
		}

		buildNum, err := t.Provider.TriggerBuild(ctx, t.Branch, plan.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("trigger build for %s: %w", plan.Package, err)
		}
		builds[plan.Package] = buildNum

		t.Log.Info("Triggered build #%d for %s: %s", buildNum, plan.Package, t.Provider.BuildURL(buildNum))
		for _, o := range t.Observers {
			o.BuildTriggered(plan.Package, buildNum)
		}
	}

	return builds, nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}
