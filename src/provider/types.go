package provider

import "sort"

// Lifecycle is the coarse execution phase a CI provider reports for a build.
type Lifecycle string

const (
	LifecycleQueued     Lifecycle = "queued"
	LifecycleScheduled  Lifecycle = "scheduled"
	LifecycleNotRun     Lifecycle = "not_run"
	LifecycleNotRunning Lifecycle = "not_running"
	LifecycleRunning    Lifecycle = "running"
	LifecycleFinished   Lifecycle = "finished"
)

// Outcome is the provider's result classification once a build has finished.
type Outcome string

const (
	OutcomeCanceled           Outcome = "canceled"
	OutcomeInfrastructureFail Outcome = "infrastructure_fail"
	OutcomeTimedOut           Outcome = "timedout"
	OutcomeFailed             Outcome = "failed"
	OutcomeNoTests            Outcome = "no_tests"
	OutcomeSuccess            Outcome = "success"
)

// BuildStatus is the fine-grained status of a build. Only BuildStatusSuccess
// counts as a passing build.
type BuildStatus string

const (
	BuildStatusRetried            BuildStatus = "retried"
	BuildStatusCanceled           BuildStatus = "canceled"
	BuildStatusInfrastructureFail BuildStatus = "infrastructure_fail"
	BuildStatusTimedOut           BuildStatus = "timedout"
	BuildStatusNotRun             BuildStatus = "not_run"
	BuildStatusRunning            BuildStatus = "running"
	BuildStatusFailed             BuildStatus = "failed"
	BuildStatusQueued             BuildStatus = "queued"
	BuildStatusScheduled          BuildStatus = "scheduled"
	BuildStatusNotRunning         BuildStatus = "not_running"
	BuildStatusNoTests            BuildStatus = "no_tests"
	BuildStatusFixed              BuildStatus = "fixed"
	BuildStatusSuccess            BuildStatus = "success"
)

// Status is the status triple reported for a single build.
type Status struct {
	Lifecycle Lifecycle
	Outcome   Outcome
	Status    BuildStatus
}

// Finished reports whether the build reached a terminal lifecycle.
func (s Status) Finished() bool {
	return s.Lifecycle == LifecycleFinished
}

// Succeeded reports whether the build status is success.
func (s Status) Succeeded() bool {
	return s.Status == BuildStatusSuccess
}

// BuildMap maps a package name to the build number the provider assigned to it.
type BuildMap map[string]int

// Packages returns the package names in sorted order.
func (m BuildMap) Packages() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record associates a package with its build and the last status seen for it.
type Record struct {
	Package  string
	BuildNum int
	Status   Status
}
