// Package report turns final build records into a process exit code.
package report

import (
	"monobuild/src/logger"
	"monobuild/src/provider"
)

// Summary classifies the final records of a run.
type Summary struct {
	Records  []provider.Record
	Failures []provider.Record
	ExitCode int
}

// Succeeded reports whether every build passed.
func (s Summary) Succeeded() bool {
	return s.ExitCode == 0
}

// Summarize marks every record whose status is not success as a failure.
// The exit code is 1 when there is at least one failure, else 0.
func Summarize(records []provider.Record) Summary {
	s := Summary{Records: records}
	for _, r := range records {
		if !r.Status.Succeeded() {
			s.Failures = append(s.Failures, r)
		}
	}
	if len(s.Failures) > 0 {
		s.ExitCode = 1
	}
	return s
}

// LogFailures writes one diagnostic per failed build, including its browser URL.
func LogFailures(log logger.Logger, s Summary, buildURL func(int) string) {
	if len(s.Failures) == 0 {
		return
	}

	log.Error("One or more builds failed:")
	for _, f := range s.Failures {
		log.Error("\t- Build #%d package=%s lifecycle=%s outcome=%s status=%s url=%s",
			f.BuildNum, f.Package, f.Status.Lifecycle, f.Status.Outcome, f.Status.Status, buildURL(f.BuildNum))
	}
}
