// Package poll waits for triggered builds to reach a terminal lifecycle.
package poll

import (
	"context"
	"fmt"
	"time"

	"monobuild/src/logger"
	"monobuild/src/provider"
)

// DefaultInterval is the delay before each polling pass.
const DefaultInterval = 5 * time.Second

// StatusFetcher reads the current status of a build.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, buildNum int) (provider.Status, error)
}

// Progress is emitted after every polling pass.
type Progress struct {
	Pass    int
	Pending int
	Total   int
	// Records is a snapshot of every tracked build, ordered by package name.
	Records []provider.Record
}

// Done reports whether no build is pending.
func (p Progress) Done() bool {
	return p.Pending == 0
}

// Observer receives progress after each pass.
type Observer interface {
	PollPass(Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Progress)

func (f ObserverFunc) PollPass(p Progress) { f(p) }

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller checks every tracked build once per pass, sequentially, until all of
// them are finished.
type Poller struct {
	Fetcher   StatusFetcher
	Interval  time.Duration
	Sleep     SleepFunc
	Log       logger.Logger
	Observers []Observer
}

// Wait polls builds until every lifecycle is finished and returns the final
// records ordered by package name. The delay precedes each pass. A status
// fetch error ends the wait; there are no retries.
func (p *Poller) Wait(ctx context.Context, builds provider.BuildMap) ([]provider.Record, error) {
	if len(builds) == 0 {
		p.Log.Info("No builds to wait for")
		return nil, nil
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	packages := builds.Packages()
	records := make([]provider.Record, len(packages))
	for i, pkg := range packages {
		records[i] = provider.Record{Package: pkg, BuildNum: builds[pkg]}
	}

	for pass := 1; ; pass++ {
		if err := sleep(ctx, interval); err != nil {
			return records, err
		}

		for i := range records {
			status, err := p.Fetcher.FetchStatus(ctx, records[i].BuildNum)
			if err != nil {
				return records, fmt.Errorf("fetch status of build #%d (%s): %w", records[i].BuildNum, records[i].Package, err)
			}
			records[i].Status = status
			p.Log.Debug("Build #%d (%s): lifecycle=%s outcome=%s status=%s",
				records[i].BuildNum, records[i].Package, status.Lifecycle, status.Outcome, status.Status)
		}

		pending := Pending(records)
		p.Log.Info("%d builds left...", pending)

		progress := Progress{
			Pass:    pass,
			Pending: pending,
			Total:   len(records),
			Records: append([]provider.Record(nil), records...),
		}
		for _, o := range p.Observers {
			o.PollPass(progress)
		}

		if pending == 0 {
			return records, nil
		}
	}
}

// Pending counts records whose lifecycle is not finished.
func Pending(records []provider.Record) int {
	n := 0
	for _, r := range records {
		if !r.Status.Finished() {
			n++
		}
	}
	return n
}
