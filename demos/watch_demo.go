// Demo program to showcase the monobuild watch view with a simulated run.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"monobuild/src/broker"
	"monobuild/src/contracts"
	"monobuild/src/events"
	"monobuild/src/poll"
	"monobuild/src/provider"
	"monobuild/src/report"
	"monobuild/src/tui"
)

// step is the state of every build after one simulated polling pass.
type step map[string]provider.BuildStatus

var (
	builds = provider.BuildMap{"api": 1201, "billing": 1202, "web": 1203, "worker": 1204}

	steps = []step{
		{"api": provider.BuildStatusRunning, "billing": provider.BuildStatusQueued, "web": provider.BuildStatusRunning, "worker": provider.BuildStatusQueued},
		{"api": provider.BuildStatusSuccess, "billing": provider.BuildStatusRunning, "web": provider.BuildStatusRunning, "worker": provider.BuildStatusRunning},
		{"api": provider.BuildStatusSuccess, "billing": provider.BuildStatusRunning, "web": provider.BuildStatusFailed, "worker": provider.BuildStatusSuccess},
		{"api": provider.BuildStatusSuccess, "billing": provider.BuildStatusSuccess, "web": provider.BuildStatusFailed, "worker": provider.BuildStatusSuccess},
	}
)

func buildURL(n int) string {
	return fmt.Sprintf("https://circleci.com/gh/acme/monorepo/%d", n)
}

func toStatus(s provider.BuildStatus) provider.Status {
	switch s {
	case provider.BuildStatusRunning, provider.BuildStatusQueued:
		return provider.Status{Lifecycle: provider.Lifecycle(s), Status: s}
	case provider.BuildStatusSuccess:
		return provider.Status{Lifecycle: provider.LifecycleFinished, Outcome: provider.OutcomeSuccess, Status: s}
	default:
		return provider.Status{Lifecycle: provider.LifecycleFinished, Outcome: provider.OutcomeFailed, Status: s}
	}
}

func simulate(ctx context.Context, pub *events.Publisher) report.Summary {
	for _, pkg := range builds.Packages() {
		pub.BuildTriggered(pkg, builds[pkg])
		time.Sleep(300 * time.Millisecond)
	}

	var records []provider.Record
	for i, st := range steps {
		if err := poll.Sleep(ctx, time.Second); err != nil {
			break
		}
		records = records[:0]
		for _, pkg := range builds.Packages() {
			records = append(records, provider.Record{Package: pkg, BuildNum: builds[pkg], Status: toStatus(st[pkg])})
		}
		pub.PollPass(poll.Progress{
			Pass:    i + 1,
			Pending: poll.Pending(records),
			Total:   len(records),
			Records: append([]provider.Record(nil), records...),
		})
	}

	s := report.Summarize(records)
	pub.Summary(s)
	return s
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := broker.NewInMemoryBroker()
	defer local.Close()

	sub, err := local.Subscribe(ctx, contracts.DefaultTopic, "demo")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error subscribing: %v\n", err)
		os.Exit(1)
	}

	pub := events.NewPublisher(local, contracts.DefaultTopic, buildURL, nil)
	done := make(chan report.Summary, 1)
	go func() { done <- simulate(ctx, pub) }()

	if _, err := tui.RunWatch(ctx, sub, cancel); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(tui.RenderSummary(<-done, buildURL))
}
