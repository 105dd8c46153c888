// Package events publishes the progress of a run as BuildEvents.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"monobuild/src/broker"
	"monobuild/src/contracts"
	"monobuild/src/logger"
	"monobuild/src/poll"
	"monobuild/src/report"
)

// PublishTimeout bounds a single publish call.
const PublishTimeout = 10 * time.Second

// Publisher emits BuildEvents for a run. It observes both the trigger and
// the poll stages. Publish failures are logged and never fail the run.
// A Publisher with a nil broker does nothing.
type Publisher struct {
	broker   broker.Broker
	topic    string
	runID    string
	buildURL func(int) string
	log      logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	finished map[int]bool
}

// NewPublisher creates a Publisher with a fresh run ID.
func NewPublisher(b broker.Broker, topic string, buildURL func(int) string, log logger.Logger) *Publisher {
	if topic == "" {
		topic = contracts.DefaultTopic
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Publisher{
		broker:   b,
		topic:    topic,
		runID:    uuid.NewString(),
		buildURL: buildURL,
		log:      log,
		now:      time.Now,
		finished: make(map[int]bool),
	}
}

// RunID identifies every event of this run.
func (p *Publisher) RunID() string {
	return p.runID
}

// SetBuildURL replaces the function that links events to their builds.
func (p *Publisher) SetBuildURL(buildURL func(int) string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buildURL = buildURL
}

// BuildTriggered emits a triggered event.
func (p *Publisher) BuildTriggered(pkg string, buildNum int) {
	p.publish(contracts.BuildEvent{
		Type:     contracts.EventTriggered,
		Package:  pkg,
		BuildNum: buildNum,
		URL:      p.url(buildNum),
	})
}

// BuildSkipped is a no-op; skipped packages produce no build.
func (p *Publisher) BuildSkipped(pkg, reason string) {}

// PollPass emits a progress event and a finished event for every build
// that finished since the previous pass.
func (p *Publisher) PollPass(pr poll.Progress) {
	for _, r := range pr.Records {
		if !r.Status.Finished() || !p.markFinished(r.BuildNum) {
			continue
		}
		p.publish(contracts.BuildEvent{
			Type:      contracts.EventFinished,
			Package:   r.Package,
			BuildNum:  r.BuildNum,
			Lifecycle: string(r.Status.Lifecycle),
			Outcome:   string(r.Status.Outcome),
			Status:    string(r.Status.Status),
			URL:       p.url(r.BuildNum),
		})
	}
	p.publish(contracts.BuildEvent{
		Type:    contracts.EventProgress,
		Pass:    pr.Pass,
		Pending: pr.Pending,
		Total:   pr.Total,
	})
}

// Summary emits the final summary event.
func (p *Publisher) Summary(s report.Summary) {
	p.publish(contracts.BuildEvent{
		Type:     contracts.EventSummary,
		Total:    len(s.Records),
		Failed:   len(s.Failures),
		ExitCode: s.ExitCode,
	})
}

func (p *Publisher) markFinished(buildNum int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished[buildNum] {
		return false
	}
	p.finished[buildNum] = true
	return true
}

func (p *Publisher) url(buildNum int) string {
	p.mu.Lock()
	buildURL := p.buildURL
	p.mu.Unlock()
	if buildURL == nil {
		return ""
	}
	return buildURL(buildNum)
}

func (p *Publisher) publish(e contracts.BuildEvent) {
	if p.broker == nil {
		return
	}
	e.RunID = p.runID
	e.Timestamp = p.now().UTC().Format(time.RFC3339)

	data, err := e.Encode()
	if err != nil {
		p.log.Error("Failed to encode %s event: %v", e.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
	defer cancel()
	if err := p.broker.Publish(ctx, p.topic, e.Key(), data); err != nil {
		p.log.Error("Failed to publish %s event: %v", e.Type, err)
		return
	}
	p.log.Debug("Published %s event to %s", e.Type, p.topic)
}
