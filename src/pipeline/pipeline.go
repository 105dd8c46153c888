// Package pipeline wires configuration, change detection, the CI provider,
// event publishing and metrics into the trigger and poll stages of a run.
// It is used by every command of the CLI.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monobuild/src/broker"
	"monobuild/src/changes"
	"monobuild/src/circleci"
	"monobuild/src/config"
	"monobuild/src/events"
	"monobuild/src/logger"
	"monobuild/src/metrics"
	"monobuild/src/poll"
	"monobuild/src/provider"
	"monobuild/src/report"
	"monobuild/src/trigger"
)

// ProviderName is the registered CI provider builds are submitted to.
const ProviderName = "circleci"

// Mode describes where build events go.
type Mode int

const (
	// LocalMode keeps events in-process; nothing is published externally.
	LocalMode Mode = iota
	// PublishMode publishes events to Redpanda and/or NATS.
	PublishMode
)

func (m Mode) String() string {
	if m == PublishMode {
		return "publish"
	}
	return "local"
}

// DetectMode returns PublishMode when any external broker is configured.
func DetectMode(cfg *config.Config) Mode {
	if len(cfg.RedpandaBrokers) > 0 || cfg.NATSURL != "" {
		return PublishMode
	}
	return LocalMode
}

// Options tune a Pipeline beyond what the configuration holds.
type Options struct {
	// DryRun reports the planned builds without calling the provider.
	DryRun bool
	// Local, when set, receives every event in-process, e.g. for the TUI.
	Local *broker.InMemoryBroker
	Log   logger.Logger
}

// Pipeline runs the stages of a monorepo build.
type Pipeline struct {
	cfg      *config.Config
	log      logger.Logger
	dryRun   bool
	provider provider.Provider
	detector trigger.ChangeDetector
	broker   broker.Broker
	events   *events.Publisher
	metrics  *metrics.Recorder
	sleep    poll.SleepFunc
	now      func() time.Time
}

// New builds a Pipeline from cfg. External brokers are connected here; the
// caller must Close the pipeline.
func New(cfg *config.Config, opts Options) (*Pipeline, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewSilentLogger()
	}

	prov, err := provider.GetProvider(ProviderName, settings(cfg, cfg.ProjectUsername, cfg.ProjectRepoName))
	if err != nil {
		return nil, err
	}

	detector, err := NewDetector(cfg)
	if err != nil {
		return nil, err
	}

	b, err := connectBrokers(cfg, opts.Local)
	if err != nil {
		return nil, err
	}
	if b != nil {
		log.Debug("Publishing build events to %s (%s mode)", cfg.EventsTopic, DetectMode(cfg))
	}

	return &Pipeline{
		cfg:      cfg,
		log:      log,
		dryRun:   opts.DryRun,
		provider: prov,
		detector: detector,
		broker:   b,
		events:   events.NewPublisher(b, cfg.EventsTopic, prov.BuildURL, log),
		metrics:  metrics.NewRecorder(nil),
		sleep:    poll.Sleep,
		now:      time.Now,
	}, nil
}

// NewDetector returns a change detector using the configured git backend.
func NewDetector(cfg *config.Config) (*changes.Detector, error) {
	var lister changes.Lister
	switch cfg.GitBackend {
	case config.GitBackendExec, "":
		lister = changes.NewGitCLI("")
	case config.GitBackendGoGit:
		lister = changes.NewGoGit("")
	default:
		return nil, fmt.Errorf("unknown git backend %q", cfg.GitBackend)
	}
	return &changes.Detector{Lister: lister, Root: cfg.PackagesRoot}, nil
}

func settings(cfg *config.Config, owner, repo string) provider.Settings {
	return provider.Settings{
		Owner:      owner,
		Repo:       repo,
		Token:      cfg.Token,
		APIBaseURL: cfg.APIBaseURL,
		WebBaseURL: cfg.WebBaseURL,
	}
}

func connectBrokers(cfg *config.Config, local *broker.InMemoryBroker) (broker.Broker, error) {
	var brokers broker.Multi
	if local != nil {
		brokers = append(brokers, local)
	}
	if len(cfg.RedpandaBrokers) > 0 {
		rp, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers)
		if err != nil {
			return nil, err
		}
		brokers = append(brokers, rp)
	}
	if cfg.NATSURL != "" {
		nb, err := broker.NewNATSBroker(cfg.NATSURL)
		if err != nil {
			brokers.Close()
			return nil, err
		}
		brokers = append(brokers, nb)
	}

	switch len(brokers) {
	case 0:
		return nil, nil
	case 1:
		return brokers[0], nil
	default:
		return brokers, nil
	}
}

// RunID identifies the events published by this pipeline.
func (p *Pipeline) RunID() string {
	return p.events.RunID()
}

// BuildURL returns the browser URL of a build.
func (p *Pipeline) BuildURL(buildNum int) string {
	return p.provider.BuildURL(buildNum)
}

// Changes runs change detection only.
func (p *Pipeline) Changes(ctx context.Context) (*changes.ChangeSet, error) {
	return p.detector.Detect(ctx)
}

func (p *Pipeline) trigger(prov provider.Provider) *trigger.Trigger {
	return &trigger.Trigger{
		Provider:     prov,
		Detector:     p.detector,
		Branch:       p.cfg.Branch,
		PackagesRoot: p.cfg.PackagesRoot,
		ConfigPath:   p.cfg.ConfigPath,
		Log:          p.log,
		Observers:    []trigger.Observer{p.events, p.metrics},
	}
}

func (p *Pipeline) poller(prov provider.Provider) *poll.Poller {
	return &poll.Poller{
		Fetcher:   prov,
		Interval:  p.cfg.PollInterval,
		Sleep:     p.sleep,
		Log:       p.log,
		Observers: []poll.Observer{p.events, p.metrics},
	}
}

// Trigger submits one build per changed package and returns the build map.
// In dry-run mode the plan is logged and the map is empty.
func (p *Pipeline) Trigger(ctx context.Context) (provider.BuildMap, error) {
	t := p.trigger(p.provider)
	if !p.dryRun {
		return t.Run(ctx)
	}

	plans, err := t.Plan(ctx)
	if err != nil {
		return nil, err
	}
	for _, plan := range plans {
		if plan.Skip {
			p.log.Info("%s not found, would skip %s", plan.ConfigPath, plan.Package)
			continue
		}
		p.log.Info("Would trigger %s on %s with %s", plan.Package, p.cfg.Branch, plan.ConfigPath)
	}
	return provider.BuildMap{}, nil
}

// Run triggers builds for the changed packages and waits for all of them.
func (p *Pipeline) Run(ctx context.Context) (report.Summary, error) {
	start := p.now()
	builds, err := p.Trigger(ctx)
	if err != nil {
		return report.Summary{ExitCode: 1}, err
	}
	return p.wait(ctx, p.provider, builds, start)
}

// Poll waits for an existing build map.
func (p *Pipeline) Poll(ctx context.Context, builds provider.BuildMap) (report.Summary, error) {
	return p.wait(ctx, p.provider, builds, p.now())
}

// Watch waits for the builds behind CircleCI web URLs. All URLs must belong
// to the same project; each build is reported as "owner/repo#num". From then
// on BuildURL and published events link to that project.
func (p *Pipeline) Watch(ctx context.Context, urls []string) (report.Summary, error) {
	if len(urls) == 0 {
		return report.Summary{ExitCode: 1}, errors.New("at least one build URL is required")
	}

	var owner, repo string
	builds := make(provider.BuildMap, len(urls))
	for _, u := range urls {
		o, r, num, err := circleci.ParseBuildURL(u)
		if err != nil {
			return report.Summary{ExitCode: 1}, err
		}
		if owner == "" {
			owner, repo = o, r
		} else if o != owner || r != repo {
			return report.Summary{ExitCode: 1}, fmt.Errorf("builds span projects %s/%s and %s/%s", owner, repo, o, r)
		}
		builds[fmt.Sprintf("%s/%s#%d", o, r, num)] = num
	}

	prov, err := provider.GetProvider(ProviderName, settings(p.cfg, owner, repo))
	if err != nil {
		return report.Summary{ExitCode: 1}, err
	}
	p.provider = prov
	p.events.SetBuildURL(prov.BuildURL)
	return p.wait(ctx, prov, builds, p.now())
}

func (p *Pipeline) wait(ctx context.Context, prov provider.Provider, builds provider.BuildMap, start time.Time) (report.Summary, error) {
	records, err := p.poller(prov).Wait(ctx, builds)
	if err != nil {
		return report.Summary{Records: records, ExitCode: 1}, err
	}

	s := report.Summarize(records)
	report.LogFailures(p.log, s, prov.BuildURL)
	p.events.Summary(s)
	p.metrics.ObserveSummary(s, p.now().Sub(start))
	return s, nil
}

// Close writes the metrics textfile, when configured, and closes the brokers.
// A metrics write failure is logged only.
func (p *Pipeline) Close() error {
	if err := p.metrics.WriteTextfile(p.cfg.MetricsFile); err != nil {
		p.log.Error("%v", err)
	}
	if p.broker == nil {
		return nil
	}
	return p.broker.Close()
}
