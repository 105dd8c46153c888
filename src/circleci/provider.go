package circleci

import (
	"context"

	"monobuild/src/provider"
)

func init() {
	provider.RegisterProvider("circleci", func(settings provider.Settings) provider.Provider {
		return NewProvider(settings)
	})
}

// Provider implements provider.Provider for CircleCI
type Provider struct {
	client *Client
}

// NewProvider creates a CircleCI provider for one project
func NewProvider(settings provider.Settings) *Provider {
	return &Provider{client: NewClient(settings)}
}

// Name returns "circleci"
func (p *Provider) Name() string {
	return "circleci"
}

// TriggerBuild submits configPath as a new build on branch
func (p *Provider) TriggerBuild(ctx context.Context, branch, configPath string) (int, error) {
	return p.client.TriggerBuild(ctx, branch, configPath)
}

// FetchStatus maps the CircleCI build summary to a status triple
func (p *Provider) FetchStatus(ctx context.Context, buildNum int) (provider.Status, error) {
	build, err := p.client.GetBuild(ctx, buildNum)
	if err != nil {
		return provider.Status{}, err
	}

	return provider.Status{
		Lifecycle: provider.Lifecycle(build.Lifecycle),
		Outcome:   provider.Outcome(build.Outcome),
		Status:    provider.BuildStatus(build.Status),
	}, nil
}

// BuildURL returns the browser URL of a build
func (p *Provider) BuildURL(buildNum int) string {
	return p.client.WebURL(buildNum)
}
