package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrInvalidURL      = errors.New("invalid build URL")
	ErrProviderUnknown = errors.New("unknown CI provider")
)

// Provider defines the operations monobuild needs from a CI service.
type Provider interface {
	// Name returns the provider name (e.g., "circleci")
	Name() string

	// TriggerBuild submits the CI configuration at configPath as a new build
	// on branch and returns the provider-assigned build number.
	TriggerBuild(ctx context.Context, branch, configPath string) (int, error)

	// FetchStatus returns the current status triple of a build.
	FetchStatus(ctx context.Context, buildNum int) (Status, error)

	// BuildURL returns the browser URL of a build.
	BuildURL(buildNum int) string
}

// Settings carries what a provider factory needs to build a client.
type Settings struct {
	Owner      string
	Repo       string
	Token      string
	APIBaseURL string
	WebBaseURL string
}

// Factory constructs a Provider from settings.
type Factory func(Settings) Provider

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterProvider makes a provider factory available by name.
// Provider packages call it from init.
func RegisterProvider(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// GetProvider returns a provider built by the factory registered under name.
func GetProvider(name string, settings Settings) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (registered: %s)", ErrProviderUnknown, name, strings.Join(Registered(), ", "))
	}
	return factory(settings), nil
}

// Registered lists registered provider names in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
