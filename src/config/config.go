// Package config provides configuration management for monobuild.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

const (
	// DefaultFile is read when no config path is given and the file exists.
	DefaultFile = ".monobuild.yml"

	GitBackendExec  = "exec"
	GitBackendGoGit = "go-git"
)

// Environment variables holding the CircleCI project and credentials.
const (
	EnvProjectUsername = "CIRCLE_PROJECT_USERNAME"
	EnvProjectRepoName = "CIRCLE_PROJECT_REPONAME"
	EnvBranch          = "CIRCLE_BRANCH"
	EnvToken           = "CIRCLE_TOKEN"
)

// TriggerVars are required to submit builds.
var TriggerVars = []string{EnvProjectUsername, EnvProjectRepoName, EnvBranch, EnvToken}

// Config holds the application configuration.
type Config struct {
	// ProjectUsername is the GitHub owner of the repository (CIRCLE_PROJECT_USERNAME).
	ProjectUsername string `yaml:"project_username"`
	// ProjectRepoName is the repository name (CIRCLE_PROJECT_REPONAME).
	ProjectRepoName string `yaml:"project_reponame"`
	// Branch is the branch builds are triggered on (CIRCLE_BRANCH).
	Branch string `yaml:"branch"`
	// Token is the CircleCI API token (CIRCLE_TOKEN). Never read from the YAML file.
	Token string `yaml:"-"`

	APIBaseURL   string        `yaml:"api_url"`
	WebBaseURL   string        `yaml:"web_url"`
	PackagesRoot string        `yaml:"packages_root"`
	ConfigPath   string        `yaml:"config_path"`
	PollInterval time.Duration `yaml:"poll_interval"`
	GitBackend   string        `yaml:"git_backend"`

	RedpandaBrokers []string `yaml:"redpanda_brokers"`
	NATSURL         string   `yaml:"nats_url"`
	EventsTopic     string   `yaml:"events_topic"`
	MetricsFile     string   `yaml:"metrics_file"`
}

// LoadFromEnv loads configuration from the environment, the default config
// file and a .env file in the working directory when present.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Load reads the YAML file at path (or DefaultFile when path is empty and it
// exists), overlays environment variables and validates the result. The
// CircleCI project and credentials are checked by Require.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, dotenvPath string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			// godotenv.Load never overrides variables that are already set.
			if err := godotenv.Load(dotenvPath); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
			}
		}
	}

	if err := applyEnvVars(cfg); err != nil {
		return nil, err
	}
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvVars applies environment variables to the configuration
func applyEnvVars(cfg *Config) error {
	setString(&cfg.ProjectUsername, EnvProjectUsername)
	setString(&cfg.ProjectRepoName, EnvProjectRepoName)
	setString(&cfg.Branch, EnvBranch)
	setString(&cfg.Token, EnvToken)
	setString(&cfg.APIBaseURL, "CIRCLE_API_URL")
	setString(&cfg.WebBaseURL, "CIRCLE_WEB_URL")
	setString(&cfg.PackagesRoot, "MONOBUILD_PACKAGES_ROOT")
	setString(&cfg.ConfigPath, "MONOBUILD_CONFIG_PATH")
	setString(&cfg.GitBackend, "MONOBUILD_GIT_BACKEND")
	setString(&cfg.NATSURL, "NATS_URL")
	setString(&cfg.EventsTopic, "MONOBUILD_EVENTS_TOPIC")
	setString(&cfg.MetricsFile, "MONOBUILD_METRICS_FILE")

	if v := os.Getenv("MONOBUILD_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MONOBUILD_POLL_INTERVAL %q: %w", v, err)
		}
		cfg.PollInterval = d
	}

	if v := os.Getenv("REDPANDA_BROKERS"); v != "" {
		cfg.RedpandaBrokers = splitList(v)
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// setDefaults sets default values for the configuration
func setDefaults(cfg *Config) {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://circleci.com/api/v1.1"
	}
	if cfg.WebBaseURL == "" {
		cfg.WebBaseURL = "https://circleci.com"
	}
	if cfg.PackagesRoot == "" {
		cfg.PackagesRoot = "packages"
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = ".circleci/config.yml"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.GitBackend == "" {
		cfg.GitBackend = GitBackendExec
	}
	if cfg.EventsTopic == "" {
		cfg.EventsTopic = "ci_build_events"
	}
}

// Require reports every named environment variable whose setting is empty.
func (c *Config) Require(vars ...string) error {
	var missing []string
	for _, name := range vars {
		if c.lookup(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) lookup(name string) string {
	switch name {
	case EnvProjectUsername:
		return c.ProjectUsername
	case EnvProjectRepoName:
		return c.ProjectRepoName
	case EnvBranch:
		return c.Branch
	case EnvToken:
		return c.Token
	}
	return ""
}

func validate(cfg *Config) error {
	if cfg.PollInterval < 0 {
		return fmt.Errorf("invalid poll interval %s (must be positive)", cfg.PollInterval)
	}
	if cfg.GitBackend != GitBackendExec && cfg.GitBackend != GitBackendGoGit {
		return fmt.Errorf("invalid git backend %q (want %q or %q)", cfg.GitBackend, GitBackendExec, GitBackendGoGit)
	}
	for _, raw := range []string{cfg.APIBaseURL, cfg.WebBaseURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid URL %q: %w", raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid URL %q: %w", raw, errors.New("scheme and host are required"))
		}
	}

	return nil
}
