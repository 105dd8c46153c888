// Package circleci provides a client for the CircleCI v1.1 REST API.
package circleci

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"monobuild/src/provider"
)

const (
	// APIBaseURL is the base URL for the CircleCI v1.1 API.
	APIBaseURL = "https://circleci.com/api/v1.1"

	// WebBaseURL is the base URL of the CircleCI web app.
	WebBaseURL = "https://circleci.com"
)

var buildURLPattern = regexp.MustCompile(`^https?://[^/]+/gh/([^/]+)/([^/]+)/(\d+)/?$`)

// Client is a CircleCI API client scoped to one GitHub project.
type Client struct {
	token      string
	owner      string
	repo       string
	baseURL    string
	webURL     string
	httpClient *http.Client
}

// Build is the subset of a CircleCI build summary monobuild reads.
type Build struct {
	BuildNum  int    `json:"build_num"`
	Lifecycle string `json:"lifecycle"`
	Outcome   string `json:"outcome"`
	Status    string `json:"status"`
	BuildURL  string `json:"build_url"`
	Branch    string `json:"branch"`
	VCSRev    string `json:"vcs_revision"`
}

type triggerResponse struct {
	BuildNum int    `json:"build_num"`
	Status   string `json:"status"`
	BuildURL string `json:"build_url"`
}

// NewClient creates a CircleCI client. Empty base URLs fall back to the
// public CircleCI endpoints.
func NewClient(settings provider.Settings) *Client {
	baseURL := strings.TrimSuffix(settings.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = APIBaseURL
	}
	webURL := strings.TrimSuffix(settings.WebBaseURL, "/")
	if webURL == "" {
		webURL = WebBaseURL
	}

	return &Client{
		token:   settings.Token,
		owner:   settings.Owner,
		repo:    settings.Repo,
		baseURL: baseURL,
		webURL:  webURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ParseBuildURL extracts the owner, repository and build number from a CircleCI build URL.
// Expected format: https://circleci.com/gh/{owner}/{repo}/{number}
func ParseBuildURL(buildURL string) (owner, repo string, buildNum int, err error) {
	matches := buildURLPattern.FindStringSubmatch(buildURL)
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("%w: %s", provider.ErrInvalidURL, buildURL)
	}

	buildNum, err = strconv.Atoi(matches[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid build number in URL: %w", err)
	}

	return matches[1], matches[2], buildNum, nil
}

func (c *Client) projectURL() string {
	return fmt.Sprintf("%s/project/github/%s/%s", c.baseURL, url.PathEscape(c.owner), url.PathEscape(c.repo))
}

// WebURL returns the browser URL of a build.
func (c *Client) WebURL(buildNum int) string {
	return fmt.Sprintf("%s/gh/%s/%s/%d", c.webURL, url.PathEscape(c.owner), url.PathEscape(c.repo), buildNum)
}

// TriggerBuild posts the configuration file at configPath as a new build of branch.
// The file is sent as the multipart form field "config".
func (c *Client) TriggerBuild(ctx context.Context, branch, configPath string) (int, error) {
	endpoint := fmt.Sprintf("%s/tree/%s", c.projectURL(), url.PathEscape(branch))

	body, contentType, err := configForm(configPath)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.token, "")
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, apiError(resp)
	}

	var triggered triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&triggered); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if triggered.BuildNum == 0 {
		return 0, fmt.Errorf("trigger response for branch %s carried no build_num", branch)
	}

	return triggered.BuildNum, nil
}

// GetBuild fetches a build summary by number.
func (c *Client) GetBuild(ctx context.Context, buildNum int) (*Build, error) {
	query := url.Values{}
	query.Set("circle-token", c.token)
	endpoint := fmt.Sprintf("%s/%d?%s", c.projectURL(), buildNum, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var build Build
	if err := json.NewDecoder(resp.Body).Decode(&build); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &build, nil
}

// configForm builds a multipart body carrying the file at path as the "config" field.
func configForm(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("config", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// apiError maps a non-2xx response to an error wrapping the matching provider sentinel.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", provider.ErrAuthFailed, resp.StatusCode, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d: %s", provider.ErrBuildNotFound, resp.StatusCode, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", provider.ErrRateLimited, resp.StatusCode, detail)
	}
	return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, detail)
}
