// Package tracker implements the issue-comment client used to publish
// review comments to a GitHub- or Gitea-compatible API.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dfarr/autoreviewer/internal/adapter/httpx"
	"github.com/dfarr/autoreviewer/internal/domain"
)

const (
	serviceName = "tracker"

	// DefaultBaseURL targets the public GitHub API.
	DefaultBaseURL = "https://api.github.com"

	defaultTimeout    = 30 * time.Second
	defaultAttempts   = 3
	defaultRetryDelay = 3 * time.Second
)

// Flavor identifies the API dialect behind the base URL. The request
// shape is identical for both; the flavor is used only for diagnostics.
type Flavor string

const (
	FlavorGitHub Flavor = "github"
	FlavorGitea  Flavor = "gitea"
)

// DetectFlavor classifies the API base URL. Gitea instances expose their
// REST API under /api/v1.
func DetectFlavor(apiBase string) Flavor {
	base := strings.ToLower(apiBase)
	if strings.Contains(base, "/api/v1") || strings.Contains(base, "gitea") {
		return FlavorGitea
	}
	return FlavorGitHub
}

// Config configures a Client.
type Config struct {
	APIBase     string
	Repository  string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      httpx.Logger
}

// Client posts issue comments with token authorization and retries.
type Client struct {
	apiBase    string
	repository string
	token      string
	flavor     Flavor
	retry      httpx.RetryConfig
	httpClient *http.Client
	logger     httpx.Logger
}

// NewClient creates a comment client. Repository is the "owner/name"
// identifier; token is a personal access token or CI-provided token.
func NewClient(cfg Config) *Client {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = httpx.NopLogger{}
	}

	return &Client{
		apiBase:    apiBase,
		repository: cfg.Repository,
		token:      cfg.Token,
		flavor:     DetectFlavor(apiBase),
		retry: httpx.RetryConfig{
			MaxAttempts: attempts,
			Delay:       delay,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Flavor returns the detected API dialect.
func (c *Client) Flavor() Flavor {
	return c.flavor
}

// commentRequest is the JSON body posted to the comments route.
type commentRequest struct {
	Body string `json:"body"`
}

// commentResponse is the subset of the response we rely on. A response
// without an id is treated as a failure even on a 2xx status.
type commentResponse struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
}

// CreateComment posts the rendered comment body to the configured issue
// or pull request and returns the created comment's identifier.
func (c *Client) CreateComment(ctx context.Context, issueNumber int, body string) (domain.PublishResult, error) {
	jsonData, err := json.Marshal(commentRequest{Body: body})
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("marshal comment: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments", c.apiBase, c.repository, issueNumber)
	c.logger.Debugf("tracker: posting comment to %s (%s, token %s)", url, c.flavor, httpx.RedactToken(c.token))

	label := fmt.Sprintf("publish(%s#%d)", c.repository, issueNumber)
	id, err := httpx.Do(ctx, label, c.retry, c.logger, func(ctx context.Context) (int64, error) {
		return c.postOnce(ctx, url, jsonData)
	})
	if err != nil {
		return domain.PublishResult{}, err
	}

	return domain.PublishResult{ID: strconv.FormatInt(id, 10), Success: true}, nil
}

func (c *Client) postOnce(ctx context.Context, url string, jsonData []byte) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, httpx.NewTimeoutError(serviceName, err.Error())
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, httpx.NewMalformedResponseError(serviceName, fmt.Sprintf("read body: %v", err))
	}

	if resp.StatusCode >= 400 {
		return 0, c.handleErrorResponse(resp.StatusCode, bodyBytes)
	}

	var commentResp commentResponse
	if err := json.Unmarshal(bodyBytes, &commentResp); err != nil {
		return 0, httpx.NewMalformedResponseError(serviceName, fmt.Sprintf("parse body: %v", err))
	}
	// A 2xx response without an identifier cannot be accounted for.
	if commentResp.ID == 0 {
		return 0, httpx.NewMalformedResponseError(serviceName, "response missing comment id")
	}

	return commentResp.ID, nil
}

// apiError is the common error body shape for GitHub and Gitea.
type apiError struct {
	Message string `json:"message"`
}

func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	message := fmt.Sprintf("HTTP %d", statusCode)
	var errResp apiError
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		message = errResp.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return httpx.NewAuthenticationError(serviceName, message)
	case statusCode == http.StatusNotFound:
		return &httpx.Error{Type: httpx.ErrTypeInvalidRequest, Message: fmt.Sprintf("%s (check repository and issue number)", message), StatusCode: statusCode, Service: serviceName}
	case statusCode >= 500:
		return httpx.NewServiceUnavailableError(serviceName, message)
	default:
		return &httpx.Error{Type: httpx.ErrTypeUnknown, Message: message, StatusCode: statusCode, Service: serviceName}
	}
}
