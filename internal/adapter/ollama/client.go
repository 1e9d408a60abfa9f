// Package ollama implements the text-generation client against an
// Ollama-compatible HTTP endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dfarr/autoreviewer/internal/adapter/httpx"
)

const (
	serviceName = "ollama"

	// Local models can be slow on large diffs.
	defaultTimeout = 180 * time.Second

	defaultTemperature = 0.7
	defaultTopP        = 0.8
	defaultTopK        = 30
	defaultTFSZ        = 1.5
	defaultNumCtx      = 10240
	defaultNumPredict  = 2048
)

// DefaultSystemPrompt is the role prompt used when no override is configured.
const DefaultSystemPrompt = "You are a senior software engineer performing a code review. " +
	"Review the following unified diff and point out bugs, risky changes, and " +
	"style problems. Be concise and concrete; reference file paths and line " +
	"context from the diff. Respond in markdown."

// Config configures a Client. Zero values fall back to package defaults.
type Config struct {
	Host          string
	Model         string
	Token         string
	SystemPrompt  string
	Timeout       time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	ContextWindow int
	MaxOutput     int
	Logger        httpx.Logger
}

// Client is an HTTP client for the Ollama generate API.
type Client struct {
	baseURL      string
	model        string
	token        string
	systemPrompt string
	options      GenerateOptions
	retry        httpx.RetryConfig
	client       *http.Client
	logger       httpx.Logger
}

// NewClient creates a new Ollama HTTP client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	numCtx := cfg.ContextWindow
	if numCtx <= 0 {
		numCtx = defaultNumCtx
	}
	numPredict := cfg.MaxOutput
	if numPredict <= 0 {
		numPredict = defaultNumPredict
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	logger := cfg.Logger
	if logger == nil {
		logger = httpx.NopLogger{}
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.Host, "/"),
		model:        cfg.Model,
		token:        cfg.Token,
		systemPrompt: systemPrompt,
		options: GenerateOptions{
			Temperature: defaultTemperature,
			TopP:        defaultTopP,
			TopK:        defaultTopK,
			TFSZ:        defaultTFSZ,
			NumCtx:      numCtx,
			NumPredict:  numPredict,
		},
		retry: httpx.RetryConfig{
			MaxAttempts: attempts,
			Delay:       retryDelay,
			Exponential: true,
		},
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Ping validates that the generation service is reachable before any
// review work starts, using the lightweight tags route.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return httpx.NewServiceUnavailableError(serviceName,
			fmt.Sprintf("generation service unreachable at %s: %v", c.baseURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return httpx.NewServiceUnavailableError(serviceName,
			fmt.Sprintf("connectivity probe returned HTTP %d", resp.StatusCode))
	}
	return nil
}

// Generate sends the per-file diff as a prompt and returns the validated,
// fence-stripped review text. An empty diff is a caller contract violation
// and fails immediately without retry.
func (c *Client) Generate(ctx context.Context, diffText string) (string, error) {
	if strings.TrimSpace(diffText) == "" {
		return "", httpx.NewInvalidRequestError(serviceName, "empty diff text")
	}

	reqBody := GenerateRequest{
		Model:   c.model,
		Prompt:  diffText,
		Stream:  false,
		System:  c.systemPrompt,
		Options: c.options,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	label := fmt.Sprintf("generate(%s)", c.model)
	text, err := httpx.Do(ctx, label, c.retry, c.logger, func(ctx context.Context) (string, error) {
		return c.generateOnce(ctx, jsonData)
	})
	if err != nil {
		return "", err
	}

	return StripFence(text), nil
}

// generateOnce performs a single request/validate cycle. Validation
// failures are returned as errors so the executor retries them alongside
// transport failures.
func (c *Client) generateOnce(ctx context.Context, jsonData []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return "", httpx.NewServiceUnavailableError(serviceName,
				fmt.Sprintf("server not reachable at %s: %v", c.baseURL, err))
		}
		return "", httpx.NewTimeoutError(serviceName, err.Error())
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", httpx.NewMalformedResponseError(serviceName, fmt.Sprintf("read body: %v", err))
	}

	if resp.StatusCode >= 400 {
		return "", c.handleErrorResponse(resp.StatusCode, bodyBytes)
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return "", httpx.NewMalformedResponseError(serviceName, fmt.Sprintf("parse body: %v", err))
	}
	if genResp.Error != "" {
		return "", httpx.NewMalformedResponseError(serviceName, genResp.Error)
	}
	if strings.TrimSpace(genResp.Response) == "" {
		return "", httpx.NewMalformedResponseError(serviceName, "empty response text")
	}

	return genResp.Response, nil
}

// handleErrorResponse maps HTTP status codes to typed errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	message := fmt.Sprintf("HTTP %d", statusCode)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	switch statusCode {
	case http.StatusNotFound:
		return httpx.NewModelNotFoundError(serviceName,
			fmt.Sprintf("%s. Pull it with: ollama pull %s", message, c.model))
	case http.StatusUnauthorized, http.StatusForbidden:
		return httpx.NewAuthenticationError(serviceName, message)
	case http.StatusBadRequest:
		return httpx.NewInvalidRequestError(serviceName, message)
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		return httpx.NewServiceUnavailableError(serviceName, message)
	default:
		return &httpx.Error{Type: httpx.ErrTypeUnknown, Message: message, StatusCode: statusCode, Service: serviceName}
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// StripFence removes a single leading/trailing markdown code fence
// (" ```markdown ... ``` ") wrapping the whole response, if present.
// Inner fences and unfenced text are left untouched.
func StripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return text
	}
	if strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return text
	}

	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
