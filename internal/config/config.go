// Package config defines the application configuration and its loader.
// The loaded Config is an immutable value handed to the wiring at startup;
// there is no ambient global configuration state.
package config

import (
	"fmt"
	"net/url"

	"github.com/dfarr/autoreviewer/internal/domain"
)

// Config represents the full application configuration.
type Config struct {
	Generation GenerationConfig `mapstructure:"generation"`
	Review     ReviewConfig     `mapstructure:"review"`
	Tracker    TrackerConfig    `mapstructure:"tracker"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// GenerationConfig configures the text-generation service client.
type GenerationConfig struct {
	Host            string `mapstructure:"host"`
	Model           string `mapstructure:"model"`
	Token           string `mapstructure:"token"`
	SystemPrompt    string `mapstructure:"systemPrompt"`
	Timeout         string `mapstructure:"timeout"`
	MaxAttempts     int    `mapstructure:"maxAttempts"`
	RetryDelay      string `mapstructure:"retryDelay"`
	ContextWindow   int    `mapstructure:"contextWindow"`
	MaxOutputTokens int    `mapstructure:"maxOutputTokens"`
}

// ReviewConfig configures diff collection and pipeline pacing.
type ReviewConfig struct {
	Mode              string `mapstructure:"mode"`
	BaseRef           string `mapstructure:"baseRef"`
	RepositoryDir     string `mapstructure:"repositoryDir"`
	IncludePatterns   string `mapstructure:"includePatterns"`
	ExcludePatterns   string `mapstructure:"excludePatterns"`
	MaxDiffChars      int    `mapstructure:"maxDiffChars"`
	PauseBetweenFiles string `mapstructure:"pauseBetweenFiles"`
}

// TrackerConfig configures comment publishing. IssueNumber 0 selects the
// local-log fallback.
type TrackerConfig struct {
	APIBase     string `mapstructure:"apiBase"`
	LinkBase    string `mapstructure:"linkBase"`
	Repository  string `mapstructure:"repository"`
	Token       string `mapstructure:"token"`
	IssueNumber int    `mapstructure:"issueNumber"`
	MaxAttempts int    `mapstructure:"maxAttempts"`
	RetryDelay  string `mapstructure:"retryDelay"`
}

// StoreConfig configures the run-history persistence layer.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig configures log verbosity and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks the configuration invariants that must hold before any
// review work begins. Violations are fatal configuration errors.
func (c Config) Validate() error {
	if c.Generation.Host == "" {
		return fmt.Errorf("generation.host is required")
	}
	parsed, err := url.Parse(c.Generation.Host)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("generation.host %q is not a valid URL", c.Generation.Host)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("generation.host %q must use http or https", c.Generation.Host)
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if !domain.ReviewMode(c.Review.Mode).Valid() {
		return fmt.Errorf("review.mode %q must be %q or %q",
			c.Review.Mode, domain.ModePullRequest, domain.ModeCommit)
	}
	if c.Tracker.IssueNumber > 0 {
		if c.Tracker.Repository == "" {
			return fmt.Errorf("tracker.repository is required when tracker.issueNumber is set")
		}
		if c.Tracker.Token == "" {
			return fmt.Errorf("tracker.token is required when tracker.issueNumber is set")
		}
	}
	return nil
}
