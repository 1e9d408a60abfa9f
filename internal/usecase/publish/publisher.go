// Package publish decides how a rendered review comment leaves the
// process: posted to the configured tracker, or written to the log when
// no target is configured.
package publish

import (
	"context"

	"github.com/dfarr/autoreviewer/internal/adapter/httpx"
	"github.com/dfarr/autoreviewer/internal/domain"
)

// CommentClient defines the outbound port for posting issue comments.
type CommentClient interface {
	CreateComment(ctx context.Context, issueNumber int, body string) (domain.PublishResult, error)
}

// Publisher routes rendered comments to the tracker or the local log.
type Publisher struct {
	client      CommentClient
	issueNumber int
	dryRun      bool
	logger      httpx.Logger
}

// Options configures a Publisher. IssueNumber <= 0 or DryRun selects the
// local-log fallback; Client may be nil in that case.
type Options struct {
	Client      CommentClient
	IssueNumber int
	DryRun      bool
	Logger      httpx.Logger
}

// New constructs a Publisher.
func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = httpx.NopLogger{}
	}
	return &Publisher{
		client:      opts.Client,
		issueNumber: opts.IssueNumber,
		dryRun:      opts.DryRun,
		logger:      logger,
	}
}

// LocalOnly reports whether the publisher will never perform network I/O.
func (p *Publisher) LocalOnly() bool {
	return p.dryRun || p.issueNumber <= 0 || p.client == nil
}

// Publish delivers one rendered comment. With no remote target it logs
// the body and returns the defined local success result; this path is a
// feature, not an error.
func (p *Publisher) Publish(ctx context.Context, body string) (domain.PublishResult, error) {
	if p.LocalOnly() {
		p.logger.Infof("publish: no tracker target configured, logging comment instead:\n%s", body)
		return domain.PublishResult{ID: domain.LocalLogID, Success: true}, nil
	}
	return p.client.CreateComment(ctx, p.issueNumber, body)
}
