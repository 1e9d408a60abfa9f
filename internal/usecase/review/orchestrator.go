// Package review implements the per-file diff-review pipeline: collect
// diffs, generate review text, publish comments, and account for partial
// failure.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dfarr/autoreviewer/internal/adapter/httpx"
	"github.com/dfarr/autoreviewer/internal/domain"
)

// Collector defines the inbound diff source.
type Collector interface {
	Collect(ctx context.Context) ([]domain.DiffItem, error)
}

// Generator defines the outbound port to the text-generation service.
type Generator interface {
	Ping(ctx context.Context) error
	Generate(ctx context.Context, diffText string) (string, error)
}

// Publisher defines the outbound port for delivering rendered comments.
type Publisher interface {
	Publish(ctx context.Context, body string) (domain.PublishResult, error)
}

// Store defines the optional outbound port for persisting run history.
type Store interface {
	SaveRun(ctx context.Context, rec RunRecord) error
}

// RunRecord captures one completed run for persistence.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	Repository string
	Mode       domain.ReviewMode
	BaseRef    string
	Outcome    domain.RunOutcome
	Files      []domain.FileOutcome
}

// Deps captures the collaborators for the orchestrator.
type Deps struct {
	Collector Collector
	Generator Generator
	Publisher Publisher
	Store     Store // optional
	Logger    httpx.Logger

	Model      string
	Repository string
	Mode       domain.ReviewMode
	BaseRef    string
	LinkBase   string // optional web base URL for file links in comments

	// Pause is inserted before each item after the first, to bound load
	// on the shared generation service.
	Pause time.Duration

	Clock func() time.Time
}

// Orchestrator drives the sequential review pipeline.
type Orchestrator struct {
	deps Deps
}

// New constructs an orchestrator. Files are always processed strictly one
// at a time, in collector order, so posted comments match diff order.
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = httpx.NopLogger{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Orchestrator{deps: deps}
}

// Run executes one review run and returns its aggregate outcome. The
// returned error is non-nil only for run-level failures: connectivity
// probe failure, diff discovery failure, cancellation, or every file
// failing. Partial failure is reported through the outcome alone.
func (o *Orchestrator) Run(ctx context.Context) (domain.RunOutcome, error) {
	log := o.deps.Logger
	startedAt := o.deps.Clock()

	if err := o.deps.Generator.Ping(ctx); err != nil {
		return domain.RunOutcome{}, fmt.Errorf("generation service connectivity check failed: %w", err)
	}

	items, err := o.deps.Collector.Collect(ctx)
	if err != nil {
		return domain.RunOutcome{}, err
	}
	if len(items) == 0 {
		log.Infof("review: no files to review")
		return domain.RunOutcome{}, nil
	}
	log.Infof("review: reviewing %d file(s) with model %s", len(items), o.deps.Model)

	outcomes := make([]domain.FileOutcome, 0, len(items))
	for i, item := range items {
		if i > 0 && o.deps.Pause > 0 {
			select {
			case <-time.After(o.deps.Pause):
			case <-ctx.Done():
				return domain.Summarize(outcomes), ctx.Err()
			}
		}

		outcome := o.reviewFile(ctx, item)
		if outcome.Failed() {
			log.Errorf("review: %s failed: %v", item.Path, outcome.Err)
		} else {
			log.Infof("review: %s published (comment %s)", item.Path, outcome.CommentID)
		}
		outcomes = append(outcomes, outcome)
	}

	result := domain.Summarize(outcomes)
	o.persist(ctx, RunRecord{
		ID:         uuid.NewString(),
		StartedAt:  startedAt,
		Repository: o.deps.Repository,
		Mode:       o.deps.Mode,
		BaseRef:    o.deps.BaseRef,
		Outcome:    result,
		Files:      outcomes,
	})

	switch result.Classify() {
	case domain.StatusTotalFailure:
		return result, fmt.Errorf("all %d file review(s) failed: %s",
			result.TotalCount, strings.Join(result.FailedPaths, ", "))
	case domain.StatusPartialFailure:
		log.Warnf("review: partial failure: %d/%d file(s) failed: %s",
			result.ErrorCount, result.TotalCount, strings.Join(result.FailedPaths, ", "))
	default:
		log.Infof("review: all %d file(s) reviewed successfully", result.TotalCount)
	}

	return result, nil
}

// reviewFile runs the generate→render→publish pipeline for one item.
// Every failure is captured in the outcome; the caller continues with the
// remaining items regardless.
func (o *Orchestrator) reviewFile(ctx context.Context, item domain.DiffItem) domain.FileOutcome {
	text, err := o.deps.Generator.Generate(ctx, item.Context)
	if err != nil {
		return domain.FileOutcome{Path: item.Path, Err: fmt.Errorf("generate: %w", err)}
	}

	body := RenderComment(CommentInput{
		Path:       item.Path,
		Review:     text,
		Model:      o.deps.Model,
		Mode:       o.deps.Mode,
		Repository: o.deps.Repository,
		LinkBase:   o.deps.LinkBase,
		Truncated:  item.Truncated,
		Timestamp:  o.deps.Clock(),
	})

	result, err := o.deps.Publisher.Publish(ctx, body)
	if err != nil {
		return domain.FileOutcome{Path: item.Path, Err: fmt.Errorf("publish: %w", err)}
	}

	return domain.FileOutcome{Path: item.Path, CommentID: result.ID}
}

func (o *Orchestrator) persist(ctx context.Context, rec RunRecord) {
	if o.deps.Store == nil {
		return
	}
	if err := o.deps.Store.SaveRun(ctx, rec); err != nil {
		o.deps.Logger.Warnf("review: failed to persist run history: %v", err)
	}
}
