// Package domain holds the core value types shared across the review pipeline.
package domain

// ReviewMode selects how the changed-file set is discovered.
type ReviewMode string

const (
	// ModePullRequest compares the current branch tip against a named base ref.
	ModePullRequest ReviewMode = "pull_request"
	// ModeCommit compares the current commit against its immediate parent.
	ModeCommit ReviewMode = "commit"
)

// Valid reports whether the mode is one of the recognized values.
func (m ReviewMode) Valid() bool {
	return m == ModePullRequest || m == ModeCommit
}

// DiffItem is one changed file's unified diff text, scoped for review.
// Items are immutable once produced by the collector; the diff text is
// never empty and may carry a truncation marker when it exceeded the cap.
type DiffItem struct {
	Path      string
	Context   string
	Truncated bool
}

// LocalLogID is the publish identifier returned when no remote comment
// target is configured and the comment was written to the log instead.
const LocalLogID = "local-log"

// PublishResult is the outcome of publishing a single rendered comment.
type PublishResult struct {
	ID      string
	Success bool
}

// FileOutcome records the terminal result of the pipeline for one file.
// Exactly one of CommentID and Err is meaningful.
type FileOutcome struct {
	Path      string
	CommentID string
	Err       error
}

// Failed reports whether the file's review did not complete.
func (o FileOutcome) Failed() bool {
	return o.Err != nil
}

// RunStatus classifies a completed run.
type RunStatus int

const (
	StatusSuccess RunStatus = iota
	StatusPartialFailure
	StatusTotalFailure
)

// String returns a human-readable status label.
func (s RunStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPartialFailure:
		return "partial failure"
	case StatusTotalFailure:
		return "total failure"
	default:
		return "unknown"
	}
}

// RunOutcome aggregates per-file outcomes for one run.
// Invariant: SuccessCount + ErrorCount == TotalCount, and every failed
// path appears in FailedPaths exactly once, in pipeline order.
type RunOutcome struct {
	SuccessCount int
	ErrorCount   int
	TotalCount   int
	FailedPaths  []string
}

// Summarize folds per-file outcomes into a RunOutcome.
func Summarize(outcomes []FileOutcome) RunOutcome {
	result := RunOutcome{TotalCount: len(outcomes)}
	for _, o := range outcomes {
		if o.Failed() {
			result.ErrorCount++
			result.FailedPaths = append(result.FailedPaths, o.Path)
			continue
		}
		result.SuccessCount++
	}
	return result
}

// Classify maps the counters to a terminal run status. A run with zero
// items is a success: nothing to do is not an error.
func (r RunOutcome) Classify() RunStatus {
	switch {
	case r.ErrorCount == 0:
		return StatusSuccess
	case r.SuccessCount == 0:
		return StatusTotalFailure
	default:
		return StatusPartialFailure
	}
}
