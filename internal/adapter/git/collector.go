// Package git implements the diff collector: it discovers the changed-file
// set for a review run and retrieves per-file diff text.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/dfarr/autoreviewer/internal/adapter/httpx"
	"github.com/dfarr/autoreviewer/internal/domain"
	"github.com/dfarr/autoreviewer/internal/pattern"
)

// TruncationMarker is appended to diff text cut at the size cap.
const TruncationMarker = "\n\n... [diff truncated]"

// DiscoveryError is a failure of the bulk changed-file discovery. It is
// fatal to the run and never retried, unlike per-file diff failures.
type DiscoveryError struct {
	Op  string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("diff discovery failed (%s): %v", e.Op, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Options configures a Collector.
type Options struct {
	RepoDir      string
	Mode         domain.ReviewMode
	BaseRef      string
	Include      []string
	Exclude      []string
	MaxDiffChars int
	Logger       httpx.Logger
}

// Collector produces the ordered DiffItem sequence for one review run.
type Collector struct {
	repoDir      string
	mode         domain.ReviewMode
	baseRef      string
	include      []string
	exclude      []string
	maxDiffChars int
	logger       httpx.Logger

	runGit      func(ctx context.Context, args ...string) (string, error)
	resolveBase func(ctx context.Context, ref string) (string, error)
}

// NewCollector constructs a collector for the provided repository directory.
func NewCollector(opts Options) *Collector {
	c := &Collector{
		repoDir:      opts.RepoDir,
		mode:         opts.Mode,
		baseRef:      opts.BaseRef,
		include:      opts.Include,
		exclude:      opts.Exclude,
		maxDiffChars: opts.MaxDiffChars,
		logger:       opts.Logger,
	}
	if c.repoDir == "" {
		c.repoDir = "."
	}
	if c.baseRef == "" {
		c.baseRef = "main"
	}
	if c.maxDiffChars <= 0 {
		c.maxDiffChars = 10000
	}
	if c.logger == nil {
		c.logger = httpx.NopLogger{}
	}
	c.runGit = c.runGitCommand
	c.resolveBase = c.resolveBaseRef
	return c
}

// Collect returns the in-scope DiffItems between the run's two revisions,
// in the order git reports them. An empty result is a valid, non-error
// outcome meaning there is nothing to review. Bulk discovery failures
// return a *DiscoveryError; per-file retrieval failures are logged and the
// affected file is skipped.
func (c *Collector) Collect(ctx context.Context) ([]domain.DiffItem, error) {
	revisions, err := c.revisionArgs(ctx)
	if err != nil {
		return nil, &DiscoveryError{Op: "resolve revisions", Err: err}
	}

	listArgs := append([]string{"diff", "--name-only"}, revisions...)
	out, err := c.runGit(ctx, listArgs...)
	if err != nil {
		return nil, &DiscoveryError{Op: "list changed files", Err: err}
	}

	paths := splitLines(out)
	c.logger.Infof("collector: %d changed file(s) between %s", len(paths), strings.Join(revisions, " "))

	warn := func(p string, err error) {
		c.logger.Warnf("collector: ignoring invalid pattern %q: %v", p, err)
	}

	items := make([]domain.DiffItem, 0, len(paths))
	for _, path := range paths {
		if !pattern.InScope(c.include, c.exclude, path, warn) {
			c.logger.Infof("collector: skipping %s (filtered by patterns)", path)
			continue
		}

		diffArgs := append(append([]string{"diff"}, revisions...), "--", path)
		text, err := c.runGit(ctx, diffArgs...)
		if err != nil {
			// Tolerated: only the bulk commands above are fatal.
			c.logger.Warnf("collector: failed to retrieve diff for %s, skipping: %v", path, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			c.logger.Debugf("collector: %s has no diff content, skipping", path)
			continue
		}

		truncated, wasTruncated := Truncate(text, c.maxDiffChars)
		if wasTruncated {
			c.logger.Infof("collector: diff for %s truncated to %d chars", path, c.maxDiffChars)
		}
		items = append(items, domain.DiffItem{
			Path:      path,
			Context:   truncated,
			Truncated: wasTruncated,
		})
	}

	return items, nil
}

// CurrentBranch returns the name of the checked-out branch.
func (c *Collector) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(c.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	name := head.Name()
	if name.IsBranch() {
		return name.Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

// Truncate cuts diff text to the cap and appends the truncation marker.
// Text at or under the cap is returned untouched, so re-truncation of an
// already-capped diff is a no-op on the original content.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 || len(text) <= limit {
		return text, false
	}
	return text[:limit] + TruncationMarker, true
}

func (c *Collector) revisionArgs(ctx context.Context) ([]string, error) {
	if c.mode == domain.ModeCommit {
		return []string{"HEAD^", "HEAD"}, nil
	}
	base, err := c.resolveBase(ctx, c.baseRef)
	if err != nil {
		return nil, fmt.Errorf("resolve base ref %q: %w", c.baseRef, err)
	}
	return []string{base + "...HEAD"}, nil
}

// resolveBaseRef finds a revision spec for the configured base ref,
// trying the bare name, a local branch, and the origin remote in turn.
// Local checkouts of PR branches often only carry origin/<base>.
func (c *Collector) resolveBaseRef(ctx context.Context, ref string) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(c.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}

	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		if _, err := repo.ResolveRevision(plumbing.Revision(candidate)); err != nil {
			lastErr = err
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("unable to resolve ref %s: %w", ref, lastErr)
}

func (c *Collector) runGitCommand(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", c.repoDir}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %v: %w", args, ctx.Err())
		}
		return "", fmt.Errorf("git %v: %w: %s", args, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func splitLines(out string) []string {
	trimmed := strings.TrimRight(out, "\r\n")
	if trimmed == "" {
		return nil
	}
	lines := strings.Split(trimmed, "\n")
	paths := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths
}
