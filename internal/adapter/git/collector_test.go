package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfarr/autoreviewer/internal/domain"
)

// fakeGit builds a runGit replacement serving canned name-only and
// per-file diff output.
func fakeGit(paths []string, diffs map[string]string, diffErrs map[string]error) func(context.Context, ...string) (string, error) {
	return func(_ context.Context, args ...string) (string, error) {
		if len(args) >= 2 && args[0] == "diff" && args[1] == "--name-only" {
			return strings.Join(paths, "\n") + "\n", nil
		}
		// Per-file form ends with "-- <path>".
		path := args[len(args)-1]
		if err, ok := diffErrs[path]; ok {
			return "", err
		}
		return diffs[path], nil
	}
}

func newTestCollector(opts Options) *Collector {
	c := NewCollector(opts)
	c.resolveBase = func(context.Context, string) (string, error) {
		return "origin/main", nil
	}
	return c
}

func TestCollectOrdersItemsLikeGit(t *testing.T) {
	c := newTestCollector(Options{Mode: domain.ModePullRequest})
	c.runGit = fakeGit(
		[]string{"b.go", "a.go", "c.go"},
		map[string]string{"b.go": "diff b", "a.go": "diff a", "c.go": "diff c"},
		nil,
	)

	items, err := c.Collect(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "b.go", items[0].Path)
	assert.Equal(t, "a.go", items[1].Path)
	assert.Equal(t, "c.go", items[2].Path)
}

func TestCollectAppliesExcludePatterns(t *testing.T) {
	// Scenario: two changed files, one matches an exclude pattern.
	c := newTestCollector(Options{
		Mode:    domain.ModePullRequest,
		Exclude: []string{`_test\.go$`},
	})
	c.runGit = fakeGit(
		[]string{"handler.go", "handler_test.go"},
		map[string]string{"handler.go": "diff", "handler_test.go": "diff"},
		nil,
	)

	items, err := c.Collect(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "handler.go", items[0].Path)
}

func TestCollectSkipsPerFileFailures(t *testing.T) {
	c := newTestCollector(Options{Mode: domain.ModePullRequest})
	c.runGit = fakeGit(
		[]string{"a.go", "b.go"},
		map[string]string{"b.go": "diff b"},
		map[string]error{"a.go": errors.New("exit status 128")},
	)

	items, err := c.Collect(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b.go", items[0].Path)
}

func TestCollectSkipsEmptyDiffs(t *testing.T) {
	c := newTestCollector(Options{Mode: domain.ModePullRequest})
	c.runGit = fakeGit(
		[]string{"mode-only.go", "real.go"},
		map[string]string{"mode-only.go": "  \n", "real.go": "diff"},
		nil,
	)

	items, err := c.Collect(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "real.go", items[0].Path)
}

func TestCollectBulkFailureIsFatal(t *testing.T) {
	c := newTestCollector(Options{Mode: domain.ModePullRequest})
	c.runGit = func(context.Context, ...string) (string, error) {
		return "", errors.New("fatal: bad revision")
	}

	_, err := c.Collect(context.Background())

	var derr *DiscoveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "list changed files", derr.Op)
}

func TestCollectBaseRefResolutionFailureIsFatal(t *testing.T) {
	c := NewCollector(Options{Mode: domain.ModePullRequest, BaseRef: "main"})
	c.resolveBase = func(context.Context, string) (string, error) {
		return "", errors.New("reference not found")
	}

	_, err := c.Collect(context.Background())

	var derr *DiscoveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "resolve revisions", derr.Op)
}

func TestCollectCommitModeUsesParent(t *testing.T) {
	var listArgs []string
	c := newTestCollector(Options{Mode: domain.ModeCommit})
	c.runGit = func(_ context.Context, args ...string) (string, error) {
		if len(args) >= 2 && args[1] == "--name-only" {
			listArgs = args
			return "", nil
		}
		return "", nil
	}

	items, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, []string{"diff", "--name-only", "HEAD^", "HEAD"}, listArgs)
}

func TestCollectEmptyChangeSetIsNotAnError(t *testing.T) {
	c := newTestCollector(Options{Mode: domain.ModePullRequest})
	c.runGit = fakeGit(nil, nil, nil)

	items, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCollectTruncatesOversizedDiffs(t *testing.T) {
	c := newTestCollector(Options{Mode: domain.ModePullRequest, MaxDiffChars: 20})
	c.runGit = fakeGit(
		[]string{"big.go"},
		map[string]string{"big.go": strings.Repeat("x", 50)},
		nil,
	)

	items, err := c.Collect(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Truncated)
	assert.Equal(t, strings.Repeat("x", 20)+TruncationMarker, items[0].Context)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		limit         int
		want          string
		wantTruncated bool
	}{
		{"under cap untouched", "short", 10, "short", false},
		{"at cap untouched", "exact", 5, "exact", false},
		{"over cap marked", "0123456789", 4, "0123" + TruncationMarker, true},
		{"zero limit disables", "anything", 0, "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := Truncate(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantTruncated, truncated)
		})
	}
}

func TestTruncateIdempotentAtCap(t *testing.T) {
	text := strings.Repeat("a", 100)
	once, truncated := Truncate(text, 40)
	require.True(t, truncated)

	// The capped prefix itself survives re-truncation untouched.
	again, truncatedAgain := Truncate(once[:40], 40)
	assert.False(t, truncatedAgain)
	assert.Equal(t, once[:40], again)
}

func TestDiscoveryErrorUnwraps(t *testing.T) {
	cause := errors.New("exit status 128")
	err := &DiscoveryError{Op: "list changed files", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, fmt.Sprintf("diff discovery failed (list changed files): %v", cause), err.Error())
}

func TestNewCollectorDefaults(t *testing.T) {
	c := NewCollector(Options{})

	assert.Equal(t, ".", c.repoDir)
	assert.Equal(t, "main", c.baseRef)
	assert.Equal(t, 10000, c.maxDiffChars)
}
