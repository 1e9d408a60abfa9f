package publish_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfarr/autoreviewer/internal/domain"
	"github.com/dfarr/autoreviewer/internal/usecase/publish"
)

type fakeClient struct {
	calls  int
	issue  int
	body   string
	result domain.PublishResult
	err    error
}

func (f *fakeClient) CreateComment(_ context.Context, issueNumber int, body string) (domain.PublishResult, error) {
	f.calls++
	f.issue = issueNumber
	f.body = body
	return f.result, f.err
}

func TestPublishWithoutTargetUsesLocalLog(t *testing.T) {
	client := &fakeClient{}
	p := publish.New(publish.Options{Client: client, IssueNumber: 0})

	result, err := p.Publish(context.Background(), "comment body")

	require.NoError(t, err)
	assert.Equal(t, domain.LocalLogID, result.ID)
	assert.True(t, result.Success)
	// No network I/O may happen on the fallback path.
	assert.Zero(t, client.calls)
	assert.True(t, p.LocalOnly())
}

func TestPublishDryRunForcesLocalLog(t *testing.T) {
	client := &fakeClient{result: domain.PublishResult{ID: "9", Success: true}}
	p := publish.New(publish.Options{Client: client, IssueNumber: 42, DryRun: true})

	result, err := p.Publish(context.Background(), "comment body")

	require.NoError(t, err)
	assert.Equal(t, domain.LocalLogID, result.ID)
	assert.Zero(t, client.calls)
}

func TestPublishDelegatesToClient(t *testing.T) {
	client := &fakeClient{result: domain.PublishResult{ID: "1234", Success: true}}
	p := publish.New(publish.Options{Client: client, IssueNumber: 42})

	result, err := p.Publish(context.Background(), "comment body")

	require.NoError(t, err)
	assert.Equal(t, "1234", result.ID)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 42, client.issue)
	assert.Equal(t, "comment body", client.body)
	assert.False(t, p.LocalOnly())
}

func TestPublishPropagatesClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("boom")}
	p := publish.New(publish.Options{Client: client, IssueNumber: 42})

	_, err := p.Publish(context.Background(), "comment body")

	assert.EqualError(t, err, "boom")
}
