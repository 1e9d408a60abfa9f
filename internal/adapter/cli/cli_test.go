package cli_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dfarr/autoreviewer/internal/adapter/cli"
	"github.com/dfarr/autoreviewer/internal/domain"
)

type reviewerStub struct {
	request cli.ReviewRequest
	called  bool
	err     error
}

func (r *reviewerStub) Review(ctx context.Context, req cli.ReviewRequest) (domain.RunOutcome, error) {
	r.called = true
	r.request = req
	return domain.RunOutcome{}, r.err
}

func TestRunCommandInvokesReviewer(t *testing.T) {
	stub := &reviewerStub{}
	root := cli.NewRootCommand(cli.Dependencies{
		Reviewer: stub,
		Args:     cli.Arguments{OutWriter: io.Discard, ErrWriter: io.Discard},
		Defaults: cli.Defaults{Mode: "pull_request", BaseRef: "main"},
		Version:  "v1.2.3",
	})

	root.SetArgs([]string{"run", "--base", "develop", "--exclude", `vendor/,_test\.go$`, "--issue", "42"})
	if err := root.Execute(); err != nil {
		t.Fatalf("command execution failed: %v", err)
	}

	if !stub.called {
		t.Fatal("expected reviewer to be invoked")
	}
	if stub.request.Mode != "pull_request" {
		t.Fatalf("expected default mode pull_request, got %s", stub.request.Mode)
	}
	if stub.request.BaseRef != "develop" {
		t.Fatalf("expected base ref develop, got %s", stub.request.BaseRef)
	}
	if stub.request.ExcludePatterns != `vendor/,_test\.go$` {
		t.Fatalf("unexpected exclude patterns: %q", stub.request.ExcludePatterns)
	}
	if stub.request.IssueNumber != 42 {
		t.Fatalf("expected issue number 42, got %d", stub.request.IssueNumber)
	}
	if stub.request.DryRun {
		t.Fatal("expected dry-run to default to false")
	}
}

func TestRunCommandUsesConfigDefaults(t *testing.T) {
	stub := &reviewerStub{}
	root := cli.NewRootCommand(cli.Dependencies{
		Reviewer: stub,
		Args:     cli.Arguments{OutWriter: io.Discard, ErrWriter: io.Discard},
		Defaults: cli.Defaults{
			Mode:            "commit",
			BaseRef:         "trunk",
			IncludePatterns: `\.go$`,
			IssueNumber:     7,
		},
		Version: "v1.2.3",
	})

	root.SetArgs([]string{"run"})
	if err := root.Execute(); err != nil {
		t.Fatalf("command execution failed: %v", err)
	}

	if stub.request.Mode != "commit" {
		t.Fatalf("expected mode commit, got %s", stub.request.Mode)
	}
	if stub.request.BaseRef != "trunk" {
		t.Fatalf("expected base ref trunk, got %s", stub.request.BaseRef)
	}
	if stub.request.IncludePatterns != `\.go$` {
		t.Fatalf("unexpected include patterns: %q", stub.request.IncludePatterns)
	}
	if stub.request.IssueNumber != 7 {
		t.Fatalf("expected issue number 7, got %d", stub.request.IssueNumber)
	}
}

func TestRunCommandDryRunFlag(t *testing.T) {
	stub := &reviewerStub{}
	root := cli.NewRootCommand(cli.Dependencies{
		Reviewer: stub,
		Args:     cli.Arguments{OutWriter: io.Discard, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"run", "--dry-run"})
	if err := root.Execute(); err != nil {
		t.Fatalf("command execution failed: %v", err)
	}

	if !stub.request.DryRun {
		t.Fatal("expected dry-run to be set")
	}
}

func TestRunCommandPropagatesReviewerError(t *testing.T) {
	wantErr := errors.New("boom")
	stub := &reviewerStub{err: wantErr}
	root := cli.NewRootCommand(cli.Dependencies{
		Reviewer: stub,
		Args:     cli.Arguments{OutWriter: io.Discard, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"run"})
	if err := root.Execute(); !errors.Is(err, wantErr) {
		t.Fatalf("expected reviewer error, got %v", err)
	}
}

func TestVersionFlagEmitsVersion(t *testing.T) {
	stub := &reviewerStub{}
	buf := &bytes.Buffer{}
	root := cli.NewRootCommand(cli.Dependencies{
		Reviewer: stub,
		Args:     cli.Arguments{OutWriter: buf, ErrWriter: io.Discard},
		Version:  "v9.9.9",
	})

	root.SetArgs([]string{"--version"})
	err := root.Execute()
	if !errors.Is(err, cli.ErrVersionRequested) {
		t.Fatalf("expected version sentinel, got %v", err)
	}
	if strings.TrimSpace(buf.String()) != "v9.9.9" {
		t.Fatalf("unexpected version output: %q", buf.String())
	}
	if stub.called {
		t.Fatal("expected reviewer not to run when version is requested")
	}
}
