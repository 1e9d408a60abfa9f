package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dfarr/autoreviewer/internal/adapter/cli"
	"github.com/dfarr/autoreviewer/internal/adapter/git"
	"github.com/dfarr/autoreviewer/internal/adapter/httpx"
	"github.com/dfarr/autoreviewer/internal/adapter/ollama"
	"github.com/dfarr/autoreviewer/internal/adapter/store/sqlite"
	"github.com/dfarr/autoreviewer/internal/adapter/tracker"
	"github.com/dfarr/autoreviewer/internal/config"
	"github.com/dfarr/autoreviewer/internal/domain"
	"github.com/dfarr/autoreviewer/internal/pattern"
	"github.com/dfarr/autoreviewer/internal/usecase/publish"
	"github.com/dfarr/autoreviewer/internal/usecase/review"
	"github.com/dfarr/autoreviewer/internal/version"
)

// Exit codes: connectivity failures get their own code so CI wrappers can
// tell an unreachable service apart from a genuine review failure.
const (
	exitOK           = 0
	exitFailure      = 1
	exitConnectivity = 2
)

func main() {
	logger := httpx.NewDefaultLogger(httpx.LogLevelInfo, defaultLogFormat(""))
	if err := run(logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(exitCode(err))
	}
}

func run(bootLogger httpx.Logger) error {
	// Cancellable context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "arv",
		EnvPrefix:   "ARV",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := buildLogger(cfg.Logging)

	root := cli.NewRootCommand(cli.Dependencies{
		Reviewer: &app{cfg: cfg, logger: logger},
		Defaults: cli.Defaults{
			Mode:            cfg.Review.Mode,
			BaseRef:         cfg.Review.BaseRef,
			IncludePatterns: cfg.Review.IncludePatterns,
			ExcludePatterns: cfg.Review.ExcludePatterns,
			IssueNumber:     cfg.Tracker.IssueNumber,
		},
		Version: version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return err
	}
	return nil
}

// app bridges the CLI request to the wired review pipeline. Flag values
// arrive already resolved against config defaults; the remaining settings
// come straight from config.
type app struct {
	cfg    config.Config
	logger httpx.Logger
}

func (a *app) Review(ctx context.Context, req cli.ReviewRequest) (domain.RunOutcome, error) {
	cfg := a.cfg
	cfg.Review.Mode = req.Mode
	cfg.Review.BaseRef = req.BaseRef
	cfg.Review.IncludePatterns = req.IncludePatterns
	cfg.Review.ExcludePatterns = req.ExcludePatterns
	cfg.Tracker.IssueNumber = req.IssueNumber

	if err := cfg.Validate(); err != nil {
		return domain.RunOutcome{}, fmt.Errorf("invalid configuration: %w", err)
	}

	log := a.logger
	mode := domain.ReviewMode(cfg.Review.Mode)

	collector := git.NewCollector(git.Options{
		RepoDir:      cfg.Review.RepositoryDir,
		Mode:         mode,
		BaseRef:      cfg.Review.BaseRef,
		Include:      pattern.Parse(cfg.Review.IncludePatterns),
		Exclude:      pattern.Parse(cfg.Review.ExcludePatterns),
		MaxDiffChars: cfg.Review.MaxDiffChars,
		Logger:       log,
	})

	generator := ollama.NewClient(ollama.Config{
		Host:          cfg.Generation.Host,
		Model:         cfg.Generation.Model,
		Token:         cfg.Generation.Token,
		SystemPrompt:  cfg.Generation.SystemPrompt,
		Timeout:       durationOr(log, "generation.timeout", cfg.Generation.Timeout, 180*time.Second),
		MaxAttempts:   cfg.Generation.MaxAttempts,
		RetryDelay:    durationOr(log, "generation.retryDelay", cfg.Generation.RetryDelay, 2*time.Second),
		ContextWindow: cfg.Generation.ContextWindow,
		MaxOutput:     cfg.Generation.MaxOutputTokens,
		Logger:        log,
	})

	var commentClient publish.CommentClient
	if cfg.Tracker.IssueNumber > 0 && !req.DryRun {
		trackerClient := tracker.NewClient(tracker.Config{
			APIBase:     cfg.Tracker.APIBase,
			Repository:  cfg.Tracker.Repository,
			Token:       cfg.Tracker.Token,
			MaxAttempts: cfg.Tracker.MaxAttempts,
			RetryDelay:  durationOr(log, "tracker.retryDelay", cfg.Tracker.RetryDelay, 3*time.Second),
			Logger:      log,
		})
		log.Infof("tracker: posting to %s issue #%d (%s, token %s)",
			cfg.Tracker.Repository, cfg.Tracker.IssueNumber,
			trackerClient.Flavor(), httpx.RedactToken(cfg.Tracker.Token))
		commentClient = trackerClient
	}

	publisher := publish.New(publish.Options{
		Client:      commentClient,
		IssueNumber: cfg.Tracker.IssueNumber,
		DryRun:      req.DryRun,
		Logger:      log,
	})

	var store review.Store
	if cfg.Store.Enabled {
		if s := openStore(cfg.Store.Path, log); s != nil {
			defer s.Close()
			store = s
		}
	}

	orchestrator := review.New(review.Deps{
		Collector:  collector,
		Generator:  generator,
		Publisher:  publisher,
		Store:      store,
		Logger:     log,
		Model:      cfg.Generation.Model,
		Repository: repositoryName(cfg.Tracker.Repository, cfg.Review.RepositoryDir),
		Mode:       mode,
		BaseRef:    cfg.Review.BaseRef,
		LinkBase:   cfg.Tracker.LinkBase,
		Pause:      durationOr(log, "review.pauseBetweenFiles", cfg.Review.PauseBetweenFiles, 2*time.Second),
	})

	return orchestrator.Run(ctx)
}

// openStore initializes the run-history store. Store failures never block
// a review run; they degrade to a warning.
func openStore(path string, log httpx.Logger) *sqlite.Store {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warnf("store: failed to create directory %s: %v", dir, err)
			return nil
		}
	}
	store, err := sqlite.NewStore(path)
	if err != nil {
		log.Warnf("store: failed to initialize %s: %v", path, err)
		return nil
	}
	return store
}

// repositoryName prefers the configured tracker repository and falls back
// to the working directory name.
func repositoryName(configured, repoDir string) string {
	if configured != "" {
		return configured
	}
	if repoDir == "" {
		repoDir = "."
	}
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return "unknown"
	}
	return filepath.Base(abs)
}

func buildLogger(cfg config.LoggingConfig) httpx.Logger {
	return httpx.NewDefaultLogger(httpx.ParseLevel(cfg.Level), defaultLogFormat(cfg.Format))
}

// defaultLogFormat picks human output for interactive runs and JSON lines
// for CI unless an explicit format is configured.
func defaultLogFormat(configured string) httpx.LogFormat {
	if configured != "" {
		return httpx.ParseFormat(configured)
	}
	if review.IsOutputTerminal() {
		return httpx.LogFormatHuman
	}
	return httpx.LogFormatJSON
}

// durationOr parses a config duration string, warning and falling back to
// the default on bad input.
func durationOr(log httpx.Logger, key, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Warnf("config: invalid duration %q for %s, using %s", value, key, fallback)
		return fallback
	}
	return parsed
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var httpErr *httpx.Error
	if errors.As(err, &httpErr) && httpErr.IsConnectivity() {
		return exitConnectivity
	}
	return exitFailure
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "arv"))
	}
	return paths
}

// Compile-time interface compliance checks
var _ review.Collector = (*git.Collector)(nil)
var _ review.Generator = (*ollama.Client)(nil)
var _ review.Publisher = (*publish.Publisher)(nil)
var _ review.Store = (*sqlite.Store)(nil)
var _ publish.CommentClient = (*tracker.Client)(nil)
var _ cli.Reviewer = (*app)(nil)
