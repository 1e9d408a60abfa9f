package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dfarr/autoreviewer/internal/domain"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// ReviewRequest carries the resolved command-line inputs for one run.
// String fields hold the final values after flag/config resolution; the
// pattern fields are raw, unparsed pattern lists.
type ReviewRequest struct {
	Mode            string
	BaseRef         string
	IncludePatterns string
	ExcludePatterns string
	IssueNumber     int
	DryRun          bool
}

// Reviewer defines the dependency required to run the review command.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (domain.RunOutcome, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Defaults holds flag default values sourced from configuration.
type Defaults struct {
	Mode            string
	BaseRef         string
	IncludePatterns string
	ExcludePatterns string
	IssueNumber     int
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Reviewer Reviewer
	Args     Arguments
	Defaults Defaults
	Version  string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "arv",
		Short: "Automated diff review CLI",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(runCommand(deps.Reviewer, deps.Defaults))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func runCommand(reviewer Reviewer, defaults Defaults) *cobra.Command {
	var mode string
	var baseRef string
	var include string
	var exclude string
	var issueNumber int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Review the current change set and publish comments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := reviewer.Review(cmd.Context(), ReviewRequest{
				Mode:            mode,
				BaseRef:         baseRef,
				IncludePatterns: include,
				ExcludePatterns: exclude,
				IssueNumber:     issueNumber,
				DryRun:          dryRun,
			})
			return err
		},
	}

	defaultMode := defaults.Mode
	if defaultMode == "" {
		defaultMode = string(domain.ModePullRequest)
	}
	defaultBase := defaults.BaseRef
	if defaultBase == "" {
		defaultBase = "main"
	}

	cmd.Flags().StringVar(&mode, "mode", defaultMode, "Review mode: pull_request or commit")
	cmd.Flags().StringVar(&baseRef, "base", defaultBase, "Base reference to diff against in pull_request mode")
	cmd.Flags().StringVar(&include, "include", defaults.IncludePatterns, "Include patterns (regex, comma- or newline-separated)")
	cmd.Flags().StringVar(&exclude, "exclude", defaults.ExcludePatterns, "Exclude patterns (regex, comma- or newline-separated)")
	cmd.Flags().IntVar(&issueNumber, "issue", defaults.IssueNumber, "Issue or pull request number to comment on (0 logs locally)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log comments instead of posting them")

	return cmd
}
