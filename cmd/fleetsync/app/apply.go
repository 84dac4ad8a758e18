package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/fleetsync/internal/cmd/output"
	"github.com/agentstation/fleetsync/pkg/applier"
	"github.com/agentstation/fleetsync/pkg/errors"
)

// ErrRunFailed is returned when a run recorded at least one error.
var ErrRunFailed = errors.New("run finished with errors")

// applyFlags holds the flags of a reconciliation run.
type applyFlags struct {
	apply    bool
	projects []string
	types    []string
	diff     bool
	backup   bool
	noSync   bool
	gitAdd   bool
	commit   string
	push     bool
}

// addApplyFlags registers the run flags on cmd, bound to f.
func addApplyFlags(cmd *cobra.Command, f *applyFlags) {
	cmd.Flags().BoolVarP(&f.apply, "apply", "a", false, "write changes (default is a dry run)")
	cmd.Flags().StringArrayVarP(&f.projects, "project", "p", nil, "only process this project (repeatable)")
	cmd.Flags().StringArrayVarP(&f.types, "type", "t", nil, "only apply this config type (repeatable)")
	cmd.Flags().BoolVarP(&f.diff, "diff", "d", false, "show a diff for each change in a dry run")
	cmd.Flags().BoolVarP(&f.backup, "backup", "b", false, "keep <file>.bak of files that are replaced")
	cmd.Flags().BoolVar(&f.noSync, "no-sync", false, "skip uv sync after pyproject.toml changes")
	cmd.Flags().BoolVar(&f.gitAdd, "git-add", false, "git add changed files in projects that are git repositories")
	cmd.Flags().StringVar(&f.commit, "commit", "", "commit staged changes with this message (implies --git-add)")
	cmd.Flags().BoolVar(&f.push, "push", false, "push after committing (requires --commit)")
}

// options converts flags into applier options.
func (f *applyFlags) options() (applier.Options, error) {
	if f.push && f.commit == "" {
		return applier.Options{}, errors.NewValidationError("push", true, "--push requires --commit")
	}
	return applier.Options{
		DryRun:        !f.apply,
		Backup:        f.backup,
		ShowDiff:      f.diff,
		Sync:          !f.noSync,
		GitAdd:        f.gitAdd || f.commit != "",
		CommitMessage: f.commit,
		Push:          f.push,
		Projects:      f.projects,
		Types:         f.types,
	}, nil
}

// NewApplyCommand creates the apply command.
func (a *App) NewApplyCommand() *cobra.Command {
	flags := &applyFlags{}
	cmd := &cobra.Command{
		Use:     "apply",
		GroupID: "core",
		Short:   "Reconcile project configs against the templates",
		Long: `Apply renders every configured config type for every project and
reports what would change. Nothing is written unless --apply is given.`,
		Example: `  fleetsync apply                      # dry run over the whole fleet
  fleetsync apply -d -p api            # show diffs for one project
  fleetsync apply -a -t ruff -t mypy   # write two config types
  fleetsync apply -a --commit "chore: sync configs" --push`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runApply(cmd, flags)
		},
	}
	addApplyFlags(cmd, flags)
	return cmd
}

// runApply performs a run and prints its progress and summary.
func (a *App) runApply(cmd *cobra.Command, flags *applyFlags) error {
	opts, err := flags.options()
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(a.config.Format)
	if err != nil {
		return err
	}

	cfg, err := a.LoadFleet()
	if err != nil {
		return err
	}

	registry := a.Registry()
	for _, t := range opts.Types {
		if _, err := registry.Get(t); err != nil {
			return errors.WrapValidation("type", err)
		}
	}

	ctx := a.withLogger(cmd.Context())
	run := applier.New(cfg,
		applier.WithRegistry(registry),
		applier.WithRunner(a.runner),
	)

	var summary *applier.Summary
	switch format {
	case output.FormatJSON, output.FormatYAML:
		summary = run.Run(ctx, opts)
		if err := output.NewFormatter(format).Format(a.stdout, summary); err != nil {
			return err
		}
	default:
		console := output.NewConsole(a.stdout, opts.DryRun)
		console.Attach(run)
		console.Mode()
		summary = run.Run(ctx, opts)
		if err := console.Summary(summary); err != nil {
			return err
		}
	}

	if summary.HasErrors() {
		return fmt.Errorf("%w: %d error(s)", ErrRunFailed, summary.Errors)
	}
	return nil
}
