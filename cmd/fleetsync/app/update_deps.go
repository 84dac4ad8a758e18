package app

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/fleetsync/internal/cmd/emoji"
	"github.com/agentstation/fleetsync/internal/cmd/output"
	"github.com/agentstation/fleetsync/internal/cmd/table"
	"github.com/agentstation/fleetsync/pkg/constants"
	"github.com/agentstation/fleetsync/pkg/depupdate"
)

type updateDepsFlags struct {
	apply      bool
	projects   bool
	configDeps bool
	only       []string
	diff       bool
}

// NewUpdateDepsCommand creates the update-deps command.
func (a *App) NewUpdateDepsCommand() *cobra.Command {
	flags := &updateDepsFlags{}
	cmd := &cobra.Command{
		Use:     "update-deps",
		GroupID: "core",
		Short:   "Raise dependency floors to the latest PyPI releases",
		Long: `Update-deps checks every "name>=version" entry in the pyproject
template's dependency-groups.dev against PyPI and raises the floor to the
latest release. With --projects each project's project.dependencies are
checked as well, and with --config-deps the extra_dev_deps lists of the
fleet configuration file.

Nothing is written unless --apply is given.`,
		Example: `  fleetsync update-deps
  fleetsync update-deps --projects -p api -a
  fleetsync update-deps --config-deps -d`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runUpdateDeps(cmd, flags)
		},
	}
	cmd.Flags().BoolVarP(&flags.apply, "apply", "a", false, "write changes (default is a dry run)")
	cmd.Flags().BoolVar(&flags.projects, "projects", false, "also update project.dependencies of each project")
	cmd.Flags().BoolVar(&flags.configDeps, "config-deps", false, "also update extra_dev_deps in the fleet configuration")
	cmd.Flags().StringArrayVarP(&flags.only, "project", "p", nil, "limit --projects and --config-deps to this project (repeatable)")
	cmd.Flags().BoolVarP(&flags.diff, "diff", "d", false, "show a diff for each changed file")
	return cmd
}

func (a *App) runUpdateDeps(cmd *cobra.Command, flags *updateDepsFlags) error {
	format, err := output.ParseFormat(a.config.Format)
	if err != nil {
		return err
	}
	cfg, err := a.LoadFleet()
	if err != nil {
		return err
	}

	ctx := a.withLogger(cmd.Context())
	updater := a.Updater()
	dryRun := !flags.apply

	var results []*depupdate.FileResult
	template := filepath.Join(cfg.ExpandedTemplateDir(), "pyproject", constants.PyprojectTemplate)
	res, err := updater.UpdateTemplate(ctx, template, dryRun)
	if err != nil {
		return err
	}
	results = append(results, res)

	if flags.projects {
		for i := range cfg.Projects {
			p := &cfg.Projects[i]
			if len(flags.only) > 0 && !slices.Contains(flags.only, p.Name) {
				continue
			}
			res, err := updater.UpdateProject(ctx, p, dryRun)
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name, err)
			}
			if res != nil {
				results = append(results, res)
			}
		}
	}

	if flags.configDeps {
		res, err := updater.UpdateConfig(ctx, a.config.ConfigFile, flags.only, dryRun)
		if err != nil {
			return err
		}
		if len(res.Updates) > 0 {
			results = append(results, res)
		}
	}

	if format == output.FormatJSON || format == output.FormatYAML {
		return output.NewFormatter(format).Format(a.stdout, results)
	}
	return a.printUpdates(results, dryRun, flags.diff)
}

func (a *App) printUpdates(results []*depupdate.FileResult, dryRun, showDiff bool) error {
	tf := &output.TableFormatter{}
	total := 0
	for _, r := range results {
		fmt.Fprintf(a.stdout, "%s [%s]\n", r.Path, r.Section)
		if err := tf.Format(a.stdout, table.UpdatesToTableData(r.Updates)); err != nil {
			return err
		}
		if showDiff {
			if diff := r.Diff(); diff != "" {
				for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
					fmt.Fprintf(a.stdout, "  %s\n", line)
				}
			}
		}
		fmt.Fprintln(a.stdout)
		total += r.UpdatedCount()
	}

	switch {
	case total == 0:
		fmt.Fprintf(a.stdout, "%s all dependencies are up to date\n", emoji.Success)
	case dryRun:
		fmt.Fprintf(a.stdout, "%s %d update(s) available, run with --apply to write them\n", emoji.Info, total)
	default:
		fmt.Fprintf(a.stdout, "%s %d update(s) written\n", emoji.Success, total)
	}
	return nil
}
