package app

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/fleetsync/internal/cmd/output"
	"github.com/agentstation/fleetsync/internal/cmd/table"
	"github.com/agentstation/fleetsync/pkg/config"
)

// projectView is the machine-readable form of a listed project.
type projectView struct {
	Name    string   `json:"name" yaml:"name"`
	Path    string   `json:"path" yaml:"path"`
	Configs []string `json:"configs" yaml:"configs"`
}

// configTypeView is the machine-readable form of a listed config type.
type configTypeView struct {
	Name   string `json:"name" yaml:"name"`
	Output string `json:"output" yaml:"output"`
}

// NewListCommand creates the list command with its subcommands.
func (a *App) NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "management",
		Short:   "List projects or config types",
		Args:    cobra.NoArgs,
	}
	cmd.AddCommand(a.newListProjectsCommand())
	cmd.AddCommand(a.newListConfigsCommand())
	return cmd
}

func (a *App) newListProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List configured projects and their config types",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := a.LoadFleet()
			if err != nil {
				return err
			}
			views := make([]projectView, 0, len(cfg.Projects))
			for i := range cfg.Projects {
				p := &cfg.Projects[i]
				views = append(views, projectView{Name: p.Name, Path: p.Path, Configs: cfg.EffectiveConfigs(p)})
			}
			return output.Write(a.stdout, output.DetectFormat(a.config.Format), table.ProjectsToTableData(cfg), views)
		},
	}
}

func (a *App) newListConfigsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "configs",
		Aliases: []string{"config", "types"},
		Short:   "List supported config types and the files they write",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			registry := a.Registry()
			names := registry.Names()
			outputs := make(map[string]string, len(names))
			views := make([]configTypeView, 0, len(names))

			root := string(filepath.Separator)
			probe := &config.Project{Path: root}
			for _, n := range names {
				h, _ := registry.Lookup(n)
				out := filepath.ToSlash(strings.TrimPrefix(h.OutputPath(probe), root))
				outputs[n] = out
				views = append(views, configTypeView{Name: n, Output: out})
			}
			return output.Write(a.stdout, output.DetectFormat(a.config.Format), table.ConfigTypesToTableData(names, outputs), views)
		},
	}
}
