package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/fleetsync/internal/cmd/emoji"
	"github.com/agentstation/fleetsync/internal/cmd/output"
	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/errors"
	"github.com/agentstation/fleetsync/pkg/handlers"
)

// ValidationReport is the result of checking a fleet configuration.
type ValidationReport struct {
	File     string   `json:"file" yaml:"file"`
	Projects int      `json:"projects" yaml:"projects"`
	Valid    bool     `json:"valid" yaml:"valid"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func (a *App) NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		GroupID: "management",
		Short:   "Check the fleet configuration file",
		Long: `Validate loads the fleet configuration and checks that every
configured config type exists. Missing template or project directories are
reported as warnings.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(a.config.Format)
			if err != nil {
				return err
			}
			cfg, err := a.LoadFleet()
			if err != nil {
				return err
			}

			report := checkFleet(cfg, a.Registry())
			report.File = a.config.ConfigFile

			if format == output.FormatJSON || format == output.FormatYAML {
				if err := output.NewFormatter(format).Format(a.stdout, report); err != nil {
					return err
				}
			} else {
				printReport(a, report)
			}

			if !report.Valid {
				return errors.NewConfigError("validate", fmt.Sprintf("%d problem(s) in %s", len(report.Errors), report.File), nil)
			}
			return nil
		},
	}
}

// checkFleet reports unknown config types as errors and missing
// directories as warnings.
func checkFleet(cfg *config.Config, registry *handlers.Registry) *ValidationReport {
	report := &ValidationReport{Projects: len(cfg.Projects)}

	if _, err := os.Stat(cfg.ExpandedTemplateDir()); err != nil {
		report.Warnings = append(report.Warnings, "template directory not found: "+cfg.ExpandedTemplateDir())
	}
	for i := range cfg.Projects {
		p := &cfg.Projects[i]
		for _, t := range cfg.EffectiveConfigs(p) {
			if _, err := registry.Get(t); errors.IsUnknownConfigType(err) {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", p.Name, err))
			}
		}
		if info, err := os.Stat(p.ExpandedPath()); err != nil || !info.IsDir() {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: directory not found: %s", p.Name, p.ExpandedPath()))
		}
	}
	report.Valid = len(report.Errors) == 0
	return report
}

func printReport(a *App, r *ValidationReport) {
	for _, w := range r.Warnings {
		fmt.Fprintf(a.stdout, "%s %s\n", emoji.Warning, w)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(a.stdout, "%s %s\n", emoji.Error, e)
	}
	if r.Valid {
		fmt.Fprintf(a.stdout, "%s %s is valid (%d projects)\n", emoji.Success, r.File, r.Projects)
	}
}
