package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/fleetsync/internal/cmd/emoji"
	"github.com/agentstation/fleetsync/internal/cmd/table"
	"github.com/agentstation/fleetsync/pkg/applier"
	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/handlers"
)

// Console prints run progress and the final summary for humans.
type Console struct {
	w      io.Writer
	dryRun bool
}

// NewConsole creates a console writing to w.
func NewConsole(w io.Writer, dryRun bool) *Console {
	return &Console{w: w, dryRun: dryRun}
}

// Attach subscribes the console to a run's events.
func (c *Console) Attach(a *applier.Applier) {
	a.OnProject(c.Project)
	a.OnResult(c.Result)
	a.OnDiff(c.Diff)
	a.OnPostStep(c.PostStep)
}

// Mode prints the run mode banner.
func (c *Console) Mode() {
	if c.dryRun {
		fmt.Fprintf(c.w, "%s dry run (use --apply to write changes)\n\n", emoji.Info)
		return
	}
	fmt.Fprintf(c.w, "%s applying configs\n\n", emoji.Info)
}

// Project prints the project header.
func (c *Console) Project(p *config.Project, dir string) {
	fmt.Fprintf(c.w, "%s (%s)\n", p.Name, dir)
}

func (c *Console) statusText(s handlers.Status) string {
	switch s {
	case handlers.StatusCreated:
		if c.dryRun {
			return "would create"
		}
		return "created"
	case handlers.StatusUpdated:
		if c.dryRun {
			return "would update"
		}
		return "updated"
	}
	return string(s)
}

// Result prints one handler outcome.
func (c *Console) Result(_, configType string, res handlers.Result) {
	line := fmt.Sprintf("  %s %-15s : %s", emoji.ForStatus(string(res.Status)), configType, c.statusText(res.Status))
	if res.Message != "" {
		line += " (" + res.Message + ")"
	}
	fmt.Fprintln(c.w, line)
}

// Diff prints a pending diff indented under its config type.
func (c *Console) Diff(_, configType, diff string) {
	if diff == "" {
		fmt.Fprintf(c.w, "  %s %-15s : up to date\n", emoji.Success, configType)
		return
	}
	fmt.Fprintf(c.w, "  %s %s\n", emoji.Updated, configType)
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		fmt.Fprintf(c.w, "      %s\n", line)
	}
}

// PostStep prints a post-processing outcome.
func (c *Console) PostStep(ps applier.PostStep) {
	if ps.OK {
		msg := ps.Step + " done"
		if ps.Message != "" {
			msg = ps.Step + ": " + ps.Message
		}
		fmt.Fprintf(c.w, "  %s %s\n", emoji.Success, msg)
		return
	}
	fmt.Fprintf(c.w, "  %s %s failed\n", emoji.Error, ps.Step)
	for _, line := range strings.Split(ps.Message, "\n") {
		if line != "" {
			fmt.Fprintf(c.w, "      %s\n", line)
		}
	}
}

// Summary prints the counts, the change list and the closing status line.
func (c *Console) Summary(s *applier.Summary) error {
	tf := &TableFormatter{}
	fmt.Fprintln(c.w)
	for _, w := range s.Warnings {
		fmt.Fprintf(c.w, "%s %s\n", emoji.Warning, w)
	}
	if err := tf.Format(c.w, table.SummaryToTableData(s)); err != nil {
		return err
	}
	if len(s.Changes) > 0 {
		fmt.Fprintln(c.w, "\nChanges:")
		if err := tf.Format(c.w, table.ChangesToTableData(s.Changes)); err != nil {
			return err
		}
	}
	if len(s.PostSteps) > 0 {
		fmt.Fprintln(c.w, "\nPost-processing:")
		if err := tf.Format(c.w, table.PostStepsToTableData(s.PostSteps)); err != nil {
			return err
		}
	}
	if errs := uncounted(s); len(errs) > 0 {
		fmt.Fprintln(c.w, "\nErrors:")
		for _, msg := range errs {
			fmt.Fprintf(c.w, "  %s %s\n", emoji.Error, msg)
		}
	}

	fmt.Fprintln(c.w)
	switch {
	case s.DryRun && s.HasChanges():
		fmt.Fprintf(c.w, "%s run with --apply to write these changes\n", emoji.Info)
	case s.HasErrors():
		fmt.Fprintf(c.w, "%s finished with %d error(s)\n", emoji.Error, s.Errors)
	default:
		fmt.Fprintf(c.w, "%s done\n", emoji.Success)
	}
	return nil
}

// uncounted returns error messages that the change table does not show,
// such as missing project directories.
func uncounted(s *applier.Summary) []string {
	var out []string
	for _, msg := range s.ErrorMessages {
		shown := false
		for _, c := range s.Changes {
			if c.Status == handlers.StatusError && msg == c.Project+"/"+c.ConfigType+": "+c.Message {
				shown = true
				break
			}
		}
		if !shown {
			out = append(out, msg)
		}
	}
	return out
}
