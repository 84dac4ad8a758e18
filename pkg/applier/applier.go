// Package applier runs the handlers over the selected projects and config
// types, aggregates a Summary and runs post-processing commands (uv sync,
// git add, commit, push) for projects that changed.
package applier

import (
	"context"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/agentstation/fleetsync/internal/process"
	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/handlers"
	"github.com/agentstation/fleetsync/pkg/logging"
)

// Post-processing step names.
const (
	StepSync   = "uv sync"
	StepAdd    = "git add"
	StepCommit = "git commit"
	StepPush   = "git push"
)

// Options select what a run does. The zero value applies nothing: use
// DryRun false to write.
type Options struct {
	DryRun        bool
	Backup        bool
	ShowDiff      bool
	Sync          bool
	GitAdd        bool
	CommitMessage string
	Push          bool
	// Projects limits the run to these names; empty means all.
	Projects []string
	// Types limits the run to these config types; empty means all.
	Types []string
}

// Applier orchestrates a run over a fleet configuration.
type Applier struct {
	*hooks
	cfg      *config.Config
	registry *handlers.Registry
	runner   process.Runner
}

// Option configures an Applier.
type Option func(*Applier)

// WithRegistry sets the handler registry.
func WithRegistry(r *handlers.Registry) Option {
	return func(a *Applier) {
		a.registry = r
	}
}

// WithRunner sets the runner used for post-processing commands.
func WithRunner(r process.Runner) Option {
	return func(a *Applier) {
		a.runner = r
	}
}

// New creates an Applier for cfg.
func New(cfg *config.Config, opts ...Option) *Applier {
	a := &Applier{hooks: &hooks{}, cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.runner == nil {
		a.runner = process.ExecRunner{}
	}
	if a.registry == nil {
		a.registry = handlers.NewRegistry(handlers.WithRevisionResolver(&handlers.GitRevisionResolver{
			Runner: a.runner,
			Repo:   handlers.MyPyLibRepo,
		}))
	}
	return a
}

// Run processes the selected projects in configuration order.
func (a *Applier) Run(ctx context.Context, o Options) *Summary {
	summary := newSummary(o.DryRun)
	start := time.Now()
	log := logging.FromContext(ctx)

	summary.Warnings = a.checkProjects(ctx, o.Projects)

	ac := handlers.NewApplyContext(a.cfg, o.DryRun, o.Backup)
	log.Info().
		Bool("dry_run", o.DryRun).
		Str("template_dir", ac.TemplateDir).
		Msg("applying configs")

	for i := range a.cfg.Projects {
		p := &a.cfg.Projects[i]
		if len(o.Projects) > 0 && !slices.Contains(o.Projects, p.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			summary.projectError(p.Name, "cancelled: "+err.Error())
			break
		}
		a.runProject(logging.WithProject(ctx, p.Name), p, ac, o, summary)
	}

	summary.Elapsed = time.Since(start)
	log.Info().
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("unchanged", summary.Unchanged).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Dur("elapsed", summary.Elapsed).
		Msg("run complete")
	return summary
}

// checkProjects warns about requested names that are not configured.
func (a *Applier) checkProjects(ctx context.Context, requested []string) []string {
	available := a.cfg.ProjectNames()
	var warnings []string
	for _, name := range requested {
		if slices.Contains(available, name) {
			continue
		}
		msg := "project " + name + " is not configured"
		event := logging.FromContext(ctx).Warn().Str("project", name)
		if matches := closeMatches(name, available); len(matches) > 0 {
			msg += " (did you mean: " + strings.Join(matches, ", ") + "?)"
			event = event.Strs("suggestions", matches)
		}
		event.Msg("unknown project")
		warnings = append(warnings, msg)
	}
	return warnings
}

func (a *Applier) runProject(ctx context.Context, p *config.Project, ac *handlers.ApplyContext, o Options, summary *Summary) {
	log := logging.FromContext(ctx)
	dir := p.ExpandedPath()
	a.project(p, dir)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Error().Str("dir", dir).Msg("project directory not found")
		summary.projectError(p.Name, "directory not found")
		return
	}
	summary.ProjectsProcessed++

	var (
		needSync bool
		changed  []string
	)
	for _, configType := range a.cfg.EffectiveConfigs(p) {
		if len(o.Types) > 0 && !slices.Contains(o.Types, configType) {
			continue
		}
		tctx := logging.WithConfigType(ctx, configType)

		h, err := a.registry.Get(configType)
		if err != nil {
			res := handlers.Result{Status: handlers.StatusError, Message: err.Error()}
			summary.record(p.Name, configType, res)
			a.result(p.Name, configType, res)
			continue
		}

		if o.ShowDiff {
			a.diff(p.Name, configType, handlers.SafeDiff(tctx, h, p, ac))
			if o.DryRun {
				continue
			}
		}

		res := handlers.SafeApply(tctx, h, p, ac)
		summary.record(p.Name, configType, res)
		a.result(p.Name, configType, res)
		logging.FromContext(tctx).Debug().
			Str("status", string(res.Status)).
			Str("message", res.Message).
			Msg("config applied")

		if (configType == "pyproject" || configType == "my-py-lib") && res.Status == handlers.StatusUpdated {
			needSync = true
		}
		if out := h.OutputPath(p); res.Changed() && !o.DryRun && !slices.Contains(changed, out) {
			changed = append(changed, out)
		}
	}

	if o.DryRun {
		return
	}
	if needSync && o.Sync {
		a.runStep(ctx, summary, p.Name, StepSync, "", process.Sync(ctx, a.runner, dir))
	}
	if o.GitAdd && len(changed) > 0 {
		a.gitSteps(ctx, summary, p.Name, dir, changed, o)
	}
}

// gitSteps stages changed files and optionally commits and pushes them.
// Projects outside a git work tree are left alone.
func (a *Applier) gitSteps(ctx context.Context, summary *Summary, project, dir string, files []string, o Options) {
	if !process.IsGitRepo(ctx, a.runner, dir) {
		logging.FromContext(ctx).Debug().Str("dir", dir).Msg("not a git repository, skipping git add")
		return
	}
	rel, err := process.GitAdd(ctx, a.runner, dir, files)
	if !a.runStep(ctx, summary, project, StepAdd, strings.Join(rel, ", "), err) {
		return
	}
	if o.CommitMessage == "" {
		return
	}
	if !a.runStep(ctx, summary, project, StepCommit, o.CommitMessage, process.GitCommit(ctx, a.runner, dir, o.CommitMessage)) {
		return
	}
	if o.Push {
		a.runStep(ctx, summary, project, StepPush, "", process.GitPush(ctx, a.runner, dir))
	}
}

// runStep records a post-processing outcome and reports whether it passed.
func (a *Applier) runStep(ctx context.Context, summary *Summary, project, step, detail string, err error) bool {
	ps := PostStep{Project: project, Step: step, OK: err == nil, Message: detail}
	log := logging.FromContext(ctx)
	if err != nil {
		ps.Message = process.Describe(err)
		log.Warn().Str("step", step).Err(err).Msg("post-processing failed")
	} else {
		log.Debug().Str("step", step).Msg("post-processing done")
	}
	summary.postStep(ps)
	a.postStep(ps)
	return err == nil
}
