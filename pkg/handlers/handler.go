// Package handlers implements one reconciliation handler per config type.
// Each handler computes the desired document for a project, compares it with
// the file on disk and creates, updates or leaves it, reporting a Result.
// No error escapes a handler: every failure becomes an error Result.
package handlers

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/logging"
)

// Status is the outcome of applying one config type to one project.
type Status string

// Result states.
const (
	StatusCreated   Status = "created"
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusError     Status = "error"
)

// Result is what a handler reports to the orchestrator.
type Result struct {
	Status  Status
	Message string
}

// Changed reports whether the result writes (or would write) a file.
func (r Result) Changed() bool {
	return r.Status == StatusCreated || r.Status == StatusUpdated
}

func errorResult(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// ApplyContext is the read-only bundle shared by every handler call of a run.
type ApplyContext struct {
	Config      *config.Config
	TemplateDir string
	DryRun      bool
	Backup      bool
}

// NewApplyContext builds the context for a run over cfg.
func NewApplyContext(cfg *config.Config, dryRun, backup bool) *ApplyContext {
	return &ApplyContext{
		Config:      cfg,
		TemplateDir: cfg.ExpandedTemplateDir(),
		DryRun:      dryRun,
		Backup:      backup,
	}
}

// Handler reconciles one config type.
type Handler interface {
	// Name is the config type key.
	Name() string
	// OutputPath is the file the handler manages inside the project.
	OutputPath(p *config.Project) string
	// Diff describes the pending change, or returns "" when there is none.
	Diff(ctx context.Context, p *config.Project, ac *ApplyContext) string
	// Apply reconciles the file, honoring dry-run and backup.
	Apply(ctx context.Context, p *config.Project, ac *ApplyContext) Result
}

// SafeApply calls h.Apply and converts a panic into an error Result.
func SafeApply(ctx context.Context, h Handler, p *config.Project, ac *ApplyContext) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error().
				Str("config_type", h.Name()).
				Str("stack", string(debug.Stack())).
				Msgf("handler panic: %v", r)
			res = errorResult("internal error: %v", r)
		}
	}()
	return h.Apply(ctx, p, ac)
}

// SafeDiff calls h.Diff and converts a panic into a message.
func SafeDiff(ctx context.Context, h Handler, p *config.Project, ac *ApplyContext) (diff string) {
	defer func() {
		if r := recover(); r != nil {
			diff = fmt.Sprintf("internal error: %v", r)
		}
	}()
	return h.Diff(ctx, p, ac)
}
