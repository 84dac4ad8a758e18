package applier

import (
	"sync"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/handlers"
)

// Hook function types for run events.
type (
	// ProjectHook is called before a project's config types are processed.
	ProjectHook func(p *config.Project, dir string)

	// ResultHook is called after each handler outcome is recorded.
	ResultHook func(project, configType string, res handlers.Result)

	// DiffHook is called with a pending diff; diff is "" when up to date.
	DiffHook func(project, configType, diff string)

	// PostStepHook is called after each post-processing command.
	PostStepHook func(step PostStep)
)

// hooks manages event callbacks for a run.
type hooks struct {
	mu         sync.RWMutex
	onProject  []ProjectHook
	onResult   []ResultHook
	onDiff     []DiffHook
	onPostStep []PostStepHook
}

// OnProject registers a callback for when a project starts.
func (h *hooks) OnProject(fn ProjectHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onProject = append(h.onProject, fn)
}

// OnResult registers a callback for handler outcomes.
func (h *hooks) OnResult(fn ResultHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onResult = append(h.onResult, fn)
}

// OnDiff registers a callback for diffs shown in diff mode.
func (h *hooks) OnDiff(fn DiffHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDiff = append(h.onDiff, fn)
}

// OnPostStep registers a callback for post-processing outcomes.
func (h *hooks) OnPostStep(fn PostStepHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPostStep = append(h.onPostStep, fn)
}

func (h *hooks) project(p *config.Project, dir string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onProject {
		fn(p, dir)
	}
}

func (h *hooks) result(project, configType string, res handlers.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onResult {
		fn(project, configType, res)
	}
}

func (h *hooks) diff(project, configType, diff string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onDiff {
		fn(project, configType, diff)
	}
}

func (h *hooks) postStep(step PostStep) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onPostStep {
		fn(step)
	}
}
