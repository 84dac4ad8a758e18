package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/agentstation/fleetsync/internal/process"
	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/constants"
)

// MyPyLibRepo is the upstream of the pinned internal library.
const MyPyLibRepo = "https://github.com/kimata/my-py-lib"

var myPyLibPattern = regexp.MustCompile(`my-lib\s*@\s*git\+https://github\.com/kimata/my-py-lib(?:@([a-f0-9]+))?`)

// RevisionResolver finds the current upstream revision of a repository.
type RevisionResolver interface {
	LatestRevision(ctx context.Context) (string, error)
}

// GitRevisionResolver asks the remote with git ls-remote.
type GitRevisionResolver struct {
	Runner process.Runner
	Repo   string
}

// LatestRevision implements RevisionResolver.
func (g *GitRevisionResolver) LatestRevision(ctx context.Context) (string, error) {
	return process.LsRemoteHead(ctx, g.Runner, g.Repo)
}

// MyPyLibHandler keeps the my-lib git dependency in pyproject.toml pinned
// to the upstream HEAD revision.
type MyPyLibHandler struct {
	Resolver RevisionResolver
}

// Name implements Handler.
func (h *MyPyLibHandler) Name() string { return "my-py-lib" }

// OutputPath implements Handler.
func (h *MyPyLibHandler) OutputPath(p *config.Project) string {
	return filepath.Join(p.ExpandedPath(), constants.PyprojectFile)
}

type pinPlan struct {
	current, desired string
	old, latest      string
	skip             string
}

func shortRevision(rev string) string {
	if rev == "" {
		return "unpinned"
	}
	if len(rev) > constants.ShortRevisionLength {
		return rev[:constants.ShortRevisionLength]
	}
	return rev
}

func (h *MyPyLibHandler) plan(ctx context.Context, p *config.Project) (pinPlan, error) {
	current, exists, err := readExisting(h.OutputPath(p))
	if err != nil {
		return pinPlan{}, err
	}
	if !exists {
		return pinPlan{skip: constants.PyprojectFile + " not found"}, nil
	}
	m := myPyLibPattern.FindStringSubmatch(current)
	if m == nil {
		return pinPlan{skip: "my-py-lib dependency not found"}, nil
	}
	latest, err := h.Resolver.LatestRevision(ctx)
	if err != nil {
		return pinPlan{}, fmt.Errorf("failed to get latest revision: %w", err)
	}
	pinned := "my-lib @ git+" + MyPyLibRepo + "@" + latest
	return pinPlan{
		current: current,
		desired: myPyLibPattern.ReplaceAllLiteralString(current, pinned),
		old:     m[1],
		latest:  latest,
	}, nil
}

// Diff implements Handler.
func (h *MyPyLibHandler) Diff(ctx context.Context, p *config.Project, _ *ApplyContext) string {
	plan, err := h.plan(ctx, p)
	switch {
	case err != nil:
		return err.Error()
	case plan.skip != "":
		return plan.skip
	case plan.old == plan.latest:
		return ""
	}
	return unifiedDiff(plan.current, plan.desired, constants.PyprojectFile)
}

// Apply implements Handler.
func (h *MyPyLibHandler) Apply(ctx context.Context, p *config.Project, ac *ApplyContext) Result {
	plan, err := h.plan(ctx, p)
	switch {
	case err != nil:
		return errorResult("%v", err)
	case plan.skip != "":
		return Result{Status: StatusSkipped, Message: plan.skip}
	case plan.old == plan.latest:
		return Result{Status: StatusUnchanged}
	}
	msg := shortRevision(plan.old) + " -> " + shortRevision(plan.latest)
	return reconcile(ac, h.OutputPath(p), plan.current, true, plan.desired, msg)
}
