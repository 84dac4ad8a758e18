package handlers

import (
	"context"
	"path/filepath"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/constants"
	"github.com/agentstation/fleetsync/pkg/logging"
	"github.com/agentstation/fleetsync/pkg/render"
	"github.com/agentstation/fleetsync/pkg/validate"
	"github.com/agentstation/fleetsync/pkg/yamlpath"
)

// GitlabCIHandler rewrites individual scalar values of an existing
// .gitlab-ci.yml, one source line per edit.
type GitlabCIHandler struct{}

// Name implements Handler.
func (h *GitlabCIHandler) Name() string { return "gitlab-ci" }

// OutputPath implements Handler.
func (h *GitlabCIHandler) OutputPath(p *config.Project) string {
	return filepath.Join(p.ExpandedPath(), constants.GitlabCIFile)
}

// Edits returns the merged edit list with template values rendered.
func (h *GitlabCIHandler) Edits(p *config.Project, ac *ApplyContext) ([]config.GitlabCIEdit, error) {
	edits := ac.Config.GitlabCIEdits(p)
	data := render.NewData(ac.Config, p)
	for i := range edits {
		v, err := render.RenderString(edits[i].Value, data)
		if err != nil {
			return nil, err
		}
		edits[i].Value = v
	}
	return edits, nil
}

// ApplyEdits applies edits to src. Paths that do not resolve are logged and
// skipped; every other line stays byte-identical.
func ApplyEdits(ctx context.Context, src string, edits []config.GitlabCIEdit) (string, error) {
	doc, err := yamlpath.Parse(src)
	if err != nil {
		return "", err
	}
	log := logging.FromContext(ctx)
	out := src
	for _, e := range edits {
		line, ok := doc.Line(e.Path)
		if !ok {
			log.Warn().Str("path", e.Path).Msg("path not found in " + constants.GitlabCIFile)
			continue
		}
		edited, ok := yamlpath.SetLine(out, line, e.Value)
		if !ok {
			log.Warn().Str("path", e.Path).Int("line", line).Msg("line has no key to edit")
			continue
		}
		out = edited
	}
	return out, nil
}

// edited returns the current file and its edited version. A non-empty skip
// message means there is nothing to do.
func (h *GitlabCIHandler) edited(ctx context.Context, p *config.Project, ac *ApplyContext) (current, desired, skip string, err error) {
	current, exists, err := readExisting(h.OutputPath(p))
	if err != nil {
		return "", "", "", err
	}
	if !exists {
		return "", "", constants.GitlabCIFile + " not found", nil
	}
	edits, err := h.Edits(p, ac)
	if err != nil {
		return "", "", "", err
	}
	if len(edits) == 0 {
		return "", "", "no edits configured", nil
	}
	desired, err = ApplyEdits(ctx, current, edits)
	return current, desired, "", err
}

// Diff implements Handler.
func (h *GitlabCIHandler) Diff(ctx context.Context, p *config.Project, ac *ApplyContext) string {
	current, desired, skip, err := h.edited(ctx, p, ac)
	switch {
	case err != nil:
		return err.Error()
	case skip != "":
		return ""
	}
	return unifiedDiff(current, desired, constants.GitlabCIFile)
}

// Apply implements Handler. The file is never created.
func (h *GitlabCIHandler) Apply(ctx context.Context, p *config.Project, ac *ApplyContext) Result {
	current, desired, skip, err := h.edited(ctx, p, ac)
	switch {
	case err != nil:
		return errorResult("%v", err)
	case skip != "":
		return Result{Status: StatusSkipped, Message: skip}
	}
	if v := validate.Validate(validate.YAML, desired); !v.Valid {
		return errorResult("validation failed: %s", v.Message)
	}
	return reconcile(ac, h.OutputPath(p), current, true, desired, "")
}
