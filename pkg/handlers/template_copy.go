package handlers

import (
	"context"
	"path/filepath"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/errors"
	"github.com/agentstation/fleetsync/pkg/logging"
	"github.com/agentstation/fleetsync/pkg/render"
	"github.com/agentstation/fleetsync/pkg/validate"
)

// CopyHandler renders a template and writes it verbatim to a fixed file in
// the project, optionally followed by project trailer lines.
type CopyHandler struct {
	name     string
	subdir   string
	file     string
	output   string
	format   validate.Format
	template func(p *config.Project) string   // template file name, defaults to file
	trailer  func(p *config.Project) []string // extra lines appended after rendering
}

func copyHandlers() []*CopyHandler {
	return []*CopyHandler{
		{name: "pre-commit", subdir: "pre-commit", file: ".pre-commit-config.yaml", output: ".pre-commit-config.yaml", format: validate.YAML},
		{name: "ruff", subdir: "ruff", file: ".ruff.toml", output: ".ruff.toml", format: validate.TOML},
		{name: "yamllint", subdir: "yamllint", file: ".yamllint.yaml", output: ".yamllint.yaml", format: validate.YAML},
		{name: "prettier", subdir: "prettier", file: ".prettierrc", output: ".prettierrc", format: validate.JSON},
		{name: "python-version", subdir: "python-version", file: ".python-version", output: ".python-version", format: validate.Text},
		{
			name: "dockerignore", subdir: "dockerignore", file: ".dockerignore", output: ".dockerignore", format: validate.Text,
			trailer: func(p *config.Project) []string { return p.Dockerignore.ExtraLines },
		},
		{
			name: "gitignore", subdir: "gitignore", file: ".gitignore", output: ".gitignore", format: validate.Text,
			trailer: func(p *config.Project) []string { return p.Gitignore.ExtraLines },
		},
		{name: "renovate", subdir: "renovate", file: "renovate.json", output: "renovate.json", format: validate.JSON},
		{
			name: "license", subdir: "license", output: "LICENSE", format: validate.Text,
			template: func(p *config.Project) string { return p.License.Type },
		},
	}
}

// Name implements Handler.
func (h *CopyHandler) Name() string { return h.name }

// OutputPath implements Handler.
func (h *CopyHandler) OutputPath(p *config.Project) string {
	return filepath.Join(p.ExpandedPath(), h.output)
}

// TemplatePath returns the template backing this config type for p.
func (h *CopyHandler) TemplatePath(p *config.Project, ac *ApplyContext) string {
	file := h.file
	if h.template != nil {
		file = h.template(p)
	}
	return render.TemplatePath(p, h.name, ac.TemplateDir, h.subdir, file)
}

// Render produces the desired file content.
func (h *CopyHandler) Render(p *config.Project, ac *ApplyContext) (string, error) {
	body, err := render.Render(h.TemplatePath(p, ac), render.NewData(ac.Config, p))
	if err != nil {
		return "", err
	}
	if h.trailer != nil {
		body = render.AppendLines(body, h.trailer(p))
	}
	return body, nil
}

// Diff implements Handler.
func (h *CopyHandler) Diff(_ context.Context, p *config.Project, ac *ApplyContext) string {
	tmpl := h.TemplatePath(p, ac)
	if !render.Exists(tmpl) {
		return errors.NewTemplateNotFoundError(tmpl).Error()
	}
	desired, err := h.Render(p, ac)
	if err != nil {
		return err.Error()
	}
	current, exists, err := readExisting(h.OutputPath(p))
	if err != nil {
		return err.Error()
	}
	if !exists {
		return "new file: " + h.output
	}
	return unifiedDiff(current, desired, h.output)
}

// Apply implements Handler.
func (h *CopyHandler) Apply(ctx context.Context, p *config.Project, ac *ApplyContext) Result {
	desired, err := h.Render(p, ac)
	if err != nil {
		return errorResult("%v", err)
	}
	if v := validate.Validate(h.format, desired); !v.Valid {
		return errorResult("validation failed: %s", v.Message)
	}

	path := h.OutputPath(p)
	current, exists, err := readExisting(path)
	if err != nil {
		return errorResult("%v", err)
	}
	res := reconcile(ac, path, current, exists, desired, "")
	if res.Changed() && !ac.DryRun {
		logging.FromContext(ctx).Debug().Str("path", path).Str("status", string(res.Status)).Msg("wrote config")
	}
	return res
}
