package handlers

import (
	"context"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/constants"
	"github.com/agentstation/fleetsync/pkg/errors"
	"github.com/agentstation/fleetsync/pkg/render"
	"github.com/agentstation/fleetsync/pkg/tomldoc"
	"github.com/agentstation/fleetsync/pkg/validate"
)

// Identity fields of [project] always keep the project's own values.
var identityFields = []string{"name", "version", "description", "dependencies"}

// Keys under a tool table that the merge never overwrites.
var toolPreserveKeys = map[string][]string{
	"hatch": {"build"},
	"mypy":  {"packages", "overrides"},
}

// Top-level sections merged key by key.
var mergedSections = []string{"project", "dependency-groups", "build-system"}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// PyprojectHandler overwrites the shared sections of pyproject.toml from a
// template while keeping project identity and preserved sections intact.
type PyprojectHandler struct{}

// Name implements Handler.
func (h *PyprojectHandler) Name() string { return "pyproject" }

// OutputPath implements Handler.
func (h *PyprojectHandler) OutputPath(p *config.Project) string {
	return filepath.Join(p.ExpandedPath(), constants.PyprojectFile)
}

// TemplatePath returns the sections template.
func (h *PyprojectHandler) TemplatePath(p *config.Project, ac *ApplyContext) string {
	return render.TemplatePath(p, h.Name(), ac.TemplateDir, "pyproject", constants.PyprojectTemplate)
}

// merged returns the current manifest and the normalized merge result.
// skip is set when there is no manifest to merge into.
func (h *PyprojectHandler) merged(p *config.Project, ac *ApplyContext) (current, desired string, skip bool, err error) {
	tmplPath := h.TemplatePath(p, ac)
	if !render.Exists(tmplPath) {
		return "", "", false, errors.NewTemplateNotFoundError(tmplPath)
	}
	path := h.OutputPath(p)
	current, exists, err := readExisting(path)
	if err != nil {
		return "", "", false, err
	}
	if !exists {
		return "", "", true, nil
	}

	tmplSrc, err := render.Render(tmplPath, render.NewData(ac.Config, p))
	if err != nil {
		return "", "", false, err
	}
	tmpl, err := tomldoc.Parse(tmplSrc)
	if err != nil {
		return "", "", false, errors.WrapParse("toml", tmplPath, err)
	}
	doc, err := tomldoc.Parse(current)
	if err != nil {
		return "", "", false, errors.WrapParse("toml", path, err)
	}

	result, err := MergePyproject(doc, tmpl, ac.Config.PreserveSections(p), p.Pyproject.ExtraDevDeps)
	if err != nil {
		return "", "", false, err
	}
	return current, NormalizeTOML(result.String()), false, nil
}

// Diff implements Handler.
func (h *PyprojectHandler) Diff(_ context.Context, p *config.Project, ac *ApplyContext) string {
	current, desired, skip, err := h.merged(p, ac)
	switch {
	case err != nil:
		return err.Error()
	case skip:
		return constants.PyprojectFile + " not found: " + h.OutputPath(p)
	}
	return unifiedDiff(current, desired, constants.PyprojectFile)
}

// Apply implements Handler.
func (h *PyprojectHandler) Apply(_ context.Context, p *config.Project, ac *ApplyContext) Result {
	current, desired, skip, err := h.merged(p, ac)
	switch {
	case err != nil:
		return errorResult("%v", err)
	case skip:
		return Result{Status: StatusSkipped, Message: constants.PyprojectFile + " not found"}
	}
	if v := validate.Validate(validate.TOML, desired); !v.Valid {
		return errorResult("validation failed: %s", v.Message)
	}
	return reconcile(ac, h.OutputPath(p), current, true, desired, "")
}

// MergePyproject returns a copy of current whose shared sections are taken
// from template. Identity fields, per-tool preserved keys and every path equal
// to or under an entry of preserve keep their current content. Extra dev
// dependencies are appended to dependency-groups.dev when that list exists
// and does not already hold the exact string.
func MergePyproject(current, template *tomldoc.Document, preserve, extraDevDeps []string) (*tomldoc.Document, error) {
	m := &merger{result: current.Clone(), template: template}
	for _, ps := range preserve {
		m.preserve = append(m.preserve, strings.Split(ps, "."))
	}

	for _, section := range mergedSections {
		var keep []string
		if section == "project" {
			keep = identityFields
		}
		m.section([]string{section}, keep)
	}

	for _, tool := range template.Keys("tool") {
		path := []string{"tool", tool}
		if m.preserved(path) {
			continue
		}
		m.result.ExpandInline(path...)
		if !m.result.Has(path...) {
			m.result.Replace(path, template)
			continue
		}
		m.section(path, toolPreserveKeys[tool])
	}

	if len(extraDevDeps) > 0 {
		devPath := []string{"dependency-groups", "dev"}
		existing, found, err := m.result.StringArray(devPath...)
		if err != nil {
			return nil, err
		}
		if found {
			for _, dep := range extraDevDeps {
				if slices.Contains(existing, dep) {
					continue
				}
				if err := m.result.AppendString(devPath, dep); err != nil {
					return nil, err
				}
				existing = append(existing, dep)
			}
		}
	}
	return m.result, nil
}

type merger struct {
	result   *tomldoc.Document
	template *tomldoc.Document
	preserve [][]string
}

// section merges one table key by key, skipping keep.
func (m *merger) section(path []string, keep []string) {
	if !m.template.Has(path...) {
		return
	}
	m.result.ExpandInline(path...)
	if !m.result.Has(path...) {
		if !m.preserved(path) {
			m.result.Replace(path, m.template)
		}
		return
	}
	for _, key := range m.template.Keys(path...) {
		if slices.Contains(keep, key) {
			continue
		}
		m.key(append(slices.Clone(path), key))
	}
}

// key overwrites one value or table, descending when a preserved path lies
// inside it.
func (m *merger) key(path []string) {
	if m.preserved(path) {
		return
	}
	m.result.ExpandInline(path...)
	if m.containsPreserved(path) && m.template.IsTable(path...) && m.result.IsTable(path...) {
		for _, key := range m.template.Keys(path...) {
			m.key(append(slices.Clone(path), key))
		}
		return
	}
	m.result.Replace(path, m.template)
}

// preserved reports whether path equals or lies under a preserved path.
func (m *merger) preserved(path []string) bool {
	for _, ps := range m.preserve {
		if len(path) >= len(ps) && slices.Equal(path[:len(ps)], ps) {
			return true
		}
	}
	return false
}

// containsPreserved reports whether a preserved path lies strictly under path.
func (m *merger) containsPreserved(path []string) bool {
	for _, ps := range m.preserve {
		if len(ps) > len(path) && slices.Equal(ps[:len(path)], path) {
			return true
		}
	}
	return false
}

// NormalizeTOML collapses runs of blank lines to one and ends the document
// with exactly one newline.
func NormalizeTOML(s string) string {
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimRight(s, " \t\r\n") + "\n"
}
