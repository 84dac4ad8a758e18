// Package depupdate raises ">=" version floors in dependency lists to the
// latest release on the package index. It edits the pyproject template's
// dependency-groups.dev, each project's project.dependencies and the
// extra_dev_deps lists of the fleet configuration file.
package depupdate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/constants"
	"github.com/agentstation/fleetsync/pkg/errors"
	"github.com/agentstation/fleetsync/pkg/logging"
	"github.com/agentstation/fleetsync/pkg/tomldoc"
	"github.com/agentstation/fleetsync/pkg/yamlpath"
)

var dependencyPattern = regexp.MustCompile(`^([a-zA-Z0-9_-]+)>=([0-9.]+)$`)

// Update is the outcome of checking one dependency.
type Update struct {
	Package string `json:"package" yaml:"package"`
	Current string `json:"current" yaml:"current"`
	Latest  string `json:"latest,omitempty" yaml:"latest,omitempty"`
	Updated bool   `json:"updated" yaml:"updated"`
	// Error is set when the index lookup failed; the entry is left as is.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FileResult describes the edits computed for one file.
type FileResult struct {
	Path     string   `json:"path" yaml:"path"`
	Section  string   `json:"section" yaml:"section"`
	Updates  []Update `json:"updates" yaml:"updates"`
	Written  bool     `json:"written" yaml:"written"`
	Original string   `json:"-" yaml:"-"`
	Content  string   `json:"-" yaml:"-"`
}

// UpdatedCount is the number of raised floors.
func (r *FileResult) UpdatedCount() int {
	n := 0
	for _, u := range r.Updates {
		if u.Updated {
			n++
		}
	}
	return n
}

// Diff returns a unified diff of the pending edit.
func (r *FileResult) Diff() string {
	if r.Original == r.Content {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(r.Original),
		B:        difflib.SplitLines(r.Content),
		FromFile: r.Path,
		ToFile:   r.Path + " (updated)",
		Context:  1,
	})
	if err != nil {
		return err.Error()
	}
	return text
}

// ParseDependency splits "name>=version". Other specifier forms are not
// recognized.
func ParseDependency(dep string) (pkg, version string, ok bool) {
	m := dependencyPattern.FindStringSubmatch(dep)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// NormalizeVersion keeps at most three dot-separated components.
func NormalizeVersion(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) >= 3 {
		return strings.Join(parts[:3], ".")
	}
	return version
}

// Updater checks dependency lists against a package index.
type Updater struct {
	Index PackageIndex
}

// New returns an Updater backed by index, or by PyPI when index is nil.
func New(index PackageIndex) *Updater {
	if index == nil {
		index = NewPyPI()
	}
	return &Updater{Index: index}
}

// Check returns deps with every recognized floor raised to the normalized
// latest version, plus one Update per recognized entry.
func (u *Updater) Check(ctx context.Context, deps []string) ([]string, []Update) {
	log := logging.FromContext(ctx)
	result := make([]string, 0, len(deps))
	var updates []Update
	for _, dep := range deps {
		pkg, current, ok := ParseDependency(dep)
		if !ok {
			result = append(result, dep)
			continue
		}
		latest, err := u.Index.LatestVersion(ctx, pkg)
		if err != nil {
			log.Warn().Err(err).Str("package", pkg).Msg("version lookup failed")
			updates = append(updates, Update{Package: pkg, Current: current, Error: err.Error()})
			result = append(result, dep)
			continue
		}
		latest = NormalizeVersion(latest)
		up := Update{Package: pkg, Current: current, Latest: latest, Updated: latest != current}
		updates = append(updates, up)
		if up.Updated {
			log.Debug().Str("package", pkg).Str("from", current).Str("to", latest).Msg("newer version")
			dep = pkg + ">=" + latest
		}
		result = append(result, dep)
	}
	return result, updates
}

// UpdateTemplate raises the floors in the template's dependency-groups.dev.
func (u *Updater) UpdateTemplate(ctx context.Context, path string, dryRun bool) (*FileResult, error) {
	return u.updateTOML(ctx, path, []string{"dependency-groups", "dev"}, dryRun, true)
}

// UpdateProject raises the floors in a project's project.dependencies. It
// returns nil when the manifest or the list is absent.
func (u *Updater) UpdateProject(ctx context.Context, p *config.Project, dryRun bool) (*FileResult, error) {
	path := filepath.Join(p.ExpandedPath(), constants.PyprojectFile)
	return u.updateTOML(ctx, path, []string{"project", "dependencies"}, dryRun, false)
}

func (u *Updater) updateTOML(ctx context.Context, path string, key []string, dryRun, required bool) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("file", path)
		}
		return nil, errors.WrapIO("read", path, err)
	}
	doc, err := tomldoc.Parse(string(data))
	if err != nil {
		return nil, errors.WrapParse("toml", path, err)
	}
	deps, found, err := doc.StringArray(key...)
	if err != nil {
		return nil, errors.WrapParse("toml", path, err)
	}
	section := tomldoc.FormatKey(key)
	if !found || len(deps) == 0 {
		if required {
			return nil, errors.NewNotFoundError("section", section)
		}
		return nil, nil
	}

	newDeps, updates := u.Check(ctx, deps)
	result := &FileResult{Path: path, Section: section, Updates: updates, Original: string(data), Content: string(data)}
	if result.UpdatedCount() == 0 {
		return result, nil
	}
	if err := doc.SetStringArray(key, newDeps); err != nil {
		return nil, err
	}
	result.Content = doc.String()
	return result, result.write(dryRun)
}

// UpdateConfig raises the floors in projects[*].pyproject.extra_dev_deps of
// the fleet file at path, editing only the affected lines. names limits the
// projects; empty means all.
func (u *Updater) UpdateConfig(ctx context.Context, path string, names []string, dryRun bool) (*FileResult, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	doc, err := yamlpath.Parse(string(data))
	if err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	result := &FileResult{
		Path:     path,
		Section:  "projects[*].pyproject.extra_dev_deps",
		Original: string(data),
		Content:  string(data),
	}
	for i, p := range cfg.Projects {
		if len(names) > 0 && !slices.Contains(names, p.Name) {
			continue
		}
		deps := p.Pyproject.ExtraDevDeps
		if len(deps) == 0 {
			continue
		}
		newDeps, updates := u.Check(ctx, deps)
		result.Updates = append(result.Updates, updates...)
		for j, dep := range newDeps {
			if dep == deps[j] {
				continue
			}
			itemPath := fmt.Sprintf("/projects/%d/pyproject/extra_dev_deps/%d", i, j)
			line, ok := doc.Line(itemPath)
			if !ok {
				return nil, errors.NewNotFoundError("path", itemPath)
			}
			edited, ok := yamlpath.SetItem(result.Content, line, quoteLike(result.Content, line, dep))
			if !ok {
				return nil, fmt.Errorf("%s: line %d is not a sequence item", path, line)
			}
			result.Content = edited
		}
	}
	if result.UpdatedCount() == 0 {
		return result, nil
	}
	return result, result.write(dryRun)
}

func (r *FileResult) write(dryRun bool) error {
	if dryRun || r.Content == r.Original {
		return nil
	}
	if err := os.WriteFile(r.Path, []byte(r.Content), constants.FilePermissions); err != nil {
		return errors.WrapIO("write", r.Path, err)
	}
	r.Written = true
	return nil
}

// quoteLike quotes value the way the item on line is quoted.
func quoteLike(src string, line int, value string) string {
	lines := strings.Split(src, "\n")
	if line < 1 || line > len(lines) {
		return value
	}
	item := strings.TrimLeft(strings.TrimSpace(lines[line-1]), "- \t")
	switch {
	case strings.HasPrefix(item, `"`):
		return `"` + value + `"`
	case strings.HasPrefix(item, `'`):
		return `'` + value + `'`
	}
	return value
}
