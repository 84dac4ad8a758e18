// Package config holds the typed fleet configuration: shared defaults, the
// ordered project list and the template root. A Config is loaded once per
// invocation and is read-only for the rest of the run.
package config

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"dario.cat/mergo"

	"github.com/agentstation/fleetsync/pkg/constants"
)

// Built-in paths that the pyproject merge never overwrites.
var builtinPreserveSections = []string{
	"tool.hatch.build.targets.wheel",
	"tool.mypy.packages",
	"tool.mypy.overrides",
}

// Config is the root of the fleet configuration file.
type Config struct {
	TemplateDir string    `yaml:"template_dir"`
	Defaults    Defaults  `yaml:"defaults"`
	Projects    []Project `yaml:"projects"`
}

// Defaults are shared by every project.
type Defaults struct {
	PythonVersion string            `yaml:"python_version"`
	Configs       []string          `yaml:"configs"`
	Vars          map[string]string `yaml:"vars"`
	GitlabCI      GitlabCIOptions   `yaml:"gitlab_ci"`
	Pyproject     PyprojectDefaults `yaml:"pyproject"`
}

// PyprojectDefaults are merge settings shared by every project.
type PyprojectDefaults struct {
	PreserveSections []string `yaml:"preserve_sections"`
}

// Project is one managed repository.
type Project struct {
	Name              string            `yaml:"name"`
	Path              string            `yaml:"path"`
	Configs           []string          `yaml:"configs"`
	ExcludeConfigs    []string          `yaml:"exclude_configs"`
	Vars              map[string]string `yaml:"vars"`
	TemplateOverrides map[string]string `yaml:"template_overrides"`

	Pyproject    PyprojectOptions  `yaml:"pyproject"`
	GitlabCI     GitlabCIOptions   `yaml:"gitlab_ci"`
	Gitignore    IgnoreFileOptions `yaml:"gitignore"`
	Dockerignore IgnoreFileOptions `yaml:"dockerignore"`
	License      LicenseOptions    `yaml:"license"`
}

// PyprojectOptions tune the pyproject merge for one project.
type PyprojectOptions struct {
	PreserveSections []string `yaml:"preserve_sections"`
	ExtraDevDeps     []string `yaml:"extra_dev_deps"`
}

// GitlabCIOptions is an ordered list of line edits.
type GitlabCIOptions struct {
	Edits []GitlabCIEdit `yaml:"edits"`
}

// GitlabCIEdit sets the scalar at a slash-delimited structural path.
type GitlabCIEdit struct {
	Path  string `yaml:"path"`
	Value string `yaml:"value"`
}

// IgnoreFileOptions lists trailer lines appended to a rendered ignore file.
type IgnoreFileOptions struct {
	ExtraLines []string `yaml:"extra_lines"`
}

// LicenseOptions selects the license template.
type LicenseOptions struct {
	Type string `yaml:"type"`
}

// applyDefaults fills omitted scalar settings.
func (c *Config) applyDefaults() {
	if c.TemplateDir == "" {
		c.TemplateDir = constants.DefaultTemplateDir
	}
	if c.Defaults.PythonVersion == "" {
		c.Defaults.PythonVersion = constants.DefaultPythonVersion
	}
	for i := range c.Projects {
		if c.Projects[i].License.Type == "" {
			c.Projects[i].License.Type = constants.DefaultLicenseType
		}
	}
}

// ExpandedTemplateDir returns the template root with a leading ~ expanded.
func (c *Config) ExpandedTemplateDir() string {
	return ExpandPath(c.TemplateDir)
}

// Project returns the project with the given name.
func (c *Config) Project(name string) (*Project, bool) {
	for i := range c.Projects {
		if c.Projects[i].Name == name {
			return &c.Projects[i], true
		}
	}
	return nil, false
}

// ProjectNames returns project names in configuration order.
func (c *Config) ProjectNames() []string {
	names := make([]string, 0, len(c.Projects))
	for _, p := range c.Projects {
		names = append(names, p.Name)
	}
	return names
}

// EffectiveConfigs resolves the config types a project receives: defaults
// first, then project additions, duplicates dropped, exclusions removed.
func (c *Config) EffectiveConfigs(p *Project) []string {
	seen := make(map[string]bool, len(c.Defaults.Configs)+len(p.Configs))
	result := make([]string, 0, len(c.Defaults.Configs)+len(p.Configs))
	for _, name := range slices.Concat(c.Defaults.Configs, p.Configs) {
		if seen[name] || slices.Contains(p.ExcludeConfigs, name) {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}
	return result
}

// PreserveSections returns the dotted paths the pyproject merge must leave
// untouched for a project, built-ins first.
func (c *Config) PreserveSections(p *Project) []string {
	var result []string
	for _, s := range slices.Concat(builtinPreserveSections, c.Defaults.Pyproject.PreserveSections, p.Pyproject.PreserveSections) {
		if !slices.Contains(result, s) {
			result = append(result, s)
		}
	}
	return result
}

// MergedVars returns default vars overlaid with the project's vars.
func (c *Config) MergedVars(p *Project) map[string]string {
	vars := maps.Clone(c.Defaults.Vars)
	if vars == nil {
		vars = make(map[string]string, len(p.Vars))
	}
	if err := mergo.Merge(&vars, p.Vars, mergo.WithOverride); err != nil {
		maps.Copy(vars, p.Vars)
	}
	return vars
}

// GitlabCIEdits merges default and project edits by path. Defaults keep their
// position when overridden; project-only paths are appended in order.
func (c *Config) GitlabCIEdits(p *Project) []GitlabCIEdit {
	edits := slices.Clone(c.Defaults.GitlabCI.Edits)
	for _, e := range p.GitlabCI.Edits {
		idx := slices.IndexFunc(edits, func(d GitlabCIEdit) bool { return d.Path == e.Path })
		if idx >= 0 {
			edits[idx].Value = e.Value
			continue
		}
		edits = append(edits, e)
	}
	return edits
}

// ExpandedPath returns the project directory with a leading ~ expanded.
func (p *Project) ExpandedPath() string {
	return ExpandPath(p.Path)
}

// ExpandPath expands a leading ~ to the user's home directory and returns an
// absolute path when one can be determined.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
