package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/fleetsync/pkg/errors"
)

// Load reads and validates the fleet configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, errors.NewConfigError(path, "cannot read configuration", errors.WrapIO("read", path, err))
	}
	return Parse(data, path)
}

// Parse decodes and validates a fleet configuration document. Unknown fields
// are rejected.
func Parse(data []byte, source string) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.NewConfigError(source, "cannot parse configuration", errors.WrapParse("yaml", source, err))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigError(source, err.Error(), err)
	}
	return &cfg, nil
}

// Validate checks the structural invariants of a configuration.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Projects))
	for i, p := range c.Projects {
		field := fmt.Sprintf("projects[%d]", i)
		if p.Name == "" {
			return errors.NewValidationError(field+".name", p.Name, "cannot be empty")
		}
		if p.Path == "" {
			return errors.NewValidationError(field+".path", p.Path, "cannot be empty")
		}
		if seen[p.Name] {
			return errors.NewValidationError(field+".name", p.Name, "duplicate project name "+p.Name)
		}
		seen[p.Name] = true
		if err := validateEdits(field+".gitlab_ci.edits", p.GitlabCI.Edits); err != nil {
			return err
		}
	}
	return validateEdits("defaults.gitlab_ci.edits", c.Defaults.GitlabCI.Edits)
}

func validateEdits(field string, edits []GitlabCIEdit) error {
	for i, e := range edits {
		if e.Path == "" {
			return errors.NewValidationError(fmt.Sprintf("%s[%d].path", field, i), e.Path, "cannot be empty")
		}
	}
	return nil
}
