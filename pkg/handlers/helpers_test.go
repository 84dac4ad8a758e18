package handlers_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/handlers"
)

// fixture is a template root plus one project directory.
type fixture struct {
	t        *testing.T
	cfg      *config.Config
	project  *config.Project
	registry *handlers.Registry
}

func newFixture(t *testing.T, opts ...handlers.Option) *fixture {
	t.Helper()
	root := t.TempDir()
	templates := filepath.Join(root, "templates")
	projectDir := filepath.Join(root, "alpha")
	require.NoError(t, os.MkdirAll(templates, 0o755))
	require.NoError(t, os.MkdirAll(projectDir, 0o755))

	cfg := &config.Config{
		TemplateDir: templates,
		Defaults:    config.Defaults{PythonVersion: "3.12"},
		Projects: []config.Project{{
			Name:    "alpha",
			Path:    projectDir,
			License: config.LicenseOptions{Type: "Apache-2.0"},
		}},
	}
	return &fixture{
		t:        t,
		cfg:      cfg,
		project:  &cfg.Projects[0],
		registry: handlers.NewRegistry(opts...),
	}
}

func (f *fixture) template(rel, content string) {
	f.t.Helper()
	path := filepath.Join(f.cfg.TemplateDir, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) write(name, content string) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(filepath.Join(f.project.Path, name), []byte(content), 0o644))
}

func (f *fixture) read(name string) string {
	f.t.Helper()
	data, err := os.ReadFile(filepath.Join(f.project.Path, name))
	require.NoError(f.t, err)
	return string(data)
}

func (f *fixture) exists(name string) bool {
	_, err := os.Stat(filepath.Join(f.project.Path, name))
	return err == nil
}

func (f *fixture) handler(name string) handlers.Handler {
	f.t.Helper()
	h, ok := f.registry.Lookup(name)
	require.True(f.t, ok, "handler %s", name)
	return h
}

func (f *fixture) apply(name string, dryRun, backup bool) handlers.Result {
	f.t.Helper()
	ac := handlers.NewApplyContext(f.cfg, dryRun, backup)
	return handlers.SafeApply(context.Background(), f.handler(name), f.project, ac)
}

func (f *fixture) diff(name string) string {
	f.t.Helper()
	ac := handlers.NewApplyContext(f.cfg, true, false)
	return handlers.SafeDiff(context.Background(), f.handler(name), f.project, ac)
}
