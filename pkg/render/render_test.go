package render_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/errors"
	"github.com/agentstation/fleetsync/pkg/render"
)

func fixture() (*config.Config, *config.Project) {
	cfg := &config.Config{
		Defaults: config.Defaults{
			PythonVersion: "3.12",
			Vars:          map[string]string{"owner": "fleet", "tag": "24.04"},
		},
		Projects: []config.Project{{
			Name:    "alpha",
			Path:    "/srv/alpha",
			Vars:    map[string]string{"tag": "22.04"},
			License: config.LicenseOptions{Type: "MIT"},
		}},
	}
	return cfg, &cfg.Projects[0]
}

func writeTemplate(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRenderScopes(t *testing.T) {
	cfg, p := fixture()
	path := writeTemplate(t, t.TempDir(), "t.txt",
		"{{ .project.name }} {{ .defaults.python_version }} {{ .vars.owner }} {{ .vars.tag }} {{ .project.license.type }}\n")

	out, err := render.Render(path, render.NewData(cfg, p))
	require.NoError(t, err)
	assert.Equal(t, "alpha 3.12 fleet 22.04 MIT\n", out)
}

func TestRenderTrailingNewline(t *testing.T) {
	cfg, p := fixture()
	dir := t.TempDir()

	with, err := render.Render(writeTemplate(t, dir, "a", "x\n"), render.NewData(cfg, p))
	require.NoError(t, err)
	assert.Equal(t, "x\n", with)

	without, err := render.Render(writeTemplate(t, dir, "b", "x"), render.NewData(cfg, p))
	require.NoError(t, err)
	assert.Equal(t, "x", without)
}

func TestRenderMissingKey(t *testing.T) {
	cfg, p := fixture()
	out, err := render.Render(writeTemplate(t, t.TempDir(), "t", "[{{ .vars.nope }}]"), render.NewData(cfg, p))
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRenderMissingScopeKeys(t *testing.T) {
	cfg, p := fixture()
	data := render.NewData(cfg, p)
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"project", "[{{ .project.nope }}]", "[]"},
		{"defaults", "[{{ .defaults.nope }}]", "[]"},
		{"nested", "[{{ .project.license.nope }}]", "[]"},
		{"top level", "[{{ .nope }}]", "[]"},
		{"inside if", "{{ if .project.name }}[{{ .project.nope }}]{{ end }}", "[]"},
		{"inside range", "{{ range .defaults.configs }}x{{ else }}[{{ .defaults.nope }}]{{ end }}", "[]"},
		{"defined template", `{{ define "t" }}[{{ .nope }}]{{ end }}{{ template "t" .project }}`, "[]"},
		{"present values kept", "{{ .project.name }}-{{ .defaults.python_version }}", "alpha-3.12"},
		{"assignment", "{{ $n := .project.nope }}[{{ $n }}]", "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := render.RenderString(tt.src, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.NotContains(t, out, "<no value>")
		})
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	cfg, p := fixture()
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := render.Render(missing, render.NewData(cfg, p))
	require.Error(t, err)
	assert.True(t, errors.IsTemplateNotFound(err))
	assert.Contains(t, err.Error(), missing)
	assert.False(t, render.Exists(missing))
}

func TestRenderSyntaxError(t *testing.T) {
	cfg, p := fixture()
	_, err := render.Render(writeTemplate(t, t.TempDir(), "bad", "{{ .vars.owner "), render.NewData(cfg, p))
	require.Error(t, err)
	assert.False(t, errors.IsTemplateNotFound(err))
}

func TestTemplatePath(t *testing.T) {
	_, p := fixture()
	assert.Equal(t, filepath.Join("/tpl", "ruff", ".ruff.toml"),
		render.TemplatePath(p, "ruff", "/tpl", "ruff", ".ruff.toml"))

	p.TemplateOverrides = map[string]string{"ruff": "/custom/ruff.toml"}
	assert.Equal(t, "/custom/ruff.toml", render.TemplatePath(p, "ruff", "/tpl", "ruff", ".ruff.toml"))
	assert.Equal(t, filepath.Join("/tpl", "yamllint", ".yamllint.yaml"),
		render.TemplatePath(p, "yamllint", "/tpl", "yamllint", ".yamllint.yaml"))
}

func TestRenderString(t *testing.T) {
	cfg, p := fixture()
	data := render.NewData(cfg, p)

	out, err := render.RenderString("ubuntu:{{ .vars.tag }}", data)
	require.NoError(t, err)
	assert.Equal(t, "ubuntu:22.04", out)

	out, err = render.RenderString("plain {value}", data)
	require.NoError(t, err)
	assert.Equal(t, "plain {value}", out)
}

func TestAppendLines(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		lines []string
		want  string
	}{
		{"no lines", "a\n", nil, "a\n"},
		{"no lines keeps body verbatim", "a", nil, "a"},
		{"single", "__pycache__/\n*.pyc\n", []string{"*.secret"}, "__pycache__/\n*.pyc\n*.secret\n"},
		{"body without newline", "a", []string{"b", "c"}, "a\nb\nc\n"},
		{"extra blank lines trimmed", "a\n\n\n", []string{"b"}, "a\nb\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render.AppendLines(tt.body, tt.lines))
		})
	}
}
