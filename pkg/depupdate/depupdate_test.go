package depupdate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/depupdate"
	"github.com/agentstation/fleetsync/pkg/errors"
)

type fakeIndex map[string]string

func (f fakeIndex) LatestVersion(_ context.Context, pkg string) (string, error) {
	v, ok := f[pkg]
	if !ok {
		return "", errors.NewNotFoundError("package", pkg)
	}
	return v, nil
}

var index = fakeIndex{
	"pytest":         "8.3.4",
	"ruff":           "0.5.0",
	"types-requests": "2.32.0.20240914",
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestParseDependency(t *testing.T) {
	tests := []struct {
		dep     string
		pkg     string
		version string
		ok      bool
	}{
		{"pytest>=8.3.0", "pytest", "8.3.0", true},
		{"types_requests>=2", "types_requests", "2", true},
		{"pytest==8.3.0", "", "", false},
		{"pytest>=8.0; python_version<'3.12'", "", "", false},
		{"my-lib @ git+https://example.com/x", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.dep, func(t *testing.T) {
			pkg, version, ok := depupdate.ParseDependency(tt.dep)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.pkg, pkg)
			assert.Equal(t, tt.version, version)
		})
	}
}

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, "2025.2.0", depupdate.NormalizeVersion("2025.2.0.20251108"))
	assert.Equal(t, "1.2.3", depupdate.NormalizeVersion("1.2.3"))
	assert.Equal(t, "1.2", depupdate.NormalizeVersion("1.2"))
}

func TestCheck(t *testing.T) {
	u := depupdate.New(index)
	deps, updates := u.Check(context.Background(), []string{
		"pytest>=8.0",
		"ruff>=0.5.0",
		"unknown-pkg>=1.0",
		"requests",
	})
	assert.Equal(t, []string{"pytest>=8.3.4", "ruff>=0.5.0", "unknown-pkg>=1.0", "requests"}, deps)
	require.Len(t, updates, 3)
	assert.True(t, updates[0].Updated)
	assert.False(t, updates[1].Updated)
	assert.NotEmpty(t, updates[2].Error)
	assert.False(t, updates[2].Updated)
}

func TestUpdateTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.toml")
	original := "[project]\nrequires-python = \">=3.12\"\n\n[dependency-groups]\ndev = [\"pytest>=8.0\", \"types-requests>=2.31.0\"]\n"
	writeFile(t, path, original)
	u := depupdate.New(index)

	res, err := u.UpdateTemplate(context.Background(), path, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedCount())
	assert.False(t, res.Written)
	assert.Equal(t, original, readFile(t, path))
	assert.Contains(t, res.Diff(), "+    \"types-requests>=2.32.0\",")

	res, err = u.UpdateTemplate(context.Background(), path, false)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, "[project]\nrequires-python = \">=3.12\"\n\n[dependency-groups]\ndev = [\n    \"pytest>=8.3.4\",\n    \"types-requests>=2.32.0\",\n]\n", readFile(t, path))

	res, err = u.UpdateTemplate(context.Background(), path, false)
	require.NoError(t, err)
	assert.Zero(t, res.UpdatedCount())
	assert.False(t, res.Written)
}

func TestUpdateTemplateMissing(t *testing.T) {
	u := depupdate.New(index)
	dir := t.TempDir()

	_, err := u.UpdateTemplate(context.Background(), filepath.Join(dir, "missing.toml"), true)
	assert.True(t, errors.IsNotFound(err))

	path := filepath.Join(dir, "sections.toml")
	writeFile(t, path, "[project]\nname = \"x\"\n")
	_, err = u.UpdateTemplate(context.Background(), path, true)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateProject(t *testing.T) {
	dir := t.TempDir()
	p := &config.Project{Name: "alpha", Path: dir}
	u := depupdate.New(index)

	res, err := u.UpdateProject(context.Background(), p, false)
	require.NoError(t, err)
	assert.Nil(t, res)

	writeFile(t, filepath.Join(dir, "pyproject.toml"), "[project]\nname = \"alpha\"\ndependencies = [\n    \"ruff>=0.4\",\n]\n")
	res, err = u.UpdateProject(context.Background(), p, false)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "project.dependencies", res.Section)
	assert.Equal(t, "[project]\nname = \"alpha\"\ndependencies = [\n    \"ruff>=0.5.0\",\n]\n", readFile(t, filepath.Join(dir, "pyproject.toml")))
}

func TestUpdateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `template_dir: ./templates
projects:
  - name: alpha
    path: ./alpha
    pyproject:
      extra_dev_deps:
        - "pytest>=8.0"
        - types-requests>=2.0   # stubs
  - name: beta
    path: ./beta
    pyproject:
      extra_dev_deps:
        - ruff>=0.1
`)
	u := depupdate.New(index)

	res, err := u.UpdateConfig(context.Background(), path, []string{"alpha"}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedCount())
	assert.True(t, res.Written)
	assert.Equal(t, `template_dir: ./templates
projects:
  - name: alpha
    path: ./alpha
    pyproject:
      extra_dev_deps:
        - "pytest>=8.3.4"
        - types-requests>=2.32.0
  - name: beta
    path: ./beta
    pyproject:
      extra_dev_deps:
        - ruff>=0.1
`, readFile(t, path))
}

func TestPyPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pytest/json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"info": {"name": "pytest", "version": "8.3.4"}}`))
	}))
	defer srv.Close()

	p := depupdate.NewPyPI()
	p.BaseURL = srv.URL

	v, err := p.LatestVersion(context.Background(), "pytest")
	require.NoError(t, err)
	assert.Equal(t, "8.3.4", v)

	_, err = p.LatestVersion(context.Background(), "nope")
	assert.True(t, errors.IsNotFound(err))
}
