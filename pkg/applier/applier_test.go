package applier_test

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fleetsync/internal/process"
	"github.com/agentstation/fleetsync/pkg/applier"
	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/errors"
	"github.com/agentstation/fleetsync/pkg/handlers"
	"github.com/agentstation/fleetsync/pkg/logging"
)

type fixedResolver string

func (r fixedResolver) LatestRevision(context.Context) (string, error) { return string(r), nil }

type fleet struct {
	t      *testing.T
	root   string
	cfg    *config.Config
	runner *process.FakeRunner
}

func newFleet(t *testing.T, names ...string) *fleet {
	t.Helper()
	root := t.TempDir()
	f := &fleet{
		t:    t,
		root: root,
		cfg: &config.Config{
			TemplateDir: filepath.Join(root, "templates"),
			Defaults: config.Defaults{
				PythonVersion: "3.12",
				Configs:       []string{"gitignore", "python-version"},
			},
		},
		runner: &process.FakeRunner{},
	}
	f.template("gitignore/.gitignore", ".venv/\n")
	f.template("python-version/.python-version", "{{ .defaults.python_version }}\n")
	f.template("pyproject/sections.toml", "[project]\nrequires-python = \">=3.12\"\n")
	for _, name := range names {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		f.cfg.Projects = append(f.cfg.Projects, config.Project{Name: name, Path: dir})
	}
	return f
}

func (f *fleet) template(rel, content string) {
	f.t.Helper()
	path := filepath.Join(f.cfg.TemplateDir, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fleet) write(project, name, content string) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(filepath.Join(f.root, project, name), []byte(content), 0o644))
}

func (f *fleet) exists(project, name string) bool {
	_, err := os.Stat(filepath.Join(f.root, project, name))
	return err == nil
}

func (f *fleet) applier() *applier.Applier {
	registry := handlers.NewRegistry(handlers.WithRevisionResolver(fixedResolver(strings.Repeat("c", 40))))
	return applier.New(f.cfg, applier.WithRegistry(registry), applier.WithRunner(f.runner))
}

func TestRunCreatesAndIsIdempotent(t *testing.T) {
	f := newFleet(t, "alpha", "beta")
	a := f.applier()

	s := a.Run(context.Background(), applier.Options{})
	assert.Equal(t, 4, s.Created)
	assert.Equal(t, 2, s.ProjectsProcessed)
	assert.Len(t, s.Changes, 4)
	assert.False(t, s.HasErrors())
	assert.True(t, f.exists("alpha", ".gitignore"))
	assert.True(t, f.exists("beta", ".python-version"))

	s = a.Run(context.Background(), applier.Options{})
	assert.Equal(t, 4, s.Unchanged)
	assert.Zero(t, s.Created+s.Updated)
	assert.Empty(t, s.Changes)
	assert.False(t, s.StartedAt.IsZero())
}

func TestRunDryRunWritesNothing(t *testing.T) {
	f := newFleet(t, "alpha")

	s := f.applier().Run(context.Background(), applier.Options{DryRun: true, Sync: true, GitAdd: true})
	assert.Equal(t, 2, s.Created)
	assert.True(t, s.DryRun)
	assert.True(t, s.HasChanges())
	assert.False(t, f.exists("alpha", ".gitignore"))
	assert.Empty(t, f.runner.Lines())
}

func TestRunMissingDirectory(t *testing.T) {
	f := newFleet(t, "alpha")
	f.cfg.Projects = append(f.cfg.Projects, config.Project{Name: "ghost", Path: filepath.Join(f.root, "ghost")})

	s := f.applier().Run(context.Background(), applier.Options{})
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.ProjectsProcessed)
	assert.Equal(t, []string{"ghost: directory not found"}, s.ErrorMessages)
	assert.True(t, s.HasErrors())
}

func TestRunUnknownConfigType(t *testing.T) {
	f := newFleet(t, "alpha")
	f.cfg.Projects[0].Configs = []string{"bogus"}

	s := f.applier().Run(context.Background(), applier.Options{})
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 2, s.Created)
	assert.Equal(t, []string{"alpha/bogus: unknown config type: bogus"}, s.ErrorMessages)
}

func TestRunFilters(t *testing.T) {
	f := newFleet(t, "alpha", "beta")

	s := f.applier().Run(context.Background(), applier.Options{
		Projects: []string{"beta"},
		Types:    []string{"gitignore"},
	})
	assert.Equal(t, 1, s.Created)
	assert.Equal(t, 1, s.ProjectsProcessed)
	assert.False(t, f.exists("alpha", ".gitignore"))
	assert.True(t, f.exists("beta", ".gitignore"))
	assert.False(t, f.exists("beta", ".python-version"))
}

func TestRunWarnsAboutUnknownProjects(t *testing.T) {
	f := newFleet(t, "alpha", "beta")
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	s := f.applier().Run(ctx, applier.Options{Projects: []string{"alpah"}})
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "did you mean: alpha")
	assert.Zero(t, s.ProjectsProcessed)
	assert.True(t, tl.Contains("unknown project"))
}

func TestRunShowDiff(t *testing.T) {
	f := newFleet(t, "alpha")
	a := f.applier()
	diffs := map[string]string{}
	a.OnDiff(func(_, configType, diff string) { diffs[configType] = diff })

	s := a.Run(context.Background(), applier.Options{DryRun: true, ShowDiff: true})
	assert.Equal(t, "new file: .gitignore", diffs["gitignore"])
	assert.Zero(t, s.Total())

	s = a.Run(context.Background(), applier.Options{ShowDiff: true})
	assert.Equal(t, 2, s.Created)
}

func TestRunHooks(t *testing.T) {
	f := newFleet(t, "alpha")
	a := f.applier()
	var projects, results []string
	a.OnProject(func(p *config.Project, _ string) { projects = append(projects, p.Name) })
	a.OnResult(func(project, configType string, res handlers.Result) {
		results = append(results, project+"/"+configType+"="+string(res.Status))
	})

	a.Run(context.Background(), applier.Options{})
	assert.Equal(t, []string{"alpha"}, projects)
	assert.Equal(t, []string{"alpha/gitignore=created", "alpha/python-version=created"}, results)
}

func TestRunSyncAfterPyprojectUpdate(t *testing.T) {
	f := newFleet(t, "alpha")
	f.cfg.Defaults.Configs = []string{"pyproject"}
	f.write("alpha", "pyproject.toml", "[project]\nname = \"alpha\"\nrequires-python = \">=3.10\"\n")

	s := f.applier().Run(context.Background(), applier.Options{Sync: true})
	assert.Equal(t, 1, s.Updated)
	assert.Equal(t, []string{"uv sync"}, f.runner.Lines())
	require.Len(t, s.PostSteps, 1)
	assert.True(t, s.PostSteps[0].OK)
	assert.Equal(t, filepath.Join(f.root, "alpha"), f.runner.Commands[0].Dir)
}

func TestRunSyncDisabled(t *testing.T) {
	f := newFleet(t, "alpha")
	f.cfg.Defaults.Configs = []string{"pyproject"}
	f.write("alpha", "pyproject.toml", "[project]\nname = \"alpha\"\nrequires-python = \">=3.10\"\n")

	s := f.applier().Run(context.Background(), applier.Options{})
	assert.Equal(t, 1, s.Updated)
	assert.Empty(t, f.runner.Lines())
}

func TestRunSyncFailureKeepsCounts(t *testing.T) {
	f := newFleet(t, "alpha")
	f.cfg.Defaults.Configs = []string{"pyproject"}
	f.write("alpha", "pyproject.toml", "[project]\nname = \"alpha\"\nrequires-python = \">=3.10\"\n")
	f.runner.Handle = func(c process.Command) (process.Output, error) {
		return process.Output{}, errors.NewProcessError("run", c.String(), "error: lock failed\nline 2", stderrors.New("exit status 1"))
	}

	s := f.applier().Run(context.Background(), applier.Options{Sync: true})
	assert.Equal(t, 1, s.Updated)
	assert.Zero(t, s.Errors)
	require.Len(t, s.PostSteps, 1)
	assert.False(t, s.PostSteps[0].OK)
	assert.Equal(t, "error: lock failed\nline 2", s.PostSteps[0].Message)
}

func TestRunGitAddCommitPush(t *testing.T) {
	f := newFleet(t, "alpha")

	s := f.applier().Run(context.Background(), applier.Options{
		GitAdd:        true,
		CommitMessage: "chore: sync configs",
		Push:          true,
	})
	assert.Equal(t, 2, s.Created)
	assert.Equal(t, []string{
		"git rev-parse --git-dir",
		"git add -- .gitignore .python-version",
		"git commit -m chore: sync configs",
		"git push",
	}, f.runner.Lines())
	require.Len(t, s.PostSteps, 3)
	assert.Equal(t, ".gitignore, .python-version", s.PostSteps[0].Message)
}

func TestRunGitAddOutsideRepo(t *testing.T) {
	f := newFleet(t, "alpha")
	f.runner.Handle = func(c process.Command) (process.Output, error) {
		if len(c.Args) > 0 && c.Args[0] == "rev-parse" {
			return process.Output{}, stderrors.New("not a git repository")
		}
		return process.Output{}, nil
	}

	s := f.applier().Run(context.Background(), applier.Options{GitAdd: true})
	assert.Equal(t, 2, s.Created)
	assert.Equal(t, []string{"git rev-parse --git-dir"}, f.runner.Lines())
	assert.Empty(t, s.PostSteps)
}

func TestRunGitAddOnlyChanged(t *testing.T) {
	f := newFleet(t, "alpha")
	f.write("alpha", ".gitignore", ".venv/\n")

	f.applier().Run(context.Background(), applier.Options{GitAdd: true})
	assert.Equal(t, []string{
		"git rev-parse --git-dir",
		"git add -- .python-version",
	}, f.runner.Lines())
}

func TestRunCancelled(t *testing.T) {
	f := newFleet(t, "alpha")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := f.applier().Run(ctx, applier.Options{})
	assert.True(t, s.HasErrors())
	assert.Zero(t, s.ProjectsProcessed)
}
