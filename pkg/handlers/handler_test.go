package handlers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/errors"
	"github.com/agentstation/fleetsync/pkg/handlers"
)

type panicHandler struct{}

func (panicHandler) Name() string                       { return "gitignore" }
func (panicHandler) OutputPath(*config.Project) string { return "" }
func (panicHandler) Diff(context.Context, *config.Project, *handlers.ApplyContext) string {
	panic("diff exploded")
}
func (panicHandler) Apply(context.Context, *config.Project, *handlers.ApplyContext) handlers.Result {
	panic("apply exploded")
}

func TestRegistry(t *testing.T) {
	r := handlers.NewRegistry()
	assert.Equal(t, []string{
		"pre-commit", "ruff", "yamllint", "prettier", "python-version",
		"dockerignore", "gitignore", "renovate", "license",
		"pyproject", "my-py-lib", "gitlab-ci",
	}, r.Names())

	_, ok := r.Lookup("nope")
	assert.False(t, ok)

	h, ok := r.Lookup("pyproject")
	assert.True(t, ok)
	assert.Equal(t, "pyproject", h.Name())

	_, err := r.Get("nope")
	assert.True(t, errors.IsUnknownConfigType(err))
	assert.EqualError(t, err, "unknown config type: nope")

	h, err = r.Get("ruff")
	assert.NoError(t, err)
	assert.Equal(t, "ruff", h.Name())
}

func TestRegistryWithHandlerReplaces(t *testing.T) {
	r := handlers.NewRegistry(handlers.WithHandler(panicHandler{}))
	assert.Len(t, r.Names(), 12)
	h, _ := r.Lookup("gitignore")
	assert.IsType(t, panicHandler{}, h)
}

func TestSafeApplyRecoversPanics(t *testing.T) {
	f := newFixture(t, handlers.WithHandler(panicHandler{}))

	res := f.apply("gitignore", false, false)
	assert.Equal(t, handlers.StatusError, res.Status)
	assert.Contains(t, res.Message, "apply exploded")

	assert.Contains(t, f.diff("gitignore"), "diff exploded")
}

func TestResultChanged(t *testing.T) {
	assert.True(t, handlers.Result{Status: handlers.StatusCreated}.Changed())
	assert.True(t, handlers.Result{Status: handlers.StatusUpdated}.Changed())
	assert.False(t, handlers.Result{Status: handlers.StatusUnchanged}.Changed())
	assert.False(t, handlers.Result{Status: handlers.StatusSkipped}.Changed())
	assert.False(t, handlers.Result{Status: handlers.StatusError}.Changed())
}
