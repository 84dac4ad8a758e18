// Package app provides the application context and dependency management
// for the fleetsync CLI: settings, logging and the collaborators commands
// run against.
package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/fleetsync/internal/process"
	"github.com/agentstation/fleetsync/pkg/config"
	"github.com/agentstation/fleetsync/pkg/depupdate"
	"github.com/agentstation/fleetsync/pkg/errors"
	"github.com/agentstation/fleetsync/pkg/handlers"
	"github.com/agentstation/fleetsync/pkg/logging"
)

// App represents the fleetsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	stdout io.Writer
	stderr io.Writer

	// Collaborators, replaceable in tests.
	runner   process.Runner
	resolver handlers.RevisionResolver
	index    depupdate.PackageIndex
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		runner:  process.ExecRunner{},
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, errors.NewConfigError("settings", "failed to load application settings", err)
	}
	app.config = cfg

	logger := NewLogger(cfg)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// withLogger attaches the application logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, a.logger)
}

// LoadFleet loads and validates the fleet configuration file.
func (a *App) LoadFleet() (*config.Config, error) {
	return config.Load(a.config.ConfigFile)
}

// Registry builds the handler registry.
func (a *App) Registry() *handlers.Registry {
	resolver := a.resolver
	if resolver == nil {
		resolver = &handlers.GitRevisionResolver{Runner: a.runner, Repo: handlers.MyPyLibRepo}
	}
	return handlers.NewRegistry(handlers.WithRevisionResolver(resolver))
}

// Updater builds the dependency updater.
func (a *App) Updater() *depupdate.Updater {
	return depupdate.New(a.index)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) error {
		a.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput redirects command output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) error {
		a.stdout = stdout
		a.stderr = stderr
		return nil
	}
}

// WithRunner sets the runner for external commands.
func WithRunner(r process.Runner) Option {
	return func(a *App) error {
		a.runner = r
		return nil
	}
}

// WithRevisionResolver sets how the my-py-lib handler finds upstream HEAD.
func WithRevisionResolver(r handlers.RevisionResolver) Option {
	return func(a *App) error {
		a.resolver = r
		return nil
	}
}

// WithPackageIndex sets the index used by update-deps.
func WithPackageIndex(idx depupdate.PackageIndex) Option {
	return func(a *App) error {
		a.index = idx
		return nil
	}
}
