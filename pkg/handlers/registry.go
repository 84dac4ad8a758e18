package handlers

import (
	"slices"

	"github.com/agentstation/fleetsync/internal/process"
	"github.com/agentstation/fleetsync/pkg/errors"
)

// Registry maps config type names to handlers. It is immutable once built.
type Registry struct {
	handlers map[string]Handler
	names    []string
}

type registryOptions struct {
	resolver RevisionResolver
	extra    []Handler
}

// Option configures NewRegistry.
type Option func(*registryOptions)

// WithRevisionResolver sets how the my-py-lib handler finds the upstream
// revision.
func WithRevisionResolver(r RevisionResolver) Option {
	return func(o *registryOptions) {
		o.resolver = r
	}
}

// WithHandler registers an additional handler, replacing any built-in one
// with the same name.
func WithHandler(h Handler) Option {
	return func(o *registryOptions) {
		o.extra = append(o.extra, h)
	}
}

// NewRegistry builds the registry of every built-in config type.
func NewRegistry(opts ...Option) *Registry {
	o := &registryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.resolver == nil {
		o.resolver = &GitRevisionResolver{Runner: process.ExecRunner{}, Repo: MyPyLibRepo}
	}

	r := &Registry{handlers: make(map[string]Handler)}
	for _, h := range copyHandlers() {
		r.add(h)
	}
	r.add(&PyprojectHandler{})
	r.add(&MyPyLibHandler{Resolver: o.resolver})
	r.add(&GitlabCIHandler{})
	for _, h := range o.extra {
		r.add(h)
	}
	return r
}

func (r *Registry) add(h Handler) {
	if _, exists := r.handlers[h.Name()]; !exists {
		r.names = append(r.names, h.Name())
	}
	r.handlers[h.Name()] = h
}

// Lookup returns the handler for a config type.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Get returns the handler for a config type or an
// *errors.UnknownConfigTypeError.
func (r *Registry) Get(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, errors.NewUnknownConfigTypeError(name)
	}
	return h, nil
}

// Names returns registered config types in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}
