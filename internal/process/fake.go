package process

import (
	"context"
	"sync"
)

// FakeRunner records commands and answers them from a handler function.
// It is meant for tests of packages that shell out.
type FakeRunner struct {
	mu       sync.Mutex
	Commands []Command
	Handle   func(Command) (Output, error)
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, c Command) (Output, error) {
	f.mu.Lock()
	f.Commands = append(f.Commands, c)
	f.mu.Unlock()
	if f.Handle == nil {
		return Output{}, nil
	}
	return f.Handle(c)
}

// Lines returns each recorded command as a string.
func (f *FakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.Commands))
	for i, c := range f.Commands {
		lines[i] = c.String()
	}
	return lines
}
