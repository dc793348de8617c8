// Package registry implements the process-wide step registry: a fixed map
// from step type name to its constructor, populated at startup and never
// mutated at runtime.
package registry

import (
	"sync"

	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

// Registry holds one Constructor per step type.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]step.Constructor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{steps: make(map[string]step.Constructor)}
}

// Register adds a step type. Registering the same type twice is a
// programming error in the registration sequence, not a runtime recipe
// failure, so it returns an error the caller is expected to panic on or
// fail fast during startup wiring.
func (r *Registry) Register(stepType string, ctor step.Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[stepType]; exists {
		return rerrors.InvalidRecipe("step type %q already registered", stepType)
	}
	r.steps[stepType] = ctor
	return nil
}

// MustRegister is Register, panicking on failure, for use in package-level
// init wiring where a duplicate registration is always a bug.
func (r *Registry) MustRegister(stepType string, ctor step.Constructor) {
	if err := r.Register(stepType, ctor); err != nil {
		panic(err)
	}
}

// Build looks up the constructor for desc.Type and runs it. An unknown
// step type is an UnknownStepType error.
func (r *Registry) Build(deps step.Deps, desc step.Descriptor) (step.Step, error) {
	r.mu.RLock()
	ctor, ok := r.steps[desc.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, rerrors.UnknownStepType(desc.Type)
	}
	return ctor(deps, desc.Config)
}

// Types returns the currently registered step type names, for diagnostics.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.steps))
	for t := range r.steps {
		out = append(out, t)
	}
	return out
}
