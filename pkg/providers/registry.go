package providers

import (
	"fmt"
	"sort"
	"strings"
)

// Registry manages all available engines
type Registry struct {
	engines map[string]Engine
}

// NewRegistry creates a new engine registry
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// Register adds an engine to the registry
func (r *Registry) Register(engine Engine) {
	r.engines[strings.ToLower(engine.Name())] = engine
}

// Get retrieves an engine by name
func (r *Registry) Get(name string) (Engine, error) {
	engine, exists := r.engines[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("%w: engine %s not found (available: %s)", ErrInvalidArgument, name, strings.Join(r.List(), ", "))
	}
	return engine, nil
}

// Recognizer retrieves an engine by name and requires it to be a Recognizer
func (r *Registry) Recognizer(name string) (Recognizer, error) {
	engine, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	rec, ok := engine.(Recognizer)
	if !ok {
		return nil, fmt.Errorf("%w: engine %s does not report supported languages", ErrInvalidArgument, name)
	}
	return rec, nil
}

// List returns all registered engine names in sorted order
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasEngine checks if an engine is registered
func (r *Registry) HasEngine(name string) bool {
	_, exists := r.engines[strings.ToLower(name)]
	return exists
}
