// Package reporter renders end-of-run summaries to their output targets.
package reporter

import (
	"fmt"
	"sync"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/metrics"
)

// Reporter renders one run summary.
type Reporter interface {
	// Name returns the reporter name.
	Name() string
	// Report renders the summary.
	Report(summary *metrics.Summary) error
}

// Factory creates a reporter from its config. path is empty for reporters
// without a file target.
type Factory func(path string) (Reporter, error)

// Registry maps reporter type names to factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for the given type.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("reporter type already registered: %s", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a reporter of the given type.
func (r *Registry) Create(name, path string) (Reporter, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unknown reporter type: %s", name)
	}
	return factory(path)
}

// Types returns the registered type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}

// DefaultRegistry carries the built-in reporters.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.Register("console", func(string) (Reporter, error) {
		return NewConsole(), nil
	})
	_ = DefaultRegistry.Register("json", func(path string) (Reporter, error) {
		return NewJSONFile(path)
	})
	_ = DefaultRegistry.Register("csv", func(path string) (Reporter, error) {
		return NewCSVFile(path)
	})
}
