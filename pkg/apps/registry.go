package apps

import (
	"fmt"
	"sort"
	"sync"

	"gitlab.com/tinyland/lab/inkframe/pkg/device"
)

// Factory builds an app bound to env.
type Factory func(env Env) (App, error)

// Binding ties a button to an app and the label shown in the launcher.
type Binding struct {
	Button device.Button
	ID     ID
	Label  string
}

// Registry maps identifiers to factories and buttons to identifiers. It is
// safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[ID]Factory
	bindings  map[device.Button]Binding
}

// NewRegistry returns an empty registry ready for app registration.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[ID]Factory),
		bindings:  make(map[device.Button]Binding),
	}
}

// Register adds an app. Identifiers and buttons must be unique.
func (r *Registry) Register(b Binding, f Factory) error {
	if f == nil {
		return fmt.Errorf("app %q has no factory", b.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[b.ID]; exists {
		return fmt.Errorf("app %q already registered", b.ID)
	}
	if other, exists := r.bindings[b.Button]; exists {
		return fmt.Errorf("button %s already bound to %q", b.Button, other.ID)
	}
	r.factories[b.ID] = f
	r.bindings[b.Button] = b
	return nil
}

// Resolve builds the app registered under id. Identifiers that are not
// registered yield ErrUnknownApp.
func (r *Registry) Resolve(id string, env Env) (App, error) {
	r.mu.RLock()
	f, ok := r.factories[ID(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownApp, id)
	}

	app, err := f(env.WithDefaults())
	if err != nil {
		return nil, fmt.Errorf("apps: build %s: %w", id, err)
	}
	return app, nil
}

// Bindings returns every binding in button order.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Button < out[j].Button })
	return out
}

// ForButton returns the binding for btn.
func (r *Registry) ForButton(btn device.Button) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[btn]
	return b, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[ID(id)]
	return ok
}
