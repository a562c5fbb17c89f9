package permission

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Registry is the closed set of permission slugs the engine accepts.
// Slugs are registered during startup and the registry is then frozen.
type Registry struct {
	mu     sync.RWMutex
	slugs  map[string]struct{}
	frozen bool
}

// NewRegistry creates an empty permission [Registry].
func NewRegistry() *Registry {
	return &Registry{slugs: make(map[string]struct{})}
}

// Register adds slug. Must be called before [Registry.Freeze].
func (r *Registry) Register(slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	if err := validSlug(slug); err != nil {
		return err
	}
	if _, exists := r.slugs[slug]; exists {
		return errors.New("permission already registered: " + slug)
	}

	r.slugs[slug] = struct{}{}
	return nil
}

// Has reports whether slug is registered.
func (r *Registry) Has(slug string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.slugs[slug]
	return ok
}

// Slugs returns the registered slugs in sorted order.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.slugs))
	for s := range r.slugs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slugs)
}

func validSlug(slug string) error {
	if slug == "" {
		return errors.New("slug cannot be empty")
	}
	if strings.ContainsAny(slug, " \t\r\n:,") {
		return errors.New("slug contains invalid characters: " + slug)
	}
	return nil
}
