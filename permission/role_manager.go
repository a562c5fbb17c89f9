package permission

import (
	"errors"
	"sort"
	"sync"
)

// RoleManager maps role slugs to the permission slugs they grant. Every
// permission must already exist in the backing [Registry].
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string][]string
	frozen bool
}

// NewRoleManager creates a RoleManager validating against registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string][]string),
	}
}

// RegisterRole records the permissions granted by roleSlug. Duplicate
// permissions are collapsed.
func (rm *RoleManager) RegisterRole(roleSlug string, permissionSlugs []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if err := validSlug(roleSlug); err != nil {
		return err
	}
	if _, exists := rm.roles[roleSlug]; exists {
		return errors.New("role already registered: " + roleSlug)
	}

	for _, perm := range permissionSlugs {
		if !rm.registry.Has(perm) {
			return errors.New("permission not registered: " + perm)
		}
	}

	rm.roles[roleSlug] = Union(permissionSlugs)
	return nil
}

// Permissions returns a copy of the permissions granted by roleSlug.
func (rm *RoleManager) Permissions(roleSlug string) ([]string, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	perms, ok := rm.roles[roleSlug]
	if !ok {
		return nil, false
	}
	return append([]string(nil), perms...), true
}

// Has reports whether roleSlug is registered.
func (rm *RoleManager) Has(roleSlug string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok := rm.roles[roleSlug]
	return ok
}

// Roles returns the registered role slugs in sorted order.
func (rm *RoleManager) Roles() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]string, 0, len(rm.roles))
	for r := range rm.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Freeze prevents further registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
