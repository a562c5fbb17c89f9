package permission

import (
	"errors"
	"sort"
)

// Implications holds the transitive closure of a static "role implies roles"
// table. The closure is computed once; lookups never walk the table.
type Implications struct {
	closure map[string][]string
}

// NewImplications computes the closure of table. Cycles are allowed and
// resolve to the union of every role on the cycle. A role never implies itself.
func NewImplications(table map[string][]string) (*Implications, error) {
	closure := make(map[string][]string, len(table))

	for role := range table {
		if err := validSlug(role); err != nil {
			return nil, err
		}
		seen := map[string]struct{}{role: {}}
		stack := append([]string(nil), table[role]...)
		var implied []string

		for len(stack) > 0 {
			next := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if next == "" {
				return nil, errors.New("implication table contains empty role for " + role)
			}
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			implied = append(implied, next)
			stack = append(stack, table[next]...)
		}

		sort.Strings(implied)
		closure[role] = implied
	}

	return &Implications{closure: closure}, nil
}

// Implied returns the roles transitively implied by role, sorted.
func (im *Implications) Implied(role string) []string {
	if im == nil {
		return nil
	}
	return append([]string(nil), im.closure[role]...)
}

// Expand returns roles followed by everything they imply, de-duplicated.
// Input order is preserved for the leading part.
func (im *Implications) Expand(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	add := func(r string) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	for _, r := range roles {
		add(r)
	}
	if im == nil {
		return out
	}
	for _, r := range roles {
		for _, implied := range im.closure[r] {
			add(implied)
		}
	}
	return out
}

// Roles returns every role that appears as a key of the table.
func (im *Implications) Roles() []string {
	if im == nil {
		return nil
	}
	out := make([]string, 0, len(im.closure))
	for r := range im.closure {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Referenced returns every role mentioned anywhere in the closure, keys included.
func (im *Implications) Referenced() []string {
	if im == nil {
		return nil
	}
	var all []string
	for r, implied := range im.closure {
		all = append(all, r)
		all = append(all, implied...)
	}
	return Union(all)
}
