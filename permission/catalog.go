package permission

import (
	"errors"
	"fmt"
)

const (
	// RoleMember is granted to every new account.
	RoleMember = "member"
	// RoleAdmin may read users, ban them and change their roles.
	RoleAdmin = "admin"

	PermUsersRead        = "users.read"
	PermUsersBan         = "users.ban"
	PermUsersManageRoles = "users.manage_roles"
)

// RoleDef describes one role of a [Catalog].
type RoleDef struct {
	Slug        string
	Name        string
	Description string
	Permissions []string
}

// PermissionDef describes one permission of a [Catalog].
type PermissionDef struct {
	Slug        string
	Description string
}

// Catalog is the static role/permission model: what exists, what each role
// grants, and which roles imply others. It seeds the user store and the
// engine's registries.
type Catalog struct {
	Permissions []PermissionDef
	Roles       []RoleDef
	Implies     map[string][]string
	DefaultRole string
}

// DefaultCatalog returns the built-in member/admin model.
func DefaultCatalog() Catalog {
	return Catalog{
		Permissions: []PermissionDef{
			{Slug: PermUsersRead, Description: "Read user accounts"},
			{Slug: PermUsersBan, Description: "Ban and unban users"},
			{Slug: PermUsersManageRoles, Description: "Assign roles to users"},
		},
		Roles: []RoleDef{
			{Slug: RoleMember, Name: "Member", Description: "Default role for new accounts"},
			{
				Slug:        RoleAdmin,
				Name:        "Administrator",
				Description: "User administration",
				Permissions: []string{PermUsersRead, PermUsersBan, PermUsersManageRoles},
			},
		},
		Implies:     map[string][]string{RoleAdmin: {RoleMember}},
		DefaultRole: RoleMember,
	}
}

// Compiled is a validated, frozen catalog.
type Compiled struct {
	Registry     *Registry
	Roles        *RoleManager
	Implications *Implications
	DefaultRole  string
}

// Compile validates c and freezes the result. Every role referenced by the
// implication table and the default role must be defined.
func (c Catalog) Compile() (*Compiled, error) {
	reg := NewRegistry()
	for _, p := range c.Permissions {
		if err := reg.Register(p.Slug); err != nil {
			return nil, err
		}
	}
	reg.Freeze()

	roles := NewRoleManager(reg)
	for _, r := range c.Roles {
		if err := roles.RegisterRole(r.Slug, r.Permissions); err != nil {
			return nil, fmt.Errorf("role %s: %w", r.Slug, err)
		}
	}
	roles.Freeze()

	if c.DefaultRole == "" {
		return nil, errors.New("default role required")
	}
	if !roles.Has(c.DefaultRole) {
		return nil, errors.New("default role not defined: " + c.DefaultRole)
	}

	imp, err := NewImplications(c.Implies)
	if err != nil {
		return nil, err
	}
	for _, r := range imp.Referenced() {
		if !roles.Has(r) {
			return nil, errors.New("implication references undefined role: " + r)
		}
	}

	return &Compiled{
		Registry:     reg,
		Roles:        roles,
		Implications: imp,
		DefaultRole:  c.DefaultRole,
	}, nil
}
