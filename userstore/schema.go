package userstore

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authcore/permission"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CreateSchema creates all tables if they do not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	tables := []struct {
		model      interface{}
		foreignKey []string
	}{
		{model: (*userModel)(nil)},
		{model: (*roleModel)(nil)},
		{model: (*permissionModel)(nil)},
		{
			model: (*userRoleModel)(nil),
			foreignKey: []string{
				`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
				`("role_id") REFERENCES "roles" ("id") ON DELETE CASCADE`,
			},
		},
		{
			model: (*rolePermissionModel)(nil),
			foreignKey: []string{
				`("role_id") REFERENCES "roles" ("id") ON DELETE CASCADE`,
				`("permission_id") REFERENCES "permissions" ("id") ON DELETE CASCADE`,
			},
		},
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, t := range tables {
			q := tx.NewCreateTable().Model(t.model).IfNotExists()
			for _, fk := range t.foreignKey {
				q = q.ForeignKey(fk)
			}
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		}
		_, err := tx.NewCreateIndex().
			Model((*userModel)(nil)).
			Index("users_created_at_id_idx").
			Column("created_at", "id").
			IfNotExists().
			Exec(ctx)
		return err
	})
}

// Seed upserts the catalog's permissions and roles and makes each role's
// permission set match the catalog exactly. Running it twice is harmless.
// Roles and permissions absent from the catalog are left alone.
func (s *Store) Seed(ctx context.Context, c permission.Catalog) error {
	if _, err := c.Compile(); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, p := range c.Permissions {
			m := &permissionModel{Slug: p.Slug, Description: p.Description}
			if _, err := tx.NewInsert().Model(m).
				On("CONFLICT (slug) DO UPDATE").
				Set("description = EXCLUDED.description").
				Exec(ctx); err != nil {
				return fmt.Errorf("seed permission %s: %w", p.Slug, err)
			}
		}

		for _, r := range c.Roles {
			m := &roleModel{Slug: r.Slug, Name: r.Name, Description: r.Description}
			if _, err := tx.NewInsert().Model(m).
				On("CONFLICT (slug) DO UPDATE").
				Set("name = EXCLUDED.name").
				Set("description = EXCLUDED.description").
				Exec(ctx); err != nil {
				return fmt.Errorf("seed role %s: %w", r.Slug, err)
			}

			var role roleModel
			if err := tx.NewSelect().Model(&role).Where("r.slug = ?", r.Slug).Scan(ctx); err != nil {
				return fmt.Errorf("load role %s: %w", r.Slug, err)
			}
			if _, err := tx.NewDelete().Model((*rolePermissionModel)(nil)).
				Where("role_id = ?", role.ID).
				Exec(ctx); err != nil {
				return err
			}
			if len(r.Permissions) == 0 {
				continue
			}

			var perms []permissionModel
			if err := tx.NewSelect().Model(&perms).
				Where("p.slug IN (?)", bun.In(r.Permissions)).
				Scan(ctx); err != nil {
				return err
			}
			links := make([]rolePermissionModel, 0, len(perms))
			for _, p := range perms {
				links = append(links, rolePermissionModel{RoleID: role.ID, PermissionID: p.ID})
			}
			if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
				return fmt.Errorf("seed role %s permissions: %w", r.Slug, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("catalog seeded",
		zap.Int("permissions", len(c.Permissions)),
		zap.Int("roles", len(c.Roles)),
	)
	return nil
}
