package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/MrEthical07/authcore"
	"github.com/uptrace/bun"
)

var _ authcore.UserStore = (*Store)(nil)

// GetUserByID loads a user with roles and permissions.
func (s *Store) GetUserByID(ctx context.Context, id string) (*authcore.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.loadUser(ctx, s.db, "u.id = ?", id)
}

// GetUserByEmail loads a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*authcore.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.loadUser(ctx, s.db, "u.email = ?", email)
}

// CreateUser inserts the account and its role assignments in one
// transaction. Unknown role slugs fail the whole insert.
func (s *Store) CreateUser(ctx context.Context, nu authcore.NewUser) (*authcore.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.timestamp()
	m := &userModel{
		ID:           nu.ID,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		AuthVersion:  1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nu.Username != "" {
		username := nu.Username
		m.Username = &username
	}

	var out *authcore.User
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return authcore.ErrAccountExists
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if err := assignRoles(ctx, tx, m.ID, nu.Roles); err != nil {
			return err
		}

		var err error
		out, err = s.loadUser(ctx, tx, "u.id = ?", m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindRoles returns the roles among slugs that exist, ordered by slug.
func (s *Store) FindRoles(ctx context.Context, slugs []string) ([]authcore.Role, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var roles []roleModel
	if err := s.db.NewSelect().Model(&roles).
		Where("r.slug IN (?)", bun.In(slugs)).
		Order("r.slug").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}

	ids := make([]int64, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	perms, err := rolePermissions(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]authcore.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, authcore.Role{
			Slug:        r.Slug,
			Name:        r.Name,
			Description: r.Description,
			Permissions: nonNil(perms[r.ID]),
		})
	}
	return out, nil
}

// SetBanned sets the banned flag and bumps the auth version.
func (s *Store) SetBanned(ctx context.Context, id string, banned bool) (*authcore.User, error) {
	return s.mutate(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("banned = ?", banned)
	}, nil)
}

// ReplaceRoles swaps the role assignment set and bumps the auth version.
func (s *Store) ReplaceRoles(ctx context.Context, id string, slugs []string) (*authcore.User, error) {
	return s.mutate(ctx, id, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*userRoleModel)(nil)).
			Where("user_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear roles: %w", err)
		}
		return assignRoles(ctx, tx, id, slugs)
	})
}

// BumpAuthVersion increments the auth version only.
func (s *Store) BumpAuthVersion(ctx context.Context, id string) (*authcore.User, error) {
	return s.mutate(ctx, id, nil, nil)
}

// SetPasswordHash replaces the stored hash. The auth version is unchanged;
// this is used for transparent rehashing, not password changes.
func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.NewUpdate().Model((*userModel)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = ?", s.timestamp()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

// mutate runs set and then extra inside one transaction together with the
// auth version bump, and returns the updated user.
func (s *Store) mutate(
	ctx context.Context,
	id string,
	set func(*bun.UpdateQuery) *bun.UpdateQuery,
	extra func(context.Context, bun.Tx) error,
) (*authcore.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out *authcore.User
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().Model((*userModel)(nil)).
			Set("auth_version = auth_version + 1").
			Set("updated_at = ?", s.timestamp()).
			Where("id = ?", id)
		if set != nil {
			q = set(q)
		}
		res, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return authcore.ErrUserNotFound
		}

		if extra != nil {
			if err := extra(ctx, tx); err != nil {
				return err
			}
		}

		out, err = s.loadUser(ctx, tx, "u.id = ?", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func assignRoles(ctx context.Context, db bun.IDB, userID string, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}

	var roles []roleModel
	if err := db.NewSelect().Model(&roles).
		Where("r.slug IN (?)", bun.In(slugs)).
		Scan(ctx); err != nil {
		return fmt.Errorf("resolve roles: %w", err)
	}
	if len(roles) != len(slugs) {
		found := make([]string, 0, len(roles))
		for _, r := range roles {
			found = append(found, r.Slug)
		}
		return &authcore.RoleNotFoundError{Missing: missingSlugs(found, slugs)}
	}

	links := make([]userRoleModel, 0, len(roles))
	for _, r := range roles {
		links = append(links, userRoleModel{UserID: userID, RoleID: r.ID})
	}
	if _, err := db.NewInsert().Model(&links).Exec(ctx); err != nil {
		return fmt.Errorf("assign roles: %w", err)
	}
	return nil
}

func (s *Store) loadUser(ctx context.Context, db bun.IDB, where string, arg interface{}) (*authcore.User, error) {
	var m userModel
	if err := db.NewSelect().Model(&m).Where(where, arg).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	users, err := hydrate(ctx, db, []userModel{m})
	if err != nil {
		return nil, err
	}
	return &users[0], nil
}

// hydrate converts rows to authcore users with roles and permissions in two
// queries regardless of how many users there are.
func hydrate(ctx context.Context, db bun.IDB, models []userModel) ([]authcore.User, error) {
	if len(models) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}

	var rows []userRoleRow
	if err := db.NewSelect().
		TableExpr("user_roles AS ur").
		Join("JOIN roles AS r ON r.id = ur.role_id").
		ColumnExpr("ur.user_id, ur.role_id, r.slug, r.name, r.description").
		Where("ur.user_id IN (?)", bun.In(ids)).
		OrderExpr("r.slug ASC").
		Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}

	roleIDs := make([]int64, 0, len(rows))
	for _, r := range rows {
		roleIDs = append(roleIDs, r.RoleID)
	}
	perms, err := rolePermissions(ctx, db, roleIDs)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string][]authcore.Role, len(models))
	for _, r := range rows {
		byUser[r.UserID] = append(byUser[r.UserID], authcore.Role{
			Slug:        r.Slug,
			Name:        r.Name,
			Description: r.Description,
			Permissions: nonNil(perms[r.RoleID]),
		})
	}

	out := make([]authcore.User, 0, len(models))
	for _, m := range models {
		u := authcore.User{
			ID:           m.ID,
			Email:        m.Email,
			PasswordHash: m.PasswordHash,
			AuthVersion:  uint32(m.AuthVersion),
			Banned:       m.Banned,
			Roles:        byUser[m.ID],
			CreatedAt:    m.CreatedAt,
			UpdatedAt:    m.UpdatedAt,
		}
		if m.Username != nil {
			u.Username = *m.Username
		}
		if u.Roles == nil {
			u.Roles = []authcore.Role{}
		}
		out = append(out, u)
	}
	return out, nil
}

func rolePermissions(ctx context.Context, db bun.IDB, roleIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string)
	if len(roleIDs) == 0 {
		return out, nil
	}

	var rows []rolePermissionRow
	if err := db.NewSelect().
		TableExpr("role_permissions AS rp").
		Join("JOIN permissions AS p ON p.id = rp.permission_id").
		ColumnExpr("rp.role_id, p.slug").
		Where("rp.role_id IN (?)", bun.In(roleIDs)).
		OrderExpr("p.slug ASC").
		Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	for _, r := range rows {
		out[r.RoleID] = append(out[r.RoleID], r.Slug)
	}
	return out, nil
}

func missingSlugs(found, wanted []string) []string {
	have := make(map[string]struct{}, len(found))
	for _, f := range found {
		have[f] = struct{}{}
	}
	var missing []string
	for _, w := range wanted {
		if _, ok := have[w]; !ok {
			missing = append(missing, w)
		}
	}
	sort.Strings(missing)
	return missing
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
