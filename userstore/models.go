package userstore

import (
	"time"

	"github.com/uptrace/bun"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email,notnull,unique"`
	Username     *string   `bun:"username,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	AuthVersion  int64     `bun:"auth_version,notnull,default:1"`
	Banned       bool      `bun:"banned,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

type roleModel struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Slug        string `bun:"slug,notnull,unique"`
	Name        string `bun:"name,notnull"`
	Description string `bun:"description,notnull"`
}

type permissionModel struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Slug        string `bun:"slug,notnull,unique"`
	Description string `bun:"description,notnull"`
}

type userRoleModel struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID string `bun:"user_id,pk"`
	RoleID int64  `bun:"role_id,pk"`
}

type rolePermissionModel struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	RoleID       int64 `bun:"role_id,pk"`
	PermissionID int64 `bun:"permission_id,pk"`
}

// Row shapes for join queries.
type userRoleRow struct {
	UserID      string `bun:"user_id"`
	RoleID      int64  `bun:"role_id"`
	Slug        string `bun:"slug"`
	Name        string `bun:"name"`
	Description string `bun:"description"`
}

type rolePermissionRow struct {
	RoleID int64  `bun:"role_id"`
	Slug   string `bun:"slug"`
}
