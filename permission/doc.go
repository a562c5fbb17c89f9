// Package permission holds the static role/permission model.
//
// A [Catalog] lists permissions, roles with the permissions they grant, and a
// role implication table. [Catalog.Compile] validates it into a frozen
// [Registry], [RoleManager] and [Implications] closure.
//
// Nothing here knows about users or tokens. Per-user assignments live in the
// user store and are resolved by the engine.
package permission
