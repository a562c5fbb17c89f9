// Package userstore implements authcore.UserStore on a SQL database through
// bun. SQLite (modernc.org/sqlite) serves development and tests; PostgreSQL
// (pgx stdlib driver) serves production.
//
// Every mutation that changes what a user's tokens or permissions may do
// bumps auth_version with "auth_version = auth_version + 1" in the same
// transaction as the change.
package userstore
