package userstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
)

const maxPageSize = 100

// likeEscaper neutralizes LIKE wildcards in a search term.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ListUsers returns users ordered by (created_at, id). The cursor encodes the
// last row of the previous page.
func (s *Store) ListUsers(ctx context.Context, q authcore.ListUsersQuery) (authcore.UserPage, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var models []userModel
	sel := s.db.NewSelect().Model(&models).
		Order("u.created_at ASC", "u.id ASC").
		Limit(limit + 1)
	if q.Banned != nil {
		sel = sel.Where("u.banned = ?", *q.Banned)
	}
	if q.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q.Search)) + "%"
		sel = sel.Where("(LOWER(u.email) LIKE ? ESCAPE '!' OR LOWER(u.username) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if q.Cursor != "" {
		at, id, err := decodeCursor(q.Cursor)
		if err != nil {
			return authcore.UserPage{}, err
		}
		sel = sel.Where("(u.created_at > ? OR (u.created_at = ? AND u.id > ?))", at, at, id)
	}
	if err := sel.Scan(ctx); err != nil {
		return authcore.UserPage{}, fmt.Errorf("list users: %w", err)
	}

	var next string
	if len(models) > limit {
		models = models[:limit]
		last := models[len(models)-1]
		next = encodeCursor(last.CreatedAt, last.ID)
	}

	users, err := hydrate(ctx, s.db, models)
	if err != nil {
		return authcore.UserPage{}, err
	}
	if users == nil {
		users = []authcore.User{}
	}
	return authcore.UserPage{Users: users, NextCursor: next}, nil
}

func encodeCursor(at time.Time, id string) string {
	raw := at.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(c string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(c)
	if err != nil {
		return time.Time{}, "", authcore.ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", authcore.ErrInvalidCursor
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", authcore.ErrInvalidCursor
	}
	return at.UTC(), id, nil
}
