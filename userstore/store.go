package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultQueryTimeout = 5 * time.Second
)

// Store is a bun-backed authcore.UserStore.
type Store struct {
	db           *bun.DB
	logger       *zap.Logger
	queryTimeout time.Duration
	now          func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for slow or failed maintenance work.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueryTimeout bounds every store call. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Store) { s.queryTimeout = d }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to driver ("sqlite" or "postgres") at dsn and wraps the
// connection in the matching bun dialect. The schema is not touched; call
// CreateSchema and Seed from a migration step.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	driverName := driver
	switch driver {
	case DriverSQLite:
	case DriverPostgres:
		// pgx stdlib registers itself as "pgx".
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer, and every connection to ":memory:" is its
	// own database.
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	var db *bun.DB
	if driver == DriverPostgres {
		db = bun.NewDB(sqlDB, pgdialect.New())
	} else {
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	}

	return New(db, opts...), nil
}

// New wraps an existing bun database.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:           db,
		logger:       zap.NewNop(),
		queryTimeout: defaultQueryTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying bun database.
func (s *Store) DB() *bun.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// timestamp is UTC at microsecond precision so that SQLite text comparison
// and Postgres timestamptz agree on ordering.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc sqlite: "constraint failed: UNIQUE constraint failed: users.email (2067)"
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
