// Package sqlstore persists hooks and captured requests in a relational
// store via database/sql. Two drivers are supported, matching the config
// file's db.driver values: sqlite (modernc.org/sqlite, cgo-free) and
// postgres (lib/pq). Every operation is a single parameterized statement.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Pragmas are applied through the sqlite DSN; ignored for postgres.
	Pragmas map[string]string
}

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects, applies pool settings, verifies the connection and creates
// the schema when it does not exist yet.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	var db *sql.DB
	var err error
	switch driver {
	case DriverSQLite:
		db, err = sql.Open("sqlite", sqliteDSN(cfg.DSN, cfg.Pragmas))
	case DriverPostgres:
		db, err = sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	// An in-memory sqlite database exists per connection; the pool must not
	// grow past one or later connections see an empty schema.
	if driver == DriverSQLite && strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	s := &Store{db: db, driver: driver}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s store: %w", driver, err)
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Hooks() *HooksRepo {
	return &HooksRepo{store: s}
}

func (s *Store) Requests() *RequestsRepo {
	return &RequestsRepo{store: s}
}

func (s *Store) initSchema(ctx context.Context) error {
	stmts := sqliteSchema
	if s.driver == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS webhooks (
		id TEXT PRIMARY KEY,
		owner TEXT,
		description TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		total_request_count INTEGER NOT NULL DEFAULT 0,
		is_redirect INTEGER NOT NULL DEFAULT 0,
		custom_js TEXT,
		salt TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		hook_id TEXT NOT NULL,
		body TEXT NOT NULL,
		headers TEXT NOT NULL,
		ip TEXT,
		method TEXT NOT NULL,
		is_cron INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_hook_created ON requests (hook_id, created_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS webhooks (
		id TEXT PRIMARY KEY,
		owner TEXT,
		description TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		total_request_count BIGINT NOT NULL DEFAULT 0,
		is_redirect BOOLEAN NOT NULL DEFAULT FALSE,
		custom_js TEXT,
		salt TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		hook_id TEXT NOT NULL,
		body TEXT NOT NULL,
		headers TEXT NOT NULL,
		ip TEXT,
		method TEXT NOT NULL,
		is_cron BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_hook_created ON requests (hook_id, created_at)`,
}

// rebind rewrites ? placeholders to $n for postgres. Queries in this package
// are written in sqlite's placeholder style.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sqliteDSN(dsn string, pragmas map[string]string) string {
	if len(pragmas) == 0 {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dsn)
	for k, v := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(k)
		b.WriteString("(")
		b.WriteString(v)
		b.WriteString(")")
		sep = "&"
	}
	return b.String()
}

// Timestamps are stored as fixed-width UTC text so lexical order matches
// chronological order in both dialects.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullablePtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptrFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
