// Package sqlite implements repository.UserRepository on an embedded SQLite
// database.
//
// WHEN IS THIS USED?
// Production runs on Postgres. SQLite serves two other jobs:
//   - local development without a database server (DATABASE_URL=sqlite:chat.db)
//   - isolated tests: ":memory:" gives every test its own empty database
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain
// is needed. sqlx sits on top of database/sql to scan rows straight into
// the db-tagged fields of model.User.
//
// SCHEMA:
// The tables are created by goose from the embedded migrations/ directory.
// goose records applied versions in goose_db_version, so reopening an
// existing file only applies what is new.
package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/chatapp/internal/apperror"
	"github.com/sakif/chatapp/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB is the SQLite-backed user store.
type DB struct {
	conn   *sqlx.DB
	hasher model.PasswordHasher
}

// New opens (or creates) the database at dbPath and brings its schema up to
// date.
//
// dbPath examples:
//   - "data/chat.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (lost on Close)
func New(ctx context.Context, dbPath string, hasher model.PasswordHasher) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database. Pinning
	// the pool to one connection keeps the schema and the data together.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress. Foreign keys are
	// off by default in SQLite and must be enabled per connection.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn, hasher: hasher}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate applies the embedded goose migrations. goose.Provider holds its
// own state, unlike the package-level goose.Up.
func (db *DB) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn.DB, fsys)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// constraintPattern matches SQLite's constraint messages, e.g.
//
//	UNIQUE constraint failed: users.username
//	NOT NULL constraint failed: users.password
//	CHECK constraint failed: username_length
var constraintPattern = regexp.MustCompile(`(UNIQUE|NOT NULL|CHECK|FOREIGN KEY) constraint failed(?:: ([\w.]+(?:, [\w.]+)*))?`)

// classify maps a driver error to an *apperror.Error using SQLite's extended
// result codes, falling back to the message text when only the primary code
// is available.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return apperror.Database(err)
	}

	code := sqlErr.Code()
	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return classifyConstraint(code, err)
	case sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_TOOBIG, sqlite3.SQLITE_RANGE:
		return apperror.InvalidData(err)
	default:
		return apperror.Database(err)
	}
}

func classifyConstraint(code int, err error) error {
	var kind, subject string
	if m := constraintPattern.FindStringSubmatch(err.Error()); m != nil {
		kind, subject = m[1], m[2]
	}

	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || kind == "UNIQUE":
		table, columns := splitQualified(subject)
		return apperror.UniqueViolation(table, "", columns, err)
	case code == sqlite3.SQLITE_CONSTRAINT_NOTNULL || kind == "NOT NULL":
		table, columns := splitQualified(subject)
		column := ""
		if len(columns) > 0 {
			column = columns[0]
		}
		return apperror.NotNullViolation(table, column, err)
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY || kind == "FOREIGN KEY":
		return apperror.ForeignKeyViolation("", "", err)
	case code == sqlite3.SQLITE_CONSTRAINT_CHECK || kind == "CHECK":
		return apperror.CheckViolation("", subject, err)
	default:
		return apperror.Database(err)
	}
}

// splitQualified turns "users.username, users.email" into
// ("users", ["username", "email"]).
func splitQualified(subject string) (string, []string) {
	if subject == "" {
		return "", nil
	}

	var (
		table   string
		columns []string
	)
	for _, part := range strings.Split(subject, ", ") {
		t, c, found := strings.Cut(part, ".")
		if !found {
			columns = append(columns, part)
			continue
		}
		table = t
		columns = append(columns, c)
	}
	return table, columns
}
