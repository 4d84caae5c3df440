// Package migrate applies ordered SQL files to Postgres and records which
// ones ran.
//
// Two independent sets are tracked, each in its own table:
//
//	schema files → schema_migrations
//	seed files   → seed_migrations
//
// A file's version is its name without ".sql". Files run in name order, each
// inside its own transaction together with the insert of its version, so a
// failed file leaves neither partial changes nor a tracking row behind.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	SchemaTable = "schema_migrations"
	SeedTable   = "seed_migrations"
)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Runner applies the schema and seed sets to one database.
type Runner struct {
	db     *sqlx.DB
	schema fs.FS
	seeds  fs.FS
	logger *slog.Logger
}

// NewRunner returns a Runner. schema and seeds hold *.sql files at their
// root; logger may be nil.
func NewRunner(db *sqlx.DB, schema, seeds fs.FS, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{db: db, schema: schema, seeds: seeds, logger: logger}
}

// Open connects with the lib/pq driver.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: opening database: %w", err)
	}
	return db, nil
}

// Migrate applies every pending schema file and returns the versions it
// applied, in order.
func (r *Runner) Migrate(ctx context.Context) ([]string, error) {
	return r.apply(ctx, r.schema, SchemaTable)
}

// Seed applies every pending seed file.
func (r *Runner) Seed(ctx context.Context) ([]string, error) {
	return r.apply(ctx, r.seeds, SeedTable)
}

func (r *Runner) apply(ctx context.Context, fsys fs.FS, table string) ([]string, error) {
	if _, err := r.db.ExecContext(ctx, createTrackingTable(table)); err != nil {
		return nil, fmt.Errorf("migrate: creating %s: %w", table, err)
	}

	applied, err := r.appliedVersions(ctx, table)
	if err != nil {
		return nil, err
	}

	files, err := sqlFiles(fsys)
	if err != nil {
		return nil, err
	}
	r.logger.Info("found sql files", slog.String("table", table), slog.Int("count", len(files)))

	var done []string
	for _, file := range files {
		version := versionOf(file)
		if _, ok := applied[version]; ok {
			r.logger.Debug("skipping applied file", slog.String("file", file))
			continue
		}

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return done, fmt.Errorf("migrate: reading %s: %w", file, err)
		}

		if err := r.applyFile(ctx, table, version, string(body)); err != nil {
			return done, fmt.Errorf("migrate: applying %s: %w", file, err)
		}
		r.logger.Info("applied", slog.String("file", file))
		done = append(done, version)
	}

	if len(done) == 0 {
		r.logger.Info("database is up to date", slog.String("table", table))
	}
	return done, nil
}

func (r *Runner) applyFile(ctx context.Context, table, version, body string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return err
	}

	insert := r.db.Rebind("INSERT INTO " + pq.QuoteIdentifier(table) + " (version) VALUES (?)")
	if _, err := tx.ExecContext(ctx, insert, version); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

type appliedRow struct {
	Version   string    `db:"version"`
	AppliedAt time.Time `db:"applied_at"`
}

// appliedVersions maps each recorded version to its applied_at. A missing
// tracking table means nothing has been applied.
func (r *Runner) appliedVersions(ctx context.Context, table string) (map[string]time.Time, error) {
	var rows []appliedRow
	query := "SELECT version, applied_at FROM " + pq.QuoteIdentifier(table) + " ORDER BY version"
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		if isUndefinedTable(err) {
			return map[string]time.Time{}, nil
		}
		return nil, fmt.Errorf("migrate: reading %s: %w", table, err)
	}

	out := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		out[row.Version] = row.AppliedAt
	}
	return out, nil
}

func createTrackingTable(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + pq.QuoteIdentifier(table) + ` (
    version VARCHAR(255) PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT NOW()
)`
}

// sqlFiles lists the *.sql files at the root of fsys in name order.
func sqlFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("migrate: listing files: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".sql" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func versionOf(file string) string {
	return strings.TrimSuffix(file, ".sql")
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == undefinedTable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTable
	}
	return false
}
