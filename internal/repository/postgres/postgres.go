// Package postgres implements repository.UserRepository on PostgreSQL through
// database/sql and the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sakif/chatapp/internal/apperror"
	"github.com/sakif/chatapp/internal/model"
)

// SQLSTATE codes the store classifies.
const (
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
	classDataException      = "22"
)

// Store is the Postgres-backed user store. It only borrows the pool; the
// caller that opened it closes it.
type Store struct {
	db     *sql.DB
	hasher model.PasswordHasher
}

// New returns a Store over an already opened pool.
func New(db *sql.DB, hasher model.PasswordHasher) *Store {
	return &Store{db: db, hasher: hasher}
}

// Open opens a pgx-backed pool for dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening pool: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}
	return db, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// detailKeyPattern pulls the column list out of a unique violation detail:
// `Key (username)=(alice) already exists.`
var detailKeyPattern = regexp.MustCompile(`Key \(([^)]+)\)=`)

// classify maps a driver error to an *apperror.Error. Errors that did not
// come from the server are reported as KindDatabase.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperror.Database(err)
	}

	switch {
	case pgErr.Code == codeUniqueViolation:
		return apperror.UniqueViolation(pgErr.TableName, pgErr.ConstraintName, uniqueColumns(pgErr), err)
	case pgErr.Code == codeNotNullViolation:
		return apperror.NotNullViolation(pgErr.TableName, pgErr.ColumnName, err)
	case pgErr.Code == codeForeignKeyViolation:
		return apperror.ForeignKeyViolation(pgErr.TableName, pgErr.ConstraintName, err)
	case pgErr.Code == codeCheckViolation:
		return apperror.CheckViolation(pgErr.TableName, pgErr.ConstraintName, err)
	case strings.HasPrefix(pgErr.Code, classDataException):
		return apperror.InvalidData(err)
	default:
		return apperror.Database(err)
	}
}

func uniqueColumns(pgErr *pgconn.PgError) []string {
	m := detailKeyPattern.FindStringSubmatch(pgErr.Detail)
	if m == nil {
		if pgErr.ColumnName != "" {
			return []string{pgErr.ColumnName}
		}
		return nil
	}

	cols := strings.Split(m[1], ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}
