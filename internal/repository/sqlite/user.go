package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/chatapp/internal/model"
	"github.com/sakif/chatapp/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create validates u, runs its insert hook and inserts the row.
//
// NAMED PARAMETERS:
// sqlx binds :username, :email, ... from the db tags of model.User, so the
// column list and the struct cannot drift apart silently.
func (db *DB) Create(ctx context.Context, u *model.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := u.BeforeInsert(db.hasher); err != nil {
		return fmt.Errorf("sqlite: preparing user: %w", err)
	}

	res, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO users (username, email, password, token)
		 VALUES (:username, :email, :password, :token)`,
		u,
	)
	if err != nil {
		return classify(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading inserted userid: %w", err)
	}
	u.ID = id
	return nil
}

// FindByLogin returns the user whose username or email equals identifier.
// Returns (nil, nil) when nobody matches.
func (db *DB) FindByLogin(ctx context.Context, identifier string) (*model.User, error) {
	return db.findOne(ctx,
		`SELECT userid, username, email, password, token FROM users
		 WHERE username = ? OR email = ?
		 ORDER BY userid
		 LIMIT 1`,
		identifier, identifier,
	)
}

// FindByToken returns the user holding token, or (nil, nil).
func (db *DB) FindByToken(ctx context.Context, token string) (*model.User, error) {
	return db.findOne(ctx,
		`SELECT userid, username, email, password, token FROM users
		 WHERE token = ?`,
		token,
	)
}

func (db *DB) findOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var u model.User
	if err := db.conn.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &u, nil
}
