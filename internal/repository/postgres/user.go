package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/chatapp/internal/model"
	"github.com/sakif/chatapp/internal/repository"
)

var _ repository.UserRepository = (*Store)(nil)

const userColumns = `userid, username, email, password, token`

// Create validates u, runs its insert hook and inserts the row. The hook
// runs once per call, after validation and before the statement is sent.
func (s *Store) Create(ctx context.Context, u *model.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := u.BeforeInsert(s.hasher); err != nil {
		return fmt.Errorf("postgres: preparing user: %w", err)
	}

	query :=
		`INSERT INTO users (username, email, password, token)
		 VALUES ($1, $2, $3, $4)
		 RETURNING userid`

	err := s.db.QueryRowContext(ctx, query, u.Username, u.Email, u.Password, u.Token).Scan(&u.ID)
	if err != nil {
		return classify(err)
	}
	return nil
}

// FindByLogin looks the identifier up as username or email in one query.
func (s *Store) FindByLogin(ctx context.Context, identifier string) (*model.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE username = $1 OR email = $1
		 ORDER BY userid
		 LIMIT 1`

	return s.findOne(ctx, query, identifier)
}

// FindByToken looks a user up by exact bearer token.
func (s *Store) FindByToken(ctx context.Context, token string) (*model.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE token = $1`

	return s.findOne(ctx, query, token)
}

func (s *Store) findOne(ctx context.Context, query string, arg string) (*model.User, error) {
	var (
		u     model.User
		token sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}
	u.Token = token.String
	return &u, nil
}
