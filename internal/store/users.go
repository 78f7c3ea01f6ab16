package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/scribe/internal/blog"
)

const userColumns = `id, username, email, display_name, bio, avatar_url, created_at`

// CreateUser inserts a user. A duplicate username or email is reported as
// blog.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *blog.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID,
		u.Username,
		emptyAsNull(u.Email),
		u.DisplayName,
		u.Bio,
		u.AvatarURL,
		toNanos(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", classify(err))
	}
	return nil
}

// UserByID retrieves a user by id.
func (s *Store) UserByID(ctx context.Context, id string) (*blog.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// UserByUsername retrieves a user by username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*blog.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// UsernameExists reports whether username is taken.
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("username exists: %w", err)
	}
	return exists, nil
}

// DeleteUser removes a user and, by cascade, their posts.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOneRow(res)
}

func scanUser(row *sql.Row) (*blog.User, error) {
	var (
		u         blog.User
		email     sql.NullString
		createdAt int64
	)
	err := row.Scan(&u.ID, &u.Username, &email, &u.DisplayName, &u.Bio, &u.AvatarURL, &createdAt)
	if err != nil {
		return nil, classify(err)
	}
	u.Email = email.String
	u.CreatedAt = fromNanos(createdAt)
	return &u, nil
}

// expectOneRow converts "no rows affected" into blog.ErrNotFound.
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return blog.ErrNotFound
	}
	return nil
}
