// Package pgstore is the PostgreSQL implementation of blog.Repository.
//
// It mirrors internal/store: the same tables, the same uniqueness
// constraints, the same error mapping. Timestamps are TIMESTAMPTZ and are
// returned in UTC.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/scribe/internal/blog"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DefaultMaxConns caps the pool size.
const DefaultMaxConns = 10

// Store is a blog.Repository backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ blog.Repository = (*Store)(nil)

// Open connects to dsn and applies the schema. The schema is idempotent.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns == 0 || cfg.MaxConns > DefaultMaxConns {
		cfg.MaxConns = DefaultMaxConns
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	cfg.ConnConfig.StatementCacheCapacity = 128
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET TIME ZONE 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases all pooled connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Pool exposes the pool for direct queries.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return blog.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", blog.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func expectOneRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return blog.ErrNotFound
	}
	return nil
}

func emptyAsNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

const userColumns = `id, username, email, display_name, bio, avatar_url, created_at`

func (s *Store) CreateUser(ctx context.Context, u *blog.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, emptyAsNil(u.Email), u.DisplayName, u.Bio, u.AvatarURL, u.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create user: %w", classify(err))
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*blog.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*blog.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("username exists: %w", err)
	}
	return exists, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOneRow(tag)
}

func scanUser(row pgx.Row) (*blog.User, error) {
	var (
		u     blog.User
		email *string
	)
	if err := row.Scan(&u.ID, &u.Username, &email, &u.DisplayName, &u.Bio, &u.AvatarURL, &u.CreatedAt); err != nil {
		return nil, classify(err)
	}
	if email != nil {
		u.Email = *email
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

const postColumns = `p.id, p.author_id, p.title, p.slug, p.content, p.excerpt,
	p.published, p.published_at, p.created_at, p.updated_at`

func (s *Store) CreatePost(ctx context.Context, p *blog.Post) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO posts
		(id, author_id, title, slug, content, excerpt, published, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		p.ID, p.AuthorID, p.Title, p.Slug, p.Content, p.Excerpt,
		p.Published, utcPtr(p.PublishedAt), p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create post: %w", classify(err))
	}
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, p *blog.Post) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE posts
		SET title = $1, slug = $2, content = $3, excerpt = $4,
		    published = $5, published_at = $6, updated_at = $7
		WHERE id = $8
	`,
		p.Title, p.Slug, p.Content, p.Excerpt,
		p.Published, utcPtr(p.PublishedAt), p.UpdatedAt.UTC(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", classify(err))
	}
	return expectOneRow(tag)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectOneRow(tag)
}

func (s *Store) PostByID(ctx context.Context, id string) (*blog.Post, error) {
	return scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = $1`, id))
}

func (s *Store) PostBySlug(ctx context.Context, authorID, slug string) (*blog.Post, error) {
	return scanPost(s.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE p.author_id = $1 AND p.slug = $2`,
		authorID, slug))
}

func (s *Store) SlugExists(ctx context.Context, authorID, slug, excludeID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM posts WHERE author_id = $1 AND slug = $2 AND id <> $3
		)
	`, authorID, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("slug exists: %w", err)
	}
	return exists, nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string, opts blog.ListOptions) ([]blog.Post, error) {
	q := newQuery()
	q.where("p.author_id = " + q.arg(authorID))
	q.filter(opts)

	rows, err := s.pool.Query(ctx,
		`SELECT `+postColumns+` FROM posts p`+q.sql(opts), q.args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []blog.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func (s *Store) ListPublished(ctx context.Context, opts blog.ListOptions) ([]blog.AuthoredPost, error) {
	opts.PublishedOnly = true
	q := newQuery()
	q.filter(opts)

	rows, err := s.pool.Query(ctx, `SELECT `+postColumns+`, u.username, u.display_name, u.avatar_url
		FROM posts p
		JOIN users u ON u.id = p.author_id`+q.sql(opts), q.args...)
	if err != nil {
		return nil, fmt.Errorf("query published posts: %w", err)
	}
	defer rows.Close()

	posts := []blog.AuthoredPost{}
	for rows.Next() {
		var ap blog.AuthoredPost
		p, err := scanPostWith(rows, &ap.Author.Username, &ap.Author.DisplayName, &ap.Author.AvatarURL)
		if err != nil {
			return nil, err
		}
		ap.Post = *p
		posts = append(posts, ap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate published posts: %w", err)
	}
	return posts, nil
}

// query accumulates WHERE clauses with numbered placeholders.
type query struct {
	conds []string
	args  []any
}

func newQuery() *query { return &query{} }

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) where(cond string) { q.conds = append(q.conds, cond) }

func (q *query) filter(opts blog.ListOptions) {
	if opts.PublishedOnly {
		q.where("p.published")
	}
	if opts.Query != "" {
		ph := q.arg("%" + escapeLike(opts.Query) + "%")
		q.where("(p.title ILIKE " + ph + " OR p.content ILIKE " + ph + ")")
	}
}

func (q *query) sql(opts blog.ListOptions) string {
	var b strings.Builder
	if len(q.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.conds, " AND "))
	}
	if opts.PublishedOnly {
		b.WriteString(" ORDER BY p.published_at DESC, p.id ASC")
	} else {
		b.WriteString(" ORDER BY p.updated_at DESC, p.id ASC")
	}
	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
	}
	return b.String()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanPost(row pgx.Row) (*blog.Post, error) {
	return scanPostWith(row)
}

func scanPostWith(row pgx.Row, extra ...any) (*blog.Post, error) {
	var p blog.Post
	dest := []any{
		&p.ID, &p.AuthorID, &p.Title, &p.Slug, &p.Content, &p.Excerpt,
		&p.Published, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, classify(err)
	}
	p.PublishedAt = utcPtr(p.PublishedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
