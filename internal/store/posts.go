package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/scribe/internal/blog"
)

const postColumns = `p.id, p.author_id, p.title, p.slug, p.content, p.excerpt,
	p.published, p.published_at, p.created_at, p.updated_at`

// CreatePost inserts a post. A duplicate (author_id, slug) is reported as
// blog.ErrConflict.
func (s *Store) CreatePost(ctx context.Context, p *blog.Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts
		(id, author_id, title, slug, content, excerpt, published, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		p.AuthorID,
		p.Title,
		p.Slug,
		p.Content,
		nullableString(p.Excerpt),
		p.Published,
		nullableNanos(p.PublishedAt),
		toNanos(p.CreatedAt),
		toNanos(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create post: %w", classify(err))
	}
	return nil
}

// UpdatePost overwrites the mutable fields of a post. author_id and
// created_at are never changed.
func (s *Store) UpdatePost(ctx context.Context, p *blog.Post) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET title = ?, slug = ?, content = ?, excerpt = ?,
		    published = ?, published_at = ?, updated_at = ?
		WHERE id = ?
	`,
		p.Title,
		p.Slug,
		p.Content,
		nullableString(p.Excerpt),
		p.Published,
		nullableNanos(p.PublishedAt),
		toNanos(p.UpdatedAt),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", classify(err))
	}
	return expectOneRow(res)
}

// DeletePost removes a post.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectOneRow(res)
}

// PostByID retrieves a post by id.
func (s *Store) PostByID(ctx context.Context, id string) (*blog.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, id)
	return scanPost(row)
}

// PostBySlug retrieves a post by author and slug.
func (s *Store) PostBySlug(ctx context.Context, authorID, slug string) (*blog.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE p.author_id = ? AND p.slug = ?`,
		authorID, slug)
	return scanPost(row)
}

// SlugExists reports whether authorID already uses slug on a post other
// than excludeID.
func (s *Store) SlugExists(ctx context.Context, authorID, slug, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM posts WHERE author_id = ? AND slug = ? AND id != ?
		)
	`, authorID, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("slug exists: %w", err)
	}
	return exists, nil
}

// ListPostsByAuthor lists an author's posts.
// Published-only listings are ordered by published_at DESC, otherwise by
// updated_at DESC; ties break on id for deterministic results.
func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string, opts blog.ListOptions) ([]blog.Post, error) {
	where := []string{"p.author_id = ?"}
	args := []any{authorID}
	where, args = appendFilters(where, args, opts)

	query := `SELECT ` + postColumns + ` FROM posts p WHERE ` + strings.Join(where, " AND ") +
		orderBy(opts) + limitClause(opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// ListPublished lists published posts of all authors with author details,
// newest publish first.
func (s *Store) ListPublished(ctx context.Context, opts blog.ListOptions) ([]blog.AuthoredPost, error) {
	opts.PublishedOnly = true
	where, args := appendFilters(nil, nil, opts)

	query := `SELECT ` + postColumns + `, u.username, u.display_name, u.avatar_url
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE ` + strings.Join(where, " AND ") + orderBy(opts) + limitClause(opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func appendFilters(where []string, args []any, opts blog.ListOptions) ([]string, []any) {
	if opts.PublishedOnly {
		where = append(where, "p.published = 1")
	}
	if opts.Query != "" {
		pattern := "%" + escapeLike(strings.ToLower(opts.Query)) + "%"
		where = append(where, `(ulower(p.title) LIKE ? ESCAPE '\' OR ulower(p.content) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	return where, args
}

func orderBy(opts blog.ListOptions) string {
	if opts.PublishedOnly {
		return ` ORDER BY p.published_at DESC, p.id ASC`
	}
	return ` ORDER BY p.updated_at DESC, p.id ASC`
}

func limitClause(opts blog.ListOptions) string {
	if opts.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", opts.Limit)
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*blog.Post, error) {
	return scanPostWith(row)
}

// scanPostWith scans the post columns followed by extra destinations.
func scanPostWith(row rowScanner, extra ...any) (*blog.Post, error) {
	var (
		p           blog.Post
		excerpt     sql.NullString
		publishedAt sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	dest := []any{
		&p.ID, &p.AuthorID, &p.Title, &p.Slug, &p.Content, &excerpt,
		&p.Published, &publishedAt, &createdAt, &updatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, classify(err)
	}

	if excerpt.Valid {
		e := excerpt.String
		p.Excerpt = &e
	}
	if publishedAt.Valid {
		at := fromNanos(publishedAt.Int64)
		p.PublishedAt = &at
	}
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return &p, nil
}
