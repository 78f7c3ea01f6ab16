package blog

import "context"

// ListOptions narrows post listings.
type ListOptions struct {
	// PublishedOnly restricts results to published posts, newest publish first.
	// Otherwise posts are ordered by UpdatedAt, newest first.
	PublishedOnly bool

	// Query filters by case-insensitive substring of title or content.
	Query string

	// Limit caps the number of results; zero means no limit.
	Limit int
}

// Repository is the storage collaborator.
//
// Implementations must enforce uniqueness of users.username and of
// posts (author_id, slug) and report violations as ErrConflict. Lookups of
// missing rows return ErrNotFound. Listing methods return empty slices, not
// nil, when nothing matches.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	DeleteUser(ctx context.Context, id string) error

	CreatePost(ctx context.Context, p *Post) error
	UpdatePost(ctx context.Context, p *Post) error
	DeletePost(ctx context.Context, id string) error
	PostByID(ctx context.Context, id string) (*Post, error)
	PostBySlug(ctx context.Context, authorID, slug string) (*Post, error)

	// SlugExists reports whether authorID has a post with slug other than
	// the post identified by excludeID (empty excludes nothing).
	SlugExists(ctx context.Context, authorID, slug, excludeID string) (bool, error)

	ListPostsByAuthor(ctx context.Context, authorID string, opts ListOptions) ([]Post, error)

	// ListPublished lists published posts of all authors, newest publish first.
	ListPublished(ctx context.Context, opts ListOptions) ([]AuthoredPost, error)
}
