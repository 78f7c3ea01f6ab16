package blog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/scribe/internal/auth"
	"github.com/roach88/scribe/internal/content"
)

const (
	// DefaultFeedLimit is the number of posts rendered into a feed.
	DefaultFeedLimit = 20

	// ExploreLimit caps explore/search results.
	ExploreLimit = 50

	// FeaturedLimit is the number of posts on the home page.
	FeaturedLimit = 6
)

// Service implements the post mutation API and the public read surfaces.
//
// Service holds no per-request state; it is safe for concurrent use when
// its Repository is.
type Service struct {
	repo   Repository
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator overrides the identifier generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service backed by repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		clock:  SystemClock{},
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is the payload of Create.
type CreateInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Publish bool   `json:"publish"`
}

// UpdateInput is the payload of Update. A nil Publish keeps the current
// publication state.
type UpdateInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Publish *bool  `json:"publish,omitempty"`
}

// validateTitle rejects blank titles and titles without any slug-able
// character, returning the base slug otherwise.
func validateTitle(title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", &ValidationError{Field: "title", Message: "Title is required"}
	}
	base := content.Slugify(title)
	if base == "" {
		return "", &ValidationError{Field: "title", Message: "Title must contain at least one letter or digit"}
	}
	return base, nil
}

// Create stores a new post owned by caller.
//
// The post starts as a draft unless in.Publish is set, in which case it is
// published immediately with PublishedAt set to now.
func (s *Service) Create(ctx context.Context, caller auth.Identity, in CreateInput) (*Post, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthorized
	}
	base, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	p := &Post{
		ID:        s.ids.Generate(),
		AuthorID:  caller.UserID,
		Title:     in.Title,
		Content:   in.Content,
		Excerpt:   content.Excerpt(in.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	publish := in.Publish
	applyPublication(p, &publish, now)

	if err := s.writeWithUniqueSlug(ctx, p, base, s.repo.CreatePost); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.logger.Info("post created",
		"post_id", p.ID, "author_id", p.AuthorID, "slug", p.Slug, "state", StateOf(p))
	return p, nil
}

// ownedPost loads a post and checks that caller owns it.
func (s *Service) ownedPost(ctx context.Context, caller auth.Identity, postID string) (*Post, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthorized
	}
	p, err := s.repo.PostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(p.AuthorID) {
		return nil, ErrForbidden
	}
	return p, nil
}

// Get returns one of caller's posts, drafts included.
func (s *Service) Get(ctx context.Context, caller auth.Identity, postID string) (*Post, error) {
	p, err := s.ownedPost(ctx, caller, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// Update replaces title and content of one of caller's posts.
//
// The slug is regenerated only when the title differs from the stored
// title. The excerpt is always recomputed. Publication follows
// applyPublication.
func (s *Service) Update(ctx context.Context, caller auth.Identity, postID string, in UpdateInput) (*Post, error) {
	p, err := s.ownedPost(ctx, caller, postID)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	base, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	renamed := in.Title != p.Title

	now := s.clock.Now().UTC()
	p.Title = in.Title
	p.Content = in.Content
	p.Excerpt = content.Excerpt(in.Content)
	p.UpdatedAt = now
	applyPublication(p, in.Publish, now)

	if renamed {
		err = s.writeWithUniqueSlug(ctx, p, base, s.repo.UpdatePost)
	} else {
		err = s.repo.UpdatePost(ctx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	s.logger.Info("post updated",
		"post_id", p.ID, "slug", p.Slug, "renamed", renamed, "state", StateOf(p))
	return p, nil
}

// Delete removes one of caller's posts regardless of its state.
func (s *Service) Delete(ctx context.Context, caller auth.Identity, postID string) error {
	p, err := s.ownedPost(ctx, caller, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := s.repo.DeletePost(ctx, p.ID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	s.logger.Info("post deleted", "post_id", p.ID, "author_id", p.AuthorID)
	return nil
}

// ListMine lists all of caller's posts, most recently updated first.
func (s *Service) ListMine(ctx context.Context, caller auth.Identity) ([]Post, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthorized
	}
	posts, err := s.repo.ListPostsByAuthor(ctx, caller.UserID, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Me returns the caller's own user record.
func (s *Service) Me(ctx context.Context, caller auth.Identity) (*User, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthorized
	}
	return s.repo.UserByID(ctx, caller.UserID)
}

// CleanUsername strips an optional leading "@" from a handle.
func CleanUsername(handle string) string {
	return strings.TrimPrefix(handle, "@")
}

// UserByUsername looks up a user by handle; a leading "@" is ignored.
func (s *Service) UserByUsername(ctx context.Context, handle string) (*User, error) {
	return s.repo.UserByUsername(ctx, CleanUsername(handle))
}

// PublicProfile returns a user and all of their published posts.
func (s *Service) PublicProfile(ctx context.Context, handle string) (*Profile, error) {
	u, err := s.UserByUsername(ctx, handle)
	if err != nil {
		return nil, err
	}
	posts, err := s.repo.ListPostsByAuthor(ctx, u.ID, ListOptions{PublishedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return &Profile{User: u, Posts: posts}, nil
}

// PublicPost returns a published post by author handle and slug.
// Drafts are reported as ErrNotFound.
func (s *Service) PublicPost(ctx context.Context, handle, slug string) (*User, *Post, error) {
	u, err := s.UserByUsername(ctx, handle)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.repo.PostBySlug(ctx, u.ID, slug)
	if err != nil {
		return nil, nil, err
	}
	if !p.Published {
		return nil, nil, ErrNotFound
	}
	return u, p, nil
}

// Explore searches published posts of all authors. An empty query lists
// the latest posts.
func (s *Service) Explore(ctx context.Context, query string) ([]AuthoredPost, error) {
	posts, err := s.repo.ListPublished(ctx, ListOptions{
		PublishedOnly: true,
		Query:         strings.TrimSpace(query),
		Limit:         ExploreLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("explore: %w", err)
	}
	return posts, nil
}

// Featured lists the latest published posts for the home page.
// Storage failures degrade to an empty list.
func (s *Service) Featured(ctx context.Context) []AuthoredPost {
	posts, err := s.repo.ListPublished(ctx, ListOptions{PublishedOnly: true, Limit: FeaturedLimit})
	if err != nil {
		s.logger.Warn("featured posts unavailable", "error", err)
		return []AuthoredPost{}
	}
	return posts
}

// FeedPosts returns the user identified by handle and up to limit of their
// published posts, newest publish first.
//
// A missing user is ErrNotFound. Failure to list posts degrades to an empty
// list so the feed still renders.
func (s *Service) FeedPosts(ctx context.Context, handle string, limit int) (*User, []Post, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	u, err := s.UserByUsername(ctx, handle)
	if err != nil {
		return nil, nil, err
	}
	posts, err := s.repo.ListPostsByAuthor(ctx, u.ID, ListOptions{PublishedOnly: true, Limit: limit})
	if err != nil {
		s.logger.Warn("feed posts unavailable", "username", u.Username, "error", err)
		return u, []Post{}, nil
	}
	return u, posts, nil
}

// NewUser is the payload of CreateUser.
type NewUser struct {
	// Username is the requested handle. When empty it is derived from
	// Email, then DisplayName.
	Username    string
	Email       string
	DisplayName string
	Bio         string
	AvatarURL   string
}

// CreateUser creates an account with a unique username.
//
// The handle is normalized to [a-z0-9]. If taken or reserved, a counter is
// appended (alice, alice1, alice2, …). A collision at write time is
// retried once.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	source := in.Username
	if source == "" {
		source = in.Email
	}
	if source == "" {
		source = in.DisplayName
	}
	base := content.Username(source)
	if base == "" {
		return nil, &ValidationError{Field: "username", Message: "Username is required"}
	}

	u := &User{
		ID:          s.ids.Generate(),
		Email:       strings.TrimSpace(in.Email),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Bio:         in.Bio,
		AvatarURL:   in.AvatarURL,
		CreatedAt:   s.clock.Now().UTC(),
	}

	username, n, err := s.resolveUsername(ctx, base, 0)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.Username = username

	err = s.repo.CreateUser(ctx, u)
	if errors.Is(err, ErrConflict) {
		if u.Username, _, err = s.resolveUsername(ctx, base, n+1); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		err = s.repo.CreateUser(ctx, u)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// reservedUsernames are first path segments taken by static routes; a
// profile under them would be unreachable.
var reservedUsernames = map[string]bool{
	"api":     true,
	"healthz": true,
}

// IsReservedUsername reports whether name collides with a static route.
func IsReservedUsername(name string) bool {
	return reservedUsernames[name]
}

func (s *Service) resolveUsername(ctx context.Context, base string, start int) (string, int, error) {
	for n := start; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		candidate := base
		if n > 0 {
			candidate = base + strconv.Itoa(n)
		}
		if IsReservedUsername(candidate) {
			continue
		}
		exists, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", 0, fmt.Errorf("check username %q: %w", candidate, err)
		}
		if !exists {
			return candidate, n, nil
		}
	}
}
