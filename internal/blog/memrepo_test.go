package blog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// memRepo is an in-memory Repository enforcing the same uniqueness rules
// as the SQL backends.
type memRepo struct {
	mu    sync.Mutex
	users map[string]User
	posts map[string]Post

	// beforeWrite runs before CreatePost/UpdatePost inserts, without the
	// lock held, to simulate a concurrent writer.
	beforeWrite func(p *Post)

	// failList makes listing calls fail.
	failList error

	writes int
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]User{}, posts: map[string]Post{}}
}

func clonePost(p Post) Post {
	if p.Excerpt != nil {
		e := *p.Excerpt
		p.Excerpt = &e
	}
	if p.PublishedAt != nil {
		at := *p.PublishedAt
		p.PublishedAt = &at
	}
	return p
}

func (r *memRepo) CreateUser(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return fmt.Errorf("username %q: %w", u.Username, ErrConflict)
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *memRepo) UserByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memRepo) UserByUsername(_ context.Context, username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := r.UserByUsername(ctx, username)
	return err == nil, nil
}

func (r *memRepo) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	for pid, p := range r.posts {
		if p.AuthorID == id {
			delete(r.posts, pid)
		}
	}
	return nil
}

func (r *memRepo) slugTaken(authorID, slug, excludeID string) bool {
	for _, p := range r.posts {
		if p.AuthorID == authorID && p.Slug == slug && p.ID != excludeID {
			return true
		}
	}
	return false
}

func (r *memRepo) CreatePost(_ context.Context, p *Post) error {
	if r.beforeWrite != nil {
		r.beforeWrite(p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugTaken(p.AuthorID, p.Slug, "") {
		return fmt.Errorf("slug %q: %w", p.Slug, ErrConflict)
	}
	r.posts[p.ID] = clonePost(*p)
	r.writes++
	return nil
}

func (r *memRepo) UpdatePost(_ context.Context, p *Post) error {
	if r.beforeWrite != nil {
		r.beforeWrite(p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return ErrNotFound
	}
	if r.slugTaken(p.AuthorID, p.Slug, p.ID) {
		return fmt.Errorf("slug %q: %w", p.Slug, ErrConflict)
	}
	r.posts[p.ID] = clonePost(*p)
	r.writes++
	return nil
}

func (r *memRepo) DeletePost(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.posts, id)
	r.writes++
	return nil
}

func (r *memRepo) PostByID(_ context.Context, id string) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clonePost(p)
	return &cp, nil
}

func (r *memRepo) PostBySlug(_ context.Context, authorID, slug string) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.AuthorID == authorID && p.Slug == slug {
			cp := clonePost(p)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) SlugExists(_ context.Context, authorID, slug, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slugTaken(authorID, slug, excludeID), nil
}

func (r *memRepo) filter(authorID string, opts ListOptions) []Post {
	var out []Post
	q := strings.ToLower(opts.Query)
	for _, p := range r.posts {
		if authorID != "" && p.AuthorID != authorID {
			continue
		}
		if opts.PublishedOnly && !p.Published {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Content), q) {
			continue
		}
		out = append(out, clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if opts.PublishedOnly {
			return out[i].PublishedAt.After(*out[j].PublishedAt)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if out == nil {
		out = []Post{}
	}
	return out
}

func (r *memRepo) ListPostsByAuthor(_ context.Context, authorID string, opts ListOptions) ([]Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	return r.filter(authorID, opts), nil
}

func (r *memRepo) ListPublished(_ context.Context, opts ListOptions) ([]AuthoredPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	opts.PublishedOnly = true
	posts := r.filter("", opts)
	out := make([]AuthoredPost, 0, len(posts))
	for _, p := range posts {
		u := r.users[p.AuthorID]
		out = append(out, AuthoredPost{
			Post:   p,
			Author: Author{Username: u.Username, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL},
		})
	}
	return out, nil
}

// insertRaw stores p directly, bypassing uniqueness checks.
func (r *memRepo) insertRaw(p Post) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = clonePost(p)
}
