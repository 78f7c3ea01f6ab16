package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/scribe/internal/blog"
)

var testEpoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore opens a fresh database in a temp dir, closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestUser(t *testing.T, s *Store, id, username string) *blog.User {
	t.Helper()

	u := &blog.User{
		ID:          id,
		Username:    username,
		DisplayName: username + " display",
		CreatedAt:   testEpoch,
	}
	if err := s.CreateUser(t.Context(), u); err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", username, err)
	}
	return u
}

// newTestPost builds a post; published posts get publishedAt as their
// publish time.
func newTestPost(id, authorID, title, slug string, publishedAt *time.Time) *blog.Post {
	excerpt := "excerpt of " + title
	p := &blog.Post{
		ID:        id,
		AuthorID:  authorID,
		Title:     title,
		Slug:      slug,
		Content:   "<p>" + title + " body</p>",
		Excerpt:   &excerpt,
		CreatedAt: testEpoch,
		UpdatedAt: testEpoch,
	}
	if publishedAt != nil {
		at := publishedAt.UTC()
		p.Published = true
		p.PublishedAt = &at
	}
	return p
}

func insertTestPost(t *testing.T, s *Store, p *blog.Post) {
	t.Helper()

	if err := s.CreatePost(t.Context(), p); err != nil {
		t.Fatalf("CreatePost(%q) failed: %v", p.ID, err)
	}
}

func at(minutes int) *time.Time {
	ts := testEpoch.Add(time.Duration(minutes) * time.Minute)
	return &ts
}
