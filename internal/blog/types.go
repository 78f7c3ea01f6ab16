package blog

import (
	"time"

	"github.com/roach88/scribe/internal/content"
)

// User is an account that owns posts.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Post is a blog post owned by exactly one user.
type Post struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	Excerpt     *string    `json:"excerpt"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ReadingTime returns the estimated reading time in minutes.
func (p *Post) ReadingTime() int {
	return content.ReadingTime(p.Content)
}

// Summary returns the stored excerpt, or one derived from content when none
// is stored. Returns "" for posts without text.
func (p *Post) Summary() string {
	if p.Excerpt != nil {
		return *p.Excerpt
	}
	if e := content.Excerpt(p.Content); e != nil {
		return *e
	}
	return ""
}

// DisplayDate is the publish time, or the creation time for drafts.
func (p *Post) DisplayDate() time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

// Author is the public projection of a User attached to listed posts.
type Author struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// AuthoredPost is a published post together with its author.
type AuthoredPost struct {
	Post
	Author Author `json:"author"`
}

// Profile is a user's public page: the user and their published posts.
type Profile struct {
	User  *User  `json:"user"`
	Posts []Post `json:"posts"`
}
