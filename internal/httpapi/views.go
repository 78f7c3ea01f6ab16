package httpapi

import "github.com/roach88/scribe/internal/blog"

// postView is a post plus its derived reading time.
type postView struct {
	blog.Post
	ReadingMinutes int `json:"reading_minutes"`
}

func viewPost(p *blog.Post) postView {
	return postView{Post: *p, ReadingMinutes: p.ReadingTime()}
}

func viewPosts(posts []blog.Post) []postView {
	out := make([]postView, len(posts))
	for i := range posts {
		out[i] = viewPost(&posts[i])
	}
	return out
}

type authoredView struct {
	postView
	Author blog.Author `json:"author"`
}

func viewAuthored(posts []blog.AuthoredPost) []authoredView {
	out := make([]authoredView, len(posts))
	for i := range posts {
		out[i] = authoredView{postView: viewPost(&posts[i].Post), Author: posts[i].Author}
	}
	return out
}

// publicUser omits the email address.
type publicUser struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func viewUser(u *blog.User) publicUser {
	return publicUser{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
	}
}

func authorOf(u *blog.User) blog.Author {
	return blog.Author{Username: u.Username, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}
