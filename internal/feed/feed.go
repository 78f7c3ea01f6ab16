// Package feed renders a user's published posts as an RSS 2.0 document.
//
// Rendering is byte-deterministic for a given Channel: golden tests pin the
// exact output.
package feed

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/roach88/scribe/internal/blog"
)

// DateFormat is RFC 1123 with a literal GMT zone, as RSS readers expect.
const DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// ContentType is sent with rendered feeds.
const ContentType = "application/xml"

// CacheControl is sent with rendered feeds.
const CacheControl = "public, max-age=3600"

// DefaultLanguage is the channel language.
const DefaultLanguage = "en"

// Site identifies the installation serving the feed.
type Site struct {
	Name    string
	BaseURL string
}

// Channel is the RSS <channel>.
type Channel struct {
	Title         string
	Link          string
	SelfLink      string
	Description   string
	Language      string
	LastBuildDate time.Time
	Items         []Item
}

// Item is one RSS <item>. Link doubles as a permalink guid.
type Item struct {
	Title       string
	Link        string
	Description string
	PubDate     time.Time
}

// ProfileURL returns the absolute URL of a user's public page.
func (s Site) ProfileURL(username string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/@" + username
}

// PostURL returns the absolute permalink of a post.
func (s Site) PostURL(username, slug string) string {
	return s.ProfileURL(username) + "/" + slug
}

// Build assembles the channel for u. posts must already be ordered and
// limited; drafts are not filtered here.
func Build(site Site, u *blog.User, posts []blog.Post, now time.Time) Channel {
	name := u.Name()
	description := u.Bio
	if description == "" {
		description = "Posts by " + name
	}

	profile := site.ProfileURL(u.Username)
	ch := Channel{
		Title:         name + " - " + site.Name,
		Link:          profile,
		SelfLink:      profile + "/feed.xml",
		Description:   description,
		Language:      DefaultLanguage,
		LastBuildDate: now,
		Items:         make([]Item, 0, len(posts)),
	}
	for i := range posts {
		p := &posts[i]
		ch.Items = append(ch.Items, Item{
			Title:       p.Title,
			Link:        site.PostURL(u.Username, p.Slug),
			Description: p.Summary(),
			PubDate:     p.DisplayDate(),
		})
	}
	return ch
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape replaces the five XML special characters with entities.
func Escape(s string) string {
	return escaper.Replace(s)
}

// FormatDate renders t in UTC using DateFormat.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

var rssTemplate = template.Must(template.New("rss").Funcs(template.FuncMap{
	"esc":  Escape,
	"date": FormatDate,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>{{esc .Title}}</title>
    <link>{{esc .Link}}</link>
    <description>{{esc .Description}}</description>
    <language>{{esc .Language}}</language>
    <lastBuildDate>{{date .LastBuildDate}}</lastBuildDate>
    <atom:link href="{{esc .SelfLink}}" rel="self" type="application/rss+xml"/>
{{- range .Items}}
    <item>
      <title>{{esc .Title}}</title>
      <link>{{esc .Link}}</link>
      <guid isPermaLink="true">{{esc .Link}}</guid>
      <description>{{esc .Description}}</description>
      <pubDate>{{date .PubDate}}</pubDate>
    </item>
{{- end}}
  </channel>
</rss>
`))

// Render writes ch as an RSS document.
func Render(w io.Writer, ch Channel) error {
	if err := rssTemplate.Execute(w, ch); err != nil {
		return fmt.Errorf("render feed: %w", err)
	}
	return nil
}
