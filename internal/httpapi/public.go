package httpapi

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/scribe/internal/blog"
	"github.com/roach88/scribe/internal/feed"
)

func (s *Server) explore(c *gin.Context) {
	posts, err := s.svc.Explore(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.respondError(c, "search posts", err)
		return
	}
	c.JSON(http.StatusOK, viewAuthored(posts))
}

func (s *Server) featured(c *gin.Context) {
	c.JSON(http.StatusOK, viewAuthored(s.svc.Featured(c.Request.Context())))
}

func (s *Server) profile(c *gin.Context) {
	p, err := s.svc.PublicProfile(c.Request.Context(), c.Param("handle"))
	if err != nil {
		s.respondError(c, "fetch profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":  viewUser(p.User),
		"posts": viewPosts(p.Posts),
	})
}

func (s *Server) publicPost(c *gin.Context) {
	u, p, err := s.svc.PublicPost(c.Request.Context(), c.Param("handle"), c.Param("slug"))
	if err != nil {
		s.respondError(c, "fetch post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"post":   viewPost(p),
		"author": authorOf(u),
	})
}

func (s *Server) rssFeed(c *gin.Context) {
	u, posts, err := s.svc.FeedPosts(c.Request.Context(), c.Param("handle"), s.feedLimit)
	if errors.Is(err, blog.ErrNotFound) {
		c.String(http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.logger.Error("feed lookup failed", "handle", c.Param("handle"), "error", err)
		c.String(http.StatusInternalServerError, "Failed to generate feed")
		return
	}

	var buf bytes.Buffer
	if err := feed.Render(&buf, feed.Build(s.site, u, posts, s.now())); err != nil {
		s.logger.Error("feed render failed", "username", u.Username, "error", err)
		c.String(http.StatusInternalServerError, "Failed to generate feed")
		return
	}
	c.Header("Cache-Control", feed.CacheControl)
	c.Data(http.StatusOK, feed.ContentType, buf.Bytes())
}
