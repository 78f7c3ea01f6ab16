// Package httpapi exposes the blog over HTTP using gin.
//
// Authenticated routes live under /api and expect a bearer token. Public
// pages are served at /@username, /@username/:slug and
// /@username/feed.xml; the "@" is optional.
package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/scribe/internal/auth"
	"github.com/roach88/scribe/internal/blog"
	"github.com/roach88/scribe/internal/feed"
)

// Options configures a Server.
type Options struct {
	Site      feed.Site
	FeedLimit int
	Logger    *slog.Logger

	// Now is the feed build clock. Defaults to time.Now.
	Now func() time.Time
}

// Server routes HTTP requests to a blog.Service.
type Server struct {
	svc       *blog.Service
	tokens    *auth.Issuer
	site      feed.Site
	feedLimit int
	logger    *slog.Logger
	now       func() time.Time
	engine    *gin.Engine
}

// New builds the router. The gin mode is left to the caller.
func New(svc *blog.Service, tokens *auth.Issuer, opts Options) *Server {
	s := &Server{
		svc:       svc,
		tokens:    tokens,
		site:      opts.Site,
		feedLimit: opts.FeedLimit,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.feedLimit <= 0 {
		s.feedLimit = blog.DefaultFeedLimit
	}
	s.engine = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/explore", s.explore)
	api.GET("/featured", s.featured)

	private := api.Group("", s.RequireAuth())
	private.GET("/me", s.me)
	private.POST("/posts", s.createPost)
	private.GET("/posts", s.listPosts)
	private.GET("/posts/:id", s.getPost)
	private.PUT("/posts/:id", s.updatePost)
	private.DELETE("/posts/:id", s.deletePost)

	r.GET("/:handle", s.profile)
	r.GET("/:handle/feed.xml", s.rssFeed)
	r.GET("/:handle/:slug", s.publicPost)

	return r
}
