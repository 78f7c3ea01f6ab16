package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/scribe/internal/blog"
)

func (s *Server) createPost(c *gin.Context) {
	var in blog.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	p, err := s.svc.Create(c.Request.Context(), identity(c), in)
	if err != nil {
		s.respondError(c, "create post", err)
		return
	}
	c.JSON(http.StatusCreated, viewPost(p))
}

func (s *Server) listPosts(c *gin.Context) {
	posts, err := s.svc.ListMine(c.Request.Context(), identity(c))
	if err != nil {
		s.respondError(c, "fetch posts", err)
		return
	}
	c.JSON(http.StatusOK, viewPosts(posts))
}

func (s *Server) getPost(c *gin.Context) {
	p, err := s.svc.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		s.respondError(c, "fetch post", err)
		return
	}
	c.JSON(http.StatusOK, viewPost(p))
}

func (s *Server) updatePost(c *gin.Context) {
	var in blog.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		// Missing posts and foreign owners are reported before the body.
		if _, gerr := s.svc.Get(c.Request.Context(), identity(c), c.Param("id")); gerr != nil {
			s.respondError(c, "update post", gerr)
			return
		}
		badRequest(c)
		return
	}
	p, err := s.svc.Update(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		s.respondError(c, "update post", err)
		return
	}
	c.JSON(http.StatusOK, viewPost(p))
}

func (s *Server) deletePost(c *gin.Context) {
	if err := s.svc.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		s.respondError(c, "delete post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) me(c *gin.Context) {
	u, err := s.svc.Me(c.Request.Context(), identity(c))
	if err != nil {
		s.respondError(c, "fetch user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}
