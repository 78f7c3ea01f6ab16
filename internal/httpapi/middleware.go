package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/scribe/internal/auth"
)

const identityKey = "scribe.identity"

// RequireAuth resolves the bearer token into an auth.Identity or aborts
// with 401.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := s.tokens.ParseBearer(c.GetHeader("Authorization"))
		if err != nil {
			s.logger.Debug("rejected token", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// identity returns the caller set by RequireAuth, or auth.Anonymous.
func identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Anonymous
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
