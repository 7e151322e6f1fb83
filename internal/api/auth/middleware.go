package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/jon4hz/foodgram/internal/engine"
)

const (
	userKey   = "user"
	viewerKey = "viewer"
)

// tokenFromHeader accepts "Bearer <token>" and "Token <token>".
func tokenFromHeader(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", false
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authenticate resolves the request's token. It reports false after aborting the request.
func (m *TokenManager) authenticate(c *gin.Context, required bool) bool {
	header := c.GetHeader("Authorization")
	if header == "" {
		if required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return false
		}
		return true
	}

	raw, ok := tokenFromHeader(header)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
		return false
	}

	user, err := m.Verify(c.Request.Context(), raw)
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			log.Error("Failed to verify token", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return false
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return false
	}

	c.Set(userKey, user)
	c.Set(viewerKey, engine.Viewer{ID: user.ID, IsAdmin: user.IsAdmin})
	return true
}

// RequireAuth returns a middleware that rejects requests without a valid token.
func (m *TokenManager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.authenticate(c, true) {
			c.Next()
		}
	}
}

// OptionalAuth returns a middleware that resolves a token when one is sent.
// Requests without an Authorization header continue as anonymous, invalid tokens are rejected.
func (m *TokenManager) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.authenticate(c, false) {
			c.Next()
		}
	}
}

// ViewerFrom returns the viewer the request runs as. It is anonymous when no token was sent.
func ViewerFrom(c *gin.Context) engine.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(engine.Viewer); ok {
			return viewer
		}
	}
	return engine.Viewer{}
}

// UserFrom returns the authenticated user or nil.
func UserFrom(c *gin.Context) *database.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*database.User); ok {
			return user
		}
	}
	return nil
}
