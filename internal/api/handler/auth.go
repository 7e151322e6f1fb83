package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/foodgram/internal/api/auth"
	"github.com/jon4hz/foodgram/internal/api/models"
)

// Login exchanges email and password for an auth token.
func (h *Handler) Login(c *gin.Context) {
	var req models.TokenRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.engine.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.tokens.Issue(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Token{AuthToken: token})
}

// Logout revokes every token of the caller.
func (h *Handler) Logout(c *gin.Context) {
	user := auth.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
		return
	}
	if err := h.tokens.Revoke(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
