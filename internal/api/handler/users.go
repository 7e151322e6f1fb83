package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/foodgram/internal/api/auth"
	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/engine"
)

// Register creates an account.
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.engine.Register(c.Request.Context(), engine.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) ListUsers(c *gin.Context) {
	page := h.parsePage(c)
	users, total, err := h.engine.ListUsers(c.Request.Context(), auth.ViewerFrom(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(h, c, page, total, users))
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	user, err := h.engine.GetUser(c.Request.Context(), auth.ViewerFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Me returns the caller's own profile.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.engine.Me(c.Request.Context(), auth.ViewerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe applies a partial profile update.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req models.UserUpdateRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.engine.UpdateProfile(c.Request.Context(), auth.ViewerFrom(c), engine.ProfileUpdate{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) SetPassword(c *gin.Context) {
	var req models.SetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.engine.SetPassword(c.Request.Context(), auth.ViewerFrom(c), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetAvatar(c *gin.Context) {
	var req models.AvatarRequest
	if !bind(c, &req) {
		return
	}

	var upload *engine.ImageUpload
	if req.Avatar != "" {
		upload = &engine.ImageUpload{DataURI: req.Avatar}
	}
	url, err := h.engine.SetAvatar(c.Request.Context(), auth.ViewerFrom(c), upload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Avatar{Avatar: url})
}

func (h *Handler) DeleteAvatar(c *gin.Context) {
	if err := h.engine.DeleteAvatar(c.Request.Context(), auth.ViewerFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscribe follows the user and returns their profile with a recipe preview.
func (h *Handler) Subscribe(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	limit, err := parseRecipesLimit(c)
	if err != nil {
		writeError(c, err)
		return
	}

	view, err := h.engine.Subscribe(c.Request.Context(), auth.ViewerFrom(c), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.engine.Unsubscribe(c.Request.Context(), auth.ViewerFrom(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscriptions lists the users the caller follows.
func (h *Handler) Subscriptions(c *gin.Context) {
	limit, err := parseRecipesLimit(c)
	if err != nil {
		writeError(c, err)
		return
	}
	page := h.parsePage(c)

	views, total, err := h.engine.Subscriptions(c.Request.Context(), auth.ViewerFrom(c), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(h, c, page, total, views))
}
