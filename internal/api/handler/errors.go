package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jon4hz/foodgram/internal/engine"
	"github.com/samber/lo"
)

// writeError maps engine errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var (
		verr *engine.ValidationError
		cerr *engine.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": verr.Errors})
	case errors.As(err, &cerr):
		c.JSON(http.StatusBadRequest, gin.H{"error": cerr.Message, "code": cerr.Code})
	case errors.Is(err, engine.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to perform this action"})
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindingCodes maps validator tags to error codes.
var bindingCodes = map[string]string{
	"required": engine.CodeRequired,
	"username": engine.CodeInvalidUsername,
	"slug":     engine.CodeInvalidSlug,
	"email":    "invalid_email",
	"max":      engine.CodeMaxLength,
}

// bindError turns a binding failure into the same shape the engine uses for validation errors.
func bindError(err error) error {
	var (
		verrs  validator.ValidationErrors
		syntax *json.SyntaxError
		typ    *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &verrs):
		return &engine.ValidationError{Errors: lo.Map(verrs, func(fe validator.FieldError, _ int) engine.FieldError {
			code, ok := bindingCodes[fe.Tag()]
			if !ok {
				code = fe.Tag()
			}
			return engine.FieldError{Field: fe.Field(), Code: code, Message: bindingMessage(fe)}
		})}
	case errors.As(err, &typ):
		return engine.NewValidationError(typ.Field, "invalid", "expected "+typ.Type.String())
	case errors.As(err, &syntax), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return engine.NewValidationError("non_field_errors", "invalid", "request body must be a JSON object")
	default:
		return engine.NewValidationError("non_field_errors", "invalid", err.Error())
	}
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "username":
		return "enter a valid username"
	case "slug":
		return "enter a valid slug"
	case "email":
		return "enter a valid email address"
	case "max":
		return "ensure this field has no more than " + fe.Param() + " characters"
	default:
		return "invalid value"
	}
}

// bind decodes the JSON body into req. It writes the error response and reports false on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, bindError(err))
		return false
	}
	return true
}
