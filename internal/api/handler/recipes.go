package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/foodgram/internal/api/auth"
	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/engine"
	"github.com/jon4hz/foodgram/internal/media"
	"github.com/samber/lo"
)

const shoppingListFilename = "shopping_list.txt"

func truthy(s string) bool {
	return s == "1" || s == "true"
}

// ListRecipes lists recipes newest first.
// Filters: tags (repeatable slug), author (user id), is_favorited and is_in_shopping_cart.
func (h *Handler) ListRecipes(c *gin.Context) {
	q := engine.RecipeQuery{
		Tags:             c.QueryArray("tags"),
		IsFavorited:      truthy(c.Query("is_favorited")),
		IsInShoppingCart: truthy(c.Query("is_in_shopping_cart")),
	}
	if author := c.Query("author"); author != "" {
		id, err := parseUintParam(author)
		if err != nil || id == 0 {
			writeError(c, engine.NewValidationError("author", "invalid", "author must be a user id"))
			return
		}
		q.Author = id
	}
	page := h.parsePage(c)

	recipes, total, err := h.engine.ListRecipes(c.Request.Context(), auth.ViewerFrom(c), q, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(h, c, page, total, recipes))
}

func (h *Handler) GetRecipe(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	recipe, err := h.engine.GetRecipe(c.Request.Context(), auth.ViewerFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *Handler) CreateRecipe(c *gin.Context) {
	in, err := h.recipeInput(c)
	if err != nil {
		writeError(c, err)
		return
	}
	recipe, err := h.engine.CreateRecipe(c.Request.Context(), auth.ViewerFrom(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *Handler) UpdateRecipe(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	in, err := h.recipeInput(c)
	if err != nil {
		writeError(c, err)
		return
	}
	recipe, err := h.engine.UpdateRecipe(c.Request.Context(), auth.ViewerFrom(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *Handler) DeleteRecipe(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.engine.DeleteRecipe(c.Request.Context(), auth.ViewerFrom(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type (
	addRelationFunc    func(*gin.Context, engine.Viewer, uint) (*models.RecipeShort, error)
	removeRelationFunc func(*gin.Context, engine.Viewer, uint) error
)

func (h *Handler) addRelation(add addRelationFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		short, err := add(c, auth.ViewerFrom(c), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, short)
	}
}

func (h *Handler) removeRelation(remove removeRelationFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		if err := remove(c, auth.ViewerFrom(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) AddFavorite() gin.HandlerFunc {
	return h.addRelation(func(c *gin.Context, v engine.Viewer, id uint) (*models.RecipeShort, error) {
		return h.engine.AddFavorite(c.Request.Context(), v, id)
	})
}

func (h *Handler) RemoveFavorite() gin.HandlerFunc {
	return h.removeRelation(func(c *gin.Context, v engine.Viewer, id uint) error {
		return h.engine.RemoveFavorite(c.Request.Context(), v, id)
	})
}

func (h *Handler) AddToShoppingCart() gin.HandlerFunc {
	return h.addRelation(func(c *gin.Context, v engine.Viewer, id uint) (*models.RecipeShort, error) {
		return h.engine.AddToShoppingCart(c.Request.Context(), v, id)
	})
}

func (h *Handler) RemoveFromShoppingCart() gin.HandlerFunc {
	return h.removeRelation(func(c *gin.Context, v engine.Viewer, id uint) error {
		return h.engine.RemoveFromShoppingCart(c.Request.Context(), v, id)
	})
}

// DownloadShoppingCart sends the aggregated shopping list as a text attachment.
func (h *Handler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.engine.ShoppingList(c.Request.Context(), auth.ViewerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := engine.WriteShoppingList(&buf, items); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", shoppingListFilename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

// recipeInput reads a recipe payload from a JSON body or a multipart form.
func (h *Handler) recipeInput(c *gin.Context) (engine.RecipeInput, error) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		return h.recipeFormInput(c)
	}

	var req models.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return engine.RecipeInput{}, bindError(err)
	}

	in := engine.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Tags:        req.Tags,
	}
	if req.Ingredients != nil {
		in.Ingredients = toIngredientAmounts(req.Ingredients)
	}
	if req.Image != nil {
		in.Image = &engine.ImageUpload{DataURI: *req.Image}
	}
	return in, nil
}

func toIngredientAmounts(reqs []models.RecipeIngredientRequest) []engine.IngredientAmount {
	return lo.Map(reqs, func(r models.RecipeIngredientRequest, _ int) engine.IngredientAmount {
		return engine.IngredientAmount{ID: r.ID, Amount: r.Amount}
	})
}

// recipeFormInput reads a multipart recipe. The image is a file part, ingredients a JSON
// encoded list and tags a repeated field.
func (h *Handler) recipeFormInput(c *gin.Context) (engine.RecipeInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return engine.RecipeInput{}, engine.NewValidationError("non_field_errors", "invalid", "malformed multipart form")
	}

	var in engine.RecipeInput
	var errs []engine.FieldError

	if v, ok := formValue(form, "name"); ok {
		in.Name = &v
	}
	if v, ok := formValue(form, "text"); ok {
		in.Text = &v
	}
	if v, ok := formValue(form, "cooking_time"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, engine.FieldError{Field: "cooking_time", Code: engine.CodeInvalidCookingTime, Message: "cooking_time must be an integer"})
		} else {
			in.CookingTime = &n
		}
	}

	if v, ok := formValue(form, "ingredients"); ok {
		var reqs []models.RecipeIngredientRequest
		if err := json.Unmarshal([]byte(v), &reqs); err != nil {
			errs = append(errs, engine.FieldError{Field: "ingredients", Code: "invalid", Message: "ingredients must be a JSON list of {id, amount}"})
		} else {
			in.Ingredients = toIngredientAmounts(reqs)
			if in.Ingredients == nil {
				in.Ingredients = []engine.IngredientAmount{}
			}
		}
	}

	if values, ok := form.Value["tags"]; ok {
		in.Tags = make([]uint, 0, len(values))
		for _, v := range values {
			id, err := parseUintParam(v)
			if err != nil {
				errs = append(errs, engine.FieldError{Field: "tags", Code: "invalid", Message: "tags must be tag ids"})
				break
			}
			in.Tags = append(in.Tags, id)
		}
	}

	if files := form.File["image"]; len(files) > 0 {
		raw, err := h.readUpload(files[0])
		switch {
		case errors.Is(err, media.ErrTooLarge):
			errs = append(errs, engine.FieldError{Field: "image", Code: engine.CodeInvalidImage, Message: err.Error()})
		case err != nil:
			return engine.RecipeInput{}, err
		default:
			in.Image = &engine.ImageUpload{Raw: raw}
		}
	}

	if len(errs) > 0 {
		return engine.RecipeInput{}, &engine.ValidationError{Errors: errs}
	}
	return in, nil
}

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (h *Handler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return h.engine.Images().ReadLimited(f)
}
