package engine

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/jon4hz/foodgram/internal/media"
	"github.com/samber/lo"
)

// RecipeQuery holds the list filters of GET /recipes.
type RecipeQuery struct {
	// Tags keeps recipes carrying any of the slugs.
	Tags   []string
	Author uint
	// IsFavorited and IsInShoppingCart are ignored for anonymous viewers.
	IsFavorited      bool
	IsInShoppingCart bool
}

// gatherRecipeChecks fetches everything validation needs besides the input itself.
// The returned image is nil when no upload was sent or it could not be decoded.
func (e *Engine) gatherRecipeChecks(ctx context.Context, in RecipeInput) (recipeChecks, *media.Image, error) {
	var checks recipeChecks
	var err error

	ingredientIDs := lo.Map(in.Ingredients, func(item IngredientAmount, _ int) uint { return item.ID })
	checks.ingredients, err = existingSet(ctx, ingredientIDs, e.db.ExistingIngredientIDs)
	if err != nil {
		return checks, nil, fmt.Errorf("failed to look up ingredients: %w", err)
	}
	checks.tags, err = existingSet(ctx, in.Tags, e.db.ExistingTagIDs)
	if err != nil {
		return checks, nil, fmt.Errorf("failed to look up tags: %w", err)
	}

	if in.Image == nil {
		return checks, nil, nil
	}
	img, err := e.prepareImage(in.Image)
	if err != nil {
		if !isClientImageError(err) {
			return checks, nil, err
		}
		checks.imageErr = err
		return checks, nil, nil
	}
	return checks, img, nil
}

func associationRows(in RecipeInput) ([]database.RecipeIngredient, []database.RecipeTag) {
	ingredients := lo.Map(in.Ingredients, func(item IngredientAmount, _ int) database.RecipeIngredient {
		return database.RecipeIngredient{IngredientID: item.ID, Amount: item.Amount}
	})
	tags := lo.Map(in.Tags, func(id uint, _ int) database.RecipeTag {
		return database.RecipeTag{TagID: id}
	})
	return ingredients, tags
}

// CreateRecipe validates the input, stores the image and writes the recipe with its
// associations in one transaction. The stored image is removed again if the write fails.
func (e *Engine) CreateRecipe(ctx context.Context, viewer Viewer, in RecipeInput) (*models.Recipe, error) {
	if viewer.Anonymous() {
		return nil, ErrPermissionDenied
	}

	checks, img, err := e.gatherRecipeChecks(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := validateRecipe(in, modeCreate, checks); err != nil {
		return nil, err
	}

	key, err := e.storage.Save(ctx, recipeImageDir, img)
	if err != nil {
		return nil, fmt.Errorf("failed to store recipe image: %w", err)
	}

	recipe := &database.Recipe{
		AuthorID:    viewer.ID,
		Name:        *in.Name,
		Text:        *in.Text,
		CookingTime: *in.CookingTime,
		Image:       key,
	}
	ingredients, tags := associationRows(in)
	if err := e.db.CreateRecipe(ctx, recipe, ingredients, tags); err != nil {
		e.removeImage(ctx, key)
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	log.Debug("Created recipe", "id", recipe.ID, "author", viewer.ID)
	return e.GetRecipe(ctx, viewer, recipe.ID)
}

// UpdateRecipe replaces the recipe's scalar fields present in the input and its full
// ingredient and tag sets. Only the author may update a recipe.
func (e *Engine) UpdateRecipe(ctx context.Context, viewer Viewer, id uint, in RecipeInput) (*models.Recipe, error) {
	current, err := e.db.GetRecipeSummary(ctx, id)
	if err != nil {
		return nil, wrapDB(err, "recipe", "get recipe")
	}
	if viewer.Anonymous() || current.AuthorID != viewer.ID {
		return nil, ErrPermissionDenied
	}

	checks, img, err := e.gatherRecipeChecks(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := validateRecipe(in, modeUpdate, checks); err != nil {
		return nil, err
	}

	upd := database.RecipeUpdate{
		Name:        in.Name,
		Text:        in.Text,
		CookingTime: in.CookingTime,
	}
	var newKey string
	if img != nil {
		newKey, err = e.storage.Save(ctx, recipeImageDir, img)
		if err != nil {
			return nil, fmt.Errorf("failed to store recipe image: %w", err)
		}
		upd.Image = &newKey
	}

	ingredients, tags := associationRows(in)
	if err := e.db.UpdateRecipe(ctx, id, upd, ingredients, tags); err != nil {
		e.removeImage(ctx, newKey)
		return nil, wrapDB(err, "recipe", "update recipe")
	}
	if newKey != "" {
		e.removeImage(ctx, current.Image)
	}

	return e.GetRecipe(ctx, viewer, id)
}

// DeleteRecipe removes a recipe and its image. The author and admins may delete.
func (e *Engine) DeleteRecipe(ctx context.Context, viewer Viewer, id uint) error {
	current, err := e.db.GetRecipeSummary(ctx, id)
	if err != nil {
		return wrapDB(err, "recipe", "get recipe")
	}
	if viewer.Anonymous() || (current.AuthorID != viewer.ID && !viewer.IsAdmin) {
		return ErrPermissionDenied
	}

	if err := e.db.DeleteRecipe(ctx, id); err != nil {
		return wrapDB(err, "recipe", "delete recipe")
	}
	e.removeImage(ctx, current.Image)
	return nil
}

// GetRecipe returns the projection of a recipe.
func (e *Engine) GetRecipe(ctx context.Context, viewer Viewer, id uint) (*models.Recipe, error) {
	recipe, err := e.db.GetRecipe(ctx, id)
	if err != nil {
		return nil, wrapDB(err, "recipe", "get recipe")
	}
	return e.projector.ProjectRecipe(ctx, viewer, recipe)
}

// ListRecipes returns one page of recipe projections, newest first, and the total count.
func (e *Engine) ListRecipes(ctx context.Context, viewer Viewer, q RecipeQuery, page Page) ([]models.Recipe, int64, error) {
	filter := database.RecipeFilter{
		TagSlugs: lo.Uniq(q.Tags),
		AuthorID: q.Author,
	}
	if !viewer.Anonymous() {
		if q.IsFavorited {
			filter.FavoritedBy = viewer.ID
		}
		if q.IsInShoppingCart {
			filter.InCartOf = viewer.ID
		}
	}

	recipes, total, err := e.db.ListRecipes(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	out, err := e.projector.ProjectRecipes(ctx, viewer, recipes)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
