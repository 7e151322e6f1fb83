package engine

import (
	"context"
	"fmt"

	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/jon4hz/foodgram/internal/gravatar"
	"github.com/jon4hz/foodgram/internal/media"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Projector builds the viewer relative read views of recipes and profiles.
// Derived flags come from explicit existence queries, batched per page.
type Projector struct {
	db       database.DB
	storage  media.Storage
	gravatar *gravatar.Resolver
}

func NewProjector(db database.DB, storage media.Storage, avatars *gravatar.Resolver) *Projector {
	return &Projector{
		db:       db,
		storage:  storage,
		gravatar: avatars,
	}
}

// recipeFlags holds the viewer relative flags of a page of recipes.
type recipeFlags struct {
	favorited  map[uint]bool
	inCart     map[uint]bool
	subscribed map[uint]bool
}

func (p *Projector) loadRecipeFlags(ctx context.Context, viewer Viewer, recipes []database.Recipe) (*recipeFlags, error) {
	flags := &recipeFlags{
		favorited:  map[uint]bool{},
		inCart:     map[uint]bool{},
		subscribed: map[uint]bool{},
	}
	if viewer.Anonymous() || len(recipes) == 0 {
		return flags, nil
	}

	recipeIDs := lo.Map(recipes, func(r database.Recipe, _ int) uint { return r.ID })
	authorIDs := lo.Uniq(lo.Map(recipes, func(r database.Recipe, _ int) uint { return r.AuthorID }))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		flags.favorited, err = p.db.RelatedRecipeIDs(gctx, database.RelationFavorite, viewer.ID, recipeIDs)
		return err
	})
	g.Go(func() (err error) {
		flags.inCart, err = p.db.RelatedRecipeIDs(gctx, database.RelationShoppingCart, viewer.ID, recipeIDs)
		return err
	})
	g.Go(func() (err error) {
		flags.subscribed, err = p.db.FollowedUserIDs(gctx, viewer.ID, authorIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load recipe flags: %w", err)
	}
	return flags, nil
}

// ProjectRecipe builds the full view of one recipe. The recipe must have its associations loaded.
func (p *Projector) ProjectRecipe(ctx context.Context, viewer Viewer, recipe *database.Recipe) (*models.Recipe, error) {
	out, err := p.ProjectRecipes(ctx, viewer, []database.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ProjectRecipes builds the full views of a page of recipes.
func (p *Projector) ProjectRecipes(ctx context.Context, viewer Viewer, recipes []database.Recipe) ([]models.Recipe, error) {
	flags, err := p.loadRecipeFlags(ctx, viewer, recipes)
	if err != nil {
		return nil, err
	}

	return lo.Map(recipes, func(r database.Recipe, _ int) models.Recipe {
		return models.Recipe{
			ID:               r.ID,
			Tags:             models.ToRecipeTags(r.Tags),
			Author:           p.user(r.Author, flags.subscribed[r.AuthorID]),
			Ingredients:      models.ToRecipeIngredients(r.Ingredients),
			IsFavorited:      flags.favorited[r.ID],
			IsInShoppingCart: flags.inCart[r.ID],
			Name:             r.Name,
			Image:            p.storage.URL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}), nil
}

// ProjectRecipeShort builds the compact view of a recipe.
func (p *Projector) ProjectRecipeShort(recipe database.Recipe) models.RecipeShort {
	return models.ToRecipeShort(recipe, p.storage.URL(recipe.Image))
}

// AvatarURL resolves the avatar of a user: the uploaded image, else the gravatar fallback.
func (p *Projector) AvatarURL(user database.User) string {
	if user.Avatar != "" {
		return p.storage.URL(user.Avatar)
	}
	return p.gravatar.URL(user.Email)
}

func (p *Projector) user(u database.User, subscribed bool) models.User {
	return models.ToUser(u, subscribed, p.AvatarURL(u))
}

// ProjectUser builds the profile of a user as seen by the viewer.
func (p *Projector) ProjectUser(ctx context.Context, viewer Viewer, user *database.User) (*models.User, error) {
	out, err := p.ProjectUsers(ctx, viewer, []database.User{*user})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ProjectUsers builds the profiles of a page of users.
func (p *Projector) ProjectUsers(ctx context.Context, viewer Viewer, users []database.User) ([]models.User, error) {
	subscribed := map[uint]bool{}
	if !viewer.Anonymous() && len(users) > 0 {
		ids := lo.Map(users, func(u database.User, _ int) uint { return u.ID })
		var err error
		subscribed, err = p.db.FollowedUserIDs(ctx, viewer.ID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load subscriptions: %w", err)
		}
	}

	return lo.Map(users, func(u database.User, _ int) models.User {
		return p.user(u, subscribed[u.ID])
	}), nil
}

// ProjectUsersWithRecipes builds subscription views: the profile, the recipe count and
// the newest recipes truncated to recipesLimit. A negative limit keeps every recipe.
func (p *Projector) ProjectUsersWithRecipes(ctx context.Context, viewer Viewer, users []database.User, recipesLimit int) ([]models.UserWithRecipes, error) {
	profiles, err := p.ProjectUsers(ctx, viewer, users)
	if err != nil {
		return nil, err
	}

	ids := lo.Map(users, func(u database.User, _ int) uint { return u.ID })
	counts, err := p.db.CountRecipesByAuthors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	out := make([]models.UserWithRecipes, len(users))
	for i, u := range users {
		recipes, err := p.db.ListRecipesByAuthor(ctx, u.ID, recipesLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list recipes of user %d: %w", u.ID, err)
		}
		out[i] = models.UserWithRecipes{
			User:         profiles[i],
			Recipes:      lo.Map(recipes, func(r database.Recipe, _ int) models.RecipeShort { return p.ProjectRecipeShort(r) }),
			RecipesCount: counts[u.ID],
		}
	}
	return out, nil
}
