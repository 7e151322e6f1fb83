package database

import "context"

// DB defines the interface for database operations.
type DB interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]User, int64, error)
	UpdateUser(ctx context.Context, id uint, upd UserUpdate) error
	SetUserAvatar(ctx context.Context, id uint, key string) error
	SetUserPassword(ctx context.Context, id uint, passwordHash string) error
	SetUserAdmin(ctx context.Context, id uint, isAdmin bool) error
	DeleteUser(ctx context.Context, id uint) error

	// Auth tokens
	GetOrCreateToken(ctx context.Context, userID uint) (*AuthToken, error)
	GetToken(ctx context.Context, key string) (*AuthToken, error)
	DeleteUserToken(ctx context.Context, userID uint) (bool, error)

	// Catalog
	CreateTag(ctx context.Context, tag *Tag) error
	GetTag(ctx context.Context, id uint) (*Tag, error)
	ListTags(ctx context.Context) ([]Tag, error)
	ExistingTagIDs(ctx context.Context, ids []uint) ([]uint, error)
	CreateIngredients(ctx context.Context, ingredients []Ingredient) (int64, error)
	GetIngredient(ctx context.Context, id uint) (*Ingredient, error)
	ListIngredients(ctx context.Context, prefix string) ([]Ingredient, error)
	ExistingIngredientIDs(ctx context.Context, ids []uint) ([]uint, error)

	// Recipes
	CreateRecipe(ctx context.Context, recipe *Recipe, ingredients []RecipeIngredient, tags []RecipeTag) error
	UpdateRecipe(ctx context.Context, id uint, upd RecipeUpdate, ingredients []RecipeIngredient, tags []RecipeTag) error
	GetRecipe(ctx context.Context, id uint) (*Recipe, error)
	GetRecipeAuthor(ctx context.Context, id uint) (uint, error)
	GetRecipeSummary(ctx context.Context, id uint) (*Recipe, error)
	ListRecipes(ctx context.Context, filter RecipeFilter, limit, offset int) ([]Recipe, int64, error)
	ListRecipesByAuthor(ctx context.Context, authorID uint, limit int) ([]Recipe, error)
	CountRecipesByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error)
	DeleteRecipe(ctx context.Context, id uint) error

	// Subscriptions
	CreateFollow(ctx context.Context, userID, followingID uint) error
	DeleteFollow(ctx context.Context, userID, followingID uint) (bool, error)
	FollowExists(ctx context.Context, userID, followingID uint) (bool, error)
	FollowedUserIDs(ctx context.Context, userID uint, candidates []uint) (map[uint]bool, error)
	ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]User, int64, error)

	// Favorites and shopping cart
	AddRecipeRelation(ctx context.Context, kind RecipeRelation, userID, recipeID uint) error
	RemoveRecipeRelation(ctx context.Context, kind RecipeRelation, userID, recipeID uint) (bool, error)
	RelatedRecipeIDs(ctx context.Context, kind RecipeRelation, userID uint, recipeIDs []uint) (map[uint]bool, error)
	ShoppingList(ctx context.Context, userID uint) ([]ShoppingListItem, error)

	// Utility
	Stats(ctx context.Context) (*Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
