package models

import (
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/samber/lo"
)

func ToTag(t database.Tag) Tag {
	return Tag{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func ToTags(tags []database.Tag) []Tag {
	return lo.Map(tags, func(t database.Tag, _ int) Tag { return ToTag(t) })
}

func ToIngredient(i database.Ingredient) Ingredient {
	return Ingredient{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func ToIngredients(ingredients []database.Ingredient) []Ingredient {
	return lo.Map(ingredients, func(i database.Ingredient, _ int) Ingredient { return ToIngredient(i) })
}

// ToRecipeIngredients flattens the association rows of a recipe. The rows must have Ingredient preloaded.
func ToRecipeIngredients(rows []database.RecipeIngredient) []RecipeIngredient {
	return lo.Map(rows, func(ri database.RecipeIngredient, _ int) RecipeIngredient {
		return RecipeIngredient{
			ID:              ri.IngredientID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		}
	})
}

// ToRecipeTags flattens the tag rows of a recipe. The rows must have Tag preloaded.
func ToRecipeTags(rows []database.RecipeTag) []Tag {
	return lo.Map(rows, func(rt database.RecipeTag, _ int) Tag { return ToTag(rt.Tag) })
}

func ToUserCreated(u database.User) UserCreated {
	return UserCreated{
		Email:     u.Email,
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// ToUser builds a profile. Avatar is the resolved absolute URL, empty for none.
func ToUser(u database.User, isSubscribed bool, avatar string) User {
	return User{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: isSubscribed,
		Avatar:       lo.EmptyableToPtr(avatar),
	}
}

// ToRecipeShort builds the compact recipe shape. Image is the resolved absolute URL.
func ToRecipeShort(r database.Recipe, image string) RecipeShort {
	return RecipeShort{
		ID:          r.ID,
		Name:        r.Name,
		Image:       image,
		CookingTime: r.CookingTime,
	}
}

func ToShoppingList(items []database.ShoppingListItem) []ShoppingListItem {
	return lo.Map(items, func(i database.ShoppingListItem, _ int) ShoppingListItem {
		return ShoppingListItem{Name: i.Name, MeasurementUnit: i.MeasurementUnit, Amount: i.Amount}
	})
}
