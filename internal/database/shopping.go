package database

import (
	"context"

	"github.com/charmbracelet/log"
)

// ShoppingListItem is the total amount of one ingredient across a shopping cart.
type ShoppingListItem struct {
	Name            string
	MeasurementUnit string
	Amount          float64
}

// ShoppingList sums the ingredients of every recipe in the user's cart, ordered by name.
func (c *Client) ShoppingList(ctx context.Context, userID uint) ([]ShoppingListItem, error) {
	var items []ShoppingListItem
	err := c.db.WithContext(ctx).
		Table("shopping_carts").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_carts.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.id, ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name").
		Scan(&items).Error
	if err != nil {
		log.Error("failed to build shopping list", "error", err)
		return nil, err
	}
	return items, nil
}
