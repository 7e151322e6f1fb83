package engine

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/jon4hz/foodgram/internal/api/models"
)

// ShoppingList sums the ingredients of every recipe in the viewer's cart.
func (e *Engine) ShoppingList(ctx context.Context, viewer Viewer) ([]models.ShoppingListItem, error) {
	if viewer.Anonymous() {
		return nil, ErrPermissionDenied
	}
	items, err := e.db.ShoppingList(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to build shopping list: %w", err)
	}
	return models.ToShoppingList(items), nil
}

// WriteShoppingList renders the list as plain text, one "name (unit) — amount" line per ingredient.
func WriteShoppingList(w io.Writer, items []models.ShoppingListItem) error {
	for _, item := range items {
		amount := strconv.FormatFloat(item.Amount, 'f', -1, 64)
		if _, err := fmt.Fprintf(w, "%s (%s) — %s\n", item.Name, item.MeasurementUnit, amount); err != nil {
			return err
		}
	}
	return nil
}
