package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

func (e *Engine) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := e.db.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return models.ToTags(tags), nil
}

func (e *Engine) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	tag, err := e.db.GetTag(ctx, id)
	if err != nil {
		return nil, wrapDB(err, "tag", "get tag")
	}
	out := models.ToTag(*tag)
	return &out, nil
}

// CreateTag adds a tag to the catalog.
func (e *Engine) CreateTag(ctx context.Context, name, slug string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	var errs []FieldError
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Code: CodeRequired, Message: "this field may not be blank"})
	}
	errs = append(errs, checkLength("name", name, MaxTagNameLength)...)
	if !ValidSlug(slug) {
		errs = append(errs, FieldError{Field: "slug", Code: CodeInvalidSlug, Message: "enter a valid slug"})
	}
	errs = append(errs, checkLength("slug", slug, MaxSlugLength)...)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	tag := &database.Tag{Name: name, Slug: slug}
	if err := e.db.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("slug", "tag_exists", "a tag with that name or slug already exists")
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	out := models.ToTag(*tag)
	return &out, nil
}

// ListIngredients returns the ingredients whose name starts with prefix, case-insensitively.
func (e *Engine) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	ingredients, err := e.db.ListIngredients(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return models.ToIngredients(ingredients), nil
}

func (e *Engine) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	ingredient, err := e.db.GetIngredient(ctx, id)
	if err != nil {
		return nil, wrapDB(err, "ingredient", "get ingredient")
	}
	out := models.ToIngredient(*ingredient)
	return &out, nil
}

// ImportIngredients bulk inserts ingredients, skipping names that already exist.
// Rows that exceed the column limits fail the whole import and are reported by name.
// It returns the number of new ingredients.
func (e *Engine) ImportIngredients(ctx context.Context, ingredients []models.Ingredient) (int64, error) {
	rows := lo.FilterMap(ingredients, func(i models.Ingredient, _ int) (database.Ingredient, bool) {
		name := strings.TrimSpace(i.Name)
		return database.Ingredient{Name: name, MeasurementUnit: strings.TrimSpace(i.MeasurementUnit)}, name != ""
	})
	rows = lo.UniqBy(rows, func(i database.Ingredient) string { return i.Name })

	errs := lo.FlatMap(rows, func(i database.Ingredient, _ int) []FieldError {
		fieldErrs := append(
			checkLength("name", i.Name, MaxIngredientLength),
			checkLength("measurement_unit", i.MeasurementUnit, MaxUnitLength)...,
		)
		return lo.Map(fieldErrs, func(fe FieldError, _ int) FieldError {
			fe.Message = fmt.Sprintf("%s: %s", i.Name, fe.Message)
			return fe
		})
	})
	if len(errs) > 0 {
		return 0, &ValidationError{Errors: errs}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := e.db.CreateIngredients(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to import ingredients: %w", err)
	}
	return n, nil
}
