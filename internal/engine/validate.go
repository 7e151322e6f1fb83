package engine

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// reservedUsername collides with the /users/me route.
const reservedUsername = "me"

const (
	minPasswordLength = 8
	// bcrypt only hashes the first 72 bytes.
	maxPasswordBytes = 72
)

// Column limits, counted in characters.
const (
	MaxEmailLength      = 254
	MaxUsernameLength   = 150
	MaxPersonNameLength = 150
	MaxTagNameLength    = 16
	MaxSlugLength       = 50
	MaxIngredientLength = 16
	MaxUnitLength       = 10
	MaxRecipeNameLength = 256
)

// ValidUsername reports whether s is an acceptable username.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s) && !strings.EqualFold(s, reservedUsername)
}

// ValidSlug reports whether s is an acceptable tag slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// checkLength reports a value longer than limit characters.
func checkLength(field, value string, limit int) []FieldError {
	if utf8.RuneCountInString(value) <= limit {
		return nil
	}
	return []FieldError{{
		Field:   field,
		Code:    CodeMaxLength,
		Message: fmt.Sprintf("ensure this field has no more than %d characters", limit),
	}}
}

type recipeMode int

const (
	modeCreate recipeMode = iota
	modeUpdate
)

// IngredientAmount references a catalog ingredient and the amount a recipe uses of it.
type IngredientAmount struct {
	ID     uint
	Amount float64
}

// ImageUpload is an image as sent by a client, either a data URI or raw bytes.
type ImageUpload struct {
	DataURI string
	Raw     []byte
}

// RecipeInput is the payload of a recipe create or update.
// Nil pointers and nil slices mean the field was omitted.
type RecipeInput struct {
	Name        *string
	Text        *string
	CookingTime *int
	Image       *ImageUpload
	Ingredients []IngredientAmount
	Tags        []uint
}

// recipeChecks is what validation needs to know beyond the input itself.
type recipeChecks struct {
	// ingredients and tags hold the referenced ids that exist in the catalog.
	ingredients map[uint]bool
	tags        map[uint]bool
	// imageErr is the result of decoding the uploaded image, if any.
	imageErr error
}

type recipeRule func(in RecipeInput, mode recipeMode, checks recipeChecks) []FieldError

var recipeRules = []recipeRule{
	checkRequired,
	checkLengths,
	checkCookingTime,
	checkAssociationsPresent,
	checkIngredients,
	checkTags,
	checkImage,
}

// validateRecipe runs every rule and returns all failures at once.
func validateRecipe(in RecipeInput, mode recipeMode, checks recipeChecks) error {
	errs := lo.FlatMap(recipeRules, func(rule recipeRule, _ int) []FieldError {
		return rule(in, mode, checks)
	})
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func checkRequired(in RecipeInput, mode recipeMode, _ recipeChecks) []FieldError {
	var errs []FieldError
	text := map[string]*string{"name": in.Name, "text": in.Text}
	for _, field := range []string{"name", "text"} {
		v := text[field]
		if mode == modeUpdate && v == nil {
			continue
		}
		if blank(v) {
			errs = append(errs, FieldError{Field: field, Code: CodeRequired, Message: "this field may not be blank"})
		}
	}

	if mode == modeCreate {
		if in.CookingTime == nil {
			errs = append(errs, FieldError{Field: "cooking_time", Code: CodeRequired, Message: "this field is required"})
		}
		if in.Image == nil {
			errs = append(errs, FieldError{Field: "image", Code: CodeRequired, Message: "this field is required"})
		}
	}
	return errs
}

func checkLengths(in RecipeInput, _ recipeMode, _ recipeChecks) []FieldError {
	if in.Name == nil {
		return nil
	}
	return checkLength("name", *in.Name, MaxRecipeNameLength)
}

func checkCookingTime(in RecipeInput, _ recipeMode, _ recipeChecks) []FieldError {
	if in.CookingTime != nil && *in.CookingTime < 1 {
		return []FieldError{{Field: "cooking_time", Code: CodeInvalidCookingTime, Message: "cooking time must be at least 1 minute"}}
	}
	return nil
}

func checkAssociationsPresent(in RecipeInput, mode recipeMode, _ recipeChecks) []FieldError {
	if mode != modeUpdate {
		return nil
	}
	var errs []FieldError
	if in.Ingredients == nil {
		errs = append(errs, FieldError{Field: "ingredients", Code: CodeMissingAssociations, Message: "ingredients must be sent on update"})
	}
	if in.Tags == nil {
		errs = append(errs, FieldError{Field: "tags", Code: CodeMissingAssociations, Message: "tags must be sent on update"})
	}
	return errs
}

func checkIngredients(in RecipeInput, mode recipeMode, checks recipeChecks) []FieldError {
	if in.Ingredients == nil && mode == modeUpdate {
		return nil
	}
	if len(in.Ingredients) == 0 {
		return []FieldError{{Field: "ingredients", Code: CodeEmptyIngredients, Message: "at least one ingredient is required"}}
	}

	var errs []FieldError
	for _, item := range in.Ingredients {
		if item.Amount <= 0 || math.IsNaN(item.Amount) || math.IsInf(item.Amount, 0) {
			errs = append(errs, FieldError{
				Field:   "ingredients",
				Code:    CodeInvalidAmount,
				Message: fmt.Sprintf("amount of ingredient %d must be greater than 0", item.ID),
			})
		}
		if !checks.ingredients[item.ID] {
			errs = append(errs, FieldError{
				Field:   "ingredients",
				Code:    CodeIngredientNotFound,
				Message: fmt.Sprintf("ingredient %d does not exist", item.ID),
			})
		}
	}

	ids := lo.Map(in.Ingredients, func(item IngredientAmount, _ int) uint { return item.ID })
	for _, id := range lo.FindDuplicates(ids) {
		errs = append(errs, FieldError{
			Field:   "ingredients",
			Code:    CodeDuplicateIngredient,
			Message: fmt.Sprintf("ingredient %d is listed more than once", id),
		})
	}
	return errs
}

func checkTags(in RecipeInput, mode recipeMode, checks recipeChecks) []FieldError {
	if in.Tags == nil && mode == modeUpdate {
		return nil
	}
	if len(in.Tags) == 0 {
		return []FieldError{{Field: "tags", Code: CodeEmptyTags, Message: "at least one tag is required"}}
	}

	var errs []FieldError
	for _, id := range in.Tags {
		if !checks.tags[id] {
			errs = append(errs, FieldError{
				Field:   "tags",
				Code:    CodeTagNotFound,
				Message: fmt.Sprintf("tag %d does not exist", id),
			})
		}
	}
	for _, id := range lo.FindDuplicates(in.Tags) {
		errs = append(errs, FieldError{
			Field:   "tags",
			Code:    CodeDuplicateTag,
			Message: fmt.Sprintf("tag %d is listed more than once", id),
		})
	}
	return errs
}

func checkImage(_ RecipeInput, _ recipeMode, checks recipeChecks) []FieldError {
	if checks.imageErr != nil {
		return []FieldError{{Field: "image", Code: CodeInvalidImage, Message: checks.imageErr.Error()}}
	}
	return nil
}

// validatePassword applies the password strength rules.
func validatePassword(field, password string) []FieldError {
	var errs []FieldError
	if len(password) < minPasswordLength {
		errs = append(errs, FieldError{
			Field:   field,
			Code:    CodePasswordTooShort,
			Message: fmt.Sprintf("password must contain at least %d characters", minPasswordLength),
		})
	}
	if len(password) > maxPasswordBytes {
		errs = append(errs, FieldError{
			Field:   field,
			Code:    CodePasswordTooLong,
			Message: fmt.Sprintf("password must not be longer than %d bytes", maxPasswordBytes),
		})
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		errs = append(errs, FieldError{Field: field, Code: CodePasswordNumeric, Message: "password must not be entirely numeric"})
	}
	return errs
}
