package models

// RegisterRequest is the payload of POST /users.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,max=72"`
}

// UserUpdateRequest is the payload of PATCH /users/me. Omitted fields are left untouched.
type UserUpdateRequest struct {
	Email     *string `json:"email" binding:"omitempty,email,max=254"`
	Username  *string `json:"username" binding:"omitempty,max=150,username"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
}

type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required,max=72"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

type TokenRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AvatarRequest struct {
	Avatar string `json:"avatar"`
}

type RecipeIngredientRequest struct {
	ID     uint    `json:"id"`
	Amount float64 `json:"amount"`
}

// RecipeRequest is the JSON payload of POST /recipes and PATCH /recipes/{id}.
// Nil slices mean the field was omitted, empty slices that it was sent empty.
type RecipeRequest struct {
	Ingredients []RecipeIngredientRequest `json:"ingredients"`
	Tags        []uint                    `json:"tags"`
	Image       *string                   `json:"image"`
	Name        *string                   `json:"name" binding:"omitempty,max=256"`
	Text        *string                   `json:"text"`
	CookingTime *int                      `json:"cooking_time"`
}
