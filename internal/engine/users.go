package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/database"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// ProfileUpdate holds the profile fields to change. Nil fields are left untouched.
type ProfileUpdate struct {
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkIdentity validates username and email and reports values taken by another user.
func (e *Engine) checkIdentity(ctx context.Context, selfID uint, email, username *string) error {
	var errs []FieldError

	if username != nil {
		if tooLong := checkLength("username", *username, MaxUsernameLength); tooLong != nil {
			errs = append(errs, tooLong...)
		} else if !ValidUsername(*username) {
			errs = append(errs, FieldError{Field: "username", Code: CodeInvalidUsername, Message: "enter a valid username"})
		} else {
			other, err := e.db.GetUserByUsername(ctx, *username)
			switch {
			case err == nil && other.ID != selfID:
				errs = append(errs, FieldError{Field: "username", Code: CodeUsernameTaken, Message: "a user with that username already exists"})
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("failed to look up username: %w", err)
			}
		}
	}

	if email != nil {
		if tooLong := checkLength("email", *email, MaxEmailLength); tooLong != nil {
			errs = append(errs, tooLong...)
		} else {
			other, err := e.db.GetUserByEmail(ctx, *email)
			switch {
			case err == nil && other.ID != selfID:
				errs = append(errs, FieldError{Field: "email", Code: CodeEmailTaken, Message: "a user with that email already exists"})
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("failed to look up email: %w", err)
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// checkNames enforces the first and last name limits. Nil values are skipped.
func checkNames(firstName, lastName *string) []FieldError {
	var errs []FieldError
	if firstName != nil {
		errs = append(errs, checkLength("first_name", *firstName, MaxPersonNameLength)...)
	}
	if lastName != nil {
		errs = append(errs, checkLength("last_name", *lastName, MaxPersonNameLength)...)
	}
	return errs
}

// identityConflict maps a unique constraint violation raced past checkIdentity.
func identityConflict(err error) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if strings.Contains(err.Error(), "username") {
		return NewValidationError("username", CodeUsernameTaken, "a user with that username already exists")
	}
	return NewValidationError("email", CodeEmailTaken, "a user with that email already exists")
}

// Register creates a new account.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*models.UserCreated, error) {
	in.Email = normalizeEmail(in.Email)

	var errs []FieldError
	if err := e.checkIdentity(ctx, 0, &in.Email, &in.Username); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		errs = append(errs, verr.Errors...)
	}
	errs = append(errs, checkNames(&in.FirstName, &in.LastName)...)
	errs = append(errs, validatePassword("password", in.Password)...)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hash),
	}
	if err := e.db.CreateUser(ctx, user); err != nil {
		return nil, identityConflict(err)
	}

	log.Info("Registered user", "id", user.ID, "username", user.Username)
	created := models.ToUserCreated(*user)
	return &created, nil
}

// Authenticate checks email and password and returns the user.
// Unknown addresses and wrong passwords fail the same way.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (*database.User, error) {
	invalid := NewValidationError("non_field_errors", CodeInvalidCredentials, "unable to log in with provided credentials")

	user, err := e.db.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

// GetUser returns the profile of a user as seen by the viewer.
func (e *Engine) GetUser(ctx context.Context, viewer Viewer, id uint) (*models.User, error) {
	user, err := e.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, wrapDB(err, "user", "get user")
	}
	return e.projector.ProjectUser(ctx, viewer, user)
}

// Me returns the viewer's own profile.
func (e *Engine) Me(ctx context.Context, viewer Viewer) (*models.User, error) {
	if viewer.Anonymous() {
		return nil, ErrPermissionDenied
	}
	return e.GetUser(ctx, viewer, viewer.ID)
}

// ListUsers returns one page of profiles and the total number of users.
func (e *Engine) ListUsers(ctx context.Context, viewer Viewer, page Page) ([]models.User, int64, error) {
	users, total, err := e.db.ListUsers(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	out, err := e.projector.ProjectUsers(ctx, viewer, users)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateProfile changes the viewer's profile fields.
func (e *Engine) UpdateProfile(ctx context.Context, viewer Viewer, upd ProfileUpdate) (*models.User, error) {
	if viewer.Anonymous() {
		return nil, ErrPermissionDenied
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		upd.Email = &email
	}
	if errs := checkNames(upd.FirstName, upd.LastName); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	if err := e.checkIdentity(ctx, viewer.ID, upd.Email, upd.Username); err != nil {
		return nil, err
	}

	err := e.db.UpdateUser(ctx, viewer.ID, database.UserUpdate{
		Email:     upd.Email,
		Username:  upd.Username,
		FirstName: upd.FirstName,
		LastName:  upd.LastName,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, identityConflict(err)
	}
	return e.Me(ctx, viewer)
}

// SetPassword changes the viewer's password after checking the current one.
func (e *Engine) SetPassword(ctx context.Context, viewer Viewer, current, next string) error {
	if viewer.Anonymous() {
		return ErrPermissionDenied
	}
	user, err := e.db.GetUserByID(ctx, viewer.ID)
	if err != nil {
		return wrapDB(err, "user", "get user")
	}

	var errs []FieldError
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		errs = append(errs, FieldError{Field: "current_password", Code: CodeWrongPassword, Message: "current password is incorrect"})
	}
	errs = append(errs, validatePassword("new_password", next)...)
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := e.db.SetUserPassword(ctx, viewer.ID, string(hash)); err != nil {
		return wrapDB(err, "user", "set password")
	}
	return nil
}

// FindUser looks a user up by email or username.
func (e *Engine) FindUser(ctx context.Context, ref string) (*database.User, error) {
	var (
		user *database.User
		err  error
	)
	switch {
	case strings.Contains(ref, "@"):
		user, err = e.db.GetUserByEmail(ctx, normalizeEmail(ref))
	default:
		user, err = e.db.GetUserByUsername(ctx, ref)
	}
	if err != nil {
		return nil, wrapDB(err, "user", "get user")
	}
	return user, nil
}

// SetAdmin grants or revokes the admin role.
func (e *Engine) SetAdmin(ctx context.Context, ref string, isAdmin bool) (*database.User, error) {
	user, err := e.FindUser(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := e.db.SetUserAdmin(ctx, user.ID, isAdmin); err != nil {
		return nil, wrapDB(err, "user", "set admin flag")
	}
	user.IsAdmin = isAdmin
	return user, nil
}

// DeleteUser removes an account with everything it owns, including stored images.
func (e *Engine) DeleteUser(ctx context.Context, ref string) (*database.User, error) {
	user, err := e.FindUser(ctx, ref)
	if err != nil {
		return nil, err
	}
	recipes, err := e.db.ListRecipesByAuthor(ctx, user.ID, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	if err := e.db.DeleteUser(ctx, user.ID); err != nil {
		return nil, wrapDB(err, "user", "delete user")
	}

	e.removeImage(ctx, user.Avatar)
	for _, r := range recipes {
		e.removeImage(ctx, r.Image)
	}
	log.Info("Deleted user", "id", user.ID, "recipes", len(recipes))
	return user, nil
}
