package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/database"
	"gorm.io/gorm"
)

// Subscribe makes the viewer follow the target and returns the target's subscription view.
func (e *Engine) Subscribe(ctx context.Context, viewer Viewer, targetID uint, recipesLimit int) (*models.UserWithRecipes, error) {
	if viewer.Anonymous() {
		return nil, ErrPermissionDenied
	}

	target, err := e.db.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, wrapDB(err, "user", "get user")
	}
	if target.ID == viewer.ID {
		return nil, conflict(ConflictSelfSubscription, "you cannot subscribe to yourself")
	}

	exists, err := e.db.FollowExists(ctx, viewer.ID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}
	if exists {
		return nil, conflict(ConflictAlreadySubscribed, "you are already subscribed to this user")
	}

	if err := e.db.CreateFollow(ctx, viewer.ID, target.ID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict(ConflictAlreadySubscribed, "you are already subscribed to this user")
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	views, err := e.projector.ProjectUsersWithRecipes(ctx, viewer, []database.User{*target}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Unsubscribe removes the viewer's subscription to the target.
func (e *Engine) Unsubscribe(ctx context.Context, viewer Viewer, targetID uint) error {
	if viewer.Anonymous() {
		return ErrPermissionDenied
	}

	if _, err := e.db.GetUserByID(ctx, targetID); err != nil {
		return wrapDB(err, "user", "get user")
	}

	removed, err := e.db.DeleteFollow(ctx, viewer.ID, targetID)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	if !removed {
		return conflict(ConflictNotSubscribed, "you are not subscribed to this user")
	}
	return nil
}

// Subscriptions returns one page of the users the viewer follows and the total count.
func (e *Engine) Subscriptions(ctx context.Context, viewer Viewer, page Page, recipesLimit int) ([]models.UserWithRecipes, int64, error) {
	if viewer.Anonymous() {
		return nil, 0, ErrPermissionDenied
	}

	users, total, err := e.db.ListFollowing(ctx, viewer.ID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	views, err := e.projector.ProjectUsersWithRecipes(ctx, viewer, users, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}
