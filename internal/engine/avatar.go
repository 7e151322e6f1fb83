package engine

import (
	"context"
	"fmt"
)

// SetAvatar stores a new avatar for the viewer, replacing the old one, and returns its URL.
func (e *Engine) SetAvatar(ctx context.Context, viewer Viewer, upload *ImageUpload) (string, error) {
	if viewer.Anonymous() {
		return "", ErrPermissionDenied
	}
	if upload == nil || (upload.DataURI == "" && len(upload.Raw) == 0) {
		return "", NewValidationError("avatar", CodeRequired, "this field is required")
	}

	user, err := e.db.GetUserByID(ctx, viewer.ID)
	if err != nil {
		return "", wrapDB(err, "user", "get user")
	}

	img, err := e.prepareImage(upload)
	if err != nil {
		if isClientImageError(err) {
			return "", NewValidationError("avatar", CodeInvalidImage, err.Error())
		}
		return "", err
	}

	key, err := e.storage.Save(ctx, avatarImageDir, img)
	if err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}
	if err := e.db.SetUserAvatar(ctx, viewer.ID, key); err != nil {
		e.removeImage(ctx, key)
		return "", wrapDB(err, "user", "set avatar")
	}
	e.removeImage(ctx, user.Avatar)

	return e.storage.URL(key), nil
}

// DeleteAvatar removes the viewer's avatar. It fails when none is set.
func (e *Engine) DeleteAvatar(ctx context.Context, viewer Viewer) error {
	if viewer.Anonymous() {
		return ErrPermissionDenied
	}

	user, err := e.db.GetUserByID(ctx, viewer.ID)
	if err != nil {
		return wrapDB(err, "user", "get user")
	}
	if user.Avatar == "" {
		return NewValidationError("avatar", CodeNoAvatar, "no avatar is set")
	}

	if err := e.db.SetUserAvatar(ctx, viewer.ID, ""); err != nil {
		return wrapDB(err, "user", "clear avatar")
	}
	e.removeImage(ctx, user.Avatar)
	return nil
}
