package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/foodgram/internal/config"
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/jon4hz/foodgram/internal/gravatar"
	"github.com/jon4hz/foodgram/internal/media"
	"github.com/samber/lo"
)

// storage directories
const (
	recipeImageDir = "recipes"
	avatarImageDir = "users"
)

// Engine implements the Foodgram domain operations on top of the database and the media storage.
// Every operation takes the viewer it runs as explicitly.
type Engine struct {
	cfg       *config.Config
	db        database.DB
	storage   media.Storage
	images    *media.Processor
	projector *Projector
}

// New creates a new Engine instance.
func New(cfg *config.Config, db database.DB, storage media.Storage) (*Engine, error) {
	avatars, err := gravatar.New(cfg.Gravatar)
	if err != nil {
		return nil, fmt.Errorf("failed to create gravatar resolver: %w", err)
	}

	return &Engine{
		cfg:       cfg,
		db:        db,
		storage:   storage,
		images:    media.NewProcessor(cfg.Media),
		projector: NewProjector(db, storage, avatars),
	}, nil
}

// Projector returns the projector used to build read views.
func (e *Engine) Projector() *Projector {
	return e.projector
}

// Images returns the upload processor.
func (e *Engine) Images() *media.Processor {
	return e.images
}

// prepareImage decodes and normalizes an upload. Client side problems are returned
// as media.ErrInvalidImage or media.ErrTooLarge.
func (e *Engine) prepareImage(up *ImageUpload) (*media.Image, error) {
	raw := up.Raw
	if up.DataURI != "" {
		var err error
		raw, err = media.ParseDataURI(up.DataURI)
		if err != nil {
			return nil, err
		}
	}
	return e.images.Process(raw)
}

func isClientImageError(err error) bool {
	return errors.Is(err, media.ErrInvalidImage) || errors.Is(err, media.ErrTooLarge)
}

// removeImage deletes a stored image. Failures are logged and otherwise ignored.
func (e *Engine) removeImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := e.storage.Delete(ctx, key); err != nil {
		log.Warn("failed to remove stored image", "key", key, "error", err)
	}
}

// Ping checks that the database is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.db.Ping(ctx)
}

// existingSet returns the subset of ids the lookup reports as existing.
func existingSet(ctx context.Context, ids []uint, lookup func(context.Context, []uint) ([]uint, error)) (map[uint]bool, error) {
	found, err := lookup(ctx, lo.Uniq(ids))
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(found, func(id uint) (uint, bool) { return id, true }), nil
}
