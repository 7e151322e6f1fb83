package database

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Stats holds row counts of the main tables.
type Stats struct {
	Users        int64
	Recipes      int64
	Tags         int64
	Ingredients  int64
	Follows      int64
	Favorites    int64
	ShoppingCart int64
}

// Stats counts the rows of the main tables concurrently.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	counts := []struct {
		model any
		dst   *int64
	}{
		{&User{}, &stats.Users},
		{&Recipe{}, &stats.Recipes},
		{&Tag{}, &stats.Tags},
		{&Ingredient{}, &stats.Ingredients},
		{&Follow{}, &stats.Follows},
		{&Favorite{}, &stats.Favorites},
		{&ShoppingCart{}, &stats.ShoppingCart},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, cnt := range counts {
		g.Go(func() error {
			return c.db.WithContext(ctx).Model(cnt.model).Count(cnt.dst).Error
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}
