package handler

import (
	"math"
	"net/url"
	"strconv"

	"github.com/ccoveille/go-safecast"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/engine"
)

// maxOffset bounds the offset so offset+limit cannot overflow.
const maxOffset = math.MaxInt32

// parsePage reads limit and offset. Missing or invalid values fall back to the defaults,
// the limit is capped by the configured maximum.
func (h *Handler) parsePage(c *gin.Context) engine.Page {
	page := engine.Page{Limit: h.config.Pagination.DefaultLimit}

	if l := c.Query("limit"); l != "" {
		if v, err := parseUintParam(l); err == nil && v > 0 {
			if limit, err := safecast.ToInt(v); err == nil {
				page.Limit = min(limit, h.config.Pagination.MaxLimit)
			}
		}
	}
	if o := c.Query("offset"); o != "" {
		if v, err := parseUintParam(o); err == nil {
			if offset, err := safecast.ToInt(v); err == nil {
				page.Offset = min(offset, maxOffset)
			}
		}
	}
	return page
}

// pageURL returns the absolute URL of the current request with limit and offset replaced.
func (h *Handler) pageURL(c *gin.Context, limit, offset int) *string {
	q := c.Request.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u := url.URL{Path: c.Request.URL.Path, RawQuery: q.Encode()}
	s := h.config.ServerURL + u.String()
	return &s
}

// paginate wraps one page of results in the list envelope.
func paginate[T any](h *Handler, c *gin.Context, page engine.Page, total int64, results []T) models.Page[T] {
	out := models.Page[T]{Count: total, Results: results}
	if out.Results == nil {
		out.Results = []T{}
	}
	if next := int64(page.Offset) + int64(page.Limit); next < total {
		out.Next = h.pageURL(c, page.Limit, page.Offset+page.Limit)
	}
	if page.Offset > 0 {
		out.Previous = h.pageURL(c, page.Limit, max(page.Offset-page.Limit, 0))
	}
	return out
}

// parseRecipesLimit reads recipes_limit. A missing value means all recipes (-1).
func parseRecipesLimit(c *gin.Context) (int, error) {
	raw, ok := c.GetQuery("recipes_limit")
	if !ok {
		return -1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, engine.NewValidationError("recipes_limit", engine.CodeInvalidLimit, "recipes_limit must be a positive integer")
	}
	return n, nil
}
