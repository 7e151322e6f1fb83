package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/foodgram/internal/api/models"
	"github.com/jon4hz/foodgram/internal/config"
	"github.com/jon4hz/foodgram/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

func testContext(target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", engine.NewValidationError("name", engine.CodeRequired, "required"), http.StatusBadRequest},
		{"conflict", &engine.ConflictError{Code: engine.ConflictAlreadyFavorited, Message: "exists"}, http.StatusBadRequest},
		{"permission", engine.ErrPermissionDenied, http.StatusForbidden},
		{"not found", fmt.Errorf("recipe %w", engine.ErrNotFound), http.StatusNotFound},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext("/", "")
			writeError(c, tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	c, w := testContext("/", "")
	writeError(c, errors.New("secret path /var/lib/foodgram"))
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestBindErrorUsesJSONNames(t *testing.T) {
	c, _ := testContext("/", `{"email":"x","username":"bad name","first_name":"a","last_name":"b"}`)

	var req models.RegisterRequest
	err := bindError(c.ShouldBindJSON(&req))

	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)
	got := map[string]string{}
	for _, fe := range verr.Errors {
		got[fe.Field] = fe.Code
	}
	assert.Equal(t, map[string]string{
		"email":    "invalid_email",
		"username": engine.CodeInvalidUsername,
		"password": engine.CodeRequired,
	}, got)
}

func TestBindErrorMalformedBody(t *testing.T) {
	for _, body := range []string{"", "{", `{"cooking_time":"soon"}`} {
		c, _ := testContext("/", body)
		var req models.RecipeRequest
		err := bindError(c.ShouldBindJSON(&req))

		var verr *engine.ValidationError
		assert.ErrorAs(t, err, &verr, "body %q", body)
	}
}

func TestParseRecipesLimit(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", -1, false},
		{"?recipes_limit=3", 3, false},
		{"?recipes_limit=0", 0, true},
		{"?recipes_limit=-2", 0, true},
		{"?recipes_limit=abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := testContext("/users/subscriptions"+tt.query, "")
			got, err := parseRecipesLimit(c)
			if tt.wantErr {
				var verr *engine.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.True(t, verr.Has(engine.CodeInvalidLimit))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePage(t *testing.T) {
	h := &Handler{config: &config.Config{
		ServerURL:  "http://localhost",
		Pagination: &config.PaginationConfig{DefaultLimit: 6, MaxLimit: 50},
	}}

	tests := []struct {
		query string
		want  engine.Page
	}{
		{"", engine.Page{Limit: 6}},
		{"?limit=10&offset=20", engine.Page{Limit: 10, Offset: 20}},
		{"?limit=500", engine.Page{Limit: 50}},
		{"?limit=0&offset=-1", engine.Page{Limit: 6}},
		{"?limit=abc&offset=abc", engine.Page{Limit: 6}},
		{"?offset=9223372036854775807", engine.Page{Limit: 6, Offset: maxOffset}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := testContext("/recipes"+tt.query, "")
			assert.Equal(t, tt.want, h.parsePage(c))
		})
	}
}

func TestPaginateKeepsFilters(t *testing.T) {
	h := &Handler{config: &config.Config{ServerURL: "http://localhost"}}
	c, _ := testContext("/api/recipes?tags=lunch&limit=2&offset=2", "")

	page := paginate(h, c, engine.Page{Limit: 2, Offset: 2}, 5, []int{3, 4})
	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://localhost/api/recipes?limit=2&offset=4&tags=lunch", *page.Next)
	assert.Equal(t, "http://localhost/api/recipes?limit=2&tags=lunch", *page.Previous)

	empty := paginate[int](h, c, engine.Page{Limit: 2}, 0, nil)
	assert.NotNil(t, empty.Results)
	assert.Nil(t, empty.Next)
	assert.Nil(t, empty.Previous)
}

func TestPaginateLargeOffset(t *testing.T) {
	h := &Handler{config: &config.Config{
		ServerURL:  "http://localhost",
		Pagination: &config.PaginationConfig{DefaultLimit: 6, MaxLimit: 50},
	}}
	c, _ := testContext("/api/recipes?limit=50&offset=9223372036854775807", "")

	page := h.parsePage(c)
	out := paginate[int](h, c, page, 10, nil)
	assert.Nil(t, out.Next)
	require.NotNil(t, out.Previous)
	assert.Contains(t, *out.Previous, "offset="+strconv.Itoa(maxOffset-50))
}
