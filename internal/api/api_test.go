package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/foodgram/internal/config"
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/jon4hz/foodgram/internal/engine"
	"github.com/jon4hz/foodgram/internal/media"
	"github.com/stretchr/testify/suite"
)

type APITestSuite struct {
	suite.Suite
	db      *database.Client
	handler http.Handler

	aliceToken string
	bobToken   string
	aliceID    uint
	tagID      uint
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	dir := s.T().TempDir()

	cfg := &config.Config{
		Listen:    ":0",
		ServerURL: "http://testserver",
		MediaURL:  "http://testserver/media/",
		Database:  &config.DatabaseConfig{Path: filepath.Join(dir, "test.db")},
		Auth:      &config.AuthConfig{TokenSecret: "0123456789abcdef0123456789abcdef"},
		Pagination: &config.PaginationConfig{
			DefaultLimit: 6,
			MaxLimit:     100,
		},
		Media: &config.MediaConfig{
			Backend:        config.MediaBackendLocal,
			Root:           filepath.Join(dir, "media"),
			MaxWidth:       64,
			MaxHeight:      64,
			Quality:        80,
			MaxUploadBytes: 1 << 20,
		},
		Gravatar: &config.GravatarConfig{},
	}

	db, err := database.New(cfg.Database.Path)
	s.Require().NoError(err)
	s.db = db

	store, err := media.NewLocal(cfg.Media.Root, cfg.MediaURL)
	s.Require().NoError(err)
	eng, err := engine.New(cfg, db, store)
	s.Require().NoError(err)

	server, err := New(cfg, db, eng, true)
	s.Require().NoError(err)
	s.handler = server.Handler()

	ctx := context.Background()
	_, err = db.CreateIngredients(ctx, []database.Ingredient{
		{Name: "tea", MeasurementUnit: "g"},
		{Name: "water", MeasurementUnit: "ml"},
	})
	s.Require().NoError(err)
	tag := database.Tag{Name: "breakfast", Slug: "breakfast"}
	s.Require().NoError(db.CreateTag(ctx, &tag))
	s.tagID = tag.ID

	s.aliceID, s.aliceToken = s.signup("alice")
	_, s.bobToken = s.signup("bob")
}

func (s *APITestSuite) TearDownTest() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *APITestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *APITestSuite) signup(username string) (uint, string) {
	w := s.do(http.MethodPost, "/api/users", "", map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": username,
		"last_name":  "Test",
		"password":   "correct horse battery",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID uint `json:"id"`
	}
	s.decode(w, &created)

	w = s.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email":    username + "@example.com",
		"password": "correct horse battery",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var token struct {
		AuthToken string `json:"auth_token"`
	}
	s.decode(w, &token)
	s.Require().NotEmpty(token.AuthToken)
	return created.ID, token.AuthToken
}

func pngBytes() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	return buf.Bytes()
}

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes())
}

func (s *APITestSuite) teaPayload(ingredients ...map[string]any) map[string]any {
	if len(ingredients) == 0 {
		ingredients = []map[string]any{{"id": 1, "amount": 2}}
	}
	return map[string]any{
		"ingredients":  ingredients,
		"tags":         []uint{s.tagID},
		"image":        pngDataURI(),
		"name":         "Tea",
		"text":         "Boil water",
		"cooking_time": 5,
	}
}

type recipeBody struct {
	ID          uint `json:"id"`
	Ingredients []struct {
		ID              uint    `json:"id"`
		Name            string  `json:"name"`
		MeasurementUnit string  `json:"measurement_unit"`
		Amount          float64 `json:"amount"`
	} `json:"ingredients"`
	Author struct {
		ID           uint `json:"id"`
		IsSubscribed bool `json:"is_subscribed"`
	} `json:"author"`
	IsFavorited      bool   `json:"is_favorited"`
	IsInShoppingCart bool   `json:"is_in_shopping_cart"`
	Image            string `json:"image"`
}

type errorBody struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []engine.FieldError `json:"details"`
}

func (s *APITestSuite) createTea() recipeBody {
	w := s.do(http.MethodPost, "/api/recipes", s.aliceToken, s.teaPayload())
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var r recipeBody
	s.decode(w, &r)
	return r
}

func (s *APITestSuite) recipeCount() int64 {
	w := s.do(http.MethodGet, "/api/recipes", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Count int64 `json:"count"`
	}
	s.decode(w, &page)
	return page.Count
}

// TestTeaExample tests the create round trip and the duplicate ingredient rejection
func (s *APITestSuite) TestTeaExample() {
	r := s.createTea()
	s.Require().Len(r.Ingredients, 1)
	s.Equal(uint(1), r.Ingredients[0].ID)
	s.Equal("tea", r.Ingredients[0].Name)
	s.Equal("g", r.Ingredients[0].MeasurementUnit)
	s.Equal(float64(2), r.Ingredients[0].Amount)
	s.Equal(s.aliceID, r.Author.ID)
	s.Contains(r.Image, "http://testserver/media/recipes/")

	w := s.do(http.MethodPost, "/api/recipes", s.aliceToken, s.teaPayload(
		map[string]any{"id": 1, "amount": 2},
		map[string]any{"id": 1, "amount": 3},
	))
	s.Equal(http.StatusBadRequest, w.Code)
	var body errorBody
	s.decode(w, &body)
	s.Require().NotEmpty(body.Details)
	s.Equal(engine.CodeDuplicateIngredient, body.Details[0].Code)
	s.Equal("ingredients", body.Details[0].Field)

	s.EqualValues(1, s.recipeCount())
}

// TestCreateRecipeMultipart tests the binary upload form
func (s *APITestSuite) TestCreateRecipeMultipart() {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.WriteField("name", "Tea"))
	s.Require().NoError(mw.WriteField("text", "Boil water"))
	s.Require().NoError(mw.WriteField("cooking_time", "5"))
	s.Require().NoError(mw.WriteField("ingredients", `[{"id":2,"amount":250}]`))
	s.Require().NoError(mw.WriteField("tags", "1"))
	part, err := mw.CreateFormFile("image", "tea.png")
	s.Require().NoError(err)
	_, err = part.Write(pngBytes())
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recipes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.aliceToken)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var r recipeBody
	s.decode(w, &r)
	s.Require().Len(r.Ingredients, 1)
	s.Equal("water", r.Ingredients[0].Name)
	s.Equal(float64(250), r.Ingredients[0].Amount)
}

// TestOverlongInput tests that values past the column limits are reported as validation errors
func (s *APITestSuite) TestOverlongInput() {
	codes := func(w *httptest.ResponseRecorder) map[string]string {
		s.Require().Equal(http.StatusBadRequest, w.Code, w.Body.String())
		var body errorBody
		s.decode(w, &body)
		out := map[string]string{}
		for _, d := range body.Details {
			out[d.Field] = d.Code
		}
		return out
	}
	register := func(password string) *httptest.ResponseRecorder {
		return s.do(http.MethodPost, "/api/users", "", map[string]string{
			"email":      "carol@example.com",
			"username":   "carol",
			"first_name": "Carol",
			"last_name":  "Test",
			"password":   password,
		})
	}

	s.Equal(engine.CodeMaxLength, codes(register(strings.Repeat("p", 100)))["password"])
	// 40 characters but 80 bytes
	s.Equal(engine.CodePasswordTooLong, codes(register(strings.Repeat("ж", 40)))["password"])

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.WriteField("name", strings.Repeat("n", 300)))
	s.Require().NoError(mw.WriteField("text", "Boil water"))
	s.Require().NoError(mw.WriteField("cooking_time", "5"))
	s.Require().NoError(mw.WriteField("ingredients", `[{"id":2,"amount":250}]`))
	s.Require().NoError(mw.WriteField("tags", "1"))
	part, err := mw.CreateFormFile("image", "tea.png")
	s.Require().NoError(err)
	_, err = part.Write(pngBytes())
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recipes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.aliceToken)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	s.Equal(engine.CodeMaxLength, codes(w)["name"])
	s.Zero(s.recipeCount())
}

// TestRecipePermissions tests that only the author may change a recipe
func (s *APITestSuite) TestRecipePermissions() {
	r := s.createTea()
	path := "/api/recipes/" + itoa(r.ID)

	s.Equal(http.StatusForbidden, s.do(http.MethodPatch, path, s.bobToken, s.teaPayload()).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, path, s.bobToken, nil).Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodDelete, path, "", nil).Code)

	w := s.do(http.MethodPatch, path, s.aliceToken, map[string]any{"name": "Green tea", "ingredients": []map[string]any{{"id": 2, "amount": 1}}})
	s.Equal(http.StatusBadRequest, w.Code)
	var body errorBody
	s.decode(w, &body)
	s.Equal(engine.CodeMissingAssociations, body.Details[0].Code)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, path, s.aliceToken, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, "", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/recipes/abc", "", nil).Code)
}

// TestFavoritesAndCart tests the relation toggles and the shopping list download
func (s *APITestSuite) TestFavoritesAndCart() {
	r := s.createTea()
	favorite := "/api/recipes/" + itoa(r.ID) + "/favorite"
	cart := "/api/recipes/" + itoa(r.ID) + "/shopping_cart"

	w := s.do(http.MethodPost, favorite, s.bobToken, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, favorite, s.bobToken, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	var body errorBody
	s.decode(w, &body)
	s.Equal(engine.ConflictAlreadyFavorited, body.Code)

	s.Equal(http.StatusCreated, s.do(http.MethodPost, cart, s.bobToken, nil).Code)

	var seen recipeBody
	s.decode(s.do(http.MethodGet, "/api/recipes/"+itoa(r.ID), s.bobToken, nil), &seen)
	s.True(seen.IsFavorited)
	s.True(seen.IsInShoppingCart)

	var anon recipeBody
	s.decode(s.do(http.MethodGet, "/api/recipes/"+itoa(r.ID), "", nil), &anon)
	s.False(anon.IsFavorited)
	s.False(anon.IsInShoppingCart)

	w = s.do(http.MethodGet, "/api/recipes/download_shopping_cart", s.bobToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(`attachment; filename="shopping_list.txt"`, w.Header().Get("Content-Disposition"))
	s.Contains(w.Header().Get("Content-Type"), "text/plain")
	s.Equal("tea (g) — 2\n", w.Body.String())

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, favorite, s.bobToken, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, favorite, s.bobToken, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/recipes/9999/favorite", s.bobToken, nil).Code)
}

// TestSubscriptions tests subscribe rules and the subscription list
func (s *APITestSuite) TestSubscriptions() {
	s.createTea()
	s.createTea()
	subscribe := "/api/users/" + itoa(s.aliceID) + "/subscribe"

	w := s.do(http.MethodPost, subscribe+"?recipes_limit=1", s.bobToken, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var view struct {
		ID           uint  `json:"id"`
		IsSubscribed bool  `json:"is_subscribed"`
		RecipesCount int64 `json:"recipes_count"`
		Recipes      []any `json:"recipes"`
	}
	s.decode(w, &view)
	s.True(view.IsSubscribed)
	s.EqualValues(2, view.RecipesCount)
	s.Len(view.Recipes, 1)

	var body errorBody
	s.decode(s.do(http.MethodPost, subscribe, s.bobToken, nil), &body)
	s.Equal(engine.ConflictAlreadySubscribed, body.Code)

	w = s.do(http.MethodPost, subscribe, s.aliceToken, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.decode(w, &body)
	s.Equal(engine.ConflictSelfSubscription, body.Code)

	w = s.do(http.MethodGet, "/api/users/subscriptions?recipes_limit=abc", s.bobToken, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/users/subscriptions", s.bobToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Count   int64 `json:"count"`
		Results []struct {
			Recipes []any `json:"recipes"`
		} `json:"results"`
	}
	s.decode(w, &page)
	s.EqualValues(1, page.Count)
	s.Len(page.Results[0].Recipes, 2)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, subscribe, s.bobToken, nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodDelete, subscribe, s.bobToken, nil).Code)
}

// TestPagination tests the next and previous links
func (s *APITestSuite) TestPagination() {
	for range 3 {
		s.createTea()
	}

	w := s.do(http.MethodGet, "/api/recipes?limit=2", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Count    int64   `json:"count"`
		Next     *string `json:"next"`
		Previous *string `json:"previous"`
		Results  []any   `json:"results"`
	}
	s.decode(w, &page)
	s.EqualValues(3, page.Count)
	s.Len(page.Results, 2)
	s.Require().NotNil(page.Next)
	s.Equal("http://testserver/api/recipes?limit=2&offset=2", *page.Next)
	s.Nil(page.Previous)

	w = s.do(http.MethodGet, "/api/recipes?limit=2&offset=2", "", nil)
	s.decode(w, &page)
	s.Len(page.Results, 1)
	s.Nil(page.Next)
	s.Require().NotNil(page.Previous)
	s.Equal("http://testserver/api/recipes?limit=2", *page.Previous)
}

// TestUsers tests registration validation, profiles and password changes
func (s *APITestSuite) TestUsers() {
	w := s.do(http.MethodPost, "/api/users", "", map[string]string{
		"email":      "not-an-email",
		"username":   "me",
		"first_name": "x",
		"last_name":  "y",
		"password":   "whatever1",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	var body errorBody
	s.decode(w, &body)
	fields := map[string]string{}
	for _, d := range body.Details {
		fields[d.Field] = d.Code
	}
	s.Equal("invalid_email", fields["email"])
	s.Equal(engine.CodeInvalidUsername, fields["username"])

	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/users/me", "", nil).Code)

	w = s.do(http.MethodPatch, "/api/users/me", s.aliceToken, map[string]string{"first_name": "Alice"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var me struct {
		FirstName string  `json:"first_name"`
		Avatar    *string `json:"avatar"`
	}
	s.decode(w, &me)
	s.Equal("Alice", me.FirstName)
	s.Nil(me.Avatar)

	w = s.do(http.MethodPost, "/api/users/set_password", s.aliceToken, map[string]string{
		"current_password": "wrong",
		"new_password":     "another good one",
	})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/users/set_password", s.aliceToken, map[string]string{
		"current_password": "correct horse battery",
		"new_password":     "another good one",
	})
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/users/"+itoa(s.aliceID), "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/users/9999", "", nil).Code)
}

// TestAvatar tests the avatar endpoints
func (s *APITestSuite) TestAvatar() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodPut, "/api/users/me/avatar", s.aliceToken, map[string]string{}).Code)

	w := s.do(http.MethodPut, "/api/users/me/avatar", s.aliceToken, map[string]string{"avatar": pngDataURI()})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var avatar struct {
		Avatar string `json:"avatar"`
	}
	s.decode(w, &avatar)
	s.Contains(avatar.Avatar, "http://testserver/media/users/")

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/users/me/avatar", s.aliceToken, nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodDelete, "/api/users/me/avatar", s.aliceToken, nil).Code)
}

// TestLoginAndLogout tests token issuance and revocation
func (s *APITestSuite) TestLoginAndLogout() {
	w := s.do(http.MethodPost, "/api/auth/token", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	s.Equal(http.StatusBadRequest, w.Code)
	var body errorBody
	s.decode(w, &body)
	s.Equal(engine.CodeInvalidCredentials, body.Details[0].Code)

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/users/me", s.aliceToken, nil).Code)
	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/api/auth/token/logout", s.aliceToken, nil).Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/users/me", s.aliceToken, nil).Code)
}

// TestCatalog tests the reference data endpoints
func (s *APITestSuite) TestCatalog() {
	w := s.do(http.MethodGet, "/api/ingredients?name=TE", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var ingredients []map[string]any
	s.decode(w, &ingredients)
	s.Require().Len(ingredients, 1)
	s.Equal("tea", ingredients[0]["name"])

	w = s.do(http.MethodGet, "/api/tags", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`[{"id":1,"name":"breakfast","slug":"breakfast"}]`, w.Body.String())

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/tags/42", "", nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/ingredients/2", "", nil).Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
