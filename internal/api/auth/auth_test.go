package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jon4hz/foodgram/internal/config"
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// memoryStore keeps token keys in a map.
type memoryStore struct {
	users  map[uint]database.User
	tokens map[uint]string
	seq    int
}

func newMemoryStore(users ...database.User) *memoryStore {
	s := &memoryStore{users: map[uint]database.User{}, tokens: map[uint]string{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memoryStore) GetOrCreateToken(_ context.Context, userID uint) (*database.AuthToken, error) {
	if _, ok := s.tokens[userID]; !ok {
		s.seq++
		s.tokens[userID] = strings.Repeat("k", s.seq)
	}
	return &database.AuthToken{Key: s.tokens[userID], UserID: userID, User: s.users[userID]}, nil
}

func (s *memoryStore) GetToken(_ context.Context, key string) (*database.AuthToken, error) {
	for userID, k := range s.tokens {
		if k == key {
			return &database.AuthToken{Key: k, UserID: userID, User: s.users[userID]}, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memoryStore) DeleteUserToken(_ context.Context, userID uint) (bool, error) {
	_, ok := s.tokens[userID]
	delete(s.tokens, userID)
	return ok, nil
}

func testUser(id uint, admin bool) database.User {
	u := database.User{Username: "user", Email: "user@example.com", IsAdmin: admin}
	u.ID = id
	return u
}

type TokenManagerTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memoryStore
	manager *TokenManager
}

func TestTokenManagerTestSuite(t *testing.T) {
	suite.Run(t, new(TokenManagerTestSuite))
}

func (s *TokenManagerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newMemoryStore(testUser(1, false), testUser(2, true))

	var err error
	s.manager, err = NewTokenManager(&config.AuthConfig{TokenSecret: testSecret, TokenTTL: time.Hour}, s.store)
	s.Require().NoError(err)
}

func (s *TokenManagerTestSuite) TestIssueAndVerify() {
	token, err := s.manager.Issue(s.ctx, 1)
	s.Require().NoError(err)

	user, err := s.manager.Verify(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(uint(1), user.ID)

	// a second login reuses the stored key
	again, err := s.manager.Issue(s.ctx, 1)
	s.Require().NoError(err)
	_, err = s.manager.Verify(s.ctx, again)
	s.NoError(err)
	s.Len(s.store.tokens, 1)
}

func (s *TokenManagerTestSuite) TestRevokeInvalidatesAllTokens() {
	first, err := s.manager.Issue(s.ctx, 1)
	s.Require().NoError(err)
	second, err := s.manager.Issue(s.ctx, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.manager.Revoke(s.ctx, 1))

	_, err = s.manager.Verify(s.ctx, first)
	s.ErrorIs(err, ErrInvalidToken)
	_, err = s.manager.Verify(s.ctx, second)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenManagerTestSuite) TestExpiredToken() {
	token, err := s.manager.Issue(s.ctx, 1)
	s.Require().NoError(err)

	s.manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.manager.Verify(s.ctx, token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenManagerTestSuite) TestZeroTTLNeverExpires() {
	manager, err := NewTokenManager(&config.AuthConfig{TokenSecret: testSecret}, s.store)
	s.Require().NoError(err)

	token, err := manager.Issue(s.ctx, 1)
	s.Require().NoError(err)

	manager.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
	_, err = manager.Verify(s.ctx, token)
	s.NoError(err)
}

func (s *TokenManagerTestSuite) TestRejectsForgedTokens() {
	key, err := s.store.GetOrCreateToken(s.ctx, 1)
	s.Require().NoError(err)

	tests := []struct {
		name   string
		method jwt.SigningMethod
		secret any
		claims jwt.RegisteredClaims
	}{
		{
			name:   "wrong secret",
			method: jwt.SigningMethodHS256,
			secret: []byte("another secret that is long enough!"),
			claims: jwt.RegisteredClaims{ID: key.Key, Subject: "1"},
		},
		{
			name:   "wrong algorithm",
			method: jwt.SigningMethodHS512,
			secret: []byte(testSecret),
			claims: jwt.RegisteredClaims{ID: key.Key, Subject: "1"},
		},
		{
			name:   "subject does not own key",
			method: jwt.SigningMethodHS256,
			secret: []byte(testSecret),
			claims: jwt.RegisteredClaims{ID: key.Key, Subject: "2"},
		},
		{
			name:   "unknown key",
			method: jwt.SigningMethodHS256,
			secret: []byte(testSecret),
			claims: jwt.RegisteredClaims{ID: "missing", Subject: "1"},
		},
		{
			name:   "malformed subject",
			method: jwt.SigningMethodHS256,
			secret: []byte(testSecret),
			claims: jwt.RegisteredClaims{ID: key.Key, Subject: "alice"},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			signed, err := jwt.NewWithClaims(tt.method, tt.claims).SignedString(tt.secret)
			s.Require().NoError(err)

			_, err = s.manager.Verify(s.ctx, signed)
			s.ErrorIs(err, ErrInvalidToken)
		})
	}

	_, err = s.manager.Verify(s.ctx, "not-a-jwt")
	s.ErrorIs(err, ErrInvalidToken)
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager(&config.AuthConfig{}, newMemoryStore())
	assert.Error(t, err)
	_, err = NewTokenManager(nil, newMemoryStore())
	assert.Error(t, err)
}

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Token abc", "abc", true},
		{"bearer abc", "abc", true},
		{"  Token   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := tokenFromHeader(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newMemoryStore(testUser(1, false), testUser(2, true))
	manager, err := NewTokenManager(&config.AuthConfig{TokenSecret: testSecret}, store)
	require.NoError(t, err)
	userToken, err := manager.Issue(context.Background(), 1)
	require.NoError(t, err)
	adminToken, err := manager.Issue(context.Background(), 2)
	require.NoError(t, err)

	router := gin.New()
	whoami := func(c *gin.Context) {
		viewer := ViewerFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": viewer.ID, "admin": viewer.IsAdmin})
	}
	router.GET("/required", manager.RequireAuth(), whoami)
	router.GET("/optional", manager.OptionalAuth(), whoami)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{"required without header", "/required", "", http.StatusUnauthorized, ""},
		{"required with bearer", "/required", "Bearer " + userToken, http.StatusOK, `{"admin":false,"id":1}`},
		{"required with token scheme", "/required", "Token " + adminToken, http.StatusOK, `{"admin":true,"id":2}`},
		{"required with garbage", "/required", "Bearer nope", http.StatusUnauthorized, ""},
		{"required with unknown scheme", "/required", "Basic " + userToken, http.StatusUnauthorized, ""},
		{"optional anonymous", "/optional", "", http.StatusOK, `{"admin":false,"id":0}`},
		{"optional with token", "/optional", "Bearer " + userToken, http.StatusOK, `{"admin":false,"id":1}`},
		{"optional with invalid token", "/optional", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestUserFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newMemoryStore(testUser(7, false))
	manager, err := NewTokenManager(&config.AuthConfig{TokenSecret: testSecret}, store)
	require.NoError(t, err)
	token, err := manager.Issue(context.Background(), 7)
	require.NoError(t, err)

	var got *database.User
	router := gin.New()
	router.GET("/me", manager.OptionalAuth(), func(c *gin.Context) {
		got = UserFrom(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, got)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)
	assert.Equal(t, uint(7), got.ID)
	assert.Equal(t, "user", got.Username)
}
