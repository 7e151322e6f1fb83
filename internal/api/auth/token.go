package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jon4hz/foodgram/internal/config"
	"github.com/jon4hz/foodgram/internal/database"
	"gorm.io/gorm"
)

// ErrInvalidToken is returned for tokens that are malformed, expired, tampered with or revoked.
var ErrInvalidToken = errors.New("invalid token")

// TokenStore persists the server side token keys.
type TokenStore interface {
	GetOrCreateToken(ctx context.Context, userID uint) (*database.AuthToken, error)
	GetToken(ctx context.Context, key string) (*database.AuthToken, error)
	DeleteUserToken(ctx context.Context, userID uint) (bool, error)
}

// TokenManager issues and verifies auth tokens.
// A token is an HS256 JWT whose jti is the stored key of the user and whose sub is the user id.
// Deleting the stored key revokes every token issued for it.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	store  TokenStore
	now    func() time.Time
}

// NewTokenManager creates a token manager. A zero ttl issues tokens without expiry.
func NewTokenManager(cfg *config.AuthConfig, store TokenStore) (*TokenManager, error) {
	if cfg == nil || cfg.TokenSecret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	return &TokenManager{
		secret: []byte(cfg.TokenSecret),
		ttl:    cfg.TokenTTL,
		store:  store,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for the user, creating the stored key on first login.
func (m *TokenManager) Issue(ctx context.Context, userID uint) (string, error) {
	stored, err := m.store.GetOrCreateToken(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get token key: %w", err)
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		ID:       stored.Key,
		Subject:  strconv.FormatUint(uint64(userID), 10),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, the expiry and that the key still belongs to the subject.
// It returns the user the token was issued for.
func (m *TokenManager) Verify(ctx context.Context, raw string) (*database.User, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 0)
	if err != nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	stored, err := m.store.GetToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get token key: %w", err)
	}
	if uint64(stored.UserID) != userID {
		return nil, ErrInvalidToken
	}
	return &stored.User, nil
}

// Revoke deletes the stored key of the user, invalidating all of their tokens.
func (m *TokenManager) Revoke(ctx context.Context, userID uint) error {
	if _, err := m.store.DeleteUserToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete token key: %w", err)
	}
	return nil
}
