package gravatar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jon4hz/foodgram/internal/config"
)

const baseURL = "https://www.gravatar.com/avatar/"

var (
	validDefaults = map[string]bool{
		"404":       true,
		"mp":        true,
		"identicon": true,
		"monsterid": true,
		"wavatar":   true,
		"retro":     true,
		"robohash":  true,
		"blank":     true,
	}
	validRatings = map[string]bool{
		"g":  true,
		"pg": true,
		"r":  true,
		"x":  true,
	}
)

// Resolver builds fallback avatar URLs for profiles without an uploaded avatar.
// A nil Resolver or a disabled one resolves every address to "".
type Resolver struct {
	params string
}

// New validates the configuration and returns a resolver.
// It returns nil when gravatar is disabled.
func New(cfg *config.GravatarConfig) (*Resolver, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.DefaultImage != "" && !IsValidDefaultImage(cfg.DefaultImage) {
		return nil, fmt.Errorf("invalid gravatar default image %q", cfg.DefaultImage)
	}
	if cfg.Rating != "" && !IsValidRating(cfg.Rating) {
		return nil, fmt.Errorf("invalid gravatar rating %q", cfg.Rating)
	}
	if cfg.Size != 0 && !IsValidSize(cfg.Size) {
		return nil, fmt.Errorf("invalid gravatar size %d", cfg.Size)
	}

	params := url.Values{}
	if cfg.DefaultImage != "" {
		params.Add("d", cfg.DefaultImage)
	}
	if cfg.Rating != "" {
		params.Add("r", cfg.Rating)
	}
	if cfg.Size > 0 {
		params.Add("s", strconv.Itoa(cfg.Size))
	}

	return &Resolver{params: params.Encode()}, nil
}

// URL returns the Gravatar URL of the address.
func (r *Resolver) URL(email string) string {
	if r == nil {
		return ""
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(email))
	u := baseURL + hex.EncodeToString(hash[:])
	if r.params != "" {
		u += "?" + r.params
	}
	return u
}

// IsValidDefaultImage checks if the provided default image value is valid for Gravatar.
func IsValidDefaultImage(defaultImage string) bool {
	return validDefaults[defaultImage]
}

// IsValidRating checks if the provided rating value is valid for Gravatar.
func IsValidRating(rating string) bool {
	return validRatings[rating]
}

// IsValidSize checks if the provided size value is valid for Gravatar (1-2048 pixels).
func IsValidSize(size int) bool {
	return size >= 1 && size <= 2048
}
