package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type MediaBackend string

const (
	MediaBackendLocal MediaBackend = "local"
	MediaBackendS3    MediaBackend = "s3"
)

// Config holds the configuration for the Foodgram server and its dependencies.
type Config struct {
	// Listen is the address the server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// ServerURL is the public base URL of the server, used to build absolute links.
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	// MediaURL is the base URL stored images are served from.
	// Defaults to <server_url>/media/.
	MediaURL string `yaml:"media_url" mapstructure:"media_url"`
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// Database holds the database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Auth holds the token configuration.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`
	// Pagination holds the limit/offset defaults for list endpoints.
	Pagination *PaginationConfig `yaml:"pagination" mapstructure:"pagination"`
	// Media holds the image storage configuration.
	Media *MediaConfig `yaml:"media" mapstructure:"media"`
	// Gravatar holds the configuration for fallback profile pictures.
	Gravatar *GravatarConfig `yaml:"gravatar" mapstructure:"gravatar"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Path is the path to the database file.
	Path string `yaml:"path" mapstructure:"path"`
}

// AuthConfig holds the token configuration.
type AuthConfig struct {
	// TokenSecret is the HMAC secret used to sign auth tokens.
	TokenSecret string `yaml:"token_secret" mapstructure:"token_secret"`
	// TokenTTL is how long an issued token stays valid. Zero means no expiry.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// PaginationConfig holds the limit/offset defaults.
type PaginationConfig struct {
	// DefaultLimit is used when the request carries no limit.
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
	// MaxLimit caps the limit a client may request.
	MaxLimit int `yaml:"max_limit" mapstructure:"max_limit"`
}

// MediaConfig holds the image storage configuration.
type MediaConfig struct {
	// Backend selects where images are stored ("local" or "s3").
	Backend MediaBackend `yaml:"backend" mapstructure:"backend"`
	// Root is the directory used by the local backend.
	Root string `yaml:"root" mapstructure:"root"`
	// MaxWidth is the maximum width of a stored image. Larger images are scaled down.
	MaxWidth int `yaml:"max_width" mapstructure:"max_width"`
	// MaxHeight is the maximum height of a stored image.
	MaxHeight int `yaml:"max_height" mapstructure:"max_height"`
	// Quality is the JPEG quality (1-100) used when re-encoding.
	Quality int `yaml:"quality" mapstructure:"quality"`
	// MaxUploadBytes limits the size of a decoded upload.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	// MaxPixels limits the declared width*height of an upload before it is decoded.
	MaxPixels int64 `yaml:"max_pixels" mapstructure:"max_pixels"`
	// S3 holds the object storage configuration for the s3 backend.
	S3 *S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config holds the configuration for an S3 compatible bucket.
type S3Config struct {
	// Bucket is the bucket name.
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	// Region is the bucket region.
	Region string `yaml:"region" mapstructure:"region"`
	// Endpoint overrides the AWS endpoint (e.g. for MinIO or DigitalOcean Spaces).
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// AccessKey is the static access key. Empty uses the default credential chain.
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	// SecretKey is the static secret key.
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// GravatarConfig holds the configuration for Gravatar profile pictures.
type GravatarConfig struct {
	// Enabled indicates whether users without an avatar get a Gravatar URL.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// DefaultImage is the default image to use when no Gravatar is found.
	// Valid values: "404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"
	DefaultImage string `yaml:"default_image" mapstructure:"default_image"`
	// Rating is the maximum rating for Gravatar images.
	// Valid values: "g", "pg", "r", "x"
	Rating string `yaml:"rating" mapstructure:"rating"`
	// Size is the size of the Gravatar image in pixels (1-2048).
	Size int `yaml:"size" mapstructure:"size"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
// A missing config file is not an error, defaults and environment variables are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()

	bindNestedEnv(v)
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("FOODGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.foodgram")
		v.AddConfigPath("/etc/foodgram")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debug("No config file found, using defaults and environment")
	} else {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:8000")
	v.SetDefault("server_url", "http://localhost:8000")
	v.SetDefault("media_url", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("database.path", "./data/foodgram.db")

	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)

	v.SetDefault("pagination.default_limit", 6)
	v.SetDefault("pagination.max_limit", 100)

	v.SetDefault("media.backend", MediaBackendLocal)
	v.SetDefault("media.root", "./data/media")
	v.SetDefault("media.max_width", 1280)
	v.SetDefault("media.max_height", 1280)
	v.SetDefault("media.quality", 85)
	v.SetDefault("media.max_upload_bytes", 10<<20)
	v.SetDefault("media.max_pixels", 40_000_000)

	v.SetDefault("gravatar.enabled", false)
	v.SetDefault("gravatar.default_image", "identicon")
	v.SetDefault("gravatar.rating", "g")
	v.SetDefault("gravatar.size", 80)
}

// the s3 section stays nil unless configured, so automatic env binding doesn't reach it.
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("media.s3.bucket", "FOODGRAM_MEDIA_S3_BUCKET")
	v.MustBindEnv("media.s3.region", "FOODGRAM_MEDIA_S3_REGION")
	v.MustBindEnv("media.s3.endpoint", "FOODGRAM_MEDIA_S3_ENDPOINT")
	v.MustBindEnv("media.s3.access_key", "FOODGRAM_MEDIA_S3_ACCESS_KEY")
	v.MustBindEnv("media.s3.secret_key", "FOODGRAM_MEDIA_S3_SECRET_KEY")
	v.MustBindEnv("media.s3.prefix", "FOODGRAM_MEDIA_S3_PREFIX")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing foodgram config")
	}

	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}

	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Auth == nil || c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth token secret is required")
	}
	if len(c.Auth.TokenSecret) < 32 {
		return fmt.Errorf("auth token secret must be at least 32 characters")
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth token ttl must not be negative")
	}

	if c.Pagination == nil {
		return fmt.Errorf("missing pagination config")
	}
	if c.Pagination.DefaultLimit <= 0 {
		return fmt.Errorf("pagination default limit must be greater than 0")
	}
	if c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		return fmt.Errorf("pagination max limit must not be smaller than the default limit")
	}

	if c.Media == nil {
		return fmt.Errorf("missing media config")
	}
	if c.Media.MaxWidth <= 0 || c.Media.MaxHeight <= 0 {
		return fmt.Errorf("media max width and height must be greater than 0")
	}
	if c.Media.Quality < 1 || c.Media.Quality > 100 {
		return fmt.Errorf("media quality must be between 1 and 100")
	}
	if c.Media.MaxPixels < 0 {
		return fmt.Errorf("media max pixels must not be negative")
	}

	switch c.Media.Backend {
	case MediaBackendLocal:
		if c.Media.Root == "" {
			return fmt.Errorf("media root is required for the local backend")
		}
	case MediaBackendS3:
		if c.Media.S3 == nil || c.Media.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required for the s3 backend")
		}
		if c.Media.S3.Region == "" {
			return fmt.Errorf("s3 region is required for the s3 backend")
		}
		if (c.Media.S3.AccessKey == "") != (c.Media.S3.SecretKey == "") {
			return fmt.Errorf("s3 access key and secret key must be set together")
		}
	default:
		return fmt.Errorf("unknown media backend %q", c.Media.Backend)
	}

	if c.Gravatar != nil && c.Gravatar.Enabled {
		if c.Gravatar.Size < 1 || c.Gravatar.Size > 2048 {
			return fmt.Errorf("gravatar size must be between 1 and 2048")
		}
	}

	return nil
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = strings.TrimSpace(c.Listen)
	c.ServerURL = urlSanitize(c.ServerURL)

	if c.MediaURL == "" {
		c.MediaURL = c.ServerURL + "/media/"
	} else if !strings.HasSuffix(c.MediaURL, "/") {
		c.MediaURL += "/"
	}

	if c.Media != nil && c.Media.S3 != nil {
		c.Media.S3.Endpoint = urlSanitize(c.Media.S3.Endpoint)
		c.Media.S3.Prefix = strings.Trim(c.Media.S3.Prefix, "/")
	}
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}
