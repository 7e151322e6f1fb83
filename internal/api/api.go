package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/foodgram/internal/api/auth"
	"github.com/jon4hz/foodgram/internal/api/handler"
	"github.com/jon4hz/foodgram/internal/config"
	"github.com/jon4hz/foodgram/internal/database"
	"github.com/jon4hz/foodgram/internal/engine"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	engine    *engine.Engine
	tokens    *auth.TokenManager
}

// New creates the API server with all routes registered.
func New(cfg *config.Config, db database.DB, e *engine.Engine, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	tokens, err := auth.NewTokenManager(cfg.Auth, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery(), requestLogger(), gzip.Gzip(gzip.DefaultCompression))

	s := &Server{
		cfg:       cfg,
		ginEngine: ginEngine,
		engine:    e,
		tokens:    tokens,
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the http.Handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// requestLogger logs one debug line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) setupRoutes() {
	h := handler.New(s.engine, s.tokens, s.cfg)
	required := s.tokens.RequireAuth()
	optional := s.tokens.OptionalAuth()

	if s.cfg.Media.Backend == config.MediaBackendLocal {
		s.ginEngine.Static("/media", s.cfg.Media.Root)
	}
	s.ginEngine.GET("/health", h.Health)

	api := s.ginEngine.Group("/api")

	authGroup := api.Group("/auth/token")
	authGroup.POST("", h.Login)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/logout", required, h.Logout)

	users := api.Group("/users")
	users.POST("", h.Register)
	users.GET("", optional, h.ListUsers)
	users.GET("/me", required, h.Me)
	users.PATCH("/me", required, h.UpdateMe)
	users.PUT("/me/avatar", required, h.SetAvatar)
	users.DELETE("/me/avatar", required, h.DeleteAvatar)
	users.POST("/set_password", required, h.SetPassword)
	users.GET("/subscriptions", required, h.Subscriptions)
	users.GET("/:id", optional, h.GetUser)
	users.POST("/:id/subscribe", required, h.Subscribe)
	users.DELETE("/:id/subscribe", required, h.Unsubscribe)

	api.GET("/tags", h.ListTags)
	api.GET("/tags/:id", h.GetTag)
	api.GET("/ingredients", h.ListIngredients)
	api.GET("/ingredients/:id", h.GetIngredient)

	recipes := api.Group("/recipes")
	recipes.GET("", optional, h.ListRecipes)
	recipes.POST("", required, h.CreateRecipe)
	recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
	recipes.GET("/:id", optional, h.GetRecipe)
	recipes.PATCH("/:id", required, h.UpdateRecipe)
	recipes.DELETE("/:id", required, h.DeleteRecipe)
	recipes.POST("/:id/favorite", required, h.AddFavorite())
	recipes.DELETE("/:id/favorite", required, h.RemoveFavorite())
	recipes.POST("/:id/shopping_cart", required, h.AddToShoppingCart())
	recipes.DELETE("/:id/shopping_cart", required, h.RemoveFromShoppingCart())
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting API server", "listen", s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
