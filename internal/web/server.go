package web

import (
	"context"
	"crypto/subtle"
	"time"

	"guildwarden/internal/config"
	"guildwarden/internal/modcache"
	"guildwarden/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

// Server is the admin HTTP API. It exposes the same guild settings the
// slash commands manage, behind a shared admin key exchanged for a JWT.
type Server struct {
	cfg    config.WebConfig
	logger *zap.Logger
	store  *storage.Store
	cache  *modcache.Cache
	app    *fiber.App
	start  time.Time
}

func New(cfg config.WebConfig, logger *zap.Logger, store *storage.Store, cache *modcache.Cache) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	s := &Server{
		cfg:    cfg,
		logger: logger,
		store:  store,
		cache:  cache,
		app:    app,
		start:  time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Post("/login", s.handleLogin)

	authed := api.Group("/", s.requireAuth)
	authed.Get("/status", s.handleStatus)

	guild := authed.Group("/guilds/:guild")
	guild.Get("/moderation", s.handleGetModeration)
	guild.Put("/moderation", s.handlePutModeration)
	guild.Get("/words", s.handleListWords)
	guild.Post("/words", s.handleAddWord)
	guild.Delete("/words/:word", s.handleDeleteWord)
	guild.Get("/security", s.handleGetSecurity)
	guild.Put("/security", s.handlePutSecurity)
	guild.Get("/timeouts", s.handleGetTimeouts)
	guild.Put("/timeouts", s.handlePutTimeouts)
	guild.Get("/whitelist", s.handleGetWhitelist)
	guild.Post("/whitelist/:kind", s.handleAddWhitelist)
	guild.Delete("/whitelist/:kind/:id", s.handleDeleteWhitelist)
	guild.Get("/stats", s.handleGetStats)
}

// Start blocks on the listener; run it in a goroutine.
func (s *Server) Start() error {
	s.logger.Info("admin api listening", zap.String("addr", s.cfg.Addr))
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var body struct {
		Key string `json:"key"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if subtle.ConstantTimeCompare([]byte(body.Key), []byte(s.cfg.AdminKey)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid key")
	}

	token, err := s.issueToken(time.Now())
	if err != nil {
		s.logger.Error("token issue failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "token issue failed")
	}
	return c.JSON(fiber.Map{"token": token})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	dbOK := s.store.Ping() == nil
	return c.JSON(fiber.Map{
		"uptime_seconds": int(time.Since(s.start).Seconds()),
		"database":       dbOK,
	})
}
