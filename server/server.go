package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"predictions/config"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Server is the HTTP API in front of the event coordinator
type Server struct {
	engine *gin.Engine
	http   *http.Server
}

// New builds the router. db may be nil, in which case health only reports liveness.
func New(cfg *config.Config, events EventService, db Pinger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	h := &handlers{events: events, db: db}
	auth := TokenAuth{Secret: []byte(cfg.JWTSecret)}

	api := engine.Group("/api")
	api.GET("/health", h.health)
	api.GET("/leaderboard", h.leaderboard)
	api.GET("/events/:id", h.getEvent)
	api.GET("/events/:id/odds", h.getOdds)

	authed := api.Group("", authRequired(auth))
	authed.POST("/events/:id/stakes", h.placeStake)
	authed.GET("/me/history", h.myHistory)

	admin := api.Group("/admin", authRequired(auth), adminRequired())
	admin.POST("/events", h.createEvent)
	admin.GET("/events/pending", h.listPending)
	admin.POST("/events/lock-expired", h.lockExpired)
	admin.POST("/events/:id/resolve", h.resolveEvent)
	admin.POST("/events/:id/cancel", h.cancelEvent)

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.WithField("addr", s.http.Addr).Info("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
