// Package httpapi exposes the stage trigger endpoints consumed by external
// schedulers and by the orchestrator's own follow-up calls.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/trigger"
)

// CycleRunner is the orchestrator surface the API drives.
type CycleRunner interface {
	RunCycle(ctx context.Context, chainDepth int) domain.CycleSummary
	RunIngest(ctx context.Context) domain.IngestSummary
	RunBackfill(ctx context.Context) domain.BackfillSummary
}

// Server owns the gin engine and the underlying HTTP listener.
type Server struct {
	engine *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// New builds the trigger API around an orchestrator.
func New(orch CycleRunner, cfg config.Config, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(recoveryMiddleware(logger))

	h := &handlers{orch: orch, logger: logger}

	authed := engine.Group("/trigger", authMiddleware(cfg.Trigger.Secret))
	authed.POST("/ingest", h.ingest)
	authed.POST("/backfill", h.backfill)
	authed.POST("/cycle", h.cycle)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &Server{
		engine: engine,
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware accepts the shared secret as a bearer token or a query
// parameter. Failures return a JSON error object, never HTML.
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "trigger secret is not configured"})
			return
		}

		provided := c.Query("secret")
		if header := c.GetHeader("Authorization"); header != "" {
			if token, ok := strings.CutPrefix(header, "Bearer "); ok {
				provided = token
			}
		}

		if provided != secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing secret"})
			return
		}
		c.Next()
	}
}

// recoveryMiddleware converts a handler panic into a JSON 500.
func recoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("handler panic", "path", c.Request.URL.Path, "panic", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

// chainDepth reads the follow-up depth from the header or the JSON body.
func chainDepth(c *gin.Context) int {
	if raw := c.GetHeader(trigger.ChainDepthHeader); raw != "" {
		if depth, err := strconv.Atoi(raw); err == nil && depth >= 0 {
			return depth
		}
	}
	var body struct {
		ChainDepth int `json:"chainDepth"`
	}
	if err := c.ShouldBindJSON(&body); err == nil && body.ChainDepth >= 0 {
		return body.ChainDepth
	}
	return 0
}
