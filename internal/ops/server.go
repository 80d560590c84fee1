// Package ops exposes the bot's liveness surface over HTTP: the
// conversational traffic runs over Telegram, but orchestration still probes
// health the usual way.
package ops

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Poe1999/TgBot.China/internal/repository"
	"github.com/Poe1999/TgBot.China/internal/service"
	"github.com/Poe1999/TgBot.China/internal/session"
)

const probeTimeout = 2 * time.Second

// Server serves /healthz and /status.
type Server struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	sessions  *session.Store
	catalog   *service.CatalogService
	subs      *repository.SubmissionRepository
	startTime time.Time
	log       zerolog.Logger
}

func NewServer(
	pool *pgxpool.Pool,
	rdb *redis.Client,
	sessions *session.Store,
	catalog *service.CatalogService,
	subs *repository.SubmissionRepository,
	log zerolog.Logger,
) *Server {
	return &Server{
		pool:      pool,
		rdb:       rdb,
		sessions:  sessions,
		catalog:   catalog,
		subs:      subs,
		startTime: time.Now(),
		log:       log.With().Str("component", "ops_server").Logger(),
	}
}

// Handler builds the gin engine with the ops routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.healthz)
	r.GET("/status", s.status)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Health check: postgres unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Health check: redis unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	taskCount, err := s.catalog.TaskCount(ctx)
	if err != nil {
		taskCount = -1
	}
	submissionCount, err := s.subs.Count(ctx)
	if err != nil {
		submissionCount = -1
	}

	c.JSON(http.StatusOK, gin.H{
		"uptime":          formatDuration(time.Since(s.startTime)),
		"goroutines":      runtime.NumGoroutine(),
		"active_sessions": s.sessions.Len(),
		"tasks":           taskCount,
		"submissions":     submissionCount,
	})
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
