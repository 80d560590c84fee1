package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Poe1999/TgBot.China/internal/config"
	"github.com/Poe1999/TgBot.China/internal/database"
	"github.com/Poe1999/TgBot.China/internal/handler"
	"github.com/Poe1999/TgBot.China/internal/logger"
	"github.com/Poe1999/TgBot.China/internal/ops"
	"github.com/Poe1999/TgBot.China/internal/repository"
	"github.com/Poe1999/TgBot.China/internal/router"
	"github.com/Poe1999/TgBot.China/internal/service"
	"github.com/Poe1999/TgBot.China/internal/session"
	"github.com/Poe1999/TgBot.China/internal/telegram"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Int("admins", len(cfg.AdminIDs)).
		Str("log_level", cfg.LogLevel).
		Msg("Starting HSK practice bot")

	if cfg.TelegramToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN is not set")
	}

	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	levelRepo := repository.NewLevelRepository(pool)
	sectionRepo := repository.NewSectionRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	catalogService := service.NewCatalogService(levelRepo, sectionRepo, taskRepo, rdb, cfg.CatalogCacheTTL, log)
	feedbackService := service.NewFeedbackService(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.FeedbackTimeout, log)

	// ─── Seed Reference Data ──────────────────────────────────────────
	if err := catalogService.SeedReferenceData(ctx); err != nil {
		log.Fatal().Err(err).Msg("Reference data seeding failed")
	}

	// ─── Connect to Telegram ──────────────────────────────────────────
	bot, err := telegram.NewBot(cfg.TelegramToken, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to authorize Telegram bot")
	}

	// ─── Initialize Session Store, Handlers, Router ───────────────────
	sessions := session.NewStore()

	userHandler := handler.NewUserHandler(sessions, catalogService, submissionRepo, feedbackService, bot, log)
	adminHandler := handler.NewAdminHandler(sessions, catalogService, bot, cfg.AdminIDs, userHandler, log)

	r := router.Setup(sessions, cfg.AdminIDs, &router.Handlers{
		User:  userHandler,
		Admin: adminHandler,
	}, log)

	// ─── Start Ops HTTP Server ────────────────────────────────────────
	opsServer := ops.NewServer(pool, rdb, sessions, catalogService, submissionRepo, log)
	srv := &http.Server{
		Addr:    ":" + cfg.OpsPort,
		Handler: opsServer.Handler(),
	}
	go func() {
		log.Info().Str("port", cfg.OpsPort).Msg("Ops server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Ops server failed")
		}
	}()

	// ─── Dispatch Updates ─────────────────────────────────────────────
	// One goroutine per update; per-user consistency is the session
	// store's job, not the scheduler's.
	updates := bot.Updates(ctx)
	var wg sync.WaitGroup
	go func() {
		for upd := range updates {
			wg.Add(1)
			go func(upd telegram.Update) {
				defer wg.Done()
				r.Dispatch(ctx, upd)
			}(upd)
		}
	}()

	log.Info().Msg("Bot is running")

	// ─── Graceful Shutdown ────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ops server shutdown failed")
	}

	// Let in-flight handlers finish before the pools close.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Shutdown timeout; abandoning in-flight handlers")
	}

	log.Info().Msg("Stopped")
}
