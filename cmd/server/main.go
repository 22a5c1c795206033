package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sahil21666x/KE-PersonasAI/internal/agents"
	"github.com/Sahil21666x/KE-PersonasAI/internal/api"
	"github.com/Sahil21666x/KE-PersonasAI/internal/api/middleware"
	"github.com/Sahil21666x/KE-PersonasAI/internal/auth"
	"github.com/Sahil21666x/KE-PersonasAI/internal/config"
	"github.com/Sahil21666x/KE-PersonasAI/internal/engine"
	"github.com/Sahil21666x/KE-PersonasAI/internal/llm"
	"github.com/Sahil21666x/KE-PersonasAI/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Conversation store: PostgreSQL when configured, SQLite otherwise
	var db store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		db = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite open failed")
		}
		db = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite")
	}
	defer db.Close()

	// Initialize Redis store (roster cache and rate limiting)
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = ephemeralSecret()
		logger.Warn().Msg("JWT_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
	}
	verifier, err := auth.NewVerifier(secret)
	if err != nil {
		logger.Fatal().Err(err).Msg("token verifier setup failed")
	}

	// Generation backend. Missing credentials are not fatal: turns answer
	// 503 until the backend is configured.
	gen, err := llm.New(ctx, cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn().Err(err).Msg("generation backend unavailable")
		gen = nil
	case err != nil:
		logger.Fatal().Err(err).Msg("generation backend setup failed")
	default:
		if cfg.LLMRateLimit > 0 {
			gen = llm.NewPaced(gen, cfg.LLMRateLimit, cfg.LLMRateBurst)
		}
		model := cfg.LLM.Model
		if model == "" {
			model = llm.DefaultModel(cfg.LLM.Provider)
		}
		logger.Info().
			Str("provider", string(cfg.LLM.Provider)).
			Str("model", model).
			Msg("generation backend ready")
	}

	orch := engine.New(gen,
		engine.WithCallTimeout(cfg.AgentCallTimeout),
		engine.WithLogger(logger),
	)

	registryOpts := []agents.Option{agents.WithLogger(logger)}
	if redisStore != nil {
		registryOpts = append(registryOpts, agents.WithCache(redisStore))
	}
	registry := agents.NewRegistry(db, registryOpts...)

	// Create router
	router := api.NewRouter(logger, api.Deps{
		Store:        db,
		Redis:        redisStore,
		Registry:     registry,
		Orchestrator: orch,
		Verifier:     verifier,
		CORSOrigins:  cfg.CORSOrigins,
		RateLimit: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
	})

	// A turn may wait on its slowest agent for the whole call timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AgentCallTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting personas server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

func ephemeralSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
