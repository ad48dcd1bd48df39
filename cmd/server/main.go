// Fairlend Advisor - automated loan-intake conversation server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/fairlend/advisor/internal/advisor"
	"github.com/fairlend/advisor/internal/api"
	"github.com/fairlend/advisor/internal/config"
	"github.com/fairlend/advisor/internal/domain"
	"github.com/fairlend/advisor/internal/extract"
	"github.com/fairlend/advisor/internal/llm"
	"github.com/fairlend/advisor/internal/middleware"
	"github.com/fairlend/advisor/internal/session"
	"github.com/fairlend/advisor/internal/store"
	"github.com/fairlend/advisor/internal/validation"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Language capability. Without an API key the advisor still runs,
	// entirely on canned fallbacks.
	var extractor extract.Extractor
	var replies advisor.ReplyGenerator
	if cfg.LLMEnabled() {
		chatModel, err := llm.NewChatModel(context.Background(), llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			slog.Error("Failed to initialize chat model", "error", err)
			os.Exit(1)
		}
		extractor = extract.NewModelExtractor(chatModel, cfg.LLM.Timeout)
		replies = advisor.NewModelReplyGenerator(chatModel, cfg.LLM.Timeout)
		slog.Info("Language capability enabled", "model", cfg.LLM.Model)
	} else {
		slog.Warn("LLM_API_KEY not set, running on canned fallbacks only")
	}

	// Initialize services.
	sessions := session.NewStore()
	registry := validation.NewRegistry()
	orch := advisor.NewOrchestrator(sessions, registry, extractor, replies, repo)

	// Initialize handlers.
	baseHandler := api.NewHandler(orch)
	healthHandler := api.NewHealthHandler(repo, sessions)
	chatHandler := api.NewChatSocketHandler(orch, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	healthHandler.RegisterHealth(r)
	baseHandler.RegisterRoutes(r)

	// WebSocket chat channel.
	r.Get("/ws/chat", chatHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket chat sessions are long-lived
		IdleTimeout:  120 * time.Second,
	}

	// Start TTL worker. Evicted sessions leave an audit summary behind.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.StartTTLWorker(ctx, cfg.SessionTTL, func(conv *domain.Conversation) {
		orch.SaveSummary(context.Background(), conv)
	})
	slog.Info("Session TTL worker started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
