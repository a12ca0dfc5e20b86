package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/atendeja/clinic-ai-platform/internal/api"
	"github.com/atendeja/clinic-ai-platform/internal/bookinglog"
	"github.com/atendeja/clinic-ai-platform/internal/calendar"
	"github.com/atendeja/clinic-ai-platform/internal/clinic"
	appconfig "github.com/atendeja/clinic-ai-platform/internal/config"
	"github.com/atendeja/clinic-ai-platform/internal/conversation"
	"github.com/atendeja/clinic-ai-platform/internal/flow"
	"github.com/atendeja/clinic-ai-platform/internal/intent"
	"github.com/atendeja/clinic-ai-platform/internal/llm"
	"github.com/atendeja/clinic-ai-platform/internal/memory"
	"github.com/atendeja/clinic-ai-platform/internal/notify"
	"github.com/atendeja/clinic-ai-platform/internal/observability/metrics"
	"github.com/atendeja/clinic-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	clinicStore := clinic.NewStore(redisClient)
	memoryStore := memory.NewStore(redisClient)

	var llmClient llm.Client
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		llmClient = llm.NewRateLimitedClient(gemini, cfg.LLMMaxRPS)
	} else {
		logger.Warn("GEMINI_API_KEY not set; falling back to keyword classification and canned answers")
	}

	var primary intent.Classifier
	if llmClient != nil {
		primary = intent.NewLLMClassifier(llmClient)
	}
	convMetrics := metrics.NewConversationMetrics(nil)
	classifier := intent.NewResilientClassifier(primary, cfg.LLMTimeout, logger,
		intent.WithFallbackHook(convMetrics.ObserveClassifierFallback))

	calendarClient := calendar.NewHTTPClient(cfg.CalendarBaseURL, cfg.CalendarAPIKey, cfg.CalendarTimeout, logger)
	machine := flow.NewMachine(calendarClient, logger,
		flow.WithSlotCount(cfg.SlotCount),
		flow.WithWindowDays(cfg.SlotWindowDays),
		flow.WithBookingRetries(cfg.BookingRetries),
	)

	opts := []conversation.OrchestratorOption{
		conversation.WithMetrics(convMetrics),
		conversation.WithFlowTTL(cfg.FlowTTL),
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		bookingStore := bookinglog.NewStore(pool)
		if err := bookingStore.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure booking log schema", "error", err)
			os.Exit(1)
		}
		opts = append(opts, conversation.WithBookingRecorder(bookingStore))
	} else {
		logger.Warn("DATABASE_URL not set; booking audit log disabled")
	}

	sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	if sender != nil {
		opts = append(opts, conversation.WithEscalationNotifier(notify.NewEscalationNotifier(sender, logger)))
	} else {
		logger.Warn("SENDGRID_API_KEY not set; escalation email disabled")
	}

	orchestrator := conversation.NewOrchestrator(
		clinicStore,
		memoryStore,
		classifier,
		machine,
		llmClient,
		logger,
		opts...,
	)

	messages := api.NewMessageHandler(orchestrator, clinicStore, redisClient, logger)
	router := api.NewRouter(api.RouterConfig{
		Messages:       messages,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
