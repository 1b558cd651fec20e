package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medbridge-ai/intake-pipeline/cmd/mainconfig"
	"github.com/medbridge-ai/intake-pipeline/internal/api/router"
	appconfig "github.com/medbridge-ai/intake-pipeline/internal/config"
	"github.com/medbridge-ai/intake-pipeline/internal/consultation"
	"github.com/medbridge-ai/intake-pipeline/internal/directory"
	"github.com/medbridge-ai/intake-pipeline/internal/http/handlers"
	"github.com/medbridge-ai/intake-pipeline/internal/intake"
	"github.com/medbridge-ai/intake-pipeline/internal/observability/metrics"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

var (
	errBedrockUnconfigured = errors.New("bedrock provider selected but BEDROCK_MODEL_ID is not set")
	errGeminiUnconfigured  = errors.New("gemini provider selected but GEMINI_API_KEY is not set")
)

func main() {
	// Load configuration
	_ = godotenv.Load()
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake-pipeline API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	consultations := consultation.NewStore(pool)
	reports := consultation.NewReportStore(pool)
	specialists := directory.NewStore(pool)

	// Generation locks: redis when configured, in-process otherwise
	var locks intake.GenerationLocks = intake.NewMemoryLocks()
	if cfg.RedisAddr != "" {
		redisOpts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		locks = intake.NewRedisLocks(redis.NewClient(redisOpts), cfg.GenerationLockTTL)
		logger.Info("using redis generation locks", "addr", cfg.RedisAddr)
	}

	// LLM provider chain
	llm, model, err := buildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(promRegistry)

	// Pipeline services
	generator := intake.NewLLMReportGenerator(llm, model)
	reportService := intake.NewReportService(locks, generator, consultations, reports, logger,
		intake.WithReportMetrics(pipelineMetrics),
	)

	factory := func(uuid.UUID) *intake.AgenticService {
		collector := intake.NewCollector(
			intake.WithConversationWindow(cfg.ConversationWindow),
			intake.WithQuickReplyThreshold(cfg.QuickReplyThreshold),
		)
		detector := intake.NewCompletenessDetector(collector,
			intake.WithGateCooldown(cfg.GateCooldown),
		)
		return intake.NewAgenticService(collector, detector, llm, model, logger,
			intake.WithAnalyzerCooldown(cfg.AnalyzerCooldown),
			intake.WithPipelineMetrics(pipelineMetrics),
		)
	}
	registry := intake.NewSessionRegistry(factory, reportService, logger,
		intake.WithSessionIdleTTL(cfg.SessionIdleTTL),
		intake.WithRegistryMetrics(pipelineMetrics),
	)
	go registry.Run(ctx)

	referrals := intake.NewReferralDetector(specialists, logger,
		intake.WithReferralMetrics(pipelineMetrics),
	)

	// Initialize handlers
	intakeHandler := handlers.NewIntakeHandler(handlers.IntakeConfig{
		Registry:      registry,
		Referrals:     referrals,
		Consultations: consultations,
		Logger:        logger,
	})

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Intake:             intakeHandler,
		MetricsHandler:     promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		OpsAuthSecret:      cfg.OpsAuthSecret,
		EventRateLimit:     cfg.EventRateLimit,
		EventRateBurst:     cfg.EventRateBurst,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLLMClient assembles the provider chain: the configured primary with
// the other provider as automatic fallback when its credentials are present.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (intake.LLMClient, string, error) {
	var bedrock intake.LLMClient
	if cfg.BedrockModelID != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		bedrock = intake.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	}

	var gemini intake.LLMClient
	if cfg.GeminiAPIKey != "" {
		client, err := intake.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, "", err
		}
		gemini = client
	}

	switch cfg.LLMProvider {
	case "gemini":
		if gemini == nil {
			return nil, "", errGeminiUnconfigured
		}
		chain := intake.NewFallbackLLMClient(gemini, bedrock, logger)
		return intake.NewBudgetedLLMClient(chain, cfg.LLMRequestBudget), cfg.GeminiModelID, nil
	default:
		if bedrock == nil {
			return nil, "", errBedrockUnconfigured
		}
		chain := intake.NewFallbackLLMClient(bedrock, gemini, logger)
		return intake.NewBudgetedLLMClient(chain, cfg.LLMRequestBudget), cfg.BedrockModelID, nil
	}
}
