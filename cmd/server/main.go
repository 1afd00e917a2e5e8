package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"llmboundary/internal/charts"
	"llmboundary/internal/config"
	"llmboundary/internal/handlers"
	"llmboundary/internal/logging"
	"llmboundary/internal/middleware"
	"llmboundary/internal/preflight"
	"llmboundary/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting LLM boundary server...")

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Env: %s, Budgets: total=%d context=%d data=%d prompt=%d)",
		cfg.Port, cfg.Environment,
		cfg.Budgets.Total, cfg.Budgets.Context, cfg.Budgets.Data, cfg.Budgets.Prompt)

	// Initialize Redis (optional - shared render cache across replicas)
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		var err error
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, render cache is memory only: %v", err)
			redisService = nil
		}
	}

	// Run preflight checks
	checker := preflight.NewChecker(cfg, redisService)
	results := checker.RunAll(context.Background())

	// Exit if critical checks failed
	if preflight.HasFailures(results) {
		log.Println("❌ Pre-flight checks failed. Please fix the issues above before starting the server.")
		os.Exit(1)
	}
	log.Println("✅ All pre-flight checks passed")

	theme, err := charts.LoadTheme(cfg.ChartThemeFile)
	if err != nil {
		log.Printf("⚠️  Chart theme not loaded, using default palette: %v", err)
	}

	metrics := services.NewMetrics(prometheus.DefaultRegisterer)

	renderCache := services.NewRenderCache(cfg.RenderCacheTTL, redisService, metrics, logging.WithComponent("render-cache"))
	extractor := charts.NewExtractor(theme, logging.WithComponent("charts"))
	chartService := services.NewChartService(extractor, renderCache, metrics, logging.WithComponent("charts"))
	shaper := services.NewRequestShaper(cfg.Budgets, logging.WithComponent("shaper"), metrics)

	// Model client (optional - /api/llm/complete answers 503 without it)
	var modelClient services.ModelClient
	if cfg.LLMBaseURL != "" && cfg.LLMModel != "" {
		modelClient = services.NewOpenAIClient(services.OpenAIClientConfig{
			BaseURL:           cfg.LLMBaseURL,
			APIKey:            cfg.LLMAPIKey,
			Model:             cfg.LLMModel,
			RequestsPerSecond: cfg.LLMRequestsPerSecond,
			Timeout:           cfg.LLMTimeout,
		}, logging.WithComponent("llm-client"))
		log.Printf("🤖 Model client configured (%s, model %s, %.1f req/s)", cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMRequestsPerSecond)
	}
	chatService := services.NewChatService(shaper, modelClient, chartService, metrics, logging.WithComponent("chat"))

	app := fiber.New(fiber.Config{
		AppName:      "llmboundary",
		ReadTimeout:  cfg.LLMTimeout + 30*time.Second,
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    20 * 1024 * 1024, // raw request bodies are trimmed after they arrive
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prom := fiberprometheus.New("llmboundary")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: !strings.Contains(allowedOrigins, "*"),
	}))

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Completion=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.CompletionMax)
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	healthHandler := handlers.NewHealthHandler(chatService, renderCache, redisService)
	chartHandler := handlers.NewChartHandler(chartService, logging.WithComponent("http"))
	llmHandler := handlers.NewLLMHandler(shaper, chatService, logging.WithComponent("http"))

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	{
		chartsAPI := api.Group("/charts")
		chartsAPI.Post("/extract", chartHandler.Extract)
		chartsAPI.Post("/render", chartHandler.Render)
		chartsAPI.Post("/export", chartHandler.Export)

		llm := api.Group("/llm")
		llm.Post("/shape", llmHandler.Shape)
		llm.Post("/complete", middleware.CompletionRateLimiter(rateLimitConfig), llmHandler.Complete)
	}

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}

		if redisService != nil {
			if err := redisService.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
