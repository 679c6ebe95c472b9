package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/gorilla/mux"

	"stashbot/internal/config"
	"stashbot/internal/database"
	"stashbot/internal/events"
	"stashbot/internal/handlers"
	"stashbot/internal/lifecycle"
	"stashbot/internal/logger"
	"stashbot/internal/middleware"
	"stashbot/internal/pipeline"
	"stashbot/internal/search"
	"stashbot/internal/services/ai"
	"stashbot/internal/suggest"
	"stashbot/internal/telemetry"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for oracle request logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "stashbot", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database and apply schema
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		zapLogger.Fatal("failed_to_apply_schema", zap.Error(err))
	}
	migrateCancel()

	zapLogger.Info("connected_to_database", zap.String("driver", db.Driver()))

	// Connect to Redis for rate limiting (optional)
	var rateLimitMW func(http.Handler) http.Handler
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("invalid_redis_url", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()

		rateLimitMW, err = middleware.RateLimit(redisClient, cfg.RateLimit)
		if err != nil {
			zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
		}
		zapLogger.Info("connected_to_redis", zap.String("rate", cfg.RateLimit))
	} else {
		zapLogger.Warn("redis_not_configured_rate_limiting_disabled")
	}

	// Connect to RabbitMQ for event publishing (optional).
	// Retry with exponential backoff to handle broker startup delays.
	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		const maxRetries = 10
		const initialDelay = 2 * time.Second
		var lastErr error

		for attempt := 0; attempt < maxRetries; attempt++ {
			p, err := events.NewRabbitMQPublisher(cfg.AMQPURL)
			if err == nil {
				publisher = p
				zapLogger.Info("connected_to_rabbitmq")
				defer func() {
					if err := p.Close(); err != nil {
						zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
					}
				}()
				break
			}

			lastErr = err
			delay := initialDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}
			zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", maxRetries),
				zap.Error(err),
				zap.Duration("retry_delay", delay),
			)
			time.Sleep(delay)
		}

		if _, ok := publisher.(events.Noop); ok {
			zapLogger.Warn("rabbitmq_unavailable_events_disabled", zap.Error(lastErr))
		}
	}

	// Initialize repositories
	itemRepo := database.NewItemRepository(db)
	itemRepo.SetLogger(zapLogger)

	// Initialize oracles
	classifier := ai.NewOpenAIClassifier(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	analyzer := ai.NewOpenAIAnalyzer(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)

	// Initialize services
	ingestPipeline := pipeline.New(classifier, analyzer, itemRepo, publisher, zapLogger, cfg.OracleTimeout)
	manager := lifecycle.NewManager(itemRepo, publisher, zapLogger)
	engine := suggest.NewEngine(itemRepo)
	index := search.NewIndex(itemRepo)

	// Initialize handlers
	itemHandler := handlers.NewItemHandler(ingestPipeline, engine, index, itemRepo, publisher, zapLogger)
	taskHandler := handlers.NewTaskHandler(manager, engine)
	healthChecker := handlers.NewHealthChecker(db)

	// Setup router
	r := mux.NewRouter()

	zapLogger.Info("setting_up_middleware")

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("stashbot"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.CORSFromEnv(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(zapLogger))

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// API v1 routes (owner-scoped)
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.Owner())
	if rateLimitMW != nil {
		apiRouter.Use(rateLimitMW)
	}

	itemsRouter := apiRouter.PathPrefix("/items").Subrouter()
	itemHandler.RegisterRoutes(itemsRouter)

	tasksRouter := apiRouter.PathPrefix("/tasks").Subrouter()
	taskHandler.RegisterRoutes(tasksRouter)

	apiRouter.HandleFunc("/suggestions", taskHandler.Suggestions).Methods("GET")
	apiRouter.HandleFunc("/suggestions/today", taskHandler.SuggestionsToday).Methods("GET")
	apiRouter.HandleFunc("/search", itemHandler.SearchItems).Methods("GET")

	// Catch-all OPTIONS handler for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS middleware should have already set headers, just return 204
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   65 * time.Second, // above the request timeout so slow oracle calls are not cut off mid-response
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Only expose minimal version info
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
