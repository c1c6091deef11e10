package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archie-core-merchant-onboarding/internal/application"
	"archie-core-merchant-onboarding/internal/application/webhook_handlers"
	"archie-core-merchant-onboarding/internal/config"
	"archie-core-merchant-onboarding/internal/infrastructure/api"
	"archie-core-merchant-onboarding/internal/infrastructure/backend"
	"archie-core-merchant-onboarding/internal/infrastructure/cache"
	"archie-core-merchant-onboarding/internal/infrastructure/ikas"
	"archie-core-merchant-onboarding/internal/infrastructure/metrics"
	"archie-core-merchant-onboarding/internal/infrastructure/pubsub"
	"archie-core-merchant-onboarding/internal/infrastructure/repository"
	shopifyinfra "archie-core-merchant-onboarding/internal/infrastructure/shopify"
	"archie-core-merchant-onboarding/internal/infrastructure/storefront"
	"archie-core-merchant-onboarding/internal/infrastructure/tracing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	securitymiddleware "archie-core-merchant-onboarding/internal/infrastructure/middleware"
)

const serviceName = "archie-core-merchant-onboarding"

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	config.LoadDotEnv(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint, cfg.OTLPInsecure, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Connect to MongoDB
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	// Initialize repositories
	onboardingRepo := repository.NewMongoOnboardingRepository(db)
	connectionRepo := repository.NewMongoShopConnectionRepository(db)
	webhookLog := repository.NewMongoWebhookLog(db)
	connectionCache := cache.NewRedisConnectionCache(rdb, cfg.ConnectionCacheTTL)
	connectionEvents := pubsub.NewConnectionPubSub(logger)

	// Initialize outbound clients
	backendClient := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, logger)
	ikasTokens := ikas.NewTokenClient(ikas.ShopEndpoint(cfg.IkasPlatformHost, cfg.IkasTokenPath), cfg.BackendTimeout, cfg.IkasTokenRPS, logger)
	ikasAdmin := ikas.NewAdminClient(cfg.IkasAPIURL, cfg.BackendTimeout, logger)
	shopifyClient := shopifyinfra.NewClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, logger)
	tagInspector := storefront.NewGTMInspector(&http.Client{Timeout: 10 * time.Second})
	credentials := securitymiddleware.BearerSource{}

	// Initialize application services
	directory := application.NewConnectionDirectory(connectionRepo, connectionCache, connectionEvents, logger)
	onboardingService := application.NewOnboardingService(onboardingRepo, logger, application.OnboardingOptions{
		AutoApprove:      cfg.OnboardingAutoApprove,
		AutosaveDebounce: cfg.AutosaveDebounce,
	})
	engine := application.NewAccessEngine(onboardingService, directory, logger)
	connectionService := application.NewConnectionService(
		backendClient,
		credentials,
		connectionRepo,
		directory,
		tagInspector,
		logger,
		application.ConnectionOptions{
			StorefrontURL: func(shopName string) string {
				return fmt.Sprintf("https://%s.%s", shopName, cfg.IkasPlatformHost)
			},
		},
	)
	tokenManager := application.NewTokenLifecycleManager(ikasTokens, connectionRepo, logger)
	shopService := application.NewShopService(
		directory,
		connectionRepo,
		tokenManager,
		shopifyClient,
		ikasAdmin,
		backendClient,
		credentials,
		logger,
	)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(
		logger,
		webhook_handlers.NewAppUninstalledHandler(logger, connectionRepo, directory),
	)

	// Start the connection listener
	watcher := repository.NewConnectionWatcher(db, func(ctx context.Context, userID string) {
		directory.Refresh(ctx, userID, "change_stream")
	}, logger)
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		if err := watcher.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Connection listener stopped")
		}
	}()

	handler := api.NewHandler(api.Dependencies{
		Engine:      engine,
		Onboarding:  onboardingService,
		Connections: connectionService,
		Shops:       shopService,
		Webhooks:    webhookDispatcher,
		Verifier:    shopifyinfra.NewWebhookVerifier(cfg.ShopifyAPISecret),
		WebhookLog:  webhookLog,
		Events:      connectionEvents,
		Logger:      logger,
	})

	auth := securitymiddleware.NewAuthMiddleware(cfg.IdentityJWTSecret, cfg.IdentityJWTIssuer, logger)
	limiter := securitymiddleware.NewRateLimiter(20, 40, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AppURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// API routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Handler)
		r.Use(limiter.Handler)
		r.Use(securitymiddleware.AuditLoggingMiddleware(logger))
		handler.Routes(r, securitymiddleware.RequireUser)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// cancelled on shutdown so open access streams end
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	onboardingService.FlushDrafts(shutdownCtx)
	connectionService.WaitSideTasks()
	<-watcherDone
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Tracer shutdown failed")
	}
	logger.Info().Msg("Shutdown complete")
}
