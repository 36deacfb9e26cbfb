package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/shutterbay/api/internal/di"
	"github.com/shutterbay/api/internal/handlers"
	"github.com/shutterbay/api/internal/platform/auth"
	"github.com/shutterbay/api/internal/platform/cache"
	"github.com/shutterbay/api/internal/platform/config"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
	"github.com/shutterbay/api/internal/platform/jobs"
	"github.com/shutterbay/api/internal/platform/observability"
	"github.com/shutterbay/api/internal/platform/secrets"
	platformstorage "github.com/shutterbay/api/internal/platform/storage"
	firestoreRepo "github.com/shutterbay/api/internal/repositories/firestore"
	"github.com/shutterbay/api/internal/services"
)

const (
	authRateLimit       = 10
	authRateLimitWindow = time.Minute
	passwordHashCost    = 12
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")

	resolver, err := secrets.NewResolver(ctx,
		config.Lookup("API_FIREBASE_PROJECT_ID"),
		config.Lookup("API_SECURITY_ENVIRONMENT"),
		secrets.WithLogger(logger.Named("secrets")),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret resolver", zap.Error(err))
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret resolver close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(resolver.ResolveSecret)),
		config.WithRequiredSecrets("Auth.SessionSigningKey"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	logger = logger.With(zap.String("environment", cfg.Security.Environment))

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to build repository registry", zap.Error(err))
	}

	probes := map[string]services.ReadinessProbe{}

	var productCache services.ProductCache
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisClient := cache.NewRedisClient(cfg.Redis)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		redisCache, err := cache.NewRedisProductCache(redisClient, cfg.Redis.TTL)
		if err != nil {
			logger.Fatal("failed to initialise product cache", zap.Error(err))
		}
		productCache = redisCache
		probes["redis"] = redisCache
	} else {
		logger.Info("product cache disabled; API_REDIS_ADDR not set")
	}

	var images services.ImageStore
	if bucket := strings.TrimSpace(cfg.Storage.ProductImagesBucket); bucket != "" {
		storageClient, err := cloudstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()
		uploader, err := platformstorage.NewGCSUploader(storageClient, bucket)
		if err != nil {
			logger.Fatal("failed to initialise image uploader", zap.Error(err))
		}
		store, err := platformstorage.NewImageStore(uploader, cfg.Storage.PublicBaseURL+"/"+bucket)
		if err != nil {
			logger.Fatal("failed to initialise image store", zap.Error(err))
		}
		images = store
	} else {
		logger.Info("product image uploads disabled; API_STORAGE_PRODUCT_IMAGES_BUCKET not set")
	}

	var (
		mailer services.Mailer
		events services.OrderEventPublisher
	)
	if projectID := strings.TrimSpace(cfg.PubSub.ProjectID); projectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, projectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		emailTopic := pubsubClient.Topic(cfg.PubSub.EmailTopic)
		eventsTopic := pubsubClient.Topic(cfg.PubSub.OrderEventsTopic)
		defer func() {
			emailTopic.Stop()
			eventsTopic.Stop()
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()

		pubsubMailer, err := jobs.NewPubSubMailer(emailTopic)
		if err != nil {
			logger.Fatal("failed to initialise mailer", zap.Error(err))
		}
		mailLogger := logger.Named("mailer")
		breakerMailer, err := jobs.NewBreakerMailer(pubsubMailer, jobs.BreakerSettings{
			OnStateChange: func(name string, from, to gobreaker.State) {
				mailLogger.Warn("mailer circuit state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
		if err != nil {
			logger.Fatal("failed to initialise mailer breaker", zap.Error(err))
		}
		mailer = breakerMailer

		publisher, err := jobs.NewPubSubOrderEventPublisher(eventsTopic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		events = publisher
	} else {
		logger.Warn("pubsub project not configured; delivery email and order events disabled")
	}

	sessions, err := auth.NewSessionTokens(cfg.Auth.SessionSigningKey, cfg.Auth.SessionIssuer, cfg.Auth.SessionTTL)
	if err != nil {
		logger.Fatal("failed to initialise session tokens", zap.Error(err))
	}
	verifiers := []auth.IdentityVerifier{sessions}
	if cfg.Firebase.ProjectID != "" {
		firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
		}
		verifiers = append(verifiers, auth.NewFirebaseIdentities(firebaseVerifier))
	}
	authenticator := auth.NewAuthenticator(verifiers)

	container, err := di.NewContainer(ctx, cfg, registry, di.Adapters{
		Logger:    logger.Named("services"),
		Mailer:    mailer,
		Events:    events,
		Cache:     productCache,
		Images:    images,
		Passwords: auth.NewPasswordHasher(passwordHashCost),
		Sessions:  sessions,
		Probes:    probes,
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	svc := container.Services
	maxPageSize := cfg.Pagination.MaxPageSize

	publicHandlers := handlers.NewPublicHandlers(svc.Catalog, svc.Reviews, svc.Cart, maxPageSize)
	accountHandlers := handlers.NewAccountHandlers(authenticator, svc.Accounts, handlers.NewFixedWindowRateLimiter(authRateLimit, authRateLimitWindow))
	reviewHandlers := handlers.NewReviewHandlers(authenticator, svc.Reviews)
	meHandlers := handlers.NewMeHandlers(authenticator, svc.Accounts, svc.Wishlist, svc.Notifications)
	cartHandlers := handlers.NewCartHandlers(authenticator, svc.Cart)
	orderHandlers := handlers.NewOrderHandlers(authenticator, svc.Orders, svc.Checkout)
	adminHandlers := handlers.NewAdminHandlers(authenticator, svc.Catalog, svc.Orders, maxPageSize)
	healthHandlers := handlers.NewHealthHandlers(svc.System, handlers.WithHealthStartedAt(startedAt))

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger),
		observability.TraceMiddleware(cfg.Firebase.ProjectID),
		observability.RecoveryMiddleware(logger),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithAuthRoutes(accountHandlers.AuthRoutes),
		handlers.WithSessionRoutes(accountHandlers.SessionRoutes),
		handlers.WithProductRoutes(reviewHandlers.Routes),
		handlers.WithMeRoutes(meHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("shutterbay api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
