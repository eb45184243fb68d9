package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/theranostics-labs/portal-api/internal/di"
	"github.com/theranostics-labs/portal-api/internal/handlers"
	"github.com/theranostics-labs/portal-api/internal/payments"
	"github.com/theranostics-labs/portal-api/internal/platform/auth"
	"github.com/theranostics-labs/portal-api/internal/platform/config"
	pfirestore "github.com/theranostics-labs/portal-api/internal/platform/firestore"
	"github.com/theranostics-labs/portal-api/internal/platform/idempotency"
	"github.com/theranostics-labs/portal-api/internal/platform/jobs"
	"github.com/theranostics-labs/portal-api/internal/platform/observability"
	"github.com/theranostics-labs/portal-api/internal/platform/secrets"
	platformstorage "github.com/theranostics-labs/portal-api/internal/platform/storage"
	firestoreRepo "github.com/theranostics-labs/portal-api/internal/repositories/firestore"
	"github.com/theranostics-labs/portal-api/internal/services"
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
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames()...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	var invoiceWriter services.InvoiceObjectWriter
	var invoiceSigner services.InvoiceURLSigner
	if cfg.Features.EnableInvoices {
		storageClient, err := cloudstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()

		writer, err := platformstorage.NewObjectWriter(storageClient, cfg.Storage.InvoicesBucket)
		if err != nil {
			logger.Fatal("failed to initialise invoice writer", zap.Error(err))
		}
		invoiceWriter = writer

		if cfg.Storage.SignerKeyFile != "" {
			signer, err := platformstorage.NewServiceAccountSignerFromFile(cfg.Storage.SignerKeyFile)
			if err != nil {
				logger.Fatal("failed to load storage signer key", zap.Error(err))
			}
			signedURLClient, err := platformstorage.NewClient(signer)
			if err != nil {
				logger.Fatal("failed to initialise signed url client", zap.Error(err))
			}
			invoiceSigner = signedURLClient
		} else {
			logger.Warn("storage signer key not configured; invoice downloads disabled")
		}
	}

	var publisher services.OrderEventPublisher
	if cfg.Features.EnableNotifications && cfg.PubSub.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		topic := pubsubClient.Topic(cfg.PubSub.OrderTopic)
		defer func() {
			topic.Stop()
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()

		pubsubPublisher, err := jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		publisher = pubsubPublisher
	}

	paymentsLogger := logger.Named("payments")
	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.PSP.StripeAPIKey,
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			zFields := make([]zap.Field, 0, len(fields)+1)
			zFields = append(zFields, zap.String("event", event))
			for k, v := range fields {
				zFields = append(zFields, zap.Any(k, v))
			}
			paymentsLogger.Debug("stripe log", zFields...)
		},
		Clock: time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe payment provider", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Adapters{
		Payments:      stripeProvider,
		Publisher:     publisher,
		InvoiceWriter: invoiceWriter,
		InvoiceSigner: invoiceSigner,
		Logger:        logger,
		Clock:         time.Now,
		Build:         buildInfo,
		StartedAt:     startedAt,
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	verifier, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		logger.Fatal("failed to initialise token verifier", zap.Error(err))
	}
	authenticator, err := auth.NewAuthenticator(verifier)
	if err != nil {
		logger.Fatal("failed to initialise authenticator", zap.Error(err))
	}

	checkoutHandlers := handlers.NewCheckoutHandlers(
		container.Services.Checkout,
		handlers.WithCheckoutRateLimit(cfg.RateLimits.DefaultPerMinute),
	)
	productHandlers := handlers.NewProductHandlers(container.Services.ProductTokens)
	discountHandlers := handlers.NewDiscountHandlers(container.Services.Discounts)
	adminOrderHandlers := handlers.NewAdminOrderHandlers(container.Services.Orders, container.Services.Invoices)
	customerHandlers := handlers.NewCustomerHandlers(container.Services.Customers)
	kitHandlers := handlers.NewKitHandlers(container.Services.Inventory)
	registrationHandlers := handlers.NewKitRegistrationHandlers(container.Services.Registrations)
	webhookHandlers := handlers.NewStripeWebhookHandlers(container.Services.Checkout, cfg.PSP.StripeWebhookSecret, logger.Named("webhooks"))

	adminRoutes := []handlers.RouteRegistrar{
		adminOrderHandlers.Routes,
		customerHandlers.Routes,
		kitHandlers.Routes,
		discountHandlers.AdminRoutes,
		registrationHandlers.AdminRoutes,
	}
	if container.Services.Notifications != nil {
		notificationHandlers := handlers.NewNotificationHandlers(container.Services.Notifications)
		adminRoutes = append(adminRoutes, notificationHandlers.Routes)
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.RecoveryMiddleware(logger),
			observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(container.Services.System)),
		handlers.WithPublicRoutes(composeRoutes(
			checkoutHandlers.Routes,
			productHandlers.Routes,
			discountHandlers.PublicRoutes,
			registrationHandlers.Routes,
		)),
		handlers.WithPublicMiddlewares(idempotencyMiddleware),
		handlers.WithAdminRoutes(composeRoutes(adminRoutes...)),
		handlers.WithAdminMiddlewares(
			authenticator.RequireStaffAuth(),
			auth.RequireRoles(auth.RoleAdmin, auth.RoleSuperAdmin),
			handlers.RateLimitMiddleware(cfg.RateLimits.StaffPerMinute),
		),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
	}

	router := handlers.NewRouter(opts...)
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
		serverLogger.Info("portal api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func composeRoutes(registrars ...handlers.RouteRegistrar) handlers.RouteRegistrar {
	return func(r chi.Router) {
		for _, register := range registrars {
			if register != nil {
				register(r)
			}
		}
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config) services.BuildInfo {
	version := strings.TrimSpace(env["PORTAL_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["PORTAL_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		if value, ok := env[key]; ok {
			return strings.TrimSpace(value)
		}
		return ""
	}

	envLabel := strings.ToLower(lookup("PORTAL_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	projectMap := secretProjectMapFromEnv(env)
	defaultProject := lookup("PORTAL_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("PORTAL_FIRESTORE_PROJECT_ID")
	}
	fallbackPath := lookup("PORTAL_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("PORTAL_SECRET_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if len(projectMap) > 0 {
		opts = append(opts, secrets.WithProjectMap(projectMap))
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists the config fields that must resolve to usable
// values before the service starts taking traffic.
func requiredSecretNames() []string {
	return uniqueStrings([]string{
		"PSP.StripeAPIKey",
		"PSP.StripeWebhookSecret",
		"Auth.JWTSecret",
		"ProductTokens.EncryptionKey",
	})
}

func secretProjectMapFromEnv(env map[string]string) map[string]string {
	raw := ""
	if env != nil {
		raw = env["PORTAL_SECRET_PROJECT_IDS"]
	}
	raw = strings.TrimSpace(raw)
	projects := make(map[string]string)
	if raw == "" {
		return projects
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		envLabel := strings.ToLower(strings.TrimSpace(parts[0]))
		project := strings.TrimSpace(parts[1])
		if envLabel == "" || project == "" {
			continue
		}
		projects[envLabel] = project
	}
	return projects
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
