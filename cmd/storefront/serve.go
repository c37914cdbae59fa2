package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hanko-field/storefront/internal/catalog"
	"github.com/hanko-field/storefront/internal/handlers"
	"github.com/hanko-field/storefront/internal/platform/config"
	"github.com/hanko-field/storefront/internal/platform/idempotency"
	"github.com/hanko-field/storefront/internal/platform/jobs"
	"github.com/hanko-field/storefront/internal/platform/kvstore"
	"github.com/hanko-field/storefront/internal/platform/observability"
	"github.com/hanko-field/storefront/internal/repositories"
	"github.com/hanko-field/storefront/internal/repositories/kv"
	"github.com/hanko-field/storefront/internal/services"
)

const (
	shutdownTimeout    = 10 * time.Second
	cleanupRunTimeout  = time.Minute
	healthProbeKey     = "health/probe"
	catalogProbeBudget = 3 * time.Second
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := root.newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	started := time.Now().UTC()
	buildInfo := buildInfoFromEnv(os.Getenv, started)

	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL,
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithLogger(logger.Named("catalog")),
	)
	defer catalogClient.CloseIdleConnections()

	store, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{Name: "kvstore", Critical: true, Check: storeProbe(store)},
		{Name: "catalog", Timeout: catalogProbeBudget, Check: func(ctx context.Context) error {
			_, err := catalogClient.ListCategories(ctx)
			return err
		}},
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("health repository: %w", err)
	}
	registry, err := kv.NewRegistry(store, health)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("repository registry: %w", err)
	}
	defer func() {
		if err := registry.Close(context.Background()); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	configLogger := logger.Named("storefront-config")
	source, err := config.NewStorefrontSource(cfg.Storefront.File, config.WithReloadHook(func(settings config.StorefrontSettings, err error) {
		if err != nil {
			configLogger.Warn("storefront config reload rejected; keeping previous settings", zap.Error(err))
			return
		}
		configLogger.Info("storefront config reloaded",
			zap.Int("promotions", len(settings.Promotions)),
			zap.Int("homeCategories", len(settings.HomeCategories)),
		)
	}))
	if err != nil {
		return fmt.Errorf("storefront config: %w", err)
	}
	promotions := services.NewPromotionCatalog(source.Current)

	publisher, stopPublisher, err := newOrderPublisher(ctx, cfg.Events, logger)
	if err != nil {
		return err
	}
	defer stopPublisher()

	svc, err := buildServices(registry, catalogClient, promotions, publisher, buildInfo, logger)
	if err != nil {
		return err
	}

	idempotencyStore, err := idempotency.NewKVStore(store)
	if err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}
	placeOrderGuard := idempotency.Middleware(idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
		idempotency.WithKeyOptional(),
	)

	router := newRouter(cfg, svc, promotions, placeOrderGuard, buildInfo, logger)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if cfg.Storefront.Watch && cfg.Storefront.File != "" {
		group.Go(func() error {
			return source.Watch(groupCtx)
		})
	}
	if cfg.Idempotency.CleanupInterval > 0 {
		group.Go(func() error {
			runIdempotencyCleanup(groupCtx, idempotencyStore, cfg.Idempotency, logger.Named("idempotency"))
			return nil
		})
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	group.Go(func() error {
		serverLogger.Info("storefront api listening",
			zap.String("catalog", catalogClient.BaseURL()),
			zap.String("store", cfg.Store.Backend),
			zap.String("version", buildInfo.Version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received; draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
		return nil
	})

	return group.Wait()
}

type serviceSet struct {
	system          services.SystemService
	catalog         services.CatalogService
	cart            services.CartService
	wishlist        services.WishlistService
	addresses       services.AddressService
	reviews         services.ReviewService
	recommendations services.RecommendationService
	checkout        services.CheckoutService
}

func buildServices(registry *kv.Registry, catalogClient *catalog.Client, promotions *services.PromotionCatalog, publisher services.OrderEventPublisher, build services.BuildInfo, logger *zap.Logger) (serviceSet, error) {
	var (
		set serviceSet
		err error
	)
	if set.system, err = services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: registry.Health(),
		Build:            build,
	}); err != nil {
		return set, fmt.Errorf("system service: %w", err)
	}
	if set.catalog, err = services.NewCatalogService(services.CatalogServiceDeps{
		Catalog:        catalogClient,
		HomeCategories: promotions,
		Logger:         observability.EventLogger(logger, "catalog"),
	}); err != nil {
		return set, fmt.Errorf("catalog service: %w", err)
	}
	if set.cart, err = services.NewCartService(services.CartServiceDeps{
		Carts:      registry.Carts(),
		Catalog:    catalogClient,
		Promotions: promotions,
		Logger:     observability.EventLogger(logger, "cart"),
	}); err != nil {
		return set, fmt.Errorf("cart service: %w", err)
	}
	if set.wishlist, err = services.NewWishlistService(services.WishlistServiceDeps{
		Wishlists: registry.Wishlists(),
		Catalog:   catalogClient,
		Cart:      set.cart,
		Logger:    observability.EventLogger(logger, "wishlist"),
	}); err != nil {
		return set, fmt.Errorf("wishlist service: %w", err)
	}
	if set.addresses, err = services.NewAddressService(services.AddressServiceDeps{
		Addresses: registry.Addresses(),
		Logger:    observability.EventLogger(logger, "addresses"),
	}); err != nil {
		return set, fmt.Errorf("address service: %w", err)
	}
	if set.reviews, err = services.NewReviewService(services.ReviewServiceDeps{
		Reviews: registry.Reviews(),
		Logger:  observability.EventLogger(logger, "reviews"),
	}); err != nil {
		return set, fmt.Errorf("review service: %w", err)
	}
	if set.recommendations, err = services.NewRecommendationService(services.RecommendationServiceDeps{
		Catalog:        catalogClient,
		RecentlyViewed: registry.RecentlyViewed(),
		Logger:         observability.EventLogger(logger, "recommendations"),
	}); err != nil {
		return set, fmt.Errorf("recommendation service: %w", err)
	}
	if set.checkout, err = services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:     registry.Carts(),
		Addresses: registry.Addresses(),
		Checkouts: registry.Checkouts(),
		Orders:    registry.Orders(),
		Publisher: publisher,
		Logger:    observability.EventLogger(logger, "checkout"),
	}); err != nil {
		return set, fmt.Errorf("checkout service: %w", err)
	}
	return set, nil
}

func newRouter(cfg config.Config, svc serviceSet, promotions services.PromotionSource, placeOrderGuard func(http.Handler) http.Handler, build services.BuildInfo, logger *zap.Logger) http.Handler {
	catalogHandlers := handlers.NewCatalogHandlers(svc.catalog, svc.reviews, svc.recommendations)
	reviewHandlers := handlers.NewReviewHandlers(svc.catalog, svc.reviews)
	recommendationHandlers := handlers.NewRecommendationHandlers(svc.catalog, svc.recommendations)
	checkoutHandlers := handlers.NewCheckoutHandlers(svc.checkout, handlers.WithPlaceOrderMiddleware(placeOrderGuard))

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(build),
		handlers.WithHealthSystemService(svc.system),
	)

	httpLogger := logger.Named("http")
	return handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.TraceMiddleware(cfg.Tracing.ProjectID),
			observability.InjectLoggerMiddleware(httpLogger),
			observability.RecoveryMiddleware(httpLogger),
		),
		handlers.WithAPIMiddlewares(
			handlers.SessionMiddleware(handlers.SessionOptions{
				Header:       cfg.Session.Header,
				CookieName:   cfg.Session.CookieName,
				CookieTTL:    cfg.Session.CookieTTL,
				CookieSecure: cfg.Session.CookieSecure,
			}),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes(catalogHandlers.Routes, reviewHandlers.Routes, recommendationHandlers.Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(svc.cart, promotions).Routes),
		handlers.WithWishlistRoutes(handlers.NewWishlistHandlers(svc.wishlist).Routes),
		handlers.WithAddressRoutes(handlers.NewAddressHandlers(svc.addresses).Routes),
		handlers.WithRecentlyViewedRoutes(recommendationHandlers.RecentlyViewedRoutes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithOrderRoutes(checkoutHandlers.OrderRoutes),
	)
}

// newOrderPublisher returns a nil publisher when no events project is configured.
func newOrderPublisher(ctx context.Context, cfg config.EventsConfig, logger *zap.Logger) (services.OrderEventPublisher, func(), error) {
	noop := func() {}
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		logger.Info("order events disabled; no events project configured")
		return nil, noop, nil
	}

	var opts []option.ClientOption
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, noop, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.OrderPlacedTopic)
	topic.EnableMessageOrdering = true
	publisher, err := jobs.NewPubSubOrderPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, noop, err
	}
	return publisher, func() {
		publisher.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("close pubsub client", zap.Error(err))
		}
	}, nil
}

func runIdempotencyCleanup(ctx context.Context, store idempotency.Store, cfg config.IdempotencyConfig, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, cleanupRunTimeout)
			removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), cfg.CleanupBatchSize)
			cancel()
			if err != nil {
				logger.Error("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup", zap.Int("removed", removed))
			}
		}
	}
}

// storeProbe reads a key that is never written; only backend failures count as unhealthy.
func storeProbe(store kvstore.Store) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := store.Get(ctx, healthProbeKey)
		if err == nil || errors.Is(err, kvstore.ErrNotFound) {
			return nil
		}
		return err
	}
}

func buildInfoFromEnv(getenv func(string) string, started time.Time) services.BuildInfo {
	value := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}
	return services.BuildInfo{
		Version:     value("STOREFRONT_BUILD_VERSION", "dev"),
		CommitSHA:   value("STOREFRONT_BUILD_COMMIT_SHA", "unknown"),
		Environment: value("STOREFRONT_ENVIRONMENT", "local"),
		StartedAt:   started,
	}
}
