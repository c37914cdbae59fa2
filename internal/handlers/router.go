package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hanko-field/storefront/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath       string
	middlewares    []func(http.Handler) http.Handler
	apiMiddlewares []func(http.Handler) http.Handler
	health         *HealthHandlers

	catalog        []RouteRegistrar
	cart           RouteRegistrar
	wishlist       RouteRegistrar
	addresses      RouteRegistrar
	recentlyViewed RouteRegistrar
	checkout       RouteRegistrar
	orders         RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	defaultTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the storefront route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		for _, mw := range cfg.apiMiddlewares {
			if mw != nil {
				api.Use(mw)
			}
		}

		// Catalog registrars share /products, so they register full paths on the API root.
		if len(cfg.catalog) == 0 {
			for _, path := range []string{"/products", "/search", "/categories", "/home", "/compare"} {
				registerNotImplementedRoute(api, path, "catalog")
			}
		}
		for _, registrar := range cfg.catalog {
			if registrar != nil {
				registrar(api)
			}
		}

		mount := func(path string, registrar RouteRegistrar, name string) {
			api.Route(path, func(group chi.Router) {
				if registrar != nil {
					registrar(group)
					return
				}
				registerNotImplemented(group, name)
			})
		}
		mount("/cart", cfg.cart, "cart")
		mount("/wishlist", cfg.wishlist, "wishlist")
		mount("/addresses", cfg.addresses, "addresses")
		mount("/recently-viewed", cfg.recentlyViewed, "recentlyViewed")
		mount("/checkout", cfg.checkout, "checkout")
		mount("/orders", cfg.orders, "orders")
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithAPIMiddlewares appends middleware applied only under the API prefix, such as sessions.
func WithAPIMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.apiMiddlewares = append(cfg.apiMiddlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithCatalogRoutes adds registrars for the product, search, category, home and compare endpoints.
func WithCatalogRoutes(regs ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.catalog = append(cfg.catalog, regs...)
	}
}

// WithCartRoutes configures the registrar responsible for cart endpoints.
func WithCartRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.cart = reg
	}
}

// WithWishlistRoutes configures the registrar responsible for wishlist endpoints.
func WithWishlistRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.wishlist = reg
	}
}

// WithAddressRoutes configures the registrar responsible for address book endpoints.
func WithAddressRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.addresses = reg
	}
}

// WithRecentlyViewedRoutes configures the registrar responsible for the recently viewed list.
func WithRecentlyViewedRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.recentlyViewed = reg
	}
}

// WithCheckoutRoutes configures the registrar responsible for checkout endpoints.
func WithCheckoutRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.checkout = reg
	}
}

// WithOrderRoutes configures the registrar responsible for order history endpoints.
func WithOrderRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.orders = reg
	}
}

func registerNotImplemented(r chi.Router, name string) {
	handler := notImplementedHandler(name)
	r.HandleFunc("/*", handler)
	r.HandleFunc("/", handler)
	r.NotFound(handler)
	r.MethodNotAllowed(handler)
}

func registerNotImplementedRoute(r chi.Router, path string, name string) {
	handler := notImplementedHandler(name)
	r.HandleFunc(path, handler)
	r.HandleFunc(path+"/*", handler)
}

func notImplementedHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s routes not implemented", name), http.StatusNotImplemented))
	}
}
