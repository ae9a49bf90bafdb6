// Package httpapi exposes the storefront services over HTTP.
package httpapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jacentio/storefront/commerce"
	"github.com/jacentio/storefront/internal/metrics"
)

// DefaultMaxUploadBytes bounds request bodies when Config leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// Config wires the router.
type Config struct {
	Tenants  *commerce.TenantService
	Stores   *commerce.StoreService
	Products *commerce.ProductService

	Logger  *slog.Logger
	Metrics *metrics.Metrics // optional

	MaxUploadBytes int64
	AllowedOrigins []string
}

// Handler serves the API routes.
type Handler struct {
	tenants        *commerce.TenantService
	stores         *commerce.StoreService
	products       *commerce.ProductService
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewRouter creates the HTTP router with every API route mounted under /api.
func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	h := &Handler{
		tenants:        cfg.Tenants,
		stores:         cfg.Stores,
		products:       cfg.Products,
		logger:         cfg.Logger,
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(metrics.Middleware(cfg.Metrics))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Message: "route not found", Status: http.StatusNotFound, Error: true})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Message: "method not allowed", Status: http.StatusMethodNotAllowed, Error: true})
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, envelope{Message: "connection successful", Status: http.StatusOK})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/registerTenant", h.registerTenant)
			r.Post("/login", h.login)
			r.Post("/logout", h.logout)
		})
		r.Route("/stores/{tenantId}/store", func(r chi.Router) {
			r.Post("/add", h.createStore)
			r.Get("/{storeId}", h.getStore)
			r.Put("/{storeId}", h.updateStore)
			r.Delete("/{storeId}", h.deleteStore)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/{storeId}/allProducts", h.listProducts)
			r.Post("/{tenantId}/{storeId}/add", h.addProduct)
			r.Get("/{storeId}/{productId}", h.getProduct)
			r.Put("/{storeId}/{productId}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})
	})

	return r
}
