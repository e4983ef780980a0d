// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/shorty/internal/shortcode"
)

const (
	defaultBaseURL = "http://localhost:8080"
	docsPath       = "./docs/swagger.yml"
)

type routerOptions struct {
	baseURL         string
	shortCodeLength int
	db              pinger
}

// RouterOption configures the router built by NewRouter.
type RouterOption func(*routerOptions)

// WithBaseURL sets the base the short_url of every response is composed from.
func WithBaseURL(baseURL string) RouterOption {
	return func(o *routerOptions) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithShortCodeLength sets the exact length short codes in paths must have.
func WithShortCodeLength(n int) RouterOption {
	return func(o *routerOptions) {
		o.shortCodeLength = n
	}
}

// WithHealthCheck makes /health ping db.
func WithHealthCheck(db pinger) RouterOption {
	return func(o *routerOptions) {
		o.db = db
	}
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, opts ...RouterOption) *chi.Mux {
	o := routerOptions{
		baseURL:         defaultBaseURL,
		shortCodeLength: shortcode.MinLength,
	}

	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, docsPath)
	})

	hh := &healthHandler{db: o.db, startedAt: time.Now()}
	r.Get("/health", hh.health)

	h := newURLHandler(urlUseCase, newValidate(o.shortCodeLength), o.baseURL)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/shorten", func(r chi.Router) {
			r.Post("/", h.shortenURL)

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Use(h.validateShortCode)

				r.Get("/", h.getURL)
				r.Put("/", h.modifyURL)
				r.Delete("/", h.deactivateURL)
				r.Get("/stats", h.getURLStats)
			})
		})
	})

	r.With(h.validateShortCode).Get("/{shortCode}", h.redirect)

	return r
}
