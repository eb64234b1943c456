package api

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/scholarwatch/scholarship-watcher/internal/catalog"
	"github.com/scholarwatch/scholarship-watcher/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(subscribers store.SubscriberStore, countries catalog.Provider, logger *slog.Logger, siteFS fs.FS) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(recoverJSON(logger))
	r.Use(middleware.Heartbeat("/ping"))

	// The subscription form is served from arbitrary static hosting.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	// Wrong-method requests get the same structured error shape as the rest
	// of the API.
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})

	subscribeHandler := NewSubscribeHandler(subscribers, logger)
	countriesHandler := NewCountriesHandler(countries, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())
		r.Post("/subscribe", subscribeHandler.Create)
		r.Get("/countries", countriesHandler.List)
	})

	// Serve the subscription form
	if siteFS != nil {
		fileServer := http.FileServer(http.FS(siteFS))
		r.Handle("/*", fileServer)
	}

	return r
}

// recoverJSON turns panics into the generic 500 body; details stay in the
// server log.
func recoverJSON(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic in handler",
						"panic", rec,
						"path", r.URL.Path,
					)
					respondError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
