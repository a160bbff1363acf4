// Package api — REST API сервиса сравнения объектов недвижимости на chi.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"home_compare/internal/lib/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// RouterOptions — параметры роутера.
type RouterOptions struct {
	Auth        *Authenticator
	Metrics     *metrics.Metrics
	CORSOrigins []string
	// MetricsHandler монтируется на /metrics, если задан
	MetricsHandler http.Handler
}

// NewRouter собирает chi-роутер со всеми маршрутами API.
func NewRouter(log *slog.Logger, h *Handler, opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(opts.Metrics))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", userIDHeader},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}).Handler)

	r.Get("/healthz", h.Health)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/criteria", h.ListCriteria)

		r.Group(func(r chi.Router) {
			r.Use(opts.Auth.Middleware)

			// Критерии и онбординг.
			r.Get("/me/criteria", h.GetMyCriteria)
			r.Put("/me/criteria", h.SaveMyCriteria)
			r.Post("/me/onboarding", h.CompleteOnboarding)

			// Объекты.
			r.Get("/properties", h.ListProperties)
			r.Post("/properties", h.CreateProperty)
			r.Post("/properties/suggest-scores", h.SuggestScores)
			r.Post("/properties/extract", h.ExtractProperty)
			r.Get("/properties/{id}", h.GetProperty)
			r.Patch("/properties/{id}", h.UpdateProperty)
			r.Delete("/properties/{id}", h.DeleteProperty)
			r.Post("/properties/{id}/images", h.UploadImage)

			// Опорные адреса.
			r.Get("/addresses", h.ListAddresses)
			r.Post("/addresses", h.CreateAddress)
			r.Put("/addresses/{id}", h.UpdateAddress)
			r.Delete("/addresses/{id}", h.DeleteAddress)
		})
	})

	return r
}
