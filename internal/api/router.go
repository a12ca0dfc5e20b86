package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig holds everything the HTTP surface needs.
type RouterConfig struct {
	Messages       *MessageHandler
	MetricsHandler http.Handler
}

// NewRouter builds the chi router with the standard middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", cfg.Messages.HandleHealth)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/messages", cfg.Messages.HandleMessage)
		v1.Put("/clinics/{clinicID}/config", cfg.Messages.HandlePutClinicConfig)
	})

	return r
}
