package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	httpmw "github.com/smartdoor/doorman/internal/http/middleware"
	mw "github.com/smartdoor/doorman/pkg/middleware"
)

// Router assembles the HTTP surface. The Redis client is only used for
// rate limiting and may be nil (tests, memory-backed deployments).
func (h *Handlers) Router(cache *redis.Client) chi.Router {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("doorman"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	limited := httpmw.RateLimit(cache, h.config.Intake.RateLimit, h.config.Intake.RateWindow)

	r.With(limited).Post("/visits", h.SubmitVisit)
	r.With(limited).Post("/verify", h.Verify)
	r.Post("/detections", h.Detect)

	r.Route("/owner", func(r chi.Router) {
		r.With(limited).Post("/login", h.OwnerLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireOwner)
			r.Post("/decisions", h.Decide)
			r.Get("/visitors/pending", h.ListPending)
			r.Get("/visitors/approved", h.ListApproved)
		})
	})

	return r
}
