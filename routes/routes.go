package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dosada05/ticket-overlays/handlers"
	"github.com/Dosada05/ticket-overlays/middleware"
	"github.com/Dosada05/ticket-overlays/models"
)

type Handlers struct {
	Overlay   *handlers.OverlayHandler
	Legacy    *handlers.LegacyHandler
	Currency  *handlers.CurrencyHandler
	Admin     *handlers.AdminHandler
	WebSocket *handlers.WebSocketHandler
	Health    *handlers.HealthHandler
	Dashboard *handlers.DashboardHandler
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", h.Health.Healthz)
	router.Handle("/metrics", promhttp.Handler())

	// Websocket живёт дольше любого таймаута запроса.
	router.Get("/ws/overlays/{sport_type}", h.WebSocket.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(opts.RequestTimeout))

		r.Route("/events/{event_id}", func(r chi.Router) {
			r.Get("/effective-markups", h.Overlay.GetEffectiveMarkups)
			r.Get("/effective-hospitalities", h.Overlay.GetEffectiveHospitalities)
			r.Get("/effective-overlays", h.Overlay.GetEffectiveOverlays)
			r.Get("/hospitalities", h.Legacy.GetEventHospitalities)
		})

		r.Get("/tickets/{ticket_id}/markup", h.Legacy.GetTicketMarkup)

		r.Route("/currencies", func(r chi.Router) {
			r.Get("/", h.Currency.ListCurrencies)
			r.Get("/convert", h.Currency.Convert)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret))
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Get("/dashboard", h.Dashboard.Stats)

			r.Route("/markup-rules", func(r chi.Router) {
				r.Get("/", h.Admin.ListMarkupRules)
				r.Put("/", h.Admin.UpsertMarkupRule)
				r.Delete("/{ruleID}", h.Admin.DeactivateMarkupRule)
			})

			r.Route("/hospitality-assignments", func(r chi.Router) {
				r.Put("/", h.Admin.UpsertHospitalityAssignment)
				r.Delete("/{assignmentID}", h.Admin.DeactivateHospitalityAssignment)
			})

			r.Route("/hospitalities", func(r chi.Router) {
				r.Post("/", h.Admin.CreateHospitality)
				r.Put("/{hospitalityID}/icon", h.Admin.UploadHospitalityIcon)
			})
		})
	})
}
