package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/bookings"
	"github.com/Schofield90/whatsapp-lead-system/internal/callinsights"
	"github.com/Schofield90/whatsapp-lead-system/internal/conversation"
	"github.com/Schofield90/whatsapp-lead-system/internal/followups"
	httpmiddleware "github.com/Schofield90/whatsapp-lead-system/internal/http/middleware"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/reminders"
	"github.com/Schofield90/whatsapp-lead-system/internal/tenancy"
	"github.com/Schofield90/whatsapp-lead-system/internal/training"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(r *http.Request) error

// Config holds router configuration. Nil handlers leave their routes
// unmounted.
type Config struct {
	Logger              *logging.Logger
	LeadsHandler        *leads.Handler
	ConversationHandler *conversation.Handler
	TrainingHandler     *training.Handler
	CallInsightsHandler *callinsights.Handler
	BookingsHandler     *bookings.Handler
	RemindersHandler    *reminders.Handler
	FollowUpsHandler    *followups.Handler
	MetricsHandler      http.Handler

	// WebhookTokens maps a lead source to its shared secret.
	WebhookTokens      map[string]string
	WhatsAppWebhookKey string
	AdminAuthSecret    string

	Readiness map[string]ReadinessCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health, metrics, webhooks)
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		public.Get("/ready", ready(cfg.Readiness))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.LeadsHandler != nil {
			public.With(httpmiddleware.WebhookToken(cfg.WebhookTokens, sourceParam)).
				Post("/webhooks/leads/{source}", cfg.LeadsHandler.IngestWebhook)
		}
		if cfg.ConversationHandler != nil {
			tokens := map[string]string{"whatsapp": cfg.WhatsAppWebhookKey}
			public.With(httpmiddleware.WebhookToken(tokens, httpmiddleware.StaticSource("whatsapp"))).
				Post("/webhooks/whatsapp", cfg.ConversationHandler.InboundWebhook)
		}
	})

	if cfg.AdminAuthSecret == "" {
		if cfg.Logger != nil {
			cfg.Logger.Warn("admin routes disabled: no admin auth secret configured")
		}
		return r
	}

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

		if cfg.ConversationHandler != nil {
			admin.Get("/costs", cfg.ConversationHandler.Costs)
		}
		if cfg.RemindersHandler != nil {
			admin.Post("/reminders/sweep", cfg.RemindersHandler.Sweep)
		}
		if cfg.FollowUpsHandler != nil {
			admin.Post("/followups/sweep", cfg.FollowUpsHandler.Sweep)
		}

		admin.Route("/orgs/{orgID}", func(org chi.Router) {
			org.Use(tenancy.Middleware)
			org.Use(httpmiddleware.RequireOrgAccess)

			if cfg.LeadsHandler != nil {
				org.Post("/leads", cfg.LeadsHandler.CreateLead)
				org.Get("/leads", cfg.LeadsHandler.ListLeads)
				org.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)
				org.Patch("/leads/{leadID}/status", cfg.LeadsHandler.UpdateStatus)
			}
			if cfg.ConversationHandler != nil {
				cfg.ConversationHandler.Routes(org)
			}
			if cfg.TrainingHandler != nil {
				cfg.TrainingHandler.Routes(org)
			}
			if cfg.CallInsightsHandler != nil {
				cfg.CallInsightsHandler.Routes(org)
			}
			if cfg.BookingsHandler != nil {
				cfg.BookingsHandler.Routes(org)
			}
			if cfg.RemindersHandler != nil {
				cfg.RemindersHandler.Routes(org)
			}
		})
	})

	return r
}

func sourceParam(r *http.Request) string {
	return chi.URLParam(r, "source")
}

func health(w http.ResponseWriter, _ *http.Request) {
	apperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func ready(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(r); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		apperr.WriteJSON(w, status, map[string]any{"status": state, "checks": results})
	}
}
