package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-quicknotif/internal/application/audit"
	"github.com/go-quicknotif/internal/application/permission"
	"github.com/go-quicknotif/internal/application/scheduling"
	"github.com/go-quicknotif/internal/config"
	jwtinfra "github.com/go-quicknotif/internal/infrastructure/jwt"
	"github.com/go-quicknotif/internal/transport/http/handler"
	appmiddleware "github.com/go-quicknotif/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all dependencies for the router. DebugLog and JWTProvider may be
// nil; their routes degrade accordingly.
type Deps struct {
	Scheduler   scheduling.Service
	Auditor     audit.Service
	Flow        *permission.Flow
	DebugLog    handler.DebugLog
	JWTProvider *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to mutating endpoints.
	mutatingRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	notifH := handler.NewNotificationHandler(deps.Scheduler)
	auditH := handler.NewAuditHandler(deps.Auditor)
	permH := handler.NewPermissionHandler(deps.Flow)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		if deps.JWTProvider != nil {
			authH := handler.NewAuthHandler(deps.JWTProvider)
			r.With(mutatingRL.Limit).Post("/auth/token", authH.Token)
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/notifications", notifH.List)
			r.With(mutatingRL.Limit).Post("/notifications", notifH.Schedule)
			r.With(mutatingRL.Limit).Post("/notifications/expired/clear", notifH.ClearExpired)
			r.Put("/notifications/{id}", notifH.Edit)
			r.Post("/notifications/{id}/toggle", notifH.Toggle)
			r.Post("/notifications/{id}/reactivate", notifH.Reactivate)
			r.Delete("/notifications/{id}", notifH.Delete)
			r.Get("/names", notifH.RecentNames)

			r.With(mutatingRL.Limit).Post("/audit/run", auditH.Run)

			r.Get("/permissions", permH.Get)
			r.Post("/permissions/advance", permH.Advance)
			r.Post("/permissions/skip", permH.Skip)

			if deps.DebugLog != nil {
				debugH := handler.NewDebugLogHandler(deps.DebugLog)
				r.Get("/debug/log", debugH.Get)
				r.Delete("/debug/log", debugH.Clear)
				r.Get("/debug/log/stats", debugH.Stats)
			}
		})
	})

	return r
}
