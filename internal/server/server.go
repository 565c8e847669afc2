package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/school-erp/superadmin/internal/auth"
	"github.com/school-erp/superadmin/internal/handler"
)

// Server holds dependencies for the panel server.
type Server struct {
	logger  *slog.Logger
	gate    *auth.Gate
	handler *handler.Handler
}

// New creates a new Server.
func New(logger *slog.Logger, gate *auth.Gate, h *handler.Handler) *Server {
	return &Server{logger: logger, gate: gate, handler: h}
}

// Router returns the configured HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(s.gate.Guard)

	h := s.handler

	r.Get("/healthz", h.Health)

	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/set-cookie", h.SetCookie)
		r.Post("/clear-cookie", h.ClearCookie)
	})

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(s.gate.RequireSession)

		r.Get("/", h.Dashboard)

		r.Get("/tenants", h.Tenants)
		r.Post("/tenants", h.CreateTenant)
		r.Get("/tenants/{id}", h.Tenant)
		r.Post("/tenants/{id}", h.UpdateTenant)
		r.Post("/tenants/{id}/suspend", h.SuspendTenant)
		r.Post("/tenants/{id}/activate", h.ActivateTenant)
		r.Post("/tenants/{id}/reset-admin", h.ResetAdmin)
		r.Post("/tenants/{id}/delete", h.DeleteTenant)
		r.Post("/tenants/{id}/change-plan", h.ChangePlan)
		r.Post("/tenants/{id}/admins", h.AddTenantAdmin)

		r.Get("/plans", h.Plans)
		r.Post("/plans", h.CreatePlan)
		r.Post("/plans/{id}", h.UpdatePlan)
		r.Post("/plans/{id}/delete", h.DeletePlan)

		r.Get("/settings", h.Settings)
		r.Post("/settings", h.SaveSettings)

		r.Get("/audit", h.AuditLogs)
	})

	return r
}

// requestLogger logs one line per request with the chi request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if r.URL.Path == "/healthz" {
			return
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
