package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	paymenthandler "schoolpay/internal/payment/handler"
	"schoolpay/internal/platform/middleware"
	schoolhandler "schoolpay/internal/school/handler"
	"schoolpay/internal/user"
	userhandler "schoolpay/internal/user/handler"
	"schoolpay/pkg/platform/httputil"
)

// Handlers groups the per-module HTTP handlers the router mounts.
type Handlers struct {
	User    *userhandler.Handler
	School  *schoolhandler.Handler
	Payment *paymenthandler.Handler
}

// NewRouter assembles the HTTP surface. Public routes carry only request-id
// and logging middleware; everything else sits behind bearer auth, with
// school-owner and admin subtrees gated on role.
func NewRouter(h Handlers, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Unauthenticated: registration, login, password reset and the gateway
	// webhook callback.
	h.User.RegisterPublic(r)
	h.Payment.RegisterWebhook(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))

		h.User.Register(r)
		h.School.Register(r)
		h.Payment.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(string(user.RoleSchool), string(user.RoleAdmin)))
			h.School.RegisterOwner(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(user.RoleAdmin)))
			h.User.RegisterAdmin(r)
			h.School.RegisterAdmin(r)
			h.Payment.RegisterAdmin(r)
		})
	})

	return r
}
