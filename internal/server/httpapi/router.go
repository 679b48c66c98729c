// Package httpapi is the JSON-over-HTTP surface of the server: the
// /api/users routes, the AuthGate middleware and /metrics.
package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

const defaultRequestTimeout = 30 * time.Second

// RouterConfig lists the router dependencies.
type RouterConfig struct {
	Users    UserService
	Sessions Authenticator
	Logger   logging.Logger
	Metrics  *metrics.Metrics

	// LoginRateLimit caps register and login requests per client IP per
	// minute. Zero disables the limit.
	LoginRateLimit int

	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler. Register and login are public. Refresh
// passes BearerGate and leaves token checks to the session manager. Every
// other /api route passes AuthGate.
func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	h := NewUsersHandler(cfg.Users, cfg.Logger)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(cfg.Logger),
		middleware.Recoverer,
		cfg.Metrics.Middleware,
		secureHeaders(cfg.Logger),
		middleware.Timeout(timeout),
	)

	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/api/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.LoginRateLimit > 0 {
				r.Use(httprate.LimitByIP(cfg.LoginRateLimit, time.Minute))
			}
			r.Post("/", h.register)
			r.Post("/login", h.login)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthGate(cfg.Sessions, cfg.Logger))
			r.Get("/", h.profile)
			r.Put("/", h.updateProfile)
			r.Post("/logout", h.logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(BearerGate(cfg.Logger))
			r.Post("/refresh", h.refresh)
		})
	})

	return r
}
