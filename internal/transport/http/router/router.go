package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AccountHandler interface {
	User(w http.ResponseWriter, r *http.Request)

	// Lifecycle
	Register(w http.ResponseWriter, r *http.Request)
	Verify(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)

	// Demo accounts
	CreateDemo(w http.ResponseWriter, r *http.Request)
	NoAccount(w http.ResponseWriter, r *http.Request)
	DeleteDemo(w http.ResponseWriter, r *http.Request)

	VerifyTurnstile(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health  HealthHandler
	Account AccountHandler

	// Global middleware, applied in order after panic recovery.
	Middlewares []func(http.Handler) http.Handler

	// Per-route rate limits; nil means unlimited.
	RLRegister func(http.Handler) http.Handler
	RLVerify   func(http.Handler) http.Handler
	RLLogin    func(http.Handler) http.Handler
	RLDemo     func(http.Handler) http.Handler

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Account == nil {
		return nil, fmt.Errorf("nil Account handler")
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	for _, mw := range deps.Middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	a := deps.Account
	r.Get("/user/{identifier}", a.User)

	r.With(optional(deps.RLRegister)).Post("/register", a.Register)
	r.With(optional(deps.RLVerify)).Post("/verify", a.Verify)
	r.With(optional(deps.RLLogin)).Post("/login", a.Login)
	r.With(optional(deps.RLLogin)).Post("/re-register", a.ChangePassword)

	r.With(optional(deps.RLDemo)).Post("/demo", a.CreateDemo)
	r.With(optional(deps.RLDemo)).Post("/no-acc", a.NoAccount)
	r.With(optional(deps.RLDemo)).Delete("/demo/{identifier}", a.DeleteDemo)

	r.With(optional(deps.RLVerify)).Post("/verify-turnstile", a.VerifyTurnstile)

	return r, nil
}

// MetricsHandler exposes the default Prometheus registry.
func MetricsHandler() http.Handler { return promhttp.Handler() }

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
