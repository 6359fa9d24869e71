package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ---------- fakes ----------

type fakeHealth struct{}

func (fakeHealth) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (fakeHealth) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type fakeAccount struct{}

func (fakeAccount) write(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(msg))
}

func (a fakeAccount) User(w http.ResponseWriter, r *http.Request) {
	a.write(w, "user:"+chi.URLParam(r, "identifier"))
}
func (a fakeAccount) Register(w http.ResponseWriter, r *http.Request)       { a.write(w, "register") }
func (a fakeAccount) Verify(w http.ResponseWriter, r *http.Request)         { a.write(w, "verify") }
func (a fakeAccount) Login(w http.ResponseWriter, r *http.Request)          { a.write(w, "login") }
func (a fakeAccount) ChangePassword(w http.ResponseWriter, r *http.Request) { a.write(w, "re_register") }
func (a fakeAccount) CreateDemo(w http.ResponseWriter, r *http.Request)     { a.write(w, "demo_create") }
func (a fakeAccount) NoAccount(w http.ResponseWriter, r *http.Request)      { a.write(w, "no_acc") }
func (a fakeAccount) DeleteDemo(w http.ResponseWriter, r *http.Request)     { a.write(w, "demo_delete") }
func (a fakeAccount) VerifyTurnstile(w http.ResponseWriter, r *http.Request) {
	a.write(w, "verify_turnstile")
}

func headerMW(key, val string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, val)
			next.ServeHTTP(w, r)
		})
	}
}

func blockMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
}

func TestNew_RequiresHandlers(t *testing.T) {
	if _, err := New(Deps{Account: fakeAccount{}}); err == nil {
		t.Fatalf("expected error for nil Health")
	}
	if _, err := New(Deps{Health: fakeHealth{}}); err == nil {
		t.Fatalf("expected error for nil Account")
	}
}

func TestRoutes(t *testing.T) {
	h, err := New(Deps{Health: fakeHealth{}, Account: fakeAccount{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/healthz", "ok"},
		{http.MethodGet, "/readyz", "ready"},
		{http.MethodGet, "/user/bob", "user:bob"},
		{http.MethodPost, "/register", "register"},
		{http.MethodPost, "/verify", "verify"},
		{http.MethodPost, "/login", "login"},
		{http.MethodPost, "/re-register", "re_register"},
		{http.MethodPost, "/demo", "demo_create"},
		{http.MethodPost, "/no-acc", "no_acc"},
		{http.MethodDelete, "/demo/guest", "demo_delete"},
		{http.MethodPost, "/verify-turnstile", "verify_turnstile"},
	}

	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d", tc.method, tc.path, rr.Code)
		}
		if got := rr.Body.String(); got != tc.want {
			t.Fatalf("%s %s: expected %q, got %q", tc.method, tc.path, tc.want, got)
		}
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	h, _ := New(Deps{Health: fakeHealth{}, Account: fakeAccount{}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/register", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestGlobalMiddlewareApplied(t *testing.T) {
	h, _ := New(Deps{
		Health:      fakeHealth{},
		Account:     fakeAccount{},
		Middlewares: []func(http.Handler) http.Handler{headerMW("X-Test", "1"), nil},
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Header().Get("X-Test") != "1" {
		t.Fatalf("expected global middleware header")
	}
}

func TestRateLimitMiddlewareScopedToRoute(t *testing.T) {
	h, _ := New(Deps{
		Health:     fakeHealth{},
		Account:    fakeAccount{},
		RLRegister: blockMW,
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/register", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on /register, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on /login, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := New(Deps{Health: fakeHealth{}, Account: fakeAccount{}, Metrics: MetricsHandler()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected default Go collectors in /metrics output")
	}
}

func TestRecoverer(t *testing.T) {
	panicMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	}
	h, _ := New(Deps{Health: fakeHealth{}, Account: fakeAccount{}, Middlewares: []func(http.Handler) http.Handler{panicMW}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
