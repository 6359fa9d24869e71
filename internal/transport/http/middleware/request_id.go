package middleware

import (
	"net"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appCtx "github.com/baechuer/account-service/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// RequestID propagates or mints a request id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderXRequestID))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, reqID)

		ctx := appCtx.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP records the client address used for rate limiting, the
// human-verification call and audit logs. Forwarding headers are only
// honoured when trustProxy is set, i.e. when every request arrives through a
// proxy that overwrites them.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		record := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := appCtx.WithClientIP(r.Context(), remoteIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		if trustProxy {
			return chimw.RealIP(record)
		}
		return record
	}
}

func remoteIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}
	return addr
}
