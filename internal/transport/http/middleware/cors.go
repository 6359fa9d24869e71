package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the web and mobile front-ends call the API cross-origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderXRequestID},
		ExposedHeaders: []string{HeaderXRequestID, "Retry-After"},
		MaxAge:         300,
	})
}
