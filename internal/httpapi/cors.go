package httpapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/cors"
)

// corsOptions mirrors the env-driven CORS configuration the rest of
// the stack's services use: CORS_ALLOWED_ORIGINS/METHODS/HEADERS,
// CORS_ALLOW_CREDENTIALS, CORS_MAX_AGE. Unset origins default to "*"
// for local development.
func corsOptions() cors.Options {
	origins := splitEnv("CORS_ALLOWED_ORIGINS", []string{"*"})
	methods := splitEnv("CORS_ALLOWED_METHODS", []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions})
	headers := splitEnv("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"})
	credentials, _ := strconv.ParseBool(os.Getenv("CORS_ALLOW_CREDENTIALS"))
	maxAge, err := strconv.Atoi(os.Getenv("CORS_MAX_AGE"))
	if err != nil {
		maxAge = 300
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   methods,
		AllowedHeaders:   headers,
		AllowCredentials: credentials,
		MaxAge:           maxAge,
	}
}

func splitEnv(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
