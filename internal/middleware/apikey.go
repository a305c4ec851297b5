package middleware

import (
	"context"
	"net/http"
	"strings"
)

const apiKeyContextKey contextKey = "api_key"

// APIKey extracts the caller's provider credential from the Authorization
// bearer header or the X-API-Key header, falling back to the configured
// server key. Requests with no credential anywhere are rejected: every
// operation behind this middleware ends in a provider call.
func APIKey(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerToken(r)
			if key == "" {
				key = strings.TrimSpace(r.Header.Get("X-API-Key"))
			}
			if key == "" {
				key = strings.TrimSpace(fallback)
			}
			if key == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"missing_api_key","message":"supply a provider key via Authorization: Bearer or X-API-Key"}`))
				return
			}
			ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// APIKeyFromContext returns the credential attached by APIKey.
func APIKeyFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(apiKeyContextKey).(string); ok {
		return v
	}
	return ""
}
