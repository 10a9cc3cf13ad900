package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// KeyVerifier checks an API key against stored credentials.
type KeyVerifier interface {
	VerifyKey(ctx context.Context, key string) (bool, error)
}

// APIKeyAuth authenticates requests via the X-API-Key header or a bearer
// token. When required is false the middleware passes everything through,
// which keeps local development friction-free.
type APIKeyAuth struct {
	verifier KeyVerifier
	logger   *slog.Logger
	required bool
}

// NewAPIKeyAuth creates the auth middleware.
func NewAPIKeyAuth(verifier KeyVerifier, required bool, logger *slog.Logger) *APIKeyAuth {
	return &APIKeyAuth{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "api_key_auth")),
		required: required,
	}
}

// Handler enforces API-key authentication.
func (a *APIKeyAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.required {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := extractAPIKey(r)
		if key == "" {
			a.logger.WarnContext(ctx, "missing api key",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			a.reject(w, ctx, "API key required")
			return
		}

		ok, err := a.verifier.VerifyKey(ctx, key)
		if err != nil {
			a.logger.ErrorContext(ctx, "api key verification failed",
				"error", err.Error(),
			)
			writeProblem(w, ctx, http.StatusInternalServerError,
				"/errors/internal", "Internal Server Error",
				"Authentication backend unavailable")
			return
		}
		if !ok {
			a.logger.WarnContext(ctx, "invalid api key",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			a.reject(w, ctx, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *APIKeyAuth) reject(w http.ResponseWriter, ctx context.Context, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="climex"`)
	writeProblem(w, ctx, http.StatusUnauthorized,
		"/errors/unauthorized", "Unauthorized", detail)
}

func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
