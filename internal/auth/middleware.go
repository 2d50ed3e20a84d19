package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/micro-nova/amplipi-panel/internal/models"
)

const (
	sessionCookieName = "panel-session"
	apiKeyHeader      = "X-API-Key"
	apiKeyQueryParam  = "api-key"
)

// Middleware returns an http.Handler middleware that enforces authentication.
// In open mode (no keys configured), all requests pass through. Otherwise the
// key is taken from the X-API-Key header, the session cookie or the api-key
// query parameter, in that order.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}
		if user, ok := s.Lookup(requestKey(r)); ok {
			slog.Debug("auth: request", "user", user, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(models.ErrUnauthorized.Status)
		json.NewEncoder(w).Encode(models.ErrUnauthorized)
	})
}

func requestKey(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(apiKeyQueryParam)
}
