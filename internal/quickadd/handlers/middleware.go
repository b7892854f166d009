package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/giftlist/quickadd/internal/quickadd/service"
	"github.com/giftlist/quickadd/internal/shared/models"
)

// APIKeyStore validates raw API keys
type APIKeyStore interface {
	GetAPIKey(ctx context.Context, rawKey string) (*models.APIKey, error)
}

// RateLimiter enforces a per-user request quota
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID string, limit int) (bool, int, error)
}

type Middleware struct {
	keys    APIKeyStore
	limiter RateLimiter
	limit   int
}

func NewMiddleware(keys APIKeyStore, limiter RateLimiter, limit int) *Middleware {
	return &Middleware{
		keys:    keys,
		limiter: limiter,
		limit:   limit,
	}
}

// AuthMiddleware validates API keys
func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract API key from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, &service.Result{Success: false, Error: "Unauthorized"})
			return
		}

		// Parse Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, &service.Result{Success: false, Error: "Unauthorized"})
			return
		}

		apiKey, err := m.keys.GetAPIKey(r.Context(), parts[1])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, &service.Result{Success: false, Error: "Unauthorized"})
			return
		}

		// Add API key to context
		ctx := context.WithValue(r.Context(), "api_key", apiKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware enforces the per-user quota on paid endpoints. A limiter
// outage fails open: this is a throttle, not the budget gate.
func (m *Middleware) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey, ok := r.Context().Value("api_key").(*models.APIKey)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		exceeded, remaining, err := m.limiter.CheckRateLimit(r.Context(), apiKey.UserID, m.limit)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if exceeded {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, &service.Result{
				Success: false,
				Error:   "Too many requests. Please slow down.",
				Code:    service.CodeRateLimited,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware handles CORS
func (m *Middleware) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
