package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"media-thumbnailer/internal/database"
	"media-thumbnailer/internal/logging"
	"media-thumbnailer/internal/metrics"

	"github.com/patrickmn/go-cache"
)

// APIKeyHeader is accepted as an alternative to Authorization: Bearer.
const APIKeyHeader = "X-API-Key"

// validatedKeyTTL bounds how long a revoked key keeps working in a running
// server, since revocation happens out of process.
const validatedKeyTTL = time.Minute

type apiKeyContextKey struct{}

func newKeyCache() *cache.Cache {
	return cache.New(validatedKeyTTL, 2*validatedKeyTTL)
}

// APIKeyFrom returns the key that authenticated the request, if any.
func APIKeyFrom(ctx context.Context) (*database.APIKey, bool) {
	k, ok := ctx.Value(apiKeyContextKey{}).(*database.APIKey)
	return k, ok
}

// bearerToken extracts the key from Authorization or X-API-Key.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}

// AuthMiddleware protects the API. It is a no-op until the first key is
// created, unless AUTH_REQUIRED is set, in which case a server without keys
// rejects everything.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !h.authRequired && !h.db.HasAPIKeys(ctx) {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			metrics.AuthAttemptsTotal.WithLabelValues("missing").Inc()
			w.Header().Set("WWW-Authenticate", `Bearer realm="thumbnailer"`)
			writeJSONError(w, "API key required", http.StatusUnauthorized)
			return
		}

		key, err := h.validateKey(ctx, token)
		if err != nil {
			if errors.Is(err, database.ErrInvalidAPIKey) {
				logging.Warn("Rejected API key from %s", r.RemoteAddr)
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				w.Header().Set("WWW-Authenticate", `Bearer realm="thumbnailer", error="invalid_token"`)
				writeJSONError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			logging.Error("Failed to validate API key: %v", err)
			writeJSONError(w, "Failed to validate API key", http.StatusInternalServerError)
			return
		}

		metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, apiKeyContextKey{}, key)))
	})
}

// validateKey checks token against the database, skipping bcrypt for keys
// that passed within validatedKeyTTL.
func (h *Handlers) validateKey(ctx context.Context, token string) (*database.APIKey, error) {
	sum := sha256.Sum256([]byte(token))
	cacheKey := hex.EncodeToString(sum[:])

	if v, ok := h.keyCache.Get(cacheKey); ok {
		return v.(*database.APIKey), nil
	}

	key, err := h.db.ValidateAPIKey(ctx, token)
	if err != nil {
		return nil, err
	}
	h.keyCache.SetDefault(cacheKey, key)
	return key, nil
}
