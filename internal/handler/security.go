package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/xenking/coupon-engine/internal/domain/auth"
)

// tenantKey is the context key for the authenticated tenant ID.
type tenantKey struct{}

// TenantFromContext extracts the authenticated tenant ID from the context.
func TenantFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(tenantKey{}).(int64)
	return id, ok
}

// Security authenticates API requests via HMAC-SHA256 hashed API keys and
// attaches the key's tenant to the request context.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security middleware with the given API key
// repository and HMAC pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Wrap authenticates the request before invoking next. The API key is read
// from the api_key header, hashed with the pepper, and compared in constant
// time against the stored hash.
func (s *Security) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing api key", "")
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid api key", "")
			return
		}

		// The lookup already succeeded, but the stored hash could differ
		// from what we computed if the repository returns a stale row.
		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid api key", "")
			return
		}

		ctx := context.WithValue(r.Context(), tenantKey{}, info.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
