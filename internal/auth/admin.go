package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/sendrec/vidwidget/internal/httputil"
	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyPrefix    = "vw_"
	apiKeyRandBytes = 32
)

// GenerateKey returns a new plaintext admin API key.
func GenerateKey() (string, error) {
	b := make([]byte, apiKeyRandBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

// HashKey returns the bcrypt hash to configure as ADMIN_API_KEY_HASH.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

// Admin guards the administrative API with a single bcrypt-hashed key.
// Keys that verified once are remembered by their SHA-256 so bcrypt runs
// once per key per process.
type Admin struct {
	hash []byte

	mu       sync.Mutex
	verified map[string]bool
}

func NewAdmin(hash string) *Admin {
	return &Admin{hash: []byte(hash), verified: make(map[string]bool)}
}

func (a *Admin) Enabled() bool {
	return len(a.hash) > 0
}

func (a *Admin) check(key string) bool {
	if !strings.HasPrefix(key, apiKeyPrefix) {
		return false
	}
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])

	a.mu.Lock()
	ok := a.verified[digest]
	a.mu.Unlock()
	if ok {
		return true
	}

	if bcrypt.CompareHashAndPassword(a.hash, []byte(key)) != nil {
		return false
	}
	a.mu.Lock()
	a.verified[digest] = true
	a.mu.Unlock()
	return true
}

func (a *Admin) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			httputil.WriteError(w, http.StatusServiceUnavailable, "admin API disabled")
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			bearer, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found {
				httputil.WriteError(w, http.StatusUnauthorized, "api key required")
				return
			}
			key = bearer
		}

		if !a.check(key) {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
