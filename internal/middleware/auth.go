// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/akoreshkov/keybox/internal/cache"
	"github.com/akoreshkov/keybox/internal/models"
	"github.com/akoreshkov/keybox/internal/response"
	"github.com/akoreshkov/keybox/internal/token"
)

type ctxKey string

const identityKey ctxKey = "identity"

// TokenCookieName is the cookie carrying the persisted client-side token.
const TokenCookieName = "token"

// DefaultFreshnessWindow bounds how long a cached identity resolution is
// trusted without re-checking the secret store.
const DefaultFreshnessWindow = time.Minute

// Identity is a fully resolved authentication result attached to the
// request context and cached under the raw token string.
type Identity struct {
	User   models.User
	Secret models.Secret
	Token  token.Payload
	// CacheExpiry bounds how long this resolution may be served from
	// cache. It is independent of the payload's expiredTime and of the
	// secret's lifecycle.
	CacheExpiry time.Time
}

// UserProvider is the slice of the user store the authenticator needs.
type UserProvider interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// SecretProvider is the slice of the secret store the authenticator needs.
type SecretProvider interface {
	GetSecret(ctx context.Context, key string) (*models.Secret, error)
}

// Authenticator resolves request identity from a signed token, reading
// through a bounded-staleness LRU cache to avoid hitting the stores on
// every request. It owns no persistent state itself; the cache is injected
// at construction.
type Authenticator struct {
	users     UserProvider
	secrets   SecretProvider
	cache     *cache.LRU[Identity]
	freshness time.Duration
	now       func() time.Time
}

// NewAuthenticator constructs an Authenticator. A non-positive freshness
// falls back to DefaultFreshnessWindow.
func NewAuthenticator(users UserProvider, secrets SecretProvider, c *cache.LRU[Identity], freshness time.Duration) *Authenticator {
	if freshness <= 0 {
		freshness = DefaultFreshnessWindow
	}
	return &Authenticator{
		users:     users,
		secrets:   secrets,
		cache:     c,
		freshness: freshness,
		now:       time.Now,
	}
}

// tokenFromRequest extracts the candidate token string: an explicit
// Authorization credential wins over the persisted cookie.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if t := strings.TrimPrefix(header, "Bearer "); t != "" {
			return t
		}
	}

	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

// Middleware enforces authentication on every request it wraps. A failure
// short-circuits with a response envelope before the protected handler
// runs; store I/O errors collapse to AUTH_FAILED so storage internals never
// leak through the auth boundary.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			response.Write(w, response.StatusAuthFailed, struct{}{})
			return
		}

		// Fresh cache hit: adopt the resolution without touching the
		// stores or doing any cryptographic work. An entry whose expiry
		// is not strictly in the future is stale.
		if cached, ok := a.cache.Get(tokenString); ok && cached.CacheExpiry.After(a.now()) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), cached)))
			return
		}

		payload, err := token.Parse(tokenString)
		if err != nil {
			response.Write(w, response.StatusAuthFailed, struct{}{})
			return
		}

		secret, err := a.secrets.GetSecret(r.Context(), payload.Data.SecretID)
		if err != nil || secret == nil {
			response.Write(w, response.StatusAuthFailed, struct{}{})
			return
		}

		// A revoked secret and a signature mismatch are deliberately
		// indistinguishable to the caller.
		if !secret.Active(a.now()) || !token.Verify(tokenString, secret.Value, a.now()) {
			if token.IsExpired(payload, a.now()) {
				response.Write(w, response.StatusAuthTokenExpired, struct{}{})
				return
			}
			response.Write(w, response.StatusAuthFailed, struct{}{})
			return
		}

		user, err := a.users.GetUser(r.Context(), secret.UserID)
		if err != nil || user == nil {
			response.Write(w, response.StatusAuthFailed, struct{}{})
			return
		}

		identity := Identity{
			User:        *user,
			Secret:      *secret,
			Token:       payload,
			CacheExpiry: a.now().Add(a.freshness),
		}
		a.cache.Set(tokenString, identity)

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), identity)))
	})
}

// NewContext returns a context carrying the resolved identity.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the resolved identity from the request
// context. The second return is false on requests that did not pass
// through the authenticator.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
