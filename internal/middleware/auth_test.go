package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akoreshkov/keybox/internal/cache"
	"github.com/akoreshkov/keybox/internal/models"
	"github.com/akoreshkov/keybox/internal/response"
	"github.com/akoreshkov/keybox/internal/token"
)

type fakeUserProvider struct {
	user *models.User
	err  error
}

func (f *fakeUserProvider) GetUser(_ context.Context, _ string) (*models.User, error) {
	return f.user, f.err
}

type fakeSecretProvider struct {
	secret *models.Secret
	err    error
	calls  int
}

func (f *fakeSecretProvider) GetSecret(_ context.Context, _ string) (*models.Secret, error) {
	f.calls++
	return f.secret, f.err
}

// fixture builds a signed token with its backing secret and user, all
// anchored to the given clock.
func fixture(t *testing.T, now time.Time, expiry *time.Time) (string, *models.Secret, *models.User) {
	t.Helper()

	user := &models.User{ID: "u1", Username: "alice", CreatedTime: now}
	secret := &models.Secret{
		Key:         "s1",
		Value:       "secret-value",
		UserID:      "u1",
		Type:        models.SecretTypeSignIn,
		CreatedTime: now,
		DeletedTime: expiry,
	}

	tokenString, err := token.Sign(secret.Value, token.Payload{
		CreatedTime: now,
		ExpiredTime: expiry,
		Data: token.PayloadData{
			UserID:   user.ID,
			Username: user.Username,
			SecretID: secret.Key,
		},
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tokenString, secret, user
}

func newTestAuthenticator(users UserProvider, secrets SecretProvider, now time.Time) (*Authenticator, *cache.LRU[Identity]) {
	c := cache.New[Identity](10)
	a := NewAuthenticator(users, secrets, c, time.Minute)
	a.now = func() time.Time { return now }
	return a, c
}

// serve runs the middleware around a handler that records whether it was
// reached and what identity it saw.
func serve(a *Authenticator, req *http.Request) (*httptest.ResponseRecorder, *Identity) {
	var seen *Identity
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); ok {
			seen = &id
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) response.Status {
	t.Helper()
	var env response.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env.Status
}

func TestAuthenticator_MissingToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a, _ := newTestAuthenticator(&fakeUserProvider{}, &fakeSecretProvider{}, now)

	req := httptest.NewRequest("POST", "/user/get/u1", nil)
	rec, seen := serve(a, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decodeStatus(t, rec); got != response.StatusAuthFailed {
		t.Errorf("expected AUTH_FAILED, got %s", got)
	}
	if seen != nil {
		t.Errorf("protected handler must not run")
	}
}

func TestAuthenticator_BearerToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(24 * time.Hour)
	tokenString, secret, user := fixture(t, now, &expiry)

	secrets := &fakeSecretProvider{secret: secret}
	a, c := newTestAuthenticator(&fakeUserProvider{user: user}, secrets, now)

	req := httptest.NewRequest("POST", "/user/get/u1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec, seen := serve(a, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if seen == nil {
		t.Fatal("expected identity on context")
	}
	if seen.User.ID != "u1" || seen.Secret.Key != "s1" {
		t.Errorf("unexpected identity: %+v", seen)
	}
	if seen.Token.Data.Username != "alice" {
		t.Errorf("unexpected payload: %+v", seen.Token)
	}

	// A successful resolution lands in the cache under the raw token.
	cached, ok := c.Get(tokenString)
	if !ok {
		t.Fatal("expected cache entry")
	}
	if !cached.CacheExpiry.Equal(now.Add(time.Minute)) {
		t.Errorf("cache expiry: got %v", cached.CacheExpiry)
	}
}

func TestAuthenticator_CookieFallback(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(24 * time.Hour)
	tokenString, secret, user := fixture(t, now, &expiry)

	a, _ := newTestAuthenticator(&fakeUserProvider{user: user}, &fakeSecretProvider{secret: secret}, now)

	req := httptest.NewRequest("POST", "/user/get/u1", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: tokenString})
	rec, seen := serve(a, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.User.ID != "u1" {
		t.Errorf("expected resolved identity, got %+v", seen)
	}
}

func TestAuthenticator_FreshCacheHitSkipsStores(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(24 * time.Hour)
	tokenString, secret, user := fixture(t, now, &expiry)

	// Both stores fail: only the cache can satisfy the request.
	a, c := newTestAuthenticator(
		&fakeUserProvider{err: errors.New("store down")},
		&fakeSecretProvider{err: errors.New("store down")},
		now,
	)
	c.Set(tokenString, Identity{
		User:        *user,
		Secret:      *secret,
		CacheExpiry: now.Add(30 * time.Second),
	})

	req := httptest.NewRequest("POST", "/user/get/u1", nil)
	req.Header.Set("Authorization", tokenString)
	rec, seen := serve(a, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from cache, got %d", rec.Code)
	}
	if seen == nil || seen.User.ID != "u1" {
		t.Errorf("expected cached identity, got %+v", seen)
	}
}

func TestAuthenticator_StaleEntryReverifies(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(24 * time.Hour)
	tokenString, secret, user := fixture(t, now, &expiry)

	secrets := &fakeSecretProvider{secret: secret}
	a, c := newTestAuthenticator(&fakeUserProvider{user: user}, secrets, now)

	// CacheExpiry exactly at now is stale: the pipeline must go back to
	// the stores.
	c.Set(tokenString, Identity{User: *user, Secret: *secret, CacheExpiry: now})

	req := httptest.NewRequest("POST", "/user/get/u1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec, _ := serve(a, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if secrets.calls != 1 {
		t.Errorf("expected secret store consulted once, got %d", secrets.calls)
	}

	// The stale entry is replaced with a fresh window.
	cached, ok := c.Get(tokenString)
	if !ok {
		t.Fatal("expected refreshed cache entry")
	}
	if !cached.CacheExpiry.After(now) {
		t.Errorf("expected refreshed expiry, got %v", cached.CacheExpiry)
	}
}

func TestAuthenticator_TamperedToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(24 * time.Hour)
	tokenString, secret, user := fixture(t, now, &expiry)

	a, _ := newTestAuthenticator(&fakeUserProvider{user: user}, &fakeSecretProvider{secret: secret}, now)

	req := httptest.NewRequest("POST", "/user/get/u1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString+"x")
	rec, seen := serve(a, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decodeStatus(t, rec); got != response.StatusAuthFailed {
		t.Errorf("expected AUTH_FAILED, got %s", got)
	}
	if seen != nil {
		t.Errorf("protected handler must not run")
	}
}

func TestAuthenticator_ExpiredToken(t *testing.T) {
	signedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := signedAt.Add(time.Hour)
	tokenString, secret, user := fixture(t, signedAt, &expiry)

	// Clock past both the payload expiry and the secret's DeletedTime.
	now := signedAt.Add(2 * time.Hour)
	a, _ := newTestAuthenticator(&fakeUserProvider{user: user}, &fakeSecretProvider{secret: secret}, now)

	req := httptest.NewRequest("POST", "/user/get/u1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec, _ := serve(a, req)

	if got := decodeStatus(t, rec); got != response.StatusAuthTokenExpired {
		t.Errorf("expected AUTH_TOKEN_EXPIRED, got %s", got)
	}
}

func TestAuthenticator_RevokedSecret(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tokenString, secret, user := fixture(t, now, nil)

	// Secret disabled a minute ago; the payload itself never expires, so
	// the rejection must be the generic one.
	revoked := now.Add(-time.Minute)
	secret.DeletedTime = &revoked

	a, _ := newTestAuthenticator(&fakeUserProvider{user: user}, &fakeSecretProvider{secret: secret}, now)

	req := httptest.NewRequest("POST", "/user/get/u1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec, _ := serve(a, req)

	if got := decodeStatus(t, rec); got != response.StatusAuthFailed {
		t.Errorf("expected AUTH_FAILED, got %s", got)
	}
}

func TestAuthenticator_SecretStoreFailures(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(24 * time.Hour)
	tokenString, _, user := fixture(t, now, &expiry)

	tests := []struct {
		name    string
		secrets *fakeSecretProvider
	}{
		{"secret absent", &fakeSecretProvider{}},
		{"secret store error", &fakeSecretProvider{err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAuthenticator(&fakeUserProvider{user: user}, tt.secrets, now)

			req := httptest.NewRequest("POST", "/user/get/u1", nil)
			req.Header.Set("Authorization", "Bearer "+tokenString)
			rec, _ := serve(a, req)

			// Store detail never leaks: always the generic rejection.
			if got := decodeStatus(t, rec); got != response.StatusAuthFailed {
				t.Errorf("expected AUTH_FAILED, got %s", got)
			}
		})
	}
}

func TestAuthenticator_UserAbsent(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(24 * time.Hour)
	tokenString, secret, _ := fixture(t, now, &expiry)

	a, c := newTestAuthenticator(&fakeUserProvider{}, &fakeSecretProvider{secret: secret}, now)

	req := httptest.NewRequest("POST", "/user/get/u1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec, _ := serve(a, req)

	if got := decodeStatus(t, rec); got != response.StatusAuthFailed {
		t.Errorf("expected AUTH_FAILED, got %s", got)
	}
	// No cache write on a failed pipeline.
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}
