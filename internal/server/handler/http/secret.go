package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akoreshkov/keybox/internal/middleware"
	"github.com/akoreshkov/keybox/internal/models"
	"github.com/akoreshkov/keybox/internal/response"
)

// SecretService defines the secret-lifecycle operations required by the
// HTTP handlers.
type SecretService interface {
	CreateSecret(ctx context.Context, userID string, secretType models.SecretType, deletedTime *time.Time) (*models.Secret, error)
	GetSecret(ctx context.Context, key string) (*models.Secret, error)
	ListSecrets(ctx context.Context, userID string) ([]models.Secret, error)
	DisableSecret(ctx context.Context, key string) error
	DeleteSecret(ctx context.Context, key string) error
}

// SecretHandler handles HTTP requests for the signing-secret lifecycle.
// All routes are protected and owner-only: a caller may only operate on
// users and secrets matching the identity resolved by the authenticator.
type SecretHandler struct {
	SecretService SecretService
}

// CreateSecretRequest is the JSON payload for secret creation.
type CreateSecretRequest struct {
	Type        models.SecretType `json:"type"`
	DeletedTime *time.Time        `json:"deletedTime"`
}

// ListSecretsResponse is the data returned by the list endpoint.
type ListSecretsResponse struct {
	Total int             `json:"total"`
	List  []models.Secret `json:"list"`
}

// Create handles POST /secret/create/{userId}.
func (h *SecretHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !callerOwns(r, userID) {
		response.Write(w, response.StatusNotPermission, struct{}{})
		return
	}

	var req CreateSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Write(w, response.StatusInvalidInput, struct{}{})
		return
	}
	if req.Type != models.SecretTypeSignIn && req.Type != models.SecretTypeUser {
		response.Write(w, response.StatusInvalidInput, struct{}{})
		return
	}

	secret, err := h.SecretService.CreateSecret(r.Context(), userID, req.Type, req.DeletedTime)
	if err != nil {
		response.Write(w, response.StatusUnknownError, struct{}{})
		return
	}

	response.WriteSuccess(w, secret)
}

// Get handles POST /secret/get/{key}.
func (h *SecretHandler) Get(w http.ResponseWriter, r *http.Request) {
	secret, status := h.ownedSecret(r)
	if status != response.StatusSuccess {
		response.Write(w, status, struct{}{})
		return
	}
	response.WriteSuccess(w, secret)
}

// List handles POST /secret/list/{userId}.
func (h *SecretHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !callerOwns(r, userID) {
		response.Write(w, response.StatusNotPermission, struct{}{})
		return
	}

	secrets, err := h.SecretService.ListSecrets(r.Context(), userID)
	if err != nil {
		response.Write(w, response.StatusUnknownError, struct{}{})
		return
	}

	response.WriteSuccess(w, ListSecretsResponse{Total: len(secrets), List: secrets})
}

// Disable handles POST /secret/disable/{key}.
func (h *SecretHandler) Disable(w http.ResponseWriter, r *http.Request) {
	secret, status := h.ownedSecret(r)
	if status != response.StatusSuccess {
		response.Write(w, status, struct{}{})
		return
	}

	if err := h.SecretService.DisableSecret(r.Context(), secret.Key); err != nil {
		response.Write(w, response.StatusUnknownError, struct{}{})
		return
	}
	response.WriteSuccess(w, secret)
}

// Delete handles POST /secret/delete/{key}.
func (h *SecretHandler) Delete(w http.ResponseWriter, r *http.Request) {
	secret, status := h.ownedSecret(r)
	if status != response.StatusSuccess {
		response.Write(w, status, struct{}{})
		return
	}

	if err := h.SecretService.DeleteSecret(r.Context(), secret.Key); err != nil {
		response.Write(w, response.StatusUnknownError, struct{}{})
		return
	}
	response.WriteSuccess(w, secret)
}

// ownedSecret loads the secret from the {key} route parameter and checks it
// belongs to the caller.
func (h *SecretHandler) ownedSecret(r *http.Request) (*models.Secret, response.Status) {
	key := chi.URLParam(r, "key")
	if key == "" {
		return nil, response.StatusInvalidInput
	}

	secret, err := h.SecretService.GetSecret(r.Context(), key)
	if err != nil {
		return nil, response.StatusUnknownError
	}
	if secret == nil {
		return nil, response.StatusInvalidInput
	}
	if !callerOwns(r, secret.UserID) {
		return nil, response.StatusNotPermission
	}
	return secret, response.StatusSuccess
}

// callerOwns reports whether the request's resolved identity matches the
// given user ID.
func callerOwns(r *http.Request, userID string) bool {
	identity, ok := middleware.IdentityFromContext(r.Context())
	return ok && userID != "" && identity.User.ID == userID
}
