// Package http provides HTTP handlers for account, secret and health
// endpoints, speaking the API's uniform response envelope.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/akoreshkov/keybox/internal/middleware"
	"github.com/akoreshkov/keybox/internal/models"
	"github.com/akoreshkov/keybox/internal/response"
	"github.com/akoreshkov/keybox/internal/service"
)

// UserService defines the account operations required by the HTTP handlers.
type UserService interface {
	// SignUp registers a new user and opens a session.
	SignUp(ctx context.Context, username, password string) (*service.Session, error)
	// SignIn verifies credentials and opens a session.
	SignIn(ctx context.Context, username, password string) (*service.Session, error)
	// SignOut disables the SignIn secret bound to the presented token.
	SignOut(ctx context.Context, secretKey string) error
	// GetUser fetches a user by ID; a missing user yields (nil, nil).
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// UserHandler handles HTTP requests for registration, login and logout.
type UserHandler struct {
	UserService UserService
}

// CredentialsRequest is the JSON payload for sign-up and sign-in.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is the data returned on successful sign-up or sign-in.
type SessionResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// SignUp handles POST /sign-up. On success the token is also persisted as
// an HTTP-only cookie expiring with the session's SignIn secret.
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		response.Write(w, response.StatusInvalidInput, struct{}{})
		return
	}

	session, err := h.UserService.SignUp(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			response.Write(w, response.StatusUserAlreadyExists, struct{}{})
			return
		}
		response.Write(w, response.StatusUnknownError, struct{}{})
		return
	}

	setTokenCookie(w, session)
	response.WriteSuccess(w, SessionResponse{
		UserID:   session.User.ID,
		Username: session.User.Username,
		Token:    session.Token,
	})
}

// SignIn handles POST /sign-in.
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		response.Write(w, response.StatusInvalidInput, struct{}{})
		return
	}

	session, err := h.UserService.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotExists):
			response.Write(w, response.StatusUserNotExists, struct{}{})
		case errors.Is(err, service.ErrIncorrectPassword):
			response.Write(w, response.StatusIncorrectPassword, struct{}{})
		default:
			response.Write(w, response.StatusUnknownError, struct{}{})
		}
		return
	}

	setTokenCookie(w, session)
	response.WriteSuccess(w, SessionResponse{
		UserID:   session.User.ID,
		Username: session.User.Username,
		Token:    session.Token,
	})
}

// SignOut handles POST /sign-out. It disables the secret bound to the
// request's token and drops the cookie. Cached resolutions of the token may
// survive for one freshness window.
func (h *UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Write(w, response.StatusAuthFailed, struct{}{})
		return
	}

	if err := h.UserService.SignOut(r.Context(), identity.Secret.Key); err != nil {
		response.Write(w, response.StatusUnknownError, struct{}{})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	response.WriteSuccess(w, struct{}{})
}

// GetUser handles POST /user/get/{id}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Write(w, response.StatusInvalidInput, struct{}{})
		return
	}

	user, err := h.UserService.GetUser(r.Context(), id)
	if err != nil {
		response.Write(w, response.StatusUnknownError, struct{}{})
		return
	}
	if user == nil {
		response.Write(w, response.StatusUserNotExists, struct{}{})
		return
	}

	response.WriteSuccess(w, user)
}

// setTokenCookie persists the session token as an HTTP-only cookie whose
// expiry matches the bound SignIn secret's DeletedTime.
func setTokenCookie(w http.ResponseWriter, session *service.Session) {
	cookie := &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
	}
	if session.Secret.DeletedTime != nil {
		cookie.Expires = *session.Secret.DeletedTime
	}
	http.SetCookie(w, cookie)
}
