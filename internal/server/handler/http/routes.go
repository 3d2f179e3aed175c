// Package http provides HTTP routing and middleware configuration
// for the keybox service.
package http

import (
	"net/http"

	"github.com/akoreshkov/keybox/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns the HTTP handler serving the keybox API.
// It applies JSON content-type enforcement and request logging everywhere,
// and wraps everything except sign-up, sign-in and health in the token
// authenticator.
//
// Routes:
//
//	POST /sign-up                   → userHandler.SignUp
//	POST /sign-in                   → userHandler.SignIn
//	GET  /health                    → healthHandler.Health
//	POST /sign-out                  → userHandler.SignOut      (protected)
//	POST /user/get/{id}             → userHandler.GetUser      (protected)
//	POST /secret/create/{userId}    → secretHandler.Create     (protected)
//	POST /secret/get/{key}          → secretHandler.Get        (protected)
//	POST /secret/list/{userId}      → secretHandler.List       (protected)
//	POST /secret/disable/{key}      → secretHandler.Disable    (protected)
//	POST /secret/delete/{key}       → secretHandler.Delete     (protected)
func NewRouter(
	userHandler *UserHandler,
	secretHandler *SecretHandler,
	healthHandler *HealthHandler,
	auth *middleware.Authenticator,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Public endpoints
	r.Post("/sign-up", userHandler.SignUp)
	r.Post("/sign-in", userHandler.SignIn)
	r.Get("/health", healthHandler.Health)

	// Protected group: requires a valid signed token
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/sign-out", userHandler.SignOut)
		r.Post("/user/get/{id}", userHandler.GetUser)

		r.Route("/secret", func(r chi.Router) {
			r.Post("/create/{userId}", secretHandler.Create)
			r.Post("/get/{key}", secretHandler.Get)
			r.Post("/list/{userId}", secretHandler.List)
			r.Post("/disable/{key}", secretHandler.Disable)
			r.Post("/delete/{key}", secretHandler.Delete)
		})
	})

	return r
}
