// Package service provides business logic for user accounts and signing
// secrets, delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/akoreshkov/keybox/internal/models"
	"github.com/akoreshkov/keybox/internal/token"
)

var (
	// ErrUserExists is returned by SignUp when the username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotExists is returned by SignIn for an unknown username.
	ErrUserNotExists = errors.New("user not exists")
	// ErrIncorrectPassword is returned by SignIn on a password mismatch.
	ErrIncorrectPassword = errors.New("incorrect password")
)

// UserRepository defines the persistence operations required by the
// UserService.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// SecretWriter is the slice of the secret store the UserService needs to
// issue and revoke session credentials.
type SecretWriter interface {
	CreateSecret(ctx context.Context, secret models.Secret) error
	DisableSecret(ctx context.Context, key string) error
}

// Session is the result of a successful sign-up or sign-in: the created
// user, the SignIn secret anchoring the session, and the signed token.
type Session struct {
	User   models.User
	Secret models.Secret
	Token  string
}

// UserService implements account flows: registration, login, logout.
type UserService struct {
	users   UserRepository
	secrets SecretWriter
	// signInTTL is the lifetime assigned to SignIn secrets.
	signInTTL time.Duration
	now       func() time.Time
}

// NewUserService constructs a UserService over the given repositories.
// signInTTL bounds the lifetime of issued sessions.
func NewUserService(users UserRepository, secrets SecretWriter, signInTTL time.Duration) *UserService {
	return &UserService{
		users:     users,
		secrets:   secrets,
		signInTTL: signInTTL,
		now:       time.Now,
	}
}

// SignUp registers a new user and opens a session for it.
// Returns ErrUserExists if the username is already taken.
func (s *UserService) SignUp(ctx context.Context, username, password string) (*Session, error) {
	existing, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedTime:  s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return s.openSession(ctx, user)
}

// SignIn verifies the password and opens a new session.
// Returns ErrUserNotExists for an unknown username and
// ErrIncorrectPassword on a mismatch.
func (s *UserService) SignIn(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotExists
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrIncorrectPassword
	}

	return s.openSession(ctx, *user)
}

// SignOut disables the SignIn secret bound to the presented token. Cached
// resolutions of that token may remain servable until their freshness
// window elapses; that staleness is bounded and accepted.
func (s *UserService) SignOut(ctx context.Context, secretKey string) error {
	return s.secrets.DisableSecret(ctx, secretKey)
}

// GetUser fetches a user by ID. A missing user yields (nil, nil).
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetUser(ctx, id)
}

// openSession issues a SignIn secret with a fixed-future expiry and signs a
// token bound to it. The payload's expiredTime mirrors the secret's
// DeletedTime so the token self-reports expiry at the same instant the
// secret goes inactive.
func (s *UserService) openSession(ctx context.Context, user models.User) (*Session, error) {
	now := s.now().UTC()
	expiry := now.Add(s.signInTTL)

	secret := models.Secret{
		Key:         uuid.NewString(),
		Value:       newSecretValue(),
		UserID:      user.ID,
		Type:        models.SecretTypeSignIn,
		CreatedTime: now,
		DeletedTime: &expiry,
	}
	if err := s.secrets.CreateSecret(ctx, secret); err != nil {
		return nil, err
	}

	tokenString, err := token.Sign(secret.Value, token.Payload{
		CreatedTime: now,
		ExpiredTime: &expiry,
		Data: token.PayloadData{
			UserID:   user.ID,
			Username: user.Username,
			SecretID: secret.Key,
		},
	})
	if err != nil {
		return nil, err
	}

	return &Session{User: user, Secret: secret, Token: tokenString}, nil
}
