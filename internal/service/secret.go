package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/akoreshkov/keybox/internal/models"
)

// SecretRepository defines the persistence operations required by the
// SecretService.
type SecretRepository interface {
	CreateSecret(ctx context.Context, secret models.Secret) error
	GetSecret(ctx context.Context, key string) (*models.Secret, error)
	ListSecretsByUser(ctx context.Context, userID string) ([]models.Secret, error)
	DisableSecret(ctx context.Context, key string) error
	DeleteSecret(ctx context.Context, key string) error
}

// SecretService implements the signing-secret lifecycle.
type SecretService struct {
	repo SecretRepository
	// signInTTL is the fallback expiry assigned to SignIn secrets created
	// without an explicit one.
	signInTTL time.Duration
	now       func() time.Time
}

// NewSecretService constructs a SecretService with the provided repository.
func NewSecretService(repo SecretRepository, signInTTL time.Duration) *SecretService {
	return &SecretService{repo: repo, signInTTL: signInTTL, now: time.Now}
}

// CreateSecret issues a new secret for the user. Every SignIn secret gets a
// non-nil future DeletedTime: the caller's value when supplied, otherwise
// now + signInTTL. User secrets keep the caller's DeletedTime as-is, nil
// meaning no expiry of its own.
func (s *SecretService) CreateSecret(ctx context.Context, userID string, secretType models.SecretType, deletedTime *time.Time) (*models.Secret, error) {
	now := s.now().UTC()

	if secretType == models.SecretTypeSignIn && deletedTime == nil {
		expiry := now.Add(s.signInTTL)
		deletedTime = &expiry
	}

	secret := models.Secret{
		Key:         uuid.NewString(),
		Value:       newSecretValue(),
		UserID:      userID,
		Type:        secretType,
		CreatedTime: now,
		DeletedTime: deletedTime,
	}
	if err := s.repo.CreateSecret(ctx, secret); err != nil {
		return nil, err
	}
	return &secret, nil
}

// GetSecret fetches a secret by key. A missing secret yields (nil, nil).
func (s *SecretService) GetSecret(ctx context.Context, key string) (*models.Secret, error) {
	return s.repo.GetSecret(ctx, key)
}

// ListSecrets fetches all secrets belonging to the user.
func (s *SecretService) ListSecrets(ctx context.Context, userID string) ([]models.Secret, error) {
	return s.repo.ListSecretsByUser(ctx, userID)
}

// DisableSecret renders the secret inactive for future verification.
func (s *SecretService) DisableSecret(ctx context.Context, key string) error {
	return s.repo.DisableSecret(ctx, key)
}

// DeleteSecret marks the secret deleted. Verification-wise this is the same
// as disabling; the row is reclaimed later by the retention cleaner.
func (s *SecretService) DeleteSecret(ctx context.Context, key string) error {
	return s.repo.DeleteSecret(ctx, key)
}

// newSecretValue generates fresh HMAC key material.
func newSecretValue() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
