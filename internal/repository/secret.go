package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akoreshkov/keybox/internal/models"
)

// PostgresSecretRepository implements signing-secret persistence against
// PostgreSQL. A secret's value column is written once at creation and never
// updated: the signing key is immutable for the life of the record, only
// its deleted_time changes.
type PostgresSecretRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresSecretRepository creates a new PostgresSecretRepository with
// the given database connection.
func NewPostgresSecretRepository(db *sql.DB) *PostgresSecretRepository {
	return &PostgresSecretRepository{DB: db}
}

// CreateSecret inserts a new secret record.
func (r *PostgresSecretRepository) CreateSecret(ctx context.Context, secret models.Secret) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO secrets (key, value, user_id, type, created_time, deleted_time)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		secret.Key, secret.Value, secret.UserID, secret.Type, secret.CreatedTime, secret.DeletedTime,
	)
	if err != nil {
		return fmt.Errorf("create secret: %w", err)
	}
	return nil
}

// GetSecret fetches a secret by its public key. A missing secret yields
// (nil, nil).
func (r *PostgresSecretRepository) GetSecret(ctx context.Context, key string) (*models.Secret, error) {
	var secret models.Secret
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT key, value, user_id, type, created_time, deleted_time FROM secrets WHERE key = $1`,
		key,
	).Scan(&secret.Key, &secret.Value, &secret.UserID, &secret.Type, &secret.CreatedTime, &secret.DeletedTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get secret: %w", err)
	}
	return &secret, nil
}

// ListSecretsByUser fetches all secrets belonging to the given user.
func (r *PostgresSecretRepository) ListSecretsByUser(ctx context.Context, userID string) ([]models.Secret, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT key, value, user_id, type, created_time, deleted_time FROM secrets WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	defer rows.Close()

	var secrets []models.Secret
	for rows.Next() {
		var sec models.Secret
		if err := rows.Scan(&sec.Key, &sec.Value, &sec.UserID, &sec.Type, &sec.CreatedTime, &sec.DeletedTime); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		secrets = append(secrets, sec)
	}
	return secrets, rows.Err()
}

// DisableSecret sets deleted_time to now unless it is already in the past,
// rendering the secret inactive for future verification.
func (r *PostgresSecretRepository) DisableSecret(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE secrets SET deleted_time = NOW()
		 WHERE key = $1 AND (deleted_time IS NULL OR deleted_time > NOW())
	`, key)
	if err != nil {
		return fmt.Errorf("disable secret: %w", err)
	}
	return nil
}

// DeleteSecret marks the secret inactive. No hard-delete semantics: the row
// stays until the retention cleaner removes it, and the effect on
// verification is identical to DisableSecret.
func (r *PostgresSecretRepository) DeleteSecret(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE secrets SET deleted_time = NOW()
		 WHERE key = $1 AND (deleted_time IS NULL OR deleted_time > NOW())
	`, key)
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}
