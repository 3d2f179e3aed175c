package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartExpiredSecretCleaner removes secret rows whose deleted_time passed
// longer than retention ago. Rows inside the retention window stay so that
// verification failures for recently revoked secrets remain explainable
// from the store.
func StartExpiredSecretCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM secrets
                     WHERE deleted_time IS NOT NULL
                       AND deleted_time < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean expired secrets", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned expired secrets", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
