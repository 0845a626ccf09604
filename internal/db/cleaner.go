package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PurgeRemoved deletes bags that were soft-deleted more than retention ago and
// returns how many rows were removed.
func PurgeRemoved(ctx context.Context, db *sql.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	res, err := db.ExecContext(ctx, `
        DELETE FROM bags
         WHERE deleted = true
           AND deleted_at < $1
    `, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge removed bags: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge removed bags: %w", err)
	}
	return rows, nil
}

// StartSoftDeleteCleaner purges once before returning, then calls PurgeRemoved
// every interval until ctx is done.
func StartSoftDeleteCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	if ctx.Err() != nil {
		return
	}
	purge(ctx, db, retention, log)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purge(ctx, db, retention, log)
			}
		}
	}()
}

func purge(ctx context.Context, db *sql.DB, retention time.Duration, log *zap.Logger) {
	rows, err := PurgeRemoved(ctx, db, retention)
	if err != nil {
		log.Error("failed to clean removed bags", zap.Error(err))
		return
	}
	if rows > 0 {
		log.Info("cleaned removed bags", zap.Int64("removed", rows))
	}
}
