// Package repository provides a PostgreSQL persistence implementation for the
// bag collection.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/BagWardrobe/internal/models"
)

const credentialKey = "credential"

// PostgresCollectionRepository stores the collection in the bags and settings tables.
// Removed bags are soft-deleted and purged later by db.StartSoftDeleteCleaner.
type PostgresCollectionRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
	// now is replaceable in tests.
	now func() time.Time
}

// NewPostgresCollectionRepository creates a repository using the provided *sql.DB.
func NewPostgresCollectionRepository(db *sql.DB) *PostgresCollectionRepository {
	return &PostgresCollectionRepository{DB: db, now: time.Now}
}

// LoadBags returns the live bags in collection order.
func (r *PostgresCollectionRepository) LoadBags(ctx context.Context) ([]models.BagRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, image, name, brand, model, purchase_price, estimated_value, condition
		FROM bags WHERE deleted = false ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("LoadBags: %w", err)
	}
	defer rows.Close()

	bags := []models.BagRecord{}
	for rows.Next() {
		var b models.BagRecord
		if err := rows.Scan(&b.ID, &b.Image, &b.Name, &b.Brand, &b.Model,
			&b.PurchasePrice, &b.EstimatedValue, &b.Condition); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		bags = append(bags, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadBags: %w", err)
	}
	return bags, nil
}

// SaveBags upserts bags with their list position inside one transaction and
// soft-deletes every live bag missing from the list.
func (r *PostgresCollectionRepository) SaveBags(ctx context.Context, bags []models.BagRecord) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(bags))
	for i, b := range bags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bags (id, position, image, name, brand, model, purchase_price, estimated_value, condition, deleted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)
			ON CONFLICT (id) DO UPDATE SET
				position = EXCLUDED.position,
				brand = EXCLUDED.brand,
				model = EXCLUDED.model,
				purchase_price = EXCLUDED.purchase_price,
				estimated_value = EXCLUDED.estimated_value,
				condition = EXCLUDED.condition,
				deleted = false,
				deleted_at = NULL
		`, b.ID, i, b.Image, b.Name, b.Brand, b.Model, b.PurchasePrice, b.EstimatedValue, string(b.Condition))
		if err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		ids = append(ids, b.ID)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bags SET deleted = true, deleted_at = $1
		WHERE deleted = false AND NOT (id = ANY($2))
	`, r.now().Unix(), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark removed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadCredential returns the saved credential, or "" when none was saved.
func (r *PostgresCollectionRepository) LoadCredential(ctx context.Context) (string, error) {
	var credential string
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, credentialKey).Scan(&credential)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("LoadCredential: %w", err)
	}
	return credential, nil
}

// SaveCredential replaces the saved credential.
func (r *PostgresCollectionRepository) SaveCredential(ctx context.Context, credential string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, credentialKey, credential)
	if err != nil {
		return fmt.Errorf("SaveCredential: %w", err)
	}
	return nil
}
