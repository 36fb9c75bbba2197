package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// nextSequence atomically increments and returns a per-tenant counter.
// The upsert works on PostgreSQL and SQLite.
func nextSequence(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, name string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO number_sequences (tenant_id, name, value) VALUES (?, ?, 1)
		ON CONFLICT (tenant_id, name) DO UPDATE SET value = number_sequences.value + 1
		RETURNING value`,
		tenantID, name,
	).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return value, nil
}
