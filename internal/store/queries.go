package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/clavrr/clavr/internal/logging"
)

// QueryRepository persists the classification history of executed queries.
type QueryRepository struct {
	db     *gorm.DB
	logger logging.Logger
}

// Record appends a query record.
func (r *QueryRepository) Record(ctx context.Context, rec *QueryRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// ListByUser returns a user's query history, newest first.
func (r *QueryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]QueryRecord, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []QueryRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list query records: %w", err)
	}
	return records, nil
}

// DeleteByUser removes a user's entire query history.
func (r *QueryRepository) DeleteByUser(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Delete(&QueryRecord{}, "user_id = ?", userID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete query records: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.logger.Info("query history deleted", "user_id", userID, "count", res.RowsAffected)
	}
	return nil
}
