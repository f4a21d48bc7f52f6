package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/clavrr/clavr/internal/logging"
)

// DefaultFailureThreshold is the consecutive-failure count at which a
// subscription is marked failed unless configured otherwise.
const DefaultFailureThreshold = 5

// WebhookRepository provides persistence for webhook subscriptions and their
// delivery history.
type WebhookRepository struct {
	db     *gorm.DB
	logger logging.Logger

	// failureThreshold is the consecutive-failure count at which a
	// subscription is marked failed and excluded from dispatch.
	failureThreshold int
}

// SetFailureThreshold overrides the consecutive-failure threshold.
func (r *WebhookRepository) SetFailureThreshold(n int) {
	if n > 0 {
		r.failureThreshold = n
	}
}

// Create persists a new subscription.
func (r *WebhookRepository) Create(ctx context.Context, sub *WebhookSubscription) error {
	if sub.URL == "" {
		return fmt.Errorf("webhook url is required")
	}
	if sub.UserID == "" {
		return fmt.Errorf("webhook user id is required")
	}
	if len(sub.Events) == 0 {
		return fmt.Errorf("webhook events are required")
	}
	if sub.Status == "" {
		sub.Status = WebhookStatusActive
	}

	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create webhook subscription: %w", err)
	}

	r.logger.Info("webhook subscription created", "subscription_id", sub.ID, "user_id", sub.UserID)
	return nil
}

// Get fetches a subscription by ID, scoped to the owning user.
func (r *WebhookRepository) Get(ctx context.Context, userID, id string) (*WebhookSubscription, error) {
	var sub WebhookSubscription
	err := r.db.WithContext(ctx).First(&sub, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

// ListByUser returns all of a user's subscriptions regardless of status.
func (r *WebhookRepository) ListByUser(ctx context.Context, userID string) ([]WebhookSubscription, error) {
	var subs []WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook subscriptions: %w", err)
	}
	return subs, nil
}

// ListActiveForEvent returns the active subscriptions of a user whose event
// list matches the given event.
func (r *WebhookRepository) ListActiveForEvent(ctx context.Context, userID, event string) ([]WebhookSubscription, error) {
	var subs []WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, WebhookStatusActive).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook subscriptions: %w", err)
	}

	// Event matching happens here rather than in SQL because the event list
	// is stored as a JSON-serialized column.
	matched := subs[:0]
	for _, sub := range subs {
		if sub.Matches(event) {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

// RecordSuccess resets the failure counter after a successful delivery.
func (r *WebhookRepository) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&WebhookSubscription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failure_count":     0,
			"last_error":        "",
			"last_triggered_at": at,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record webhook success: %w", err)
	}
	return nil
}

// RecordFailure increments the failure counter and marks the subscription
// failed once the threshold is reached.
func (r *WebhookRepository) RecordFailure(ctx context.Context, id string, deliveryErr error, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub WebhookSubscription
		if err := tx.First(&sub, "id = ?", id).Error; err != nil {
			return translate(err)
		}

		sub.FailureCount++
		updates := map[string]any{
			"failure_count":     sub.FailureCount,
			"last_error":        deliveryErr.Error(),
			"last_triggered_at": at,
		}
		if sub.FailureCount >= r.failureThreshold {
			updates["status"] = WebhookStatusFailed
		}

		if err := tx.Model(&WebhookSubscription{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to record webhook failure: %w", err)
		}

		if sub.FailureCount >= r.failureThreshold {
			r.logger.Warn("webhook subscription disabled after repeated failures",
				"subscription_id", id, "failures", sub.FailureCount)
		}
		return nil
	})
}

// Delete removes a subscription and its delivery history.
func (r *WebhookRepository) Delete(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&WebhookDelivery{}, "subscription_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete webhook deliveries: %w", err)
		}

		res := tx.Delete(&WebhookSubscription{}, "id = ? AND user_id = ?", id, userID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete webhook subscription: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// RecordDelivery appends a delivery attempt to the history log.
func (r *WebhookRepository) RecordDelivery(ctx context.Context, delivery *WebhookDelivery) error {
	if err := r.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	return nil
}

// ListDeliveries returns the most recent delivery attempts for a subscription,
// newest first.
func (r *WebhookRepository) ListDeliveries(ctx context.Context, subscriptionID string, limit int) ([]WebhookDelivery, error) {
	q := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var deliveries []WebhookDelivery
	if err := q.Find(&deliveries).Error; err != nil {
		return nil, fmt.Errorf("failed to list webhook deliveries: %w", err)
	}
	return deliveries, nil
}
