package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/clavrr/clavr/internal/logging"
)

// UserRepository provides persistence for User records.
type UserRepository struct {
	db     *gorm.DB
	logger logging.Logger
}

// Create persists a new user. Email must be unique.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("user email is required")
	}
	if user.GoogleAccount == "" {
		user.GoogleAccount = "default"
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Info("user created", "user_hash", logging.AnonymizeEmail(user.Email))
	return nil
}

// GetByID fetches a user by ID. Returns ErrNotFound if missing.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByEmail fetches a user by email. Returns ErrNotFound if missing.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Delete removes a user and all dependent records. This is the destructive half
// of a GDPR erasure request; the export half lives in the export package.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Session{}, "user_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		if err := tx.Delete(&Task{}, "user_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete tasks: %w", err)
		}
		if err := tx.Where("subscription_id IN (?)",
			tx.Model(&WebhookSubscription{}).Select("id").Where("user_id = ?", id),
		).Delete(&WebhookDelivery{}).Error; err != nil {
			return fmt.Errorf("failed to delete webhook deliveries: %w", err)
		}
		if err := tx.Delete(&WebhookSubscription{}, "user_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete webhook subscriptions: %w", err)
		}
		if err := tx.Delete(&QueryRecord{}, "user_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete query records: %w", err)
		}

		res := tx.Delete(&User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		r.logger.Info("user deleted", "user_id", id)
		return nil
	})
}
