package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/clavrr/clavr/internal/logging"
)

// SessionRepository provides persistence for bearer sessions.
type SessionRepository struct {
	db     *gorm.DB
	logger logging.Logger
}

// NewSessionToken returns a 256-bit random token encoded as hex.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *Session) error {
	if session.Token == "" {
		return fmt.Errorf("session token is required")
	}
	if session.UserID == "" {
		return fmt.Errorf("session user id is required")
	}

	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByToken fetches a session by its token. Expired sessions are deleted on
// read and reported as ErrNotFound.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	var session Session
	if err := r.db.WithContext(ctx).First(&session, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}

	if session.Expired(time.Now()) {
		if err := r.db.WithContext(ctx).Delete(&Session{}, "token = ?", token).Error; err != nil {
			r.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrNotFound
	}

	return &session, nil
}

// Delete removes a session by token. Deleting an unknown token is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Delete(&Session{}, "token = ?", token).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions past their expiry. Returns the number of
// sessions removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.logger.Info("expired sessions removed", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
