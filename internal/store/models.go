package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Webhook subscription status values.
const (
	WebhookStatusActive = "active"
	WebhookStatusFailed = "failed"
)

// User is a registered account. The GoogleAccount field names the OAuth token
// slot used by the Google API clients.
type User struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email         string    `gorm:"uniqueIndex;not null;type:varchar(255)" json:"email"`
	Name          string    `gorm:"type:varchar(255)" json:"name,omitempty"`
	GoogleAccount string    `gorm:"not null;default:'default';type:varchar(64)" json:"google_account"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID if none is set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Session is a login session identified by an opaque token.
type Session struct {
	Token     string    `gorm:"primaryKey;type:varchar(64)" json:"-"`
	UserID    string    `gorm:"not null;index;type:uuid" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Session) TableName() string {
	return "sessions"
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Task is a locally stored to-do item.
type Task struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string     `gorm:"not null;index;type:uuid" json:"user_id"`
	Title       string     `gorm:"not null;type:varchar(512)" json:"title"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	Due         *time.Time `gorm:"index" json:"due,omitempty"`
	Done        bool       `gorm:"not null;default:false" json:"done"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Task) TableName() string {
	return "tasks"
}

// BeforeCreate assigns a UUID if none is set.
func (t *Task) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// WebhookSubscription registers an endpoint to receive event notifications.
// Events is stored as a JSON-serialized list of event type names.
type WebhookSubscription struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string     `gorm:"not null;index;type:uuid" json:"user_id"`
	URL             string     `gorm:"not null;type:varchar(2048)" json:"url"`
	Events          []string   `gorm:"serializer:json;type:text" json:"events"`
	Secret          string     `gorm:"not null;type:varchar(128)" json:"-"`
	Status          string     `gorm:"not null;default:'active';type:varchar(16)" json:"status"`
	FailureCount    int        `gorm:"not null;default:0" json:"failure_count"`
	LastError       string     `gorm:"type:text" json:"last_error,omitempty"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (WebhookSubscription) TableName() string {
	return "webhook_subscriptions"
}

// BeforeCreate assigns a UUID if none is set.
func (w *WebhookSubscription) BeforeCreate(_ *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// Matches reports whether the subscription wants the given event type.
func (w *WebhookSubscription) Matches(event string) bool {
	for _, e := range w.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

// WebhookDelivery is the attempt log for a single event delivered to a
// subscription, written after the retry loop settles.
type WebhookDelivery struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	SubscriptionID string    `gorm:"not null;index;type:uuid" json:"subscription_id"`
	Event          string    `gorm:"not null;type:varchar(64)" json:"event"`
	StatusCode     int       `gorm:"not null;default:0" json:"status_code"`
	Attempts       int       `gorm:"not null;default:0" json:"attempts"`
	Success        bool      `gorm:"not null;default:false" json:"success"`
	Error          string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}

// BeforeCreate assigns a UUID if none is set.
func (d *WebhookDelivery) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// QueryRecord is the audit trail of an executed natural-language query.
type QueryRecord struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string    `gorm:"not null;index;type:uuid" json:"user_id"`
	Query      string    `gorm:"not null;type:text" json:"query"`
	Intent     string    `gorm:"not null;type:varchar(64)" json:"intent"`
	Stage      string    `gorm:"not null;type:varchar(16)" json:"stage"`
	Confidence float64   `gorm:"not null;default:0" json:"confidence"`
	Success    bool      `gorm:"not null;default:false" json:"success"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (QueryRecord) TableName() string {
	return "query_records"
}

// BeforeCreate assigns a UUID if none is set.
func (q *QueryRecord) BeforeCreate(_ *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
