package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/clavrr/clavr/internal/logging"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store bundles the repositories over a single database connection.
type Store struct {
	Users    *UserRepository
	Sessions *SessionRepository
	Tasks    *TaskRepository
	Webhooks *WebhookRepository
	Queries  *QueryRepository

	db *gorm.DB
}

// New creates a Store with all repositories initialized.
func New(db *gorm.DB, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Store{
		Users:    &UserRepository{db: db, logger: logger},
		Sessions: &SessionRepository{db: db, logger: logger},
		Tasks:    &TaskRepository{db: db, logger: logger},
		Webhooks: &WebhookRepository{db: db, logger: logger, failureThreshold: DefaultFailureThreshold},
		Queries:  &QueryRepository{db: db, logger: logger},
		db:       db,
	}
}

// DB returns the underlying gorm handle, used by the export assembler for
// read-only aggregation queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return CloseDB(s.db)
}

// translate maps gorm's not-found error to the package sentinel.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
