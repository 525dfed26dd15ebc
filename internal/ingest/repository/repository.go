package repository

import (
	"time"

	"jobtrail-backend/internal/ingest/domain"
)

// TaskRunRepository defines the interface for task run data access
type TaskRunRepository interface {
	// FindLatestByUser returns the most recently created run for a user,
	// or nil when the user has never run a fetch
	FindLatestByUser(userID string) (*domain.TaskRun, error)

	// Create creates a new task run
	Create(run *domain.TaskRun) error

	// Update persists run progress and status changes
	Update(run *domain.TaskRun) error
}

// EmailRecordRepository defines the interface for stored application data access
type EmailRecordRepository interface {
	// Exists reports whether a message has already been ingested for a user
	Exists(userID, messageID string) (bool, error)

	// CreateBatch inserts records, silently skipping duplicates
	CreateBatch(records []*domain.EmailRecord) error

	// LastReceivedAt returns the newest received_at for a user, or nil
	// when no records exist
	LastReceivedAt(userID string) (*time.Time, error)

	// ListByUser returns a user's stored applications, newest first
	ListByUser(userID string) ([]*domain.EmailRecord, error)

	// FindByID returns one record, or nil when absent
	FindByID(userID, id string) (*domain.EmailRecord, error)

	// Update persists edits to a stored application
	Update(record *domain.EmailRecord) error

	// Delete removes a stored application
	Delete(userID, id string) error

	// DeleteAllByUser removes every stored application for a user and
	// returns the number of rows removed
	DeleteAllByUser(userID string) (int64, error)
}
