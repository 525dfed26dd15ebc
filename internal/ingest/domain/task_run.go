package domain

import "time"

// TaskRun statuses. STARTED is the only non-terminal state.
const (
	StatusStarted   = "started"
	StatusFinished  = "finished"
	StatusCancelled = "cancelled"
	StatusStopped   = "stopped"
)

// TaskRun tracks one ingestion run for one user. The partial unique index
// guarantees at most one STARTED run per user; terminal rows from earlier
// runs are kept for history.
type TaskRun struct {
	ID      string    `json:"id" gorm:"primaryKey"`
	UserID  string    `json:"user_id" gorm:"not null;index;uniqueIndex:uq_user_started_run,where:status = 'started'"`
	Created time.Time `json:"created" gorm:"column:created;not null"`
	Updated time.Time `json:"updated" gorm:"column:updated;not null"`
	Status  string    `json:"status" gorm:"not null"`

	TotalEmails       int `json:"total_emails" gorm:"default:0"`
	ProcessedEmails   int `json:"processed_emails" gorm:"default:0"`
	ApplicationsFound int `json:"applications_found" gorm:"default:0"`
}

func (TaskRun) TableName() string {
	return "processing_task_runs"
}

// Terminal reports whether the run has reached a final status.
func (t *TaskRun) Terminal() bool {
	return t.Status != StatusStarted
}
