package repository

import (
	"errors"
	"time"

	"jobtrail-backend/internal/ingest/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// taskRunRepository implements TaskRunRepository interface
type taskRunRepository struct {
	db *gorm.DB
}

// NewTaskRunRepository creates a new instance of taskRunRepository
func NewTaskRunRepository(db *gorm.DB) TaskRunRepository {
	return &taskRunRepository{
		db: db,
	}
}

func (r *taskRunRepository) FindLatestByUser(userID string) (*domain.TaskRun, error) {
	var run domain.TaskRun
	err := r.db.Where("user_id = ?", userID).Order("created DESC").First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *taskRunRepository) Create(run *domain.TaskRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	run.Created = now
	run.Updated = now
	return r.db.Create(run).Error
}

func (r *taskRunRepository) Update(run *domain.TaskRun) error {
	run.Updated = time.Now().UTC()
	return r.db.Save(run).Error
}
