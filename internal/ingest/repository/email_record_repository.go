package repository

import (
	"errors"
	"log"
	"time"

	"jobtrail-backend/internal/ingest/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// emailRecordRepository implements EmailRecordRepository interface
type emailRecordRepository struct {
	db *gorm.DB
}

// NewEmailRecordRepository creates a new instance of emailRecordRepository
func NewEmailRecordRepository(db *gorm.DB) EmailRecordRepository {
	return &emailRecordRepository{
		db: db,
	}
}

func (r *emailRecordRepository) Exists(userID, messageID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.EmailRecord{}).
		Where("user_id = ? AND id = ?", userID, messageID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *emailRecordRepository) CreateBatch(records []*domain.EmailRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, record := range records {
		record.CreatedAt = now
		record.UpdatedAt = now
		if record.NormalizedJobTitle == "" {
			record.NormalizedJobTitle = domain.NormalizeJobTitle(record.JobTitle)
		}
	}
	// Duplicate (user_id, id) rows can appear when a stopped run is rerun;
	// skip them instead of failing the whole batch.
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(records).Error
}

func (r *emailRecordRepository) LastReceivedAt(userID string) (*time.Time, error) {
	var record domain.EmailRecord
	err := r.db.Where("user_id = ?", userID).Order("received_at DESC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record.ReceivedAt, nil
}

func (r *emailRecordRepository) ListByUser(userID string) ([]*domain.EmailRecord, error) {
	var records []*domain.EmailRecord
	err := r.db.Where("user_id = ?", userID).Order("received_at DESC").Find(&records).Error
	if err != nil {
		return nil, err
	}

	r.backfillNormalizedTitles(records)
	return records, nil
}

// backfillNormalizedTitles lazily fills normalized_job_title on rows
// ingested before the column existed.
func (r *emailRecordRepository) backfillNormalizedTitles(records []*domain.EmailRecord) {
	for _, record := range records {
		if record.NormalizedJobTitle != "" || record.JobTitle == "" {
			continue
		}
		record.NormalizedJobTitle = domain.NormalizeJobTitle(record.JobTitle)
		err := r.db.Model(&domain.EmailRecord{}).
			Where("user_id = ? AND id = ?", record.UserID, record.ID).
			Update("normalized_job_title", record.NormalizedJobTitle).Error
		if err != nil {
			log.Printf("[EmailRecords] Failed to backfill normalized title for %s: %v", record.ID, err)
		}
	}
}

func (r *emailRecordRepository) FindByID(userID, id string) (*domain.EmailRecord, error) {
	var record domain.EmailRecord
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *emailRecordRepository) Update(record *domain.EmailRecord) error {
	record.UpdatedAt = time.Now().UTC()
	record.NormalizedJobTitle = domain.NormalizeJobTitle(record.JobTitle)
	return r.db.Save(record).Error
}

func (r *emailRecordRepository) Delete(userID, id string) error {
	return r.db.Where("user_id = ? AND id = ?", userID, id).Delete(&domain.EmailRecord{}).Error
}

func (r *emailRecordRepository) DeleteAllByUser(userID string) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&domain.EmailRecord{})
	return result.RowsAffected, result.Error
}
