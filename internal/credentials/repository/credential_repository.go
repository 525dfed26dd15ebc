package repository

import (
	"errors"
	"time"

	"jobtrail-backend/internal/credentials/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// credentialRepository implements CredentialRepository interface
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new instance of credentialRepository
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{
		db: db,
	}
}

func (r *credentialRepository) FindByUserAndType(userID, credentialType string) (*domain.Credential, error) {
	var cred domain.Credential
	err := r.db.Where("user_id = ? AND credential_type = ?", userID, credentialType).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) Create(cred *domain.Credential) error {
	cred.ID = uuid.New().String()
	cred.CreatedAt = time.Now().UTC()
	cred.UpdatedAt = time.Now().UTC()
	return r.db.Create(cred).Error
}

func (r *credentialRepository) Update(cred *domain.Credential) error {
	cred.UpdatedAt = time.Now().UTC()
	return r.db.Save(cred).Error
}
