package repository

import "jobtrail-backend/internal/credentials/domain"

// CredentialRepository defines the interface for credential data access
type CredentialRepository interface {
	// FindByUserAndType returns the stored credential, or nil if none exists
	FindByUserAndType(userID, credentialType string) (*domain.Credential, error)

	// Create creates a new credential record
	Create(cred *domain.Credential) error

	// Update updates an existing credential record
	Update(cred *domain.Credential) error
}
