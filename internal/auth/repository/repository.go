package repository

import "jobtrail-backend/internal/auth/domain"

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *domain.User) error

	// FindByID finds a user by ID, returning nil when absent
	FindByID(id string) (*domain.User, error)

	// FindByEmail finds a user by email, returning nil when absent
	FindByEmail(email string) (*domain.User, error)

	// Update updates an existing user
	Update(user *domain.User) error

	// ListActivePremium returns active users on the premium sync tier
	ListActivePremium() ([]*domain.User, error)
}
