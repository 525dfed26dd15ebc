package usecase

import (
	"context"
	"time"

	authdomain "jobtrail-backend/internal/auth/domain"
	authdto "jobtrail-backend/internal/auth/dto"
)

// AuthUsecase defines the interface for authentication use cases
type AuthUsecase interface {
	// AuthorizationURL builds the Google consent URL. userID is empty for
	// first-time sign-in; credentialType selects which credential slot the
	// callback will fill ("primary" or "email_sync").
	AuthorizationURL(userID, credentialType string) (string, error)

	// HandleCallback exchanges the OAuth code, verifies the Google identity,
	// finds or creates the user, and stores the encrypted credentials.
	HandleCallback(ctx context.Context, code, state string) (*authdto.TokenResponse, error)

	// ValidateToken parses an access token and loads its user
	ValidateToken(tokenString string) (*authdomain.User, error)

	// GetUser loads a user by ID, returning nil when absent
	GetUser(userID string) (*authdomain.User, error)

	// UpdateStartDate moves the tracking start date and flags the user for
	// a full rescan from that date
	UpdateStartDate(userID string, startDate time.Time) error
}
