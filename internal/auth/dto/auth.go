package dto

import "jobtrail-backend/internal/auth/domain"

// TokenResponse is returned after a successful sign-in
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

// AuthURLResponse carries a Google consent URL for the frontend to redirect to
type AuthURLResponse struct {
	URL string `json:"url"`
}

// StartDateRequest updates the date job application tracking begins from
type StartDateRequest struct {
	StartDate string `json:"start_date" binding:"required"` // YYYY-MM-DD
}
