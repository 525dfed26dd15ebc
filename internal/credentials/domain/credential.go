package domain

import (
	"time"

	"golang.org/x/oauth2"
)

const (
	// TypePrimary is the Google account the user signs in with.
	TypePrimary = "primary"
	// TypeEmailSync is an optional separate account used only for mailbox sync.
	TypeEmailSync = "email_sync"
)

const DefaultTokenURI = "https://oauth2.googleapis.com/token"

// Credential stores encrypted OAuth tokens so background sync can run
// after the user's session has expired. Token metadata stays in plaintext
// because the refresh logic needs it without decrypting.
type Credential struct {
	ID                    string    `json:"id" gorm:"primaryKey"`
	UserID                string    `json:"user_id" gorm:"not null;index;uniqueIndex:uq_user_credential_type"`
	CredentialType        string    `json:"credential_type" gorm:"not null;uniqueIndex:uq_user_credential_type"`
	EncryptedRefreshToken string    `json:"-" gorm:"not null"`
	EncryptedAccessToken  string    `json:"-" gorm:"not null"`
	TokenExpiry           time.Time `json:"token_expiry" gorm:"not null"`
	Scopes                string    `json:"scopes" gorm:"not null"`
	ClientID              string    `json:"client_id" gorm:"not null"`
	TokenURI              string    `json:"token_uri" gorm:"not null"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (Credential) TableName() string {
	return "oauth_credentials"
}

// TokenBundle is a decrypted credential ready for use against Google APIs.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scopes       []string
	ClientID     string
	TokenURI     string
}

// Token converts the bundle into an oauth2 token.
func (b *TokenBundle) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       b.Expiry,
	}
}
