package domain

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc is invoked when the provider transport refreshes the
// access token mid-run, so the refreshed token can be persisted.
type TokenUpdateFunc func(token *oauth2.Token) error

// Message is the provider-side view of one email.
type Message struct {
	ID         string
	Subject    string
	From       string
	ReceivedAt time.Time
	Body       string
}

// MailConnection is a per-user session with the mail provider.
type MailConnection interface {
	// ListMessageIDs returns matching message ids in the provider's native
	// order. An empty result is not an error.
	ListMessageIDs(ctx context.Context, query string) ([]string, error)
	// GetMessage fetches one full message by id.
	GetMessage(ctx context.Context, id string) (*Message, error)
}

// MailProvider opens connections from an OAuth token.
type MailProvider interface {
	Connect(ctx context.Context, token *oauth2.Token, onTokenRefresh TokenUpdateFunc) (MailConnection, error)
}
