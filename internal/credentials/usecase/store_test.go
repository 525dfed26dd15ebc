package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobtrail-backend/internal/credentials/domain"
	"jobtrail-backend/pkg/config"
	"jobtrail-backend/pkg/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeCredentialRepo struct {
	creds map[string]*domain.Credential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: make(map[string]*domain.Credential)}
}

func (r *fakeCredentialRepo) key(userID, credType string) string {
	return userID + "/" + credType
}

func (r *fakeCredentialRepo) FindByUserAndType(userID, credentialType string) (*domain.Credential, error) {
	cred, ok := r.creds[r.key(userID, credentialType)]
	if !ok {
		return nil, nil
	}
	copied := *cred
	return &copied, nil
}

func (r *fakeCredentialRepo) Create(cred *domain.Credential) error {
	cred.ID = "cred-" + cred.UserID + "-" + cred.CredentialType
	r.creds[r.key(cred.UserID, cred.CredentialType)] = cred
	return nil
}

func (r *fakeCredentialRepo) Update(cred *domain.Credential) error {
	r.creds[r.key(cred.UserID, cred.CredentialType)] = cred
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeCredentialRepo) {
	t.Helper()
	cipher, err := crypto.NewCipher("")
	require.NoError(t, err)
	repo := newFakeCredentialRepo()
	cfg := &config.Config{GoogleClientID: "client-id", GoogleClientSecret: "client-secret"}
	return NewStore(repo, cipher, cfg), repo
}

func TestSaveRefusesEmptyRefreshToken(t *testing.T) {
	store, repo := newTestStore(t)

	err := store.Save("user-1", domain.TypePrimary, &domain.TokenBundle{
		AccessToken: "access",
		Expiry:      time.Now().Add(time.Hour),
	})

	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Empty(t, repo.creds)
}

func TestSaveRejectsUnknownCredentialType(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Save("user-1", "session", &domain.TokenBundle{RefreshToken: "r"})
	assert.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, repo := newTestStore(t)
	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	err := store.Save("user-1", domain.TypePrimary, &domain.TokenBundle{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		Expiry:       expiry,
		Scopes:       []string{"gmail.readonly"},
	})
	require.NoError(t, err)

	// Tokens at rest must be ciphertext.
	stored := repo.creds["user-1/primary"]
	require.NotNil(t, stored)
	assert.NotContains(t, stored.EncryptedRefreshToken, "refresh-token")
	assert.NotContains(t, stored.EncryptedAccessToken, "access-token")

	bundle, err := store.Load(context.Background(), "user-1", domain.TypePrimary, false)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, "access-token", bundle.AccessToken)
	assert.Equal(t, "refresh-token", bundle.RefreshToken)
	assert.Equal(t, []string{"gmail.readonly"}, bundle.Scopes)
	assert.Equal(t, "client-id", bundle.ClientID)
}

func TestLoadMissingCredentialReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)

	bundle, err := store.Load(context.Background(), "nobody", domain.TypePrimary, true)
	require.NoError(t, err)
	assert.Nil(t, bundle)
}

func TestLoadUndecryptableCredentialReturnsNil(t *testing.T) {
	store, repo := newTestStore(t)
	repo.creds["user-1/primary"] = &domain.Credential{
		UserID:                "user-1",
		CredentialType:        domain.TypePrimary,
		EncryptedRefreshToken: "not-real-ciphertext",
		EncryptedAccessToken:  "not-real-ciphertext",
		TokenExpiry:           time.Now().Add(time.Hour),
	}

	// A credential the key cannot decrypt means re-authentication, not a
	// failure surfaced to the caller.
	bundle, err := store.Load(context.Background(), "user-1", domain.TypePrimary, false)
	require.NoError(t, err)
	assert.Nil(t, bundle)
}

func TestLoadRefreshFailureReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save("user-1", domain.TypePrimary, &domain.TokenBundle{
		AccessToken:  "stale-access",
		RefreshToken: "refresh-token",
		Expiry:       time.Now().UTC().Add(time.Minute),
	}))

	store.SetRefreshFunc(func(ctx context.Context, clientID, tokenURI string, token *oauth2.Token) (*oauth2.Token, error) {
		return nil, errors.New("invalid_grant")
	})

	bundle, err := store.Load(context.Background(), "user-1", domain.TypePrimary, true)
	require.NoError(t, err)
	assert.Nil(t, bundle)
}

func TestLoadRefreshesNearExpiryToken(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save("user-1", domain.TypePrimary, &domain.TokenBundle{
		AccessToken:  "stale-access",
		RefreshToken: "refresh-token",
		Expiry:       time.Now().UTC().Add(2 * time.Minute),
	}))

	refreshCalls := 0
	store.SetRefreshFunc(func(ctx context.Context, clientID, tokenURI string, token *oauth2.Token) (*oauth2.Token, error) {
		refreshCalls++
		return &oauth2.Token{
			AccessToken: "fresh-access",
			Expiry:      time.Now().UTC().Add(time.Hour),
		}, nil
	})

	bundle, err := store.Load(context.Background(), "user-1", domain.TypePrimary, true)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, "fresh-access", bundle.AccessToken)

	// Refreshed ciphertext must be persisted for the next run.
	reloaded, err := store.Load(context.Background(), "user-1", domain.TypePrimary, false)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", reloaded.AccessToken)
}

func TestLoadSkipsRefreshForLiveToken(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save("user-1", domain.TypePrimary, &domain.TokenBundle{
		AccessToken:  "live-access",
		RefreshToken: "refresh-token",
		Expiry:       time.Now().UTC().Add(time.Hour),
	}))

	store.SetRefreshFunc(func(ctx context.Context, clientID, tokenURI string, token *oauth2.Token) (*oauth2.Token, error) {
		t.Fatal("refresh must not be called for a live token")
		return nil, nil
	})

	bundle, err := store.Load(context.Background(), "user-1", domain.TypePrimary, true)
	require.NoError(t, err)
	assert.Equal(t, "live-access", bundle.AccessToken)
}

func TestLoadForBackgroundPrefersEmailSync(t *testing.T) {
	store, _ := newTestStore(t)
	expiry := time.Now().UTC().Add(time.Hour)
	require.NoError(t, store.Save("user-1", domain.TypePrimary, &domain.TokenBundle{
		AccessToken: "primary-access", RefreshToken: "r1", Expiry: expiry,
	}))
	require.NoError(t, store.Save("user-1", domain.TypeEmailSync, &domain.TokenBundle{
		AccessToken: "sync-access", RefreshToken: "r2", Expiry: expiry,
	}))

	bundle, credType, err := store.LoadForBackground(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sync-access", bundle.AccessToken)
	assert.Equal(t, domain.TypeEmailSync, credType)
}

func TestLoadForBackgroundFallsBackToPrimary(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save("user-1", domain.TypePrimary, &domain.TokenBundle{
		AccessToken: "primary-access", RefreshToken: "r1", Expiry: time.Now().UTC().Add(time.Hour),
	}))

	bundle, credType, err := store.LoadForBackground(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "primary-access", bundle.AccessToken)
	assert.Equal(t, domain.TypePrimary, credType)
}

func TestLoadForBackgroundSkipsCorruptEmailSync(t *testing.T) {
	store, repo := newTestStore(t)
	require.NoError(t, store.Save("user-1", domain.TypePrimary, &domain.TokenBundle{
		AccessToken: "primary-access", RefreshToken: "r1", Expiry: time.Now().UTC().Add(time.Hour),
	}))
	repo.creds["user-1/email_sync"] = &domain.Credential{
		UserID:                "user-1",
		CredentialType:        domain.TypeEmailSync,
		EncryptedRefreshToken: "not-real-ciphertext",
		EncryptedAccessToken:  "not-real-ciphertext",
		TokenExpiry:           time.Now().Add(time.Hour),
	}

	// An email_sync row the key cannot decrypt must not shadow a usable
	// primary credential.
	bundle, credType, err := store.LoadForBackground(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, "primary-access", bundle.AccessToken)
	assert.Equal(t, domain.TypePrimary, credType)
}

func TestLoadForBackgroundNoCredentials(t *testing.T) {
	store, _ := newTestStore(t)

	bundle, credType, err := store.LoadForBackground(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, bundle)
	assert.Empty(t, credType)
}

func TestShouldRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, shouldRefresh(time.Time{}, now))
	assert.True(t, shouldRefresh(now.Add(-time.Minute), now))
	assert.True(t, shouldRefresh(now.Add(4*time.Minute), now))
	assert.False(t, shouldRefresh(now.Add(6*time.Minute), now))
}

func TestHasRefreshToken(t *testing.T) {
	store, _ := newTestStore(t)
	assert.False(t, store.HasRefreshToken("user-1"))

	require.NoError(t, store.Save("user-1", domain.TypePrimary, &domain.TokenBundle{
		AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour),
	}))
	assert.True(t, store.HasRefreshToken("user-1"))
}

func TestHasRefreshTokenConsultsEmailSync(t *testing.T) {
	store, _ := newTestStore(t)

	// A user whose only stored grant is the sync account already holds a
	// refresh token; re-prompting for full consent would be redundant.
	require.NoError(t, store.Save("user-2", domain.TypeEmailSync, &domain.TokenBundle{
		AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour),
	}))
	assert.True(t, store.HasRefreshToken("user-2"))
}
