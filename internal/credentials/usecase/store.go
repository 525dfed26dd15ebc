package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"jobtrail-backend/internal/credentials/domain"
	"jobtrail-backend/internal/credentials/repository"
	"jobtrail-backend/pkg/config"
	"jobtrail-backend/pkg/crypto"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Refresh threshold: refresh if less than 5 minutes remaining
const refreshThreshold = 5 * time.Minute

// ErrNoRefreshToken is returned when a credential cannot be persisted
// because Google did not hand back a refresh token.
var ErrNoRefreshToken = errors.New("credentials: no refresh token to store")

// RefreshFunc exchanges a stale token for a fresh one.
type RefreshFunc func(ctx context.Context, clientID, tokenURI string, token *oauth2.Token) (*oauth2.Token, error)

// Store manages encrypted OAuth credentials. Tokens at rest are always
// ciphertext; decrypted bundles only live in memory for the duration of
// a request or sync run.
type Store struct {
	repo    repository.CredentialRepository
	cipher  *crypto.Cipher
	config  *config.Config
	refresh RefreshFunc
}

// NewStore creates a credential store backed by the given repository.
func NewStore(repo repository.CredentialRepository, cipher *crypto.Cipher, cfg *config.Config) *Store {
	s := &Store{
		repo:   repo,
		cipher: cipher,
		config: cfg,
	}
	s.refresh = s.defaultRefresh
	return s
}

// SetRefreshFunc overrides how tokens are refreshed. Used in tests.
func (s *Store) SetRefreshFunc(fn RefreshFunc) {
	s.refresh = fn
}

// Save encrypts and persists a credential bundle, creating or updating
// the record for (userID, credentialType). Bundles without a refresh
// token are rejected: an access token alone cannot survive expiry, so
// storing it would only produce broken background syncs later.
func (s *Store) Save(userID, credentialType string, bundle *domain.TokenBundle) error {
	if credentialType != domain.TypePrimary && credentialType != domain.TypeEmailSync {
		return fmt.Errorf("invalid credential type: %s", credentialType)
	}

	if bundle.RefreshToken == "" {
		log.Printf("[Credentials] No refresh token for user %s, skipping storage", userID)
		return ErrNoRefreshToken
	}

	encryptedRefresh, err := s.cipher.Encrypt(bundle.RefreshToken)
	if err != nil {
		return err
	}
	encryptedAccess, err := s.cipher.Encrypt(bundle.AccessToken)
	if err != nil {
		return err
	}

	scopesJSON, _ := json.Marshal(bundle.Scopes)

	expiry := bundle.Expiry
	if expiry.IsZero() {
		expiry = time.Now().UTC().Add(time.Hour)
	}

	clientID := bundle.ClientID
	if clientID == "" {
		clientID = s.config.GoogleClientID
	}
	tokenURI := bundle.TokenURI
	if tokenURI == "" {
		tokenURI = domain.DefaultTokenURI
	}

	existing, err := s.repo.FindByUserAndType(userID, credentialType)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.EncryptedRefreshToken = encryptedRefresh
		existing.EncryptedAccessToken = encryptedAccess
		existing.TokenExpiry = expiry
		existing.Scopes = string(scopesJSON)
		existing.ClientID = clientID
		if err := s.repo.Update(existing); err != nil {
			return err
		}
		log.Printf("[Credentials] Updated %s credentials for user %s", credentialType, userID)
		return nil
	}

	cred := &domain.Credential{
		UserID:                userID,
		CredentialType:        credentialType,
		EncryptedRefreshToken: encryptedRefresh,
		EncryptedAccessToken:  encryptedAccess,
		TokenExpiry:           expiry,
		Scopes:                string(scopesJSON),
		ClientID:              clientID,
		TokenURI:              tokenURI,
	}
	if err := s.repo.Create(cred); err != nil {
		return err
	}
	log.Printf("[Credentials] Created %s credentials for user %s", credentialType, userID)
	return nil
}

// Load decrypts the stored credential for (userID, credentialType).
// Returns (nil, nil) when no credential is stored, or when the stored one
// is unusable (undecryptable or unrefreshable): a broken credential means
// the user must re-authenticate, it never aborts the caller. With
// autoRefresh set, a token within the refresh threshold of expiry is
// exchanged for a fresh one and the new ciphertext is persisted before
// returning.
func (s *Store) Load(ctx context.Context, userID, credentialType string, autoRefresh bool) (*domain.TokenBundle, error) {
	stored, err := s.repo.FindByUserAndType(userID, credentialType)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}

	refreshToken, err := s.cipher.Decrypt(stored.EncryptedRefreshToken)
	if err != nil {
		log.Printf("[Credentials] Undecryptable %s credentials for user %s: %v", credentialType, userID, err)
		return nil, nil
	}
	accessToken, err := s.cipher.Decrypt(stored.EncryptedAccessToken)
	if err != nil {
		log.Printf("[Credentials] Undecryptable %s credentials for user %s: %v", credentialType, userID, err)
		return nil, nil
	}

	var scopes []string
	if stored.Scopes != "" {
		if err := json.Unmarshal([]byte(stored.Scopes), &scopes); err != nil {
			log.Printf("[Credentials] Unparseable scopes for user %s: %v", userID, err)
		}
	}

	bundle := &domain.TokenBundle{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       stored.TokenExpiry,
		Scopes:       scopes,
		ClientID:     stored.ClientID,
		TokenURI:     stored.TokenURI,
	}

	if autoRefresh && shouldRefresh(stored.TokenExpiry, time.Now().UTC()) {
		log.Printf("[Credentials] Token near expiry for user %s, refreshing", userID)
		refreshed, err := s.refreshAndSave(ctx, userID, bundle, stored)
		if err != nil {
			log.Printf("[Credentials] %s credentials unusable for user %s: %v", credentialType, userID, err)
			return nil, nil
		}
		return refreshed, nil
	}

	return bundle, nil
}

// LoadForBackground returns usable credentials for an unattended sync
// run, preferring a dedicated email_sync account over the login account.
// An email_sync row that is missing or unusable falls through to primary.
// The second return value names the credential type that matched, so
// refreshed tokens can be written back to the right row. Returns
// (nil, "", nil) when the user has no usable credentials at all; session
// credentials are never consulted here.
func (s *Store) LoadForBackground(ctx context.Context, userID string) (*domain.TokenBundle, string, error) {
	bundle, err := s.Load(ctx, userID, domain.TypeEmailSync, true)
	if err != nil {
		return nil, "", err
	}
	if bundle != nil {
		log.Printf("[Credentials] Using email_sync credentials for user %s", userID)
		return bundle, domain.TypeEmailSync, nil
	}

	bundle, err = s.Load(ctx, userID, domain.TypePrimary, true)
	if err != nil {
		return nil, "", err
	}
	if bundle != nil {
		log.Printf("[Credentials] Using primary credentials for user %s", userID)
		return bundle, domain.TypePrimary, nil
	}

	return nil, "", nil
}

// HasStored reports whether any credential row exists for the user,
// without decrypting anything.
func (s *Store) HasStored(userID string) (bool, error) {
	for _, credType := range []string{domain.TypeEmailSync, domain.TypePrimary} {
		stored, err := s.repo.FindByUserAndType(userID, credType)
		if err != nil {
			return false, err
		}
		if stored != nil {
			return true, nil
		}
	}
	return false, nil
}

// HasRefreshToken reports whether any of the user's credentials carries
// a refresh token, checking email_sync then primary. Drives the OAuth
// prompt: users who already granted offline access get "select_account"
// instead of a second consent screen.
func (s *Store) HasRefreshToken(userID string) bool {
	for _, credType := range []string{domain.TypeEmailSync, domain.TypePrimary} {
		stored, err := s.repo.FindByUserAndType(userID, credType)
		if err != nil {
			continue
		}
		if stored != nil && stored.EncryptedRefreshToken != "" {
			return true
		}
	}
	return false
}

func shouldRefresh(expiry, now time.Time) bool {
	if expiry.IsZero() {
		return true
	}
	return expiry.Sub(now) < refreshThreshold
}

func (s *Store) refreshAndSave(ctx context.Context, userID string, bundle *domain.TokenBundle, stored *domain.Credential) (*domain.TokenBundle, error) {
	newToken, err := s.refresh(ctx, stored.ClientID, stored.TokenURI, bundle.Token())
	if err != nil {
		return nil, fmt.Errorf("refresh failed for user %s: %w", userID, err)
	}
	if newToken.AccessToken == "" {
		return nil, fmt.Errorf("refresh returned empty token for user %s", userID)
	}

	encryptedAccess, err := s.cipher.Encrypt(newToken.AccessToken)
	if err != nil {
		return nil, err
	}
	stored.EncryptedAccessToken = encryptedAccess
	stored.TokenExpiry = newToken.Expiry.UTC()

	if newToken.RefreshToken != "" && newToken.RefreshToken != bundle.RefreshToken {
		encryptedRefresh, err := s.cipher.Encrypt(newToken.RefreshToken)
		if err != nil {
			return nil, err
		}
		stored.EncryptedRefreshToken = encryptedRefresh
		bundle.RefreshToken = newToken.RefreshToken
	}

	if err := s.repo.Update(stored); err != nil {
		return nil, err
	}
	log.Printf("[Credentials] Refreshed and saved token for user %s", userID)

	bundle.AccessToken = newToken.AccessToken
	bundle.Expiry = stored.TokenExpiry
	return bundle, nil
}

func (s *Store) defaultRefresh(ctx context.Context, clientID, tokenURI string, token *oauth2.Token) (*oauth2.Token, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: s.config.GoogleClientSecret,
		Endpoint:     google.Endpoint,
	}
	if conf.ClientID == "" {
		conf.ClientID = s.config.GoogleClientID
	}

	// Force the token source to hit the refresh endpoint even when the
	// access token has a few minutes left.
	token.Expiry = time.Now()

	return conf.TokenSource(ctx, token).Token()
}

// PersistRefreshedToken returns a TokenUpdateFunc suitable for the mail
// provider: when the provider refreshes mid-run, the new access token is
// re-encrypted and written back so later runs start from a live token.
func (s *Store) PersistRefreshedToken(userID, credentialType string) func(token *oauth2.Token) error {
	return func(token *oauth2.Token) error {
		stored, err := s.repo.FindByUserAndType(userID, credentialType)
		if err != nil {
			return err
		}
		if stored == nil {
			return nil
		}
		encryptedAccess, err := s.cipher.Encrypt(token.AccessToken)
		if err != nil {
			return err
		}
		stored.EncryptedAccessToken = encryptedAccess
		if !token.Expiry.IsZero() {
			stored.TokenExpiry = token.Expiry.UTC()
		}
		return s.repo.Update(stored)
	}
}
