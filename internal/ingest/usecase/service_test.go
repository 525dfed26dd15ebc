package usecase

import (
	"context"
	"testing"
	"time"

	authdomain "jobtrail-backend/internal/auth/domain"
	credentialdomain "jobtrail-backend/internal/credentials/domain"
	credentialrepository "jobtrail-backend/internal/credentials/repository"
	credentialusecase "jobtrail-backend/internal/credentials/usecase"
	"jobtrail-backend/internal/ingest/domain"
	"jobtrail-backend/pkg/config"
	"jobtrail-backend/pkg/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredRepo struct {
	creds map[string]*credentialdomain.Credential
}

var _ credentialrepository.CredentialRepository = (*fakeCredRepo)(nil)

func newFakeCredRepo() *fakeCredRepo {
	return &fakeCredRepo{creds: make(map[string]*credentialdomain.Credential)}
}

func (r *fakeCredRepo) FindByUserAndType(userID, credentialType string) (*credentialdomain.Credential, error) {
	cred, ok := r.creds[userID+"/"+credentialType]
	if !ok {
		return nil, nil
	}
	return cred, nil
}

func (r *fakeCredRepo) Create(cred *credentialdomain.Credential) error {
	cred.ID = "cred-" + cred.UserID
	r.creds[cred.UserID+"/"+cred.CredentialType] = cred
	return nil
}

func (r *fakeCredRepo) Update(cred *credentialdomain.Credential) error {
	r.creds[cred.UserID+"/"+cred.CredentialType] = cred
	return nil
}

type serviceFixture struct {
	service  *IngestService
	registry *Registry
	store    *credentialusecase.Store
	credRepo *fakeCredRepo
	taskRuns *fakeTaskRunRepo
	emails   *fakeEmailRepo
	users    *fakeUserRepo
	conn     *fakeConnection
}

func newServiceFixture(t *testing.T, ids []string, users ...*authdomain.User) *serviceFixture {
	t.Helper()
	cipher, err := crypto.NewCipher("")
	require.NoError(t, err)

	credRepo := newFakeCredRepo()
	cfg := &config.Config{GoogleClientID: "client-id"}
	store := credentialusecase.NewStore(credRepo, cipher, cfg)

	taskRuns := newFakeTaskRunRepo()
	emails := newFakeEmailRepo()
	userRepo := newFakeUserRepo(users...)
	conn := &fakeConnection{ids: ids, messages: messagesFor(ids)}
	engine := NewEngine(taskRuns, emails, userRepo, &fakeProvider{conn: conn}, &fakeClassifier{}, 200)
	registry := NewRegistry()

	return &serviceFixture{
		service:  NewIngestService(engine, registry, store, taskRuns, emails, userRepo),
		registry: registry,
		store:    store,
		credRepo: credRepo,
		taskRuns: taskRuns,
		emails:   emails,
		users:    userRepo,
		conn:     conn,
	}
}

func saveCreds(t *testing.T, store *credentialusecase.Store, userID string) {
	t.Helper()
	require.NoError(t, store.Save(userID, credentialdomain.TypePrimary, &credentialdomain.TokenBundle{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().UTC().Add(time.Hour),
	}))
}

func waitForIdle(t *testing.T, registry *Registry, userID string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return !registry.Running(userID)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartIngestionRunsToCompletion(t *testing.T) {
	user := &authdomain.User{ID: "user-1", IsActive: true}
	f := newServiceFixture(t, []string{"m1", "m2"}, user)
	saveCreds(t, f.store, "user-1")

	require.NoError(t, f.service.StartIngestion(context.Background(), "user-1"))
	waitForIdle(t, f.registry, "user-1")

	progress, err := f.service.GetProgress("user-1")
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, domain.StatusFinished, progress.Status)
	assert.Equal(t, 2, progress.ProcessedEmails)
}

func TestStartIngestionRejectsConcurrentRun(t *testing.T) {
	user := &authdomain.User{ID: "user-1", IsActive: true}
	f := newServiceFixture(t, nil, user)
	saveCreds(t, f.store, "user-1")

	_, release, err := f.registry.Begin(context.Background(), "user-1")
	require.NoError(t, err)
	defer release()

	err = f.service.StartIngestion(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestStartIngestionWithoutCredentials(t *testing.T) {
	user := &authdomain.User{ID: "user-1", IsActive: true}
	f := newServiceFixture(t, nil, user)

	err := f.service.StartIngestion(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.False(t, f.registry.Running("user-1"), "a failed start must release the registry slot")
}

func TestStopIngestionWithoutRun(t *testing.T) {
	f := newServiceFixture(t, nil)
	assert.ErrorIs(t, f.service.StopIngestion("user-1"), ErrNoActiveRun)
}

func TestGetProgressNoRuns(t *testing.T) {
	f := newServiceFixture(t, nil)

	progress, err := f.service.GetProgress("user-1")
	require.NoError(t, err)
	assert.Nil(t, progress)
}

func TestListApplicationsHidesUnknownStatus(t *testing.T) {
	f := newServiceFixture(t, nil)
	require.NoError(t, f.emails.CreateBatch([]*domain.EmailRecord{
		{ID: "m1", UserID: "user-1", CompanyName: "Acme", ApplicationStatus: "applied", JobTitle: "Engineer"},
		{ID: "m2", UserID: "user-1", CompanyName: "Globex", ApplicationStatus: domain.UnknownValue, JobTitle: domain.UnknownValue},
	}))

	// The status drives visibility: a row with a known company but an
	// undetermined status is still hidden by default.
	visible, err := f.service.ListApplications("user-1", false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "Acme", visible[0].CompanyName)

	all, err := f.service.ListApplications("user-1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteApplication(t *testing.T) {
	f := newServiceFixture(t, nil)
	require.NoError(t, f.emails.CreateBatch([]*domain.EmailRecord{
		{ID: "m1", UserID: "user-1", CompanyName: "Acme"},
	}))

	require.NoError(t, f.service.DeleteApplication("user-1", "m1"))
	assert.Error(t, f.service.DeleteApplication("user-1", "m1"), "second delete finds nothing")
}

func TestDeleteAllApplications(t *testing.T) {
	f := newServiceFixture(t, nil)
	require.NoError(t, f.emails.CreateBatch([]*domain.EmailRecord{
		{ID: "m1", UserID: "user-1", CompanyName: "Acme"},
		{ID: "m2", UserID: "user-1", CompanyName: "Globex"},
		{ID: "m3", UserID: "user-2", CompanyName: "Initech"},
	}))

	deleted, err := f.service.DeleteAllApplications("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := f.service.ListApplications("user-2", true)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "other users' applications are untouched")
}

func TestRunBatchMixedOutcomes(t *testing.T) {
	premium := func(id string) *authdomain.User {
		return &authdomain.User{ID: id, SyncTier: authdomain.SyncTierPremium, IsActive: true}
	}
	f := newServiceFixture(t, []string{"m1"},
		premium("user-ok-1"), premium("user-broken"), premium("user-ok-2"), premium("user-no-creds"))

	saveCreds(t, f.store, "user-ok-1")
	saveCreds(t, f.store, "user-ok-2")

	// Stored row with ciphertext the key cannot decrypt: the user is
	// counted as an error, not skipped, and does not stop the batch.
	f.credRepo.creds["user-broken/primary"] = &credentialdomain.Credential{
		UserID:                "user-broken",
		CredentialType:        credentialdomain.TypePrimary,
		EncryptedRefreshToken: "corrupted",
		EncryptedAccessToken:  "corrupted",
		TokenExpiry:           time.Now().UTC().Add(time.Hour),
	}

	summary := f.service.RunBatch(context.Background())

	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRunBatchStampsLastBackgroundSync(t *testing.T) {
	user := &authdomain.User{ID: "user-1", SyncTier: authdomain.SyncTierPremium, IsActive: true}
	f := newServiceFixture(t, []string{"m1"}, user)
	saveCreds(t, f.store, "user-1")

	summary := f.service.RunBatch(context.Background())
	require.Equal(t, 1, summary.Success)

	stored, _ := f.users.FindByID("user-1")
	assert.NotNil(t, stored.LastBackgroundSyncAt)
}
