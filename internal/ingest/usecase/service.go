package usecase

import (
	"context"
	"errors"
	"log"

	authrepository "jobtrail-backend/internal/auth/repository"
	credentialusecase "jobtrail-backend/internal/credentials/usecase"
	"jobtrail-backend/internal/ingest/domain"
	"jobtrail-backend/internal/ingest/repository"
)

// ErrNoActiveRun is returned when a stop request finds nothing to stop.
var ErrNoActiveRun = errors.New("no ingestion run is currently in flight")

// ErrNoCredentials is returned when a user has no usable stored credentials.
var ErrNoCredentials = errors.New("no usable credentials, please re-authenticate")

// IngestService is the collaborator-facing surface of the pipeline:
// start/stop/progress for live requests, RunBatch for the scheduler, and
// stored-application reads for the dashboard.
type IngestService struct {
	engine   *Engine
	registry *Registry
	creds    *credentialusecase.Store
	taskRuns repository.TaskRunRepository
	emails   repository.EmailRecordRepository
	users    authrepository.UserRepository
}

func NewIngestService(
	engine *Engine,
	registry *Registry,
	creds *credentialusecase.Store,
	taskRuns repository.TaskRunRepository,
	emails repository.EmailRecordRepository,
	users authrepository.UserRepository,
) *IngestService {
	return &IngestService{
		engine:   engine,
		registry: registry,
		creds:    creds,
		taskRuns: taskRuns,
		emails:   emails,
		users:    users,
	}
}

// StartIngestion launches an ingestion run for the user on its own
// goroutine and returns immediately; progress is polled via GetProgress.
// The run is detached from the calling request's context so it survives
// the HTTP response.
func (s *IngestService) StartIngestion(ctx context.Context, userID string) error {
	runCtx, release, err := s.registry.Begin(context.Background(), userID)
	if err != nil {
		return err
	}

	bundle, credType, err := s.creds.LoadForBackground(ctx, userID)
	if err != nil || bundle == nil {
		release()
		if err != nil {
			log.Printf("[Ingest] user %s: credential load failed: %v", userID, err)
		}
		return ErrNoCredentials
	}

	go func() {
		defer release()
		_, err := s.engine.Run(runCtx, RunParams{
			UserID:         userID,
			Bundle:         bundle,
			OnTokenRefresh: s.creds.PersistRefreshedToken(userID, credType),
		})
		if err != nil {
			log.Printf("[Ingest] user %s: run aborted: %v", userID, err)
		}
	}()

	return nil
}

// StopIngestion signals the user's in-flight run to stop at its next
// checkpoint. Progress counters are left where the run got to.
func (s *IngestService) StopIngestion(userID string) error {
	if !s.registry.Stop(userID) {
		return ErrNoActiveRun
	}
	return nil
}

// Progress is the polled view of the user's latest run.
type Progress struct {
	Status            string `json:"status"`
	TotalEmails       int    `json:"total_emails"`
	ProcessedEmails   int    `json:"processed_emails"`
	ApplicationsFound int    `json:"applications_found"`
}

// GetProgress returns the state of the user's latest run, or nil when the
// user has never run a fetch.
func (s *IngestService) GetProgress(userID string) (*Progress, error) {
	run, err := s.taskRuns.FindLatestByUser(userID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}
	return &Progress{
		Status:            run.Status,
		TotalEmails:       run.TotalEmails,
		ProcessedEmails:   run.ProcessedEmails,
		ApplicationsFound: run.ApplicationsFound,
	}, nil
}

// ListApplications returns the user's stored applications, newest first.
// Rows whose application status the classifier could not determine are
// hidden unless includeUnknown is set.
func (s *IngestService) ListApplications(userID string, includeUnknown bool) ([]*domain.EmailRecord, error) {
	records, err := s.emails.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if includeUnknown {
		return records, nil
	}

	filtered := make([]*domain.EmailRecord, 0, len(records))
	for _, record := range records {
		if record.ApplicationStatus == domain.UnknownValue {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered, nil
}

// UpdateApplication applies user edits to a stored application.
func (s *IngestService) UpdateApplication(userID, id string, companyName, applicationStatus, jobTitle string) (*domain.EmailRecord, error) {
	record, err := s.emails.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	if companyName != "" {
		record.CompanyName = companyName
	}
	if applicationStatus != "" {
		record.ApplicationStatus = applicationStatus
	}
	if jobTitle != "" {
		record.JobTitle = jobTitle
	}

	if err := s.emails.Update(record); err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteApplication removes a stored application.
func (s *IngestService) DeleteApplication(userID, id string) error {
	record, err := s.emails.FindByID(userID, id)
	if err != nil {
		return err
	}
	if record == nil {
		return errors.New("application not found")
	}
	return s.emails.Delete(userID, id)
}

// DeleteAllApplications removes every stored application for the user and
// returns how many were removed.
func (s *IngestService) DeleteAllApplications(userID string) (int64, error) {
	deleted, err := s.emails.DeleteAllByUser(userID)
	if err != nil {
		return 0, err
	}
	log.Printf("[Ingest] user %s: deleted %d stored applications", userID, deleted)
	return deleted, nil
}

// BatchSummary reports the outcome of one scheduled batch.
type BatchSummary struct {
	Success int
	Errors  int
	Skipped int
}

// RunBatch drives the engine headlessly for every eligible premium user.
// Credentials come only from the store; one user's failure never stops
// the batch.
func (s *IngestService) RunBatch(ctx context.Context) BatchSummary {
	var summary BatchSummary

	eligible, err := s.users.ListActivePremium()
	if err != nil {
		log.Printf("[Batch] Failed to list premium users: %v", err)
		return summary
	}
	if len(eligible) == 0 {
		log.Printf("[Batch] No premium users eligible for background sync")
		return summary
	}
	log.Printf("[Batch] Found %d premium users eligible for background sync", len(eligible))

	for _, user := range eligible {
		hasCreds, err := s.creds.HasStored(user.ID)
		if err != nil {
			log.Printf("[Batch] user %s: credential lookup failed: %v", user.ID, err)
			summary.Errors++
			continue
		}
		if !hasCreds {
			log.Printf("[Batch] user %s has premium tier enabled but no credentials stored, skipping", user.ID)
			summary.Skipped++
			continue
		}

		if err := s.runBatchUser(ctx, user.ID); err != nil {
			log.Printf("[Batch] user %s: sync failed: %v", user.ID, err)
			summary.Errors++
			continue
		}
		summary.Success++
	}

	log.Printf("[Batch] Background sync complete: %d success, %d errors, %d skipped out of %d users",
		summary.Success, summary.Errors, summary.Skipped, len(eligible))
	return summary
}

func (s *IngestService) runBatchUser(ctx context.Context, userID string) error {
	runCtx, release, err := s.registry.Begin(ctx, userID)
	if err != nil {
		// A foreground run is already in flight; the batch does not
		// compete with it.
		return err
	}
	defer release()

	bundle, credType, err := s.creds.LoadForBackground(ctx, userID)
	if err != nil {
		return err
	}
	if bundle == nil {
		return ErrNoCredentials
	}

	_, err = s.engine.Run(runCtx, RunParams{
		UserID:         userID,
		Bundle:         bundle,
		OnTokenRefresh: s.creds.PersistRefreshedToken(userID, credType),
		Background:     true,
	})
	return err
}
