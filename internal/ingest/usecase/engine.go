package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	authdomain "jobtrail-backend/internal/auth/domain"
	authrepository "jobtrail-backend/internal/auth/repository"
	credentialdomain "jobtrail-backend/internal/credentials/domain"
	"jobtrail-backend/internal/ingest/domain"
	"jobtrail-backend/internal/ingest/repository"
	"jobtrail-backend/pkg/ai"
)

// Engine runs one user's fetch -> classify -> store loop and owns every
// TaskRun state transition. A single run is strictly sequential; runs for
// different users may execute concurrently on separate goroutines.
type Engine struct {
	taskRuns   repository.TaskRunRepository
	emails     repository.EmailRecordRepository
	users      authrepository.UserRepository
	provider   domain.MailProvider
	classifier ai.Classifier
	quota      int
}

func NewEngine(
	taskRuns repository.TaskRunRepository,
	emails repository.EmailRecordRepository,
	users authrepository.UserRepository,
	provider domain.MailProvider,
	classifier ai.Classifier,
	quota int,
) *Engine {
	return &Engine{
		taskRuns:   taskRuns,
		emails:     emails,
		users:      users,
		provider:   provider,
		classifier: classifier,
		quota:      quota,
	}
}

// RunParams carries everything one invocation needs. Background runs stamp
// the user's last_background_sync_at on success.
type RunParams struct {
	UserID         string
	Bundle         *credentialdomain.TokenBundle
	OnTokenRefresh domain.TokenUpdateFunc
	Background     bool
}

// Run executes one ingestion run. The context carries the cooperative
// cancellation signal: a cancel whose cause is ErrStopRequested lands the
// run in STOPPED, any other cancellation in CANCELLED. The returned run
// always holds a terminal status; the error is non-nil only for failures
// that aborted the run (which is then CANCELLED, never left STARTED).
func (e *Engine) Run(ctx context.Context, params RunParams) (*domain.TaskRun, error) {
	user, err := e.users.FindByID(params.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	run, proceed, err := e.resolveRun(params.UserID)
	if err != nil {
		return nil, err
	}
	if !proceed {
		return run, nil
	}

	if err := e.process(ctx, user, run, params); err != nil {
		if !run.Terminal() {
			run.Status = domain.StatusCancelled
			if uerr := e.taskRuns.Update(run); uerr != nil {
				log.Printf("[Ingest] user %s: failed to mark run cancelled: %v", params.UserID, uerr)
			}
		}
		return run, err
	}
	return run, nil
}

// resolveRun finds or creates the user's TaskRun and decides whether work
// may proceed today. A run from a previous UTC day has its counters reset;
// a same-day run that already met quota short-circuits to CANCELLED before
// any provider call is made.
func (e *Engine) resolveRun(userID string) (*domain.TaskRun, bool, error) {
	now := time.Now().UTC()

	run, err := e.taskRuns.FindLatestByUser(userID)
	if err != nil {
		return nil, false, err
	}

	if run == nil {
		run = &domain.TaskRun{
			UserID: userID,
			Status: domain.StatusStarted,
		}
		if err := e.taskRuns.Create(run); err != nil {
			return nil, false, err
		}
		return run, true, nil
	}

	if !ShouldResetForNewDay(run.Updated, now) && IsRateLimited(run, e.quota, now) {
		log.Printf("[Ingest] user %s: daily quota already met (%d processed), cancelling run", userID, run.ProcessedEmails)
		run.Status = domain.StatusCancelled
		if err := e.taskRuns.Update(run); err != nil {
			return nil, false, err
		}
		return run, false, nil
	}

	run.Status = domain.StatusStarted
	run.TotalEmails = 0
	run.ProcessedEmails = 0
	run.ApplicationsFound = 0
	if err := e.taskRuns.Update(run); err != nil {
		return nil, false, err
	}
	return run, true, nil
}

func (e *Engine) process(ctx context.Context, user *authdomain.User, run *domain.TaskRun, params RunParams) error {
	lastSeen, err := e.emails.LastReceivedAt(user.ID)
	if err != nil {
		return err
	}

	query := BuildQuery(user.StartDate, lastSeen, user.IsNewUser)

	conn, err := e.provider.Connect(ctx, params.Bundle.Token(), params.OnTokenRefresh)
	if err != nil {
		return err
	}

	ids, err := conn.ListMessageIDs(ctx, query)
	if err != nil {
		return err
	}

	run.TotalEmails = len(ids)
	if err := e.taskRuns.Update(run); err != nil {
		return err
	}
	log.Printf("[Ingest] user %s: %d messages to process", user.ID, len(ids))

	var newRecords []*domain.EmailRecord

	for i, id := range ids {
		if ctx.Err() != nil {
			return e.finishInterrupted(ctx, user.ID, run, newRecords)
		}

		msg, err := conn.GetMessage(ctx, id)
		if err != nil {
			log.Printf("[Ingest] user %s: failed to fetch message %s: %v", user.ID, id, err)
			run.ProcessedEmails = i + 1
			if err := e.taskRuns.Update(run); err != nil {
				return err
			}
			continue
		}

		if ctx.Err() != nil {
			return e.finishInterrupted(ctx, user.ID, run, newRecords)
		}

		record, err := e.classifyMessage(ctx, user.ID, msg)
		if err != nil {
			// Only a cancelled context reaches here.
			return e.finishInterrupted(ctx, user.ID, run, newRecords)
		}

		if record != nil {
			exists, err := e.emails.Exists(user.ID, record.ID)
			if err != nil {
				return err
			}
			if !exists {
				newRecords = append(newRecords, record)
				run.ApplicationsFound++
			}
		}

		// Progress is committed per message so a polling client sees the
		// run move while the loop is still going.
		run.ProcessedEmails = i + 1
		if err := e.taskRuns.Update(run); err != nil {
			return err
		}

		if ExceedsDailyQuota(run.ProcessedEmails, e.quota) {
			log.Printf("[Ingest] user %s: daily quota reached at %d messages, finishing early", user.ID, run.ProcessedEmails)
			break
		}
	}

	if err := e.emails.CreateBatch(newRecords); err != nil {
		return err
	}

	run.Status = domain.StatusFinished
	if err := e.taskRuns.Update(run); err != nil {
		return err
	}
	log.Printf("[Ingest] user %s: run finished, %d/%d processed, %d applications found",
		user.ID, run.ProcessedEmails, run.TotalEmails, run.ApplicationsFound)

	e.afterSuccess(user, params.Background)
	return nil
}

// classifyMessage turns one message into a storable record. A "false
// positive" verdict returns (nil, nil); a classifier failure degrades to
// "unknown" placeholders so the row still shows that something arrived.
// The error return is reserved for a cancelled context.
func (e *Engine) classifyMessage(ctx context.Context, userID string, msg *domain.Message) (*domain.EmailRecord, error) {
	verdict, err := e.classifier.ClassifyEmail(ctx, msg.Subject, msg.From, msg.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Ingest] user %s: classification failed for message %s: %v", userID, msg.ID, err)
		verdict = &ai.Verdict{}
	}

	if isFalsePositive(verdict) {
		log.Printf("[Ingest] user %s: message %s is a false positive, skipping", userID, msg.ID)
		return nil, nil
	}

	return &domain.EmailRecord{
		ID:                msg.ID,
		UserID:            userID,
		CompanyName:       orUnknown(verdict.CompanyName),
		ApplicationStatus: orUnknown(verdict.ApplicationStatus),
		JobTitle:          orUnknown(verdict.JobTitle),
		ReceivedAt:        msg.ReceivedAt,
		Subject:           msg.Subject,
		EmailFrom:         msg.From,
	}, nil
}

// finishInterrupted commits everything gathered so far and sets the
// terminal status matching the cancellation cause.
func (e *Engine) finishInterrupted(ctx context.Context, userID string, run *domain.TaskRun, records []*domain.EmailRecord) error {
	if err := e.emails.CreateBatch(records); err != nil {
		log.Printf("[Ingest] user %s: failed to persist records on interrupt: %v", userID, err)
	}

	status := domain.StatusCancelled
	if errors.Is(context.Cause(ctx), ErrStopRequested) {
		status = domain.StatusStopped
	}
	run.Status = status
	if err := e.taskRuns.Update(run); err != nil {
		return err
	}
	log.Printf("[Ingest] user %s: run %s after %d/%d messages", userID, status, run.ProcessedEmails, run.TotalEmails)
	return nil
}

func (e *Engine) afterSuccess(user *authdomain.User, background bool) {
	changed := false
	if user.IsNewUser {
		user.IsNewUser = false
		changed = true
	}
	if background {
		now := time.Now().UTC()
		user.LastBackgroundSyncAt = &now
		changed = true
	}
	if !changed {
		return
	}
	if err := e.users.Update(user); err != nil {
		log.Printf("[Ingest] user %s: failed to update sync metadata: %v", user.ID, err)
	}
}

func isFalsePositive(verdict *ai.Verdict) bool {
	return strings.EqualFold(strings.TrimSpace(verdict.CompanyName), "false positive")
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return domain.UnknownValue
	}
	return value
}
