package usecase

import (
	"testing"
	"time"

	"jobtrail-backend/internal/ingest/domain"

	"github.com/stretchr/testify/assert"
)

func TestExceedsDailyQuota(t *testing.T) {
	assert.False(t, ExceedsDailyQuota(0, 200))
	assert.False(t, ExceedsDailyQuota(199, 200))
	assert.True(t, ExceedsDailyQuota(200, 200))
	assert.True(t, ExceedsDailyQuota(201, 200))
}

func TestIsRateLimited(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, IsRateLimited(nil, 200, now), "no prior run")

	fresh := &domain.TaskRun{ProcessedEmails: 200, Updated: now.Add(-10 * time.Minute)}
	assert.True(t, IsRateLimited(fresh, 200, now))

	underQuota := &domain.TaskRun{ProcessedEmails: 42, Updated: now.Add(-10 * time.Minute)}
	assert.False(t, IsRateLimited(underQuota, 200, now))
}

func TestIsRateLimitedStaleRunEscapes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Quota hit, but the run last moved over an hour ago: a stuck run
	// must not block the user for the rest of the day.
	stale := &domain.TaskRun{ProcessedEmails: 500, Updated: now.Add(-61 * time.Minute)}
	assert.False(t, IsRateLimited(stale, 200, now))
}
