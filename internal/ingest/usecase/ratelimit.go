package usecase

import (
	"time"

	"jobtrail-backend/internal/ingest/domain"
)

// A run that has not made progress in an hour no longer counts against
// the quota, so a stuck run cannot block a user for the rest of the day.
const rateLimitStaleness = time.Hour

// ExceedsDailyQuota is the bare quota predicate.
func ExceedsDailyQuota(processedCount, quota int) bool {
	return processedCount >= quota
}

// IsRateLimited reports whether the given run blocks further processing
// today. Only a run touched within the staleness window rate-limits.
func IsRateLimited(run *domain.TaskRun, quota int, now time.Time) bool {
	if run == nil {
		return false
	}
	if now.Sub(run.Updated) > rateLimitStaleness {
		return false
	}
	return ExceedsDailyQuota(run.ProcessedEmails, quota)
}
