package usecase

import (
	"fmt"
	"time"
)

// applicationSignalQuery narrows the mailbox to messages that look like
// job-application traffic before any classification happens. Everything
// the engine fetches matches this filter.
const applicationSignalQuery = `(subject:("application" OR "applied" OR "interview" OR "your candidacy" OR "thank you for applying" OR "hiring" OR "offer" OR "recruiter") OR from:(no-reply@greenhouse.io OR notification@lever.co OR hi@hire.lever.co OR careers@ OR recruiting@ OR talent@)) -category:promotions`

// BuildQuery derives the provider query from the three signals that
// describe where a user's sync left off.
//
// A last-seen timestamp wins for returning users: sync resumes from the
// newest stored message. The new-user flag overrides that, because a user
// who just picked a start date has no history worth resuming from. With
// neither signal the whole mailbox is scanned.
func BuildQuery(startDate *time.Time, lastSeen *time.Time, isNewUser bool) string {
	if isNewUser && startDate != nil {
		return fmt.Sprintf("%s after:%s", applicationSignalQuery, startDate.UTC().Format("2006/01/02"))
	}

	if lastSeen != nil {
		return fmt.Sprintf("%s after:%d", applicationSignalQuery, lastSeen.UTC().Unix())
	}

	if startDate != nil {
		return fmt.Sprintf("%s after:%s", applicationSignalQuery, startDate.UTC().Format("2006/01/02"))
	}

	return applicationSignalQuery
}
