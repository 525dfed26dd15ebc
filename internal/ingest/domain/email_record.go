package domain

import (
	"strings"
	"time"
	"unicode"
)

// UnknownValue is the sentinel stored when the classifier returns an empty
// or missing field, so a row still exists for every non-false-positive
// message even when classification failed.
const UnknownValue = "unknown"

// EmailRecord is one classified job-application email. (user_id, id) is the
// natural primary key: the provider message id is globally stable, so the
// same message can never be stored twice for a user.
type EmailRecord struct {
	ID                 string    `json:"id" gorm:"primaryKey"`
	UserID             string    `json:"user_id" gorm:"primaryKey"`
	CompanyName        string    `json:"company_name"`
	ApplicationStatus  string    `json:"application_status"`
	ReceivedAt         time.Time `json:"received_at"`
	Subject            string    `json:"subject"`
	JobTitle           string    `json:"job_title"`
	NormalizedJobTitle string    `json:"normalized_job_title"`
	EmailFrom          string    `json:"email_from" gorm:"column:email_from"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (EmailRecord) TableName() string {
	return "user_emails"
}

// NormalizeJobTitle folds a job title into a comparable form: lowercase,
// punctuation stripped, whitespace collapsed. "Sr. Software Engineer (Remote)"
// and "sr software engineer - remote" normalize to the same string.
func NormalizeJobTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
