package ai

import "context"

// Verdict is the structured classification of a single email.
// A CompanyName of "false positive" means the email is not about a job
// application at all and should be discarded by the caller.
type Verdict struct {
	CompanyName       string `json:"company_name"`
	ApplicationStatus string `json:"application_status"`
	JobTitle          string `json:"job_title"`
}

// Classifier is the interface for job-application email classification.
// Implement this interface to add new AI providers (Gemini, OpenAI, etc.)
type Classifier interface {
	ClassifyEmail(ctx context.Context, subject, from, body string) (*Verdict, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderAuto   ProviderType = "auto"
)
