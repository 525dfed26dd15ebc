package ai

import "fmt"

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	GeminiAPIKey string
}

// NewClassifier creates a Classifier based on the config
// This is the factory function - switch AI provider by changing config.Provider
func NewClassifier(cfg Config) (Classifier, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiClassifier(cfg.GeminiAPIKey), nil

	default:
		if cfg.GeminiAPIKey != "" {
			return NewGeminiClassifier(cfg.GeminiAPIKey), nil
		}
		return nil, fmt.Errorf("no AI provider configured")
	}
}
