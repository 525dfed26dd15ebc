package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// GeminiClassifier implements Classifier using the Gemini REST API.
type GeminiClassifier struct {
	ApiKey string
	client *http.Client
}

func NewGeminiClassifier(apiKey string) *GeminiClassifier {
	return &GeminiClassifier{
		ApiKey: apiKey,
		client: &http.Client{},
	}
}

// ClassifyEmail asks Gemini whether an email is part of a job application
// and extracts the company, status, and job title. Emails unrelated to job
// hunting come back with company_name "false positive".
func (g *GeminiClassifier) ClassifyEmail(ctx context.Context, subject, from, body string) (*Verdict, error) {
	// Use gemini-2.5-flash for fast classification
	url := "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent?key=" + g.ApiKey

	// Bodies can be very long; the signal is almost always near the top.
	body = truncateOnRuneBoundary(body, 8000)

	prompt := fmt.Sprintf(`You are an assistant that tracks job applications from emails.
Analyze the email below and respond with ONLY a JSON object, no markdown, with exactly these keys:
  "company_name": the hiring company's name
  "application_status": one of "applied", "interview", "offer", "rejected", "availability request", "information request", "assessment sent", "hiring freeze notification", "withdrew application"
  "job_title": the position applied for

RULES:
- If the email is NOT related to a job application the user submitted (newsletters, job alerts, promotions, general recruiting spam), set "company_name" to "false positive".
- If a field cannot be determined, use "unknown".

SUBJECT: %s
FROM: %s
BODY:
%s

JSON:`, subject, from, body)

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.1,
			"responseMimeType": "application/json",
		},
	}

	reqBody, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API error: %s", string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}

	text, err := extractCandidateText(result)
	if err != nil {
		return nil, err
	}

	return parseVerdict(text)
}

// truncateOnRuneBoundary cuts s to at most max bytes without splitting a
// multi-byte rune, which would send a mangled character to the API.
func truncateOnRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func extractCandidateText(result map[string]interface{}) (string, error) {
	if c, ok := result["candidates"].([]interface{}); ok && len(c) > 0 {
		if cand, ok := c[0].(map[string]interface{}); ok {
			if content, ok := cand["content"].(map[string]interface{}); ok {
				if parts, ok := content["parts"].([]interface{}); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]interface{}); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}
	return "", fmt.Errorf("no classification returned")
}

func parseVerdict(text string) (*Verdict, error) {
	// Models sometimes wrap JSON in a markdown fence even when told not to.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var verdict Verdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("unparseable classification: %w", err)
	}
	return &verdict, nil
}
