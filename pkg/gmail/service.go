package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	ingestdomain "jobtrail-backend/internal/ingest/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = ingestdomain.TokenUpdateFunc

// Service connects to Gmail on behalf of a user and implements
// ingestdomain.MailProvider.
type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		// Block on the callback so the refreshed token is persisted
		// before the next API call uses it.
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Connect builds an authenticated Gmail connection. When the underlying
// token source refreshes the access token, onTokenRefresh is invoked with
// the new token.
func (s *Service) Connect(ctx context.Context, token *oauth2.Token, onTokenRefresh TokenUpdateFunc) (ingestdomain.MailConnection, error) {
	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	tokenSource := config.TokenSource(ctx, token)

	// Wrap token source to detect refreshes
	wrappedSource := &notifyTokenSource{
		src:      tokenSource,
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return &connection{srv: srv}, nil
}

type connection struct {
	srv *gmail.Service
}

// ListMessageIDs returns the IDs of every message matching the query,
// following pagination until the result set is exhausted.
func (c *connection) ListMessageIDs(ctx context.Context, query string) ([]string, error) {
	user := "me"
	var ids []string
	pageToken := ""

	for {
		call := c.srv.Users.Messages.List(user).Q(query).MaxResults(500).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list messages: %v", err)
		}

		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return ids, nil
}

// GetMessage fetches a single message in full format.
func (c *connection) GetMessage(ctx context.Context, id string) (*ingestdomain.Message, error) {
	msg, err := c.srv.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message: %v", err)
	}

	return convertGmailMessage(msg), nil
}

func convertGmailMessage(msg *gmail.Message) *ingestdomain.Message {
	body, isHTML := getMessageBody(msg.Payload)

	if isHTML {
		// Strip HTML tags
		re := regexp.MustCompile(`<[^>]*>`)
		body = re.ReplaceAllString(body, " ")
		// Unescape HTML entities (basic ones)
		body = strings.ReplaceAll(body, "&nbsp;", " ")
		body = strings.ReplaceAll(body, "&lt;", "<")
		body = strings.ReplaceAll(body, "&gt;", ">")
		body = strings.ReplaceAll(body, "&amp;", "&")
		body = strings.ReplaceAll(body, "&quot;", "\"")
	}

	// Collapse multiple spaces into one
	body = strings.Join(strings.Fields(body), " ")

	return &ingestdomain.Message{
		ID:         msg.Id,
		Subject:    getHeader(msg.Payload.Headers, "Subject"),
		From:       getHeader(msg.Payload.Headers, "From"),
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0).UTC(),
		Body:       body,
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

func getMessageBody(payload *gmail.MessagePart) (string, bool) {
	// If the payload itself is the body
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/html" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						htmlBody = string(data)
					}
				}
			} else if part.MimeType == "text/plain" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						plainBody = string(data)
					}
				}
			}

			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}

	findBody(payload.Parts)

	if htmlBody != "" {
		return htmlBody, true
	}
	return plainBody, false
}
