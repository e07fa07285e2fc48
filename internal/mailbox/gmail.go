package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"gyftr-sheet-sync/internal/config"
	"gyftr-sheet-sync/internal/model"
)

// GmailGateway implements Gateway against the Gmail API.
type GmailGateway struct {
	service *gmail.Service
	userID  string
}

var _ Gateway = (*GmailGateway)(nil)

// NewGmailGateway creates a Gmail-backed mailbox gateway using the
// refresh-token OAuth2 flow.
func NewGmailGateway(ctx context.Context, cfg *config.GmailConfig) (*GmailGateway, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailModifyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}
	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailGateway{
		service: service,
		userID:  cfg.UserID,
	}, nil
}

// ListMessages runs a Gmail search query and returns one page of matches.
func (g *GmailGateway) ListMessages(ctx context.Context, query string, maxResults int64, pageToken string) ([]Ref, string, error) {
	call := g.service.Users.Messages.List(g.userID).Q(query).MaxResults(maxResults).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	response, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list messages: %w", err)
	}

	refs := make([]Ref, 0, len(response.Messages))
	for _, msg := range response.Messages {
		refs = append(refs, Ref{ID: msg.Id, ThreadID: msg.ThreadId})
	}

	return refs, response.NextPageToken, nil
}

// GetMessage fetches a message in full format and converts it to the
// domain model, decoding every body part.
func (g *GmailGateway) GetMessage(ctx context.Context, id string) (*model.Email, error) {
	msg, err := g.service.Users.Messages.Get(g.userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	email := &model.Email{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Labels:   msg.LabelIds,
		Headers:  make(map[string]string),
		IsRead:   true,
	}

	for _, label := range msg.LabelIds {
		if label == "UNREAD" {
			email.IsRead = false
			break
		}
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			email.Headers[header.Name] = header.Value
			switch header.Name {
			case "Subject":
				email.Subject = header.Value
			case "From":
				email.Sender = header.Value
			case "Date":
				email.Date = header.Value
			}
		}
		email.Body = convertPart(msg.Payload)
	}

	return email, nil
}

// ListChangesSince returns message-added IDs from the Gmail history feed,
// following pagination. A 404 from the API means the start position has
// expired and is surfaced as ErrCursorExpired.
func (g *GmailGateway) ListChangesSince(ctx context.Context, historyID string) ([]string, error) {
	startID, err := strconv.ParseUint(historyID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid history position %q: %w", historyID, err)
	}

	var ids []string
	pageToken := ""
	for {
		call := g.service.Users.History.List(g.userID).
			StartHistoryId(startID).
			HistoryTypes("messageAdded").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 404 {
				return nil, fmt.Errorf("history position %s: %w", historyID, ErrCursorExpired)
			}
			return nil, fmt.Errorf("failed to list history since %s: %w", historyID, err)
		}

		for _, history := range response.History {
			for _, added := range history.MessagesAdded {
				if added.Message != nil {
					ids = append(ids, added.Message.Id)
				}
			}
		}

		pageToken = response.NextPageToken
		if pageToken == "" {
			return ids, nil
		}
	}
}

// MarkRead removes the UNREAD label from a message.
func (g *GmailGateway) MarkRead(ctx context.Context, id string) error {
	_, err := g.service.Users.Messages.Modify(g.userID, id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message %s as read: %w", id, err)
	}
	return nil
}

// convertPart maps a Gmail API part tree onto the domain body tree,
// decoding part data from URL-safe base64.
func convertPart(part *gmail.MessagePart) *model.BodyPart {
	if part == nil {
		return nil
	}

	converted := &model.BodyPart{MimeType: part.MimeType}
	if part.Body != nil && part.Body.Data != "" {
		converted.Data = decodeBody(part.Body.Data)
	}
	for _, sub := range part.Parts {
		converted.Parts = append(converted.Parts, convertPart(sub))
	}
	return converted
}

// decodeBody decodes Gmail body data, which arrives URL-safe base64
// encoded with or without padding depending on the part.
func decodeBody(data string) string {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return ""
	}
	return string(decoded)
}
