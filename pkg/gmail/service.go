package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const user = "me"

// Service implements emaildomain.MailProvider over the Gmail v1 API.
type Service struct {
	timeout    time.Duration
	endpoint   string
	httpClient *http.Client
}

type Option func(*Service)

// WithTimeout bounds every Gmail call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(s *Service) { s.endpoint = endpoint }
}

// WithHTTPClient sets the transport underneath the OAuth2 client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) { s.httpClient = client }
}

func NewService(opts ...Option) *Service {
	s := &Service{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ emaildomain.MailProvider = (*Service)(nil)

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// GetGmailService creates a Gmail client authorised by an access token.
func (s *Service) GetGmailService(ctx context.Context, token *oauth2.Token) (*gmail.Service, error) {
	if token == nil || token.AccessToken == "" {
		return nil, errors.New("access token is required")
	}
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListChanges pages through the mailbox history after startWatermark.
func (s *Service) ListChanges(ctx context.Context, token *oauth2.Token, startWatermark string) (*emaildomain.ChangeLog, error) {
	start, err := strconv.ParseUint(strings.TrimSpace(startWatermark), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid start watermark %q: %w", startWatermark, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	srv, err := s.GetGmailService(ctx, token)
	if err != nil {
		return nil, err
	}

	changes := &emaildomain.ChangeLog{}
	pageToken := ""
	for {
		call := srv.Users.History.List(user).
			StartHistoryId(start).
			HistoryTypes("messageAdded", "messageDeleted").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			if isStatus(err, http.StatusNotFound) {
				return nil, fmt.Errorf("%w: start %s: %v", emaildomain.ErrWatermarkExpired, startWatermark, err)
			}
			return nil, fmt.Errorf("unable to list history: %w", err)
		}

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				if added.Message == nil {
					continue
				}
				changes.Added = append(changes.Added, emaildomain.ChangeRecord{
					MessageID: added.Message.Id,
					Labels:    added.Message.LabelIds,
				})
			}
			for _, deleted := range h.MessagesDeleted {
				if deleted.Message == nil {
					continue
				}
				changes.Deleted = append(changes.Deleted, deleted.Message.Id)
			}
		}
		if resp.HistoryId > 0 {
			changes.Watermark = strconv.FormatUint(resp.HistoryId, 10)
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return changes, nil
}

// GetMessage fetches a full message and extracts its plaintext body.
func (s *Service) GetMessage(ctx context.Context, token *oauth2.Token, messageID string) (*emaildomain.InboundMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	srv, err := s.GetGmailService(ctx, token)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get(user, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message: %w", err)
	}
	if msg.Payload == nil {
		return nil, errors.New("message has no payload")
	}

	body, err := extractPlainText(msg.Payload)
	if err != nil {
		return nil, err
	}

	return &emaildomain.InboundMessage{
		ID:        msg.Id,
		ThreadID:  msg.ThreadId,
		Headers:   convertHeaders(msg.Payload.Headers),
		Body:      body,
		Watermark: strconv.FormatUint(msg.HistoryId, 10),
	}, nil
}

// GetReplyMetadata fetches the thread id and the headers a reply is built from.
func (s *Service) GetReplyMetadata(ctx context.Context, token *oauth2.Token, messageID string) (*emaildomain.ReplyMetadata, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	srv, err := s.GetGmailService(ctx, token)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get(user, messageID).
		Format("metadata").
		MetadataHeaders("Subject", "From", "Message-ID").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message metadata: %w", err)
	}

	meta := &emaildomain.ReplyMetadata{MessageID: msg.Id, ThreadID: msg.ThreadId}
	if msg.Payload != nil {
		meta.Headers = convertHeaders(msg.Payload.Headers)
	}
	return meta, nil
}

// CreateDraft stores raw RFC 5322 bytes as a draft in threadID.
func (s *Service) CreateDraft(ctx context.Context, token *oauth2.Token, threadID string, raw []byte) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	srv, err := s.GetGmailService(ctx, token)
	if err != nil {
		return "", err
	}

	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw:      base64.URLEncoding.EncodeToString(raw),
			ThreadId: threadID,
		},
	}
	created, err := srv.Users.Drafts.Create(user, draft).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create draft: %w", err)
	}
	return created.Id, nil
}

// Watch sets up push notifications for the user's mailbox
func (s *Service) Watch(ctx context.Context, token *oauth2.Token, topic string, labelIDs []string) (*emaildomain.WatchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	srv, err := s.GetGmailService(ctx, token)
	if err != nil {
		return nil, err
	}

	// Clear any previous registration; Gmail allows one push client per user.
	_ = srv.Users.Stop(user).Context(ctx).Do()

	resp, err := srv.Users.Watch(user, &gmail.WatchRequest{
		TopicName: topic,
		LabelIds:  labelIDs,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to watch mailbox: %w", err)
	}
	log.Printf("[Gmail] Watch started. Expiration: %d, HistoryId: %d", resp.Expiration, resp.HistoryId)

	return &emaildomain.WatchResult{
		Watermark:  strconv.FormatUint(resp.HistoryId, 10),
		Expiration: resp.Expiration,
	}, nil
}

// CurrentWatermark returns the mailbox's latest history id.
func (s *Service) CurrentWatermark(ctx context.Context, token *oauth2.Token) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	srv, err := s.GetGmailService(ctx, token)
	if err != nil {
		return "", err
	}

	profile, err := srv.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to get profile: %w", err)
	}
	return strconv.FormatUint(profile.HistoryId, 10), nil
}

func convertHeaders(headers []*gmail.MessagePartHeader) []emaildomain.Header {
	out := make([]emaildomain.Header, 0, len(headers))
	for _, h := range headers {
		out = append(out, emaildomain.Header{Name: h.Name, Value: h.Value})
	}
	return out
}

// extractPlainText returns the first text/plain body: the payload itself,
// one of its parts, or a part nested one level inside a multipart part.
func extractPlainText(payload *gmail.MessagePart) (string, error) {
	if isPlainText(payload) || (len(payload.Parts) == 0 && !strings.HasPrefix(payload.MimeType, "text/html")) {
		return decodeBody(payload)
	}

	for _, part := range payload.Parts {
		if isPlainText(part) && hasData(part) {
			return decodeBody(part)
		}
	}
	for _, part := range payload.Parts {
		if !strings.HasPrefix(part.MimeType, "multipart/") {
			continue
		}
		for _, sub := range part.Parts {
			if isPlainText(sub) && hasData(sub) {
				return decodeBody(sub)
			}
		}
	}
	return "", nil
}

func isPlainText(part *gmail.MessagePart) bool {
	return strings.HasPrefix(strings.ToLower(part.MimeType), "text/plain")
}

func hasData(part *gmail.MessagePart) bool {
	return part.Body != nil && part.Body.Data != ""
}

func decodeBody(part *gmail.MessagePart) (string, error) {
	if !hasData(part) {
		return "", nil
	}
	data, err := base64.URLEncoding.DecodeString(part.Body.Data)
	if err != nil {
		// Gmail usually pads, but not always.
		data, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(part.Body.Data, "="))
		if err != nil {
			return "", fmt.Errorf("unable to decode body: %w", err)
		}
	}
	return string(data), nil
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
