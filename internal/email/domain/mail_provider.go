package domain

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrWatermarkExpired means the provider no longer keeps history as far back
// as the requested start watermark.
var ErrWatermarkExpired = errors.New("history watermark expired")

// ChangeRecord is one "message added" entry of the change log.
type ChangeRecord struct {
	MessageID string
	Labels    []string
}

// HasLabel reports whether the record carries the label.
func (r ChangeRecord) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ChangeLog is the flattened mailbox history since a watermark.
type ChangeLog struct {
	Added   []ChangeRecord
	Deleted []string
	// Watermark is the mailbox's current history position as reported by the provider.
	Watermark string
}

// WatchResult describes an active push subscription.
type WatchResult struct {
	Watermark  string
	Expiration int64
}

// MailProvider is the mailbox API used by the pipeline. Every call
// authenticates with a short-lived access token from the credential broker.
type MailProvider interface {
	ListChanges(ctx context.Context, token *oauth2.Token, startWatermark string) (*ChangeLog, error)
	GetMessage(ctx context.Context, token *oauth2.Token, messageID string) (*InboundMessage, error)
	GetReplyMetadata(ctx context.Context, token *oauth2.Token, messageID string) (*ReplyMetadata, error)
	CreateDraft(ctx context.Context, token *oauth2.Token, threadID string, raw []byte) (string, error)
	Watch(ctx context.Context, token *oauth2.Token, topic string, labelIDs []string) (*WatchResult, error)
	CurrentWatermark(ctx context.Context, token *oauth2.Token) (string, error)
}
