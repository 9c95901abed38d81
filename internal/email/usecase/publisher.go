package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"

	"github.com/emersion/go-message/mail"
	"golang.org/x/oauth2"
)

// DraftPublisher stores generated replies as drafts in the original thread.
// Publishing is never retried.
type DraftPublisher struct {
	provider emaildomain.MailProvider
}

func NewDraftPublisher(provider emaildomain.MailProvider) *DraftPublisher {
	return &DraftPublisher{provider: provider}
}

// Publish creates a reply draft to messageID. Every failure is an *apperr.PublishError.
func (p *DraftPublisher) Publish(ctx context.Context, token *oauth2.Token, body, messageID string) (*emaildomain.DraftResult, error) {
	meta, err := p.provider.GetReplyMetadata(ctx, token, messageID)
	if err != nil {
		return nil, &apperr.PublishError{MessageID: messageID, Err: fmt.Errorf("original message unavailable: %w", err)}
	}
	if meta == nil {
		return nil, &apperr.PublishError{MessageID: messageID, Err: errors.New("original message not found")}
	}

	raw, err := ComposeReply(meta.Headers, body)
	if err != nil {
		return nil, &apperr.PublishError{MessageID: messageID, Err: err}
	}

	draftID, err := p.provider.CreateDraft(ctx, token, meta.ThreadID, raw)
	if err != nil {
		return nil, &apperr.PublishError{MessageID: messageID, Err: err}
	}

	return &emaildomain.DraftResult{
		ThreadID:  meta.ThreadID,
		MessageID: messageID,
		DraftID:   draftID,
	}, nil
}

// ComposeReply renders an RFC 5322 reply to the message carrying headers.
// In-Reply-To and References are set only when the original has a Message-Id.
func ComposeReply(headers []emaildomain.Header, body string) ([]byte, error) {
	from := emaildomain.HeaderValue(headers, "From")
	subject := emaildomain.HeaderValue(headers, "Subject")
	originalID := strings.TrimSpace(emaildomain.HeaderValue(headers, "Message-Id"))

	var h mail.Header
	h.SetDate(time.Now())
	if addrs, err := mail.ParseAddressList(from); err == nil && len(addrs) > 0 {
		h.SetAddressList("To", addrs)
	} else if from != "" {
		h.Set("To", from)
	}
	h.SetSubject("Re: " + subject)
	if originalID != "" {
		h.Set("In-Reply-To", originalID)
		h.Set("References", originalID)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "UTF-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to write reply headers: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("failed to write reply body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish reply: %w", err)
	}
	return buf.Bytes(), nil
}
