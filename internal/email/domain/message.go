package domain

import "strings"

// InboxLabel is the mailbox label that scopes change detection and watches.
const InboxLabel = "INBOX"

// Header is one message header, kept verbatim.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// InboundMessage is a newly arrived message with its plaintext body.
// Watermark is the provider history position at which it arrived.
type InboundMessage struct {
	ID        string   `json:"id"`
	ThreadID  string   `json:"thread_id"`
	Headers   []Header `json:"headers"`
	Body      string   `json:"body"`
	Watermark string   `json:"watermark"`
}

// Header returns the first header value whose name matches case-insensitively.
func (m *InboundMessage) Header(name string) string {
	return HeaderValue(m.Headers, name)
}

// HasExactHeader reports whether a header with exactly this name is present.
func (m *InboundMessage) HasExactHeader(name string) bool {
	for _, h := range m.Headers {
		if h.Name == name {
			return true
		}
	}
	return false
}

func (m *InboundMessage) Subject() string {
	return m.Header("Subject")
}

// HeaderValue looks up a header by case-insensitive name.
func HeaderValue(headers []Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// ReplyMetadata is the subset of an original message a reply needs.
type ReplyMetadata struct {
	MessageID string
	ThreadID  string
	Headers   []Header
}

// DraftResult identifies a created reply draft.
type DraftResult struct {
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
	DraftID   string `json:"draft_id"`
}
