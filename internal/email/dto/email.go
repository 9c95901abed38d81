package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PubSubPushRequest is the envelope Pub/Sub posts to a push endpoint.
type PubSubPushRequest struct {
	Message struct {
		Data        string            `json:"data"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
		Attributes  map[string]string `json:"attributes"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// GmailNotification is the payload Gmail publishes on a mailbox change.
// Only EmailAddress drives processing.
type GmailNotification struct {
	EmailAddress string    `json:"emailAddress"`
	HistoryID    HistoryID `json:"historyId"`
}

// HistoryID accepts a history id sent either as a JSON number or a string.
type HistoryID string

func (h *HistoryID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*h = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	*h = HistoryID(s)
	return nil
}

// Notification decodes the base64 data of a push envelope.
func (r *PubSubPushRequest) Notification() (*GmailNotification, error) {
	if r.Message.Data == "" {
		return nil, errors.New("push message has no data")
	}
	data, err := base64.StdEncoding.DecodeString(r.Message.Data)
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(r.Message.Data)
		if err != nil {
			return nil, fmt.Errorf("push data is not base64: %w", err)
		}
	}
	return ParseNotification(data)
}

// ParseNotification decodes a Gmail notification payload.
func ParseNotification(data []byte) (*GmailNotification, error) {
	var n GmailNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("invalid notification payload: %w", err)
	}
	n.EmailAddress = strings.TrimSpace(n.EmailAddress)
	if n.EmailAddress == "" {
		return nil, errors.New("notification has no emailAddress")
	}
	return &n, nil
}

// ProcessResponse reports a handled notification. Status is "retry" when
// the notification should be redelivered.
type ProcessResponse struct {
	Status    string `json:"status"`
	Outcome   string `json:"outcome,omitempty"`
	Drafted   int    `json:"drafted"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Watermark string `json:"watermark,omitempty"`
	Error     string `json:"error,omitempty"`
}

type RenewResponse struct {
	Message   string `json:"message"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}
