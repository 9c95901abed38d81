package usecase

import (
	"strings"

	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"
)

const listUnsubscribeHeader = "List-Unsubscribe"

var promotionalPhrases = []string{
	"special offer",
	"discount",
	"promotion",
	"view in browser",
	"privacy policy",
	"terms of service",
	"sale",
	"limited time",
}

// IsLikelyUnimportant classifies bulk and promotional mail that should not
// get a generated reply. It errs toward skipping.
func IsLikelyUnimportant(msg *emaildomain.InboundMessage) bool {
	if msg == nil {
		return true
	}

	body := strings.ToLower(msg.Body)
	if strings.Contains(body, "unsubscribe") {
		return true
	}
	// Header name match is exact, unlike Header().
	if msg.HasExactHeader(listUnsubscribeHeader) {
		return true
	}
	for _, phrase := range promotionalPhrases {
		if strings.Contains(body, phrase) {
			return true
		}
	}
	return false
}
