package notification

import (
	"context"
	"fmt"
	"log"

	authrepo "github.com/tgrozenski/agent-email/internal/auth/repository"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"
	"github.com/tgrozenski/agent-email/pkg/fcm"
)

// PushSender delivers a notification to device tokens and returns the
// tokens that could not be reached.
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// DraftNotifier pushes "draft ready" notifications to a user's devices.
type DraftNotifier struct {
	fcmRepo authrepo.FCMTokenRepository
	sender  PushSender
}

func NewDraftNotifier(fcmRepo authrepo.FCMTokenRepository, sender PushSender) *DraftNotifier {
	return &DraftNotifier{fcmRepo: fcmRepo, sender: sender}
}

// NotifyDraftReady sends the notification and deletes tokens that failed.
func (n *DraftNotifier) NotifyDraftReady(ctx context.Context, userID uint, msg *emaildomain.InboundMessage, draft *emaildomain.DraftResult) error {
	tokens, err := n.fcmRepo.GetTokensByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load FCM tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	subject := msg.Subject()
	if len([]rune(subject)) > 100 {
		subject = string([]rune(subject)[:97]) + "..."
	}
	if subject == "" {
		subject = "(no subject)"
	}

	failedTokens, err := n.sender.SendToDevices(ctx, tokenStrings, fcm.NotificationData{
		Title: "Reply draft ready",
		Body:  "Re: " + subject,
		Data: map[string]string{
			"type":       "draft_ready",
			"message_id": draft.MessageID,
			"thread_id":  draft.ThreadID,
			"draft_id":   draft.DraftID,
		},
	})
	if err != nil {
		return err
	}

	if len(failedTokens) > 0 {
		log.Printf("[FCM] Cleaning up %d failed tokens", len(failedTokens))
		for _, token := range failedTokens {
			if err := n.fcmRepo.DeleteToken(ctx, token); err != nil {
				log.Printf("[FCM] Failed to delete token: %v", err)
			}
		}
	}
	return nil
}
