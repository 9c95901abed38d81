package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/tgrozenski/agent-email/internal/apperr"
	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"

	"golang.org/x/oauth2"
)

// ReconcileResult is the outcome of one change-log reconciliation.
type ReconcileResult struct {
	Messages []*emaildomain.InboundMessage
	// CandidateWatermark is the greatest arrival watermark among Messages, "" when none.
	CandidateWatermark string
	// Skipped holds ids whose fetch failed.
	Skipped []string
	// LogWatermark is the mailbox position reported with the change log.
	LogWatermark string
}

// ChangeSetReconciler turns a mailbox change log into the messages that
// arrived in the inbox and are still present.
type ChangeSetReconciler struct {
	provider emaildomain.MailProvider
}

func NewChangeSetReconciler(provider emaildomain.MailProvider) *ChangeSetReconciler {
	return &ChangeSetReconciler{provider: provider}
}

// NetMessageIDs returns the inbox ids added in the log minus every id the
// log also deletes. Ids are listed once, in first-seen order.
func NetMessageIDs(changes *emaildomain.ChangeLog) []string {
	if changes == nil {
		return nil
	}

	deleted := make(map[string]struct{}, len(changes.Deleted))
	for _, id := range changes.Deleted {
		deleted[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(changes.Added))
	ids := make([]string, 0, len(changes.Added))
	for _, rec := range changes.Added {
		if rec.MessageID == "" || !rec.HasLabel(emaildomain.InboxLabel) {
			continue
		}
		if _, ok := seen[rec.MessageID]; ok {
			continue
		}
		seen[rec.MessageID] = struct{}{}
		if _, ok := deleted[rec.MessageID]; ok {
			continue
		}
		ids = append(ids, rec.MessageID)
	}
	return ids
}

// Reconcile lists changes since startWatermark and fetches every net added
// message. A failed change-log call fails the whole reconciliation; a failed
// fetch only skips that message.
func (r *ChangeSetReconciler) Reconcile(ctx context.Context, token *oauth2.Token, startWatermark string) (*ReconcileResult, error) {
	changes, err := r.provider.ListChanges(ctx, token, startWatermark)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes since %s: %w", startWatermark, err)
	}

	ids := NetMessageIDs(changes)
	result := &ReconcileResult{
		Messages:     make([]*emaildomain.InboundMessage, 0, len(ids)),
		LogWatermark: changes.Watermark,
	}
	watermarks := make([]string, 0, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := r.provider.GetMessage(ctx, token, id)
		if err != nil {
			fetchErr := &apperr.FetchError{MessageID: id, Err: err}
			log.Printf("[Reconciler] Skipping message: %v", fetchErr)
			result.Skipped = append(result.Skipped, id)
			continue
		}
		result.Messages = append(result.Messages, msg)
		watermarks = append(watermarks, msg.Watermark)
	}

	result.CandidateWatermark = authdomain.MaxWatermark(watermarks...)
	return result, nil
}
