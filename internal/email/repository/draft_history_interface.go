package repository

import "context"

// DraftHistoryRepository is the ledger of messages that already received a draft
type DraftHistoryRepository interface {
	// Claim reserves messageID for drafting.
	// Returns: (alreadyClaimed bool, error)
	Claim(ctx context.Context, userID uint, messageID string) (bool, error)
	// Complete attaches the created draft id to a claimed message
	Complete(ctx context.Context, userID uint, messageID, draftID string) error
	// Release drops a claim whose draft was never created
	Release(ctx context.Context, userID uint, messageID string) error
	IsDrafted(ctx context.Context, userID uint, messageID string) (bool, error)
}
