package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// draftHistoryRepository implements DraftHistoryRepository interface
type draftHistoryRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewDraftHistoryRepository creates a new instance of draftHistoryRepository.
// Every call waits at most timeout for a pooled connection and the query together.
func NewDraftHistoryRepository(db *gorm.DB, timeout time.Duration) DraftHistoryRepository {
	return &draftHistoryRepository{
		db:      db,
		timeout: timeout,
	}
}

func (r *draftHistoryRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Claim checks and creates the ledger row in one query
func (r *draftHistoryRepository) Claim(ctx context.Context, userID uint, messageID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var history emaildomain.DraftHistory

	now := time.Now()
	result := r.db.WithContext(ctx).Where("user_id = ? AND message_id = ?", userID, messageID).FirstOrCreate(&history, emaildomain.DraftHistory{
		ID:        uuid.New().String(),
		UserID:    userID,
		MessageID: messageID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if result.Error != nil {
		// a concurrent claim won the unique index
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return true, nil
		}
		return false, apperr.Storage("claim draft", result.Error)
	}

	// RowsAffected > 0 means the row was just created by this call
	return result.RowsAffected == 0, nil
}

func (r *draftHistoryRepository) Complete(ctx context.Context, userID uint, messageID, draftID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Model(&emaildomain.DraftHistory{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Updates(map[string]interface{}{"draft_id": draftID, "updated_at": time.Now()}).Error
	return apperr.Storage("complete draft", err)
}

func (r *draftHistoryRepository) Release(ctx context.Context, userID uint, messageID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Where("user_id = ? AND message_id = ?", userID, messageID).Delete(&emaildomain.DraftHistory{}).Error
	return apperr.Storage("release draft", err)
}

func (r *draftHistoryRepository) IsDrafted(ctx context.Context, userID uint, messageID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64
	err := r.db.WithContext(ctx).Model(&emaildomain.DraftHistory{}).
		Where("user_id = ? AND message_id = ? AND draft_id <> ''", userID, messageID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Storage("check draft", err)
	}
	return count > 0, nil
}
