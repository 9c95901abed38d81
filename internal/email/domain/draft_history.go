package domain

import "time"

// DraftHistory records which inbound messages already received a reply
// draft, so a redelivered notification does not draft twice.
type DraftHistory struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index:idx_draft_user;not null;uniqueIndex:idx_draft_user_message"`
	MessageID string    `json:"message_id" gorm:"not null;uniqueIndex:idx_draft_user_message"`
	DraftID   string    `json:"draft_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
