package repository

import (
	"context"

	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"
)

// UserRepository is the watermark store: user lookup, credential storage
// and the per-user history watermark.
type UserRepository interface {
	// Create inserts the user unless the email is already registered.
	// Returns whether a row was written.
	Create(ctx context.Context, user *authdomain.User) (bool, error)
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
	FindByID(ctx context.Context, id uint) (*authdomain.User, error)
	// GetAttribute reads one allowed attribute. found is false when the user does not exist.
	GetAttribute(ctx context.Context, email string, attr authdomain.UserAttribute) (value string, found bool, err error)
	// AdvanceWatermark stores watermark only if it orders after the stored value.
	AdvanceWatermark(ctx context.Context, email, watermark string) (bool, error)
	// SetWatermark overwrites the watermark unconditionally.
	SetWatermark(ctx context.Context, email, watermark string) error
	UpdateRefreshToken(ctx context.Context, email, encryptedToken string) error
	ListWatchCandidates(ctx context.Context) ([]authdomain.User, error)
}

// FCMTokenRepository stores device tokens for push notifications.
type FCMTokenRepository interface {
	SaveToken(ctx context.Context, userID uint, token, deviceInfo string) error
	GetTokensByUserID(ctx context.Context, userID uint) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}
