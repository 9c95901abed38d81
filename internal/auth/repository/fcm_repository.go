package repository

import (
	"context"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"
	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fcmTokenRepository implements FCMTokenRepository interface
type fcmTokenRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewFCMTokenRepository creates a new instance of fcmTokenRepository
func NewFCMTokenRepository(db *gorm.DB, timeout time.Duration) FCMTokenRepository {
	return &fcmTokenRepository{
		db:      db,
		timeout: timeout,
	}
}

func (r *fcmTokenRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// SaveToken registers a device token for a user. A token that moves to
// another user or device is reassigned rather than duplicated.
func (r *fcmTokenRepository) SaveToken(ctx context.Context, userID uint, token, deviceInfo string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	fcmToken := &authdomain.FCMToken{
		ID:         uuid.New().String(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "updated_at"}),
	}).Create(fcmToken).Error
	return apperr.Storage("save fcm token", err)
}

func (r *fcmTokenRepository) GetTokensByUserID(ctx context.Context, userID uint) ([]authdomain.FCMToken, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var tokens []authdomain.FCMToken
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		return nil, apperr.Storage("list fcm tokens", err)
	}
	return tokens, nil
}

func (r *fcmTokenRepository) DeleteToken(ctx context.Context, token string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&authdomain.FCMToken{}).Error
	return apperr.Storage("delete fcm token", err)
}
