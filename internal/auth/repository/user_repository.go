package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"
	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewUserRepository creates a new instance of userRepository. Every call
// waits at most timeout for a pooled connection and the query together.
func NewUserRepository(db *gorm.DB, timeout time.Duration) UserRepository {
	return &userRepository{
		db:      db,
		timeout: timeout,
	}
}

func (r *userRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *userRepository) Create(ctx context.Context, user *authdomain.User) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	// INSERT ... ON CONFLICT (email) DO NOTHING
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(user)
	if result.Error != nil {
		return false, apperr.Storage("create user", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*authdomain.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user authdomain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Storage("find user by email", err)
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*authdomain.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user authdomain.User
	err := r.db.WithContext(ctx).Where("user_id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Storage("find user by id", err)
	}
	return &user, nil
}

func (r *userRepository) GetAttribute(ctx context.Context, email string, attr authdomain.UserAttribute) (string, bool, error) {
	column, ok := attr.Column()
	if !ok {
		return "", false, fmt.Errorf("unknown user attribute %d", int(attr))
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var value sql.NullString
	row := r.db.WithContext(ctx).Model(&authdomain.User{}).Select(column).Where("email = ?", email).Row()
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, apperr.Storage("get "+column, err)
	}
	return value.String, true, nil
}

func (r *userRepository) AdvanceWatermark(ctx context.Context, email, watermark string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	advanced := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		// Row lock serialises concurrent advances for the same user.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("email = ?", email).First(&user).Error; err != nil {
			return err
		}
		if authdomain.CompareWatermarks(watermark, user.HistoryID) <= 0 {
			return nil
		}
		if err := tx.Model(&authdomain.User{}).Where("user_id = ?", user.ID).Updates(map[string]interface{}{
			"history_id": watermark,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return err
		}
		advanced = true
		return nil
	})
	if err != nil {
		return false, apperr.Storage("advance watermark", err)
	}
	return advanced, nil
}

func (r *userRepository) SetWatermark(ctx context.Context, email, watermark string) error {
	return r.updateColumn(ctx, email, "history_id", watermark)
}

func (r *userRepository) UpdateRefreshToken(ctx context.Context, email, encryptedToken string) error {
	return r.updateColumn(ctx, email, "encrypted_refresh_token", encryptedToken)
}

func (r *userRepository) updateColumn(ctx context.Context, email, column, value string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Model(&authdomain.User{}).Where("email = ?", email).Updates(map[string]interface{}{
		column:       value,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return apperr.Storage("update "+column, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Storage("update "+column, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *userRepository) ListWatchCandidates(ctx context.Context) ([]authdomain.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var users []authdomain.User
	if err := r.db.WithContext(ctx).Order("user_id").Find(&users).Error; err != nil {
		return nil, apperr.Storage("list watch candidates", err)
	}
	return users, nil
}
