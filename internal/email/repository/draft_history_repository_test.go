package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDraftDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "drafts.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&emaildomain.DraftHistory{}))
	return db
}

func newDraftHistoryRepo(t *testing.T) DraftHistoryRepository {
	t.Helper()
	return NewDraftHistoryRepository(openDraftDB(t), time.Second)
}

func TestClaimOnlyOnce(t *testing.T) {
	repo := newDraftHistoryRepo(t)
	ctx := context.Background()

	already, err := repo.Claim(ctx, 1, "m1")
	require.NoError(t, err)
	assert.False(t, already)

	already, err = repo.Claim(ctx, 1, "m1")
	require.NoError(t, err)
	assert.True(t, already)

	// the same message id for another user is independent
	already, err = repo.Claim(ctx, 2, "m1")
	require.NoError(t, err)
	assert.False(t, already)
}

func TestCompleteAndRelease(t *testing.T) {
	repo := newDraftHistoryRepo(t)
	ctx := context.Background()

	_, err := repo.Claim(ctx, 1, "m1")
	require.NoError(t, err)

	drafted, err := repo.IsDrafted(ctx, 1, "m1")
	require.NoError(t, err)
	assert.False(t, drafted)

	require.NoError(t, repo.Complete(ctx, 1, "m1", "r-123"))
	drafted, err = repo.IsDrafted(ctx, 1, "m1")
	require.NoError(t, err)
	assert.True(t, drafted)

	_, err = repo.Claim(ctx, 1, "m2")
	require.NoError(t, err)
	require.NoError(t, repo.Release(ctx, 1, "m2"))

	already, err := repo.Claim(ctx, 1, "m2")
	require.NoError(t, err)
	assert.False(t, already)
}

func TestClaimOnExhaustedPoolIsStorageError(t *testing.T) {
	db := openDraftDB(t)
	repo := NewDraftHistoryRepository(db, 100*time.Millisecond)

	// hold the only pooled connection
	tx := db.Begin()
	require.NoError(t, tx.Error)
	defer tx.Rollback()

	start := time.Now()
	_, err := repo.Claim(context.WithoutCancel(context.Background()), 1, "m1")
	assert.True(t, apperr.IsStorageError(err))
	assert.Less(t, time.Since(start), 2*time.Second)

	err = repo.Release(context.WithoutCancel(context.Background()), 1, "m1")
	assert.True(t, apperr.IsStorageError(err))
}
