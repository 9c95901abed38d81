package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"

	"github.com/glebarez/sqlite"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "docs.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&docdomain.Document{}))
	return db
}

func newTestRepo(t *testing.T) DocumentRepository {
	t.Helper()
	return NewDocumentRepository(openTestDB(t), time.Second)
}

func newDoc(userID uint, name string) *docdomain.Document {
	vec := pgvector.NewVector([]float32{0.5, 0.25, 0.125})
	return &docdomain.Document{UserID: userID, Name: name, Content: name + " content", Embedding: &vec}
}

func TestCreateAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := newDoc(1, "pets")
	require.NoError(t, repo.Create(ctx, doc))
	require.NotZero(t, doc.ID)

	found, err := repo.FindByID(ctx, 1, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "pets", found.Name)
	require.NotNil(t, found.Embedding)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, found.Embedding.Slice())

	// other users never see it
	found, err = repo.FindByID(ctx, 2, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestUpdateScopedToOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := newDoc(1, "pets")
	require.NoError(t, repo.Create(ctx, doc))

	updated, err := repo.Update(ctx, &docdomain.Document{ID: doc.ID, UserID: 2, Name: "stolen"})
	require.NoError(t, err)
	assert.False(t, updated)

	vec := pgvector.NewVector([]float32{1, 0, 0})
	updated, err = repo.Update(ctx, &docdomain.Document{ID: doc.ID, UserID: 1, Name: "cats", Content: "meow", Embedding: &vec})
	require.NoError(t, err)
	assert.True(t, updated)

	found, err := repo.FindByID(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "cats", found.Name)
	assert.Equal(t, "meow", found.Content)
	assert.Equal(t, []float32{1, 0, 0}, found.Embedding.Slice())
}

func TestListPagesAndFindByIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var ids []uint
	for _, name := range []string{"a", "b", "c"} {
		doc := newDoc(1, name)
		require.NoError(t, repo.Create(ctx, doc))
		ids = append(ids, doc.ID)
	}
	require.NoError(t, repo.Create(ctx, newDoc(2, "other")))

	page, err := repo.List(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Name)
	assert.Nil(t, page[0].Embedding)

	docs, err := repo.FindByIDs(ctx, 1, []uint{ids[0], ids[2], 999})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := newDoc(1, "pets")
	require.NoError(t, repo.Create(ctx, doc))

	deleted, err := repo.Delete(ctx, 2, doc.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.Delete(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	found, err := repo.FindByID(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSearchWithZeroK(t *testing.T) {
	repo := newTestRepo(t)

	results, err := repo.SearchByEmbedding(context.Background(), 1, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchByEmbeddingQueryShape(t *testing.T) {
	db := openTestDB(t)

	var sql string
	var vars []interface{}
	require.NoError(t, db.Callback().Row().After("gorm:row").Register("test:capture_sql", func(tx *gorm.DB) {
		sql = tx.Statement.SQL.String()
		vars = append([]interface{}{}, tx.Statement.Vars...)
	}))

	repo := NewDocumentRepository(db.Session(&gorm.Session{DryRun: true}), time.Second)
	_, _ = repo.SearchByEmbedding(context.Background(), 7, []float32{1, 0, 0}, 3)

	require.NotEmpty(t, sql)
	assert.Contains(t, sql, "1 - (embedding <=> ?) AS similarity")
	assert.Contains(t, sql, "WHERE user_id = ? AND embedding IS NOT NULL")
	assert.Contains(t, sql, "ORDER BY embedding <=> ?, doc_id")
	assert.Regexp(t, `LIMIT (3|\?)`, sql)
	assert.Contains(t, vars, uint(7))
	assert.Less(t, strings.Index(sql, "WHERE"), strings.Index(sql, "ORDER BY"))
}
