package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tgrozenski/agent-email/internal/apperr"
	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type documentRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewDocumentRepository creates a new instance of documentRepository
func NewDocumentRepository(db *gorm.DB, timeout time.Duration) DocumentRepository {
	return &documentRepository{db: db, timeout: timeout}
}

func (r *documentRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *documentRepository) Create(ctx context.Context, doc *docdomain.Document) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return apperr.Storage("create document", r.db.WithContext(ctx).Create(doc).Error)
}

func (r *documentRepository) Update(ctx context.Context, doc *docdomain.Document) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	doc.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).Model(&docdomain.Document{}).
		Where("doc_id = ? AND user_id = ?", doc.ID, doc.UserID).
		Updates(map[string]interface{}{
			"document_name": doc.Name,
			"content":       doc.Content,
			"embedding":     doc.Embedding,
			"updated_at":    doc.UpdatedAt,
		})
	if result.Error != nil {
		return false, apperr.Storage("update document", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *documentRepository) FindByID(ctx context.Context, userID, docID uint) (*docdomain.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc docdomain.Document
	err := r.db.WithContext(ctx).Where("doc_id = ? AND user_id = ?", docID, userID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Storage("find document", err)
	}
	return &doc, nil
}

func (r *documentRepository) FindByIDs(ctx context.Context, userID uint, docIDs []uint) ([]docdomain.Document, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var docs []docdomain.Document
	err := r.db.WithContext(ctx).Where("user_id = ? AND doc_id IN ?", userID, docIDs).Find(&docs).Error
	if err != nil {
		return nil, apperr.Storage("find documents", err)
	}
	return docs, nil
}

func (r *documentRepository) List(ctx context.Context, userID uint, offset, limit int) ([]docdomain.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var docs []docdomain.Document
	err := r.db.WithContext(ctx).
		Omit("embedding").
		Where("user_id = ?", userID).
		Order("doc_id").
		Offset(offset).
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, apperr.Storage("list documents", err)
	}
	return docs, nil
}

func (r *documentRepository) Delete(ctx context.Context, userID, docID uint) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Where("doc_id = ? AND user_id = ?", docID, userID).Delete(&docdomain.Document{})
	if result.Error != nil {
		return false, apperr.Storage("delete document", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *documentRepository) SearchByEmbedding(ctx context.Context, userID uint, embedding []float32, k int) ([]docdomain.RetrievedContext, error) {
	if k <= 0 {
		return []docdomain.RetrievedContext{}, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	vec := pgvector.NewVector(embedding)
	var rows []struct {
		DocID        uint
		DocumentName string
		Content      string
		Similarity   float64
	}
	err := r.db.WithContext(ctx).Model(&docdomain.Document{}).
		Select("doc_id, document_name, content, 1 - (embedding <=> ?) AS similarity", vec).
		Where("user_id = ? AND embedding IS NOT NULL", userID).
		Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "embedding <=> ?, doc_id", Vars: []interface{}{vec}}}).
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage("search documents", err)
	}

	results := make([]docdomain.RetrievedContext, 0, len(rows))
	for _, row := range rows {
		results = append(results, docdomain.RetrievedContext{
			DocID:      row.DocID,
			Name:       row.DocumentName,
			Content:    row.Content,
			Similarity: row.Similarity,
		})
	}
	return results, nil
}
