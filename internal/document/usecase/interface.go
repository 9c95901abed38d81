package usecase

import (
	"context"

	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
)

// DocumentUsecase manages a user's reference documents.
type DocumentUsecase interface {
	// Save inserts a document, or replaces docID when given. The embedding is
	// recomputed on every save.
	Save(ctx context.Context, userID uint, name, content string, docID *uint) (*docdomain.Document, error)
	List(ctx context.Context, userID uint, offset, limit int) ([]docdomain.Document, error)
	Get(ctx context.Context, userID, docID uint) (*docdomain.Document, error)
	Delete(ctx context.Context, userID, docID uint) error
}

// SemanticIndex is an external vector index that mirrors stored documents.
type SemanticIndex interface {
	UpsertDocument(ctx context.Context, docID, userID uint, text string) error
	DeleteDocument(ctx context.Context, docID uint) error
	// SemanticSearch returns document ids and cosine distances, nearest first.
	SemanticSearch(ctx context.Context, userID uint, query string, limit int) ([]uint, []float64, error)
}
