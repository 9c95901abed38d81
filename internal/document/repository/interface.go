package repository

import (
	"context"

	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
)

// DocumentRepository persists documents and their embeddings. All reads and
// writes are scoped to the owning user.
type DocumentRepository interface {
	Create(ctx context.Context, doc *docdomain.Document) error
	// Update rewrites name, content and embedding. Returns false when the
	// document does not exist for this user.
	Update(ctx context.Context, doc *docdomain.Document) (bool, error)
	FindByID(ctx context.Context, userID, docID uint) (*docdomain.Document, error)
	FindByIDs(ctx context.Context, userID uint, docIDs []uint) ([]docdomain.Document, error)
	List(ctx context.Context, userID uint, offset, limit int) ([]docdomain.Document, error)
	Delete(ctx context.Context, userID, docID uint) (bool, error)
	// SearchByEmbedding returns up to k of the user's documents nearest to
	// embedding by cosine distance, nearest first.
	SearchByEmbedding(ctx context.Context, userID uint, embedding []float32, k int) ([]docdomain.RetrievedContext, error)
}
