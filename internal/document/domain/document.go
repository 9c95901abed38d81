package domain

import (
	"context"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
)

const (
	// MaxDocumentLength bounds name plus content, in characters.
	MaxDocumentLength = 2000
	// EmbeddingDimensions is the vector size produced by the embedding function.
	EmbeddingDimensions = 384
)

var ErrDocumentNotFound = errors.New("document not found")

// Document is a user-owned piece of reference text used as drafting context.
type Document struct {
	ID        uint             `json:"doc_id" gorm:"primaryKey;column:doc_id"`
	UserID    uint             `json:"user_id" gorm:"index;not null"`
	Name      string           `json:"doc_name" gorm:"column:document_name;not null"`
	Content   string           `json:"text_content" gorm:"type:text"`
	Embedding *pgvector.Vector `json:"-" gorm:"type:vector(384)"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// EmbeddingText is the text the stored embedding is computed from.
func (d *Document) EmbeddingText() string {
	return d.Name + "\n" + d.Content
}

// RetrievedContext is one document returned by similarity search.
// Similarity is 1 - cosine distance, rounded to 4 decimal places.
type RetrievedContext struct {
	DocID      uint    `json:"doc_id"`
	Name       string  `json:"doc_name"`
	Content    string  `json:"text_content"`
	Similarity float64 `json:"similarity"`
}

// Embedder maps text to a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
