package usecase

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/tgrozenski/agent-email/internal/apperr"
	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
	"github.com/tgrozenski/agent-email/internal/document/repository"

	"github.com/pgvector/pgvector-go"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type documentUsecase struct {
	repo     repository.DocumentRepository
	embedder docdomain.Embedder
	index    SemanticIndex
}

// NewDocumentUsecase creates a new instance of documentUsecase. index may be
// nil when no external vector index is configured.
func NewDocumentUsecase(repo repository.DocumentRepository, embedder docdomain.Embedder, index SemanticIndex) DocumentUsecase {
	return &documentUsecase{
		repo:     repo,
		embedder: embedder,
		index:    index,
	}
}

// ValidateDocument enforces the combined name and content length ceiling.
func ValidateDocument(name, content string) error {
	if name == "" {
		return &apperr.ValidationError{Message: "document name is required"}
	}
	if n := utf8.RuneCountInString(name) + utf8.RuneCountInString(content); n > docdomain.MaxDocumentLength {
		return &apperr.ValidationError{Message: fmt.Sprintf(
			"document is %d characters, the maximum is %d (name + content)", n, docdomain.MaxDocumentLength)}
	}
	return nil
}

func (u *documentUsecase) Save(ctx context.Context, userID uint, name, content string, docID *uint) (*docdomain.Document, error) {
	// validation happens before any embedding work
	if err := ValidateDocument(name, content); err != nil {
		return nil, err
	}

	doc := &docdomain.Document{UserID: userID, Name: name, Content: content}
	embedding, err := embed(ctx, u.embedder, doc.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("failed to embed document: %w", err)
	}
	vec := pgvector.NewVector(embedding)
	doc.Embedding = &vec

	if docID != nil {
		doc.ID = *docID
		updated, err := u.repo.Update(ctx, doc)
		if err != nil {
			return nil, err
		}
		if !updated {
			return nil, docdomain.ErrDocumentNotFound
		}
	} else if err := u.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	if u.index != nil {
		if err := u.index.UpsertDocument(ctx, doc.ID, userID, doc.EmbeddingText()); err != nil {
			log.Printf("[Documents] Failed to mirror document %d to index: %v", doc.ID, err)
		}
	}
	return doc, nil
}

func (u *documentUsecase) List(ctx context.Context, userID uint, offset, limit int) ([]docdomain.Document, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return u.repo.List(ctx, userID, offset, limit)
}

func (u *documentUsecase) Get(ctx context.Context, userID, docID uint) (*docdomain.Document, error) {
	doc, err := u.repo.FindByID(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, docdomain.ErrDocumentNotFound
	}
	return doc, nil
}

func (u *documentUsecase) Delete(ctx context.Context, userID, docID uint) error {
	deleted, err := u.repo.Delete(ctx, userID, docID)
	if err != nil {
		return err
	}
	if !deleted {
		return docdomain.ErrDocumentNotFound
	}
	if u.index != nil {
		if err := u.index.DeleteDocument(ctx, docID); err != nil {
			log.Printf("[Documents] Failed to remove document %d from index: %v", docID, err)
		}
	}
	return nil
}

func embed(ctx context.Context, embedder docdomain.Embedder, text string) ([]float32, error) {
	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != docdomain.EmbeddingDimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), docdomain.EmbeddingDimensions)
	}
	return vec, nil
}
