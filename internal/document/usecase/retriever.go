package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
	"github.com/tgrozenski/agent-email/internal/document/repository"
)

// DocumentSearcher finds a user's documents nearest to a query. Backends
// use whichever of the query text or its embedding they index by.
type DocumentSearcher interface {
	Search(ctx context.Context, userID uint, query string, embedding []float32, k int) ([]docdomain.RetrievedContext, error)
}

// ContextRetriever selects the documents most relevant to an inbound message.
type ContextRetriever struct {
	embedder docdomain.Embedder
	searcher DocumentSearcher
}

func NewContextRetriever(embedder docdomain.Embedder, searcher DocumentSearcher) *ContextRetriever {
	return &ContextRetriever{embedder: embedder, searcher: searcher}
}

// Retrieve returns at most k of the user's documents ordered by descending
// similarity. Documents of other users are never returned.
func (r *ContextRetriever) Retrieve(ctx context.Context, userID uint, query string, k int) ([]docdomain.RetrievedContext, error) {
	if k <= 0 {
		return []docdomain.RetrievedContext{}, nil
	}

	embedding, err := embed(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.searcher.Search(ctx, userID, query, embedding, k)
	if err != nil {
		return nil, err
	}
	if len(results) > k {
		results = results[:k]
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	for i := range results {
		results[i].Similarity = roundSimilarity(results[i].Similarity)
	}
	return results, nil
}

func roundSimilarity(s float64) float64 {
	return math.Round(s*1e4) / 1e4
}

// VectorSearcher searches the pgvector column of the document table.
type VectorSearcher struct {
	repo repository.DocumentRepository
}

func NewVectorSearcher(repo repository.DocumentRepository) *VectorSearcher {
	return &VectorSearcher{repo: repo}
}

func (s *VectorSearcher) Search(ctx context.Context, userID uint, _ string, embedding []float32, k int) ([]docdomain.RetrievedContext, error) {
	return s.repo.SearchByEmbedding(ctx, userID, embedding, k)
}

// IndexSearcher queries the external semantic index and loads the matching
// documents from the repository. The index must use cosine space.
type IndexSearcher struct {
	index SemanticIndex
	repo  repository.DocumentRepository
}

func NewIndexSearcher(index SemanticIndex, repo repository.DocumentRepository) *IndexSearcher {
	return &IndexSearcher{index: index, repo: repo}
}

func (s *IndexSearcher) Search(ctx context.Context, userID uint, query string, _ []float32, k int) ([]docdomain.RetrievedContext, error) {
	ids, distances, err := s.index.SemanticSearch(ctx, userID, query, k)
	if err != nil {
		return nil, fmt.Errorf("semantic index search failed: %w", err)
	}

	docs, err := s.repo.FindByIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]docdomain.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	results := make([]docdomain.RetrievedContext, 0, len(ids))
	for i, id := range ids {
		doc, ok := byID[id]
		if !ok || i >= len(distances) {
			// stale index entry, or one belonging to a different user
			continue
		}
		results = append(results, docdomain.RetrievedContext{
			DocID:      doc.ID,
			Name:       doc.Name,
			Content:    doc.Content,
			Similarity: 1 - distances[i],
		})
	}
	return results, nil
}
