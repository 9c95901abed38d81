package chroma

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/tgrozenski/agent-email/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

const collectionName = "documents"

// ChromaClient mirrors user documents into a Chroma collection and serves
// per-user semantic search over it.
type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
}

// NewChromaClient connects to Chroma (a self-hosted URL or Chroma Cloud) and
// prepares a cosine-space collection embedded with embedFunc.
func NewChromaClient(ctx context.Context, cfg *config.Config, embedFunc embeddings.EmbeddingFunction) (*ChromaClient, error) {
	baseURL := cfg.ChromaURL
	if baseURL == "" {
		baseURL = chroma.ChromaCloudEndpoint
	}

	opts := []chroma.ClientOption{chroma.WithBaseURL(baseURL)}
	if cfg.ChromaAPIKey != "" {
		opts = append(opts, chroma.WithCloudAPIKey(cfg.ChromaAPIKey))
	}
	if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
		opts = append(opts, chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	} else if cfg.ChromaTenant != "" {
		opts = append(opts, chroma.WithTenant(cfg.ChromaTenant))
	}

	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
		chroma.WithHNSWSpaceCreate(embeddings.COSINE),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized client with collection: %s", collectionName)
	return &ChromaClient{
		client:     client,
		collection: collection,
	}, nil
}

// UpsertDocument adds or replaces the index entry for a document.
func (c *ChromaClient) UpsertDocument(ctx context.Context, docID, userID uint, text string) error {
	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id": formatID(userID),
		"doc_id":  formatID(docID),
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(formatID(docID))),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document embedding: %w", err)
	}
	return nil
}

func (c *ChromaClient) DeleteDocument(ctx context.Context, docID uint) error {
	if err := c.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(formatID(docID)))); err != nil {
		return fmt.Errorf("failed to delete document embedding: %w", err)
	}
	return nil
}

// SemanticSearch returns the ids of the user's nearest documents together
// with their cosine distances, nearest first.
func (c *ChromaClient) SemanticSearch(ctx context.Context, userID uint, query string, limit int) ([]uint, []float64, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", formatID(userID))),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []uint{}, []float64{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(distanceGroups) == 0 {
		return []uint{}, []float64{}, nil
	}

	ids := make([]uint, 0, len(idGroups[0]))
	distances := make([]float64, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		if i >= len(distanceGroups[0]) {
			break
		}
		parsed, err := strconv.ParseUint(string(id), 10, 64)
		if err != nil {
			log.Printf("[Chroma] Skipping foreign entry %q in collection %s", id, collectionName)
			continue
		}
		ids = append(ids, uint(parsed))
		distances = append(distances, float64(distanceGroups[0][i]))
	}
	return ids, distances, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
