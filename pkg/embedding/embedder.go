package embedding

import (
	"context"
	"fmt"
	"log"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	defaultef "github.com/amikos-tech/chroma-go/pkg/embeddings/default_ef"
)

// Dimensions of the all-MiniLM-L6-v2 model behind the default embedding function.
const Dimensions = 384

// LocalEmbedder runs the ONNX all-MiniLM-L6-v2 model in process.
type LocalEmbedder struct {
	ef    embeddings.EmbeddingFunction
	close func() error
}

// NewLocalEmbedder loads the model. The first call downloads the model and
// runtime into the local cache.
func NewLocalEmbedder() (*LocalEmbedder, error) {
	ef, closeFn, err := defaultef.NewDefaultEmbeddingFunction()
	if err != nil {
		return nil, fmt.Errorf("failed to create default embedding function: %w", err)
	}
	log.Printf("[Embedding] Local embedding function ready (%d dimensions)", Dimensions)
	return &LocalEmbedder{ef: ef, close: closeFn}, nil
}

// Embed returns the embedding of a single text.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := e.ef.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	vec := emb.ContentAsFloat32()
	if len(vec) != Dimensions {
		return nil, fmt.Errorf("embedding function returned %d dimensions, want %d", len(vec), Dimensions)
	}
	return vec, nil
}

// Function exposes the underlying embedding function so a vector index can
// embed with exactly the same model.
func (e *LocalEmbedder) Function() embeddings.EmbeddingFunction {
	return e.ef
}

func (e *LocalEmbedder) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}
