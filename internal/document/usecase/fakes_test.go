package usecase

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
)

// bagOfWordsEmbedder hashes words into a normalized 384-dimension vector, so
// texts sharing vocabulary end up close in cosine space.
type bagOfWordsEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *bagOfWordsEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	vec := make([]float32, docdomain.EmbeddingDimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%docdomain.EmbeddingDimensions]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / math.Sqrt(norm))
	}
	return vec, nil
}

func (e *bagOfWordsEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fixedEmbedder struct {
	vec []float32
	err error
}

func (e fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vec, e.err
}

// memoryDocumentRepo is an in-memory DocumentRepository with exact cosine search.
type memoryDocumentRepo struct {
	mu     sync.Mutex
	nextID uint
	docs   map[uint]docdomain.Document
}

func newMemoryDocumentRepo() *memoryDocumentRepo {
	return &memoryDocumentRepo{docs: map[uint]docdomain.Document{}}
}

func (r *memoryDocumentRepo) Create(_ context.Context, doc *docdomain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	doc.ID = r.nextID
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memoryDocumentRepo) Update(_ context.Context, doc *docdomain.Document) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.docs[doc.ID]
	if !ok || existing.UserID != doc.UserID {
		return false, nil
	}
	r.docs[doc.ID] = *doc
	return true, nil
}

func (r *memoryDocumentRepo) FindByID(_ context.Context, userID, docID uint) (*docdomain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok || doc.UserID != userID {
		return nil, nil
	}
	return &doc, nil
}

func (r *memoryDocumentRepo) FindByIDs(_ context.Context, userID uint, docIDs []uint) ([]docdomain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []docdomain.Document
	for _, id := range docIDs {
		if doc, ok := r.docs[id]; ok && doc.UserID == userID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *memoryDocumentRepo) List(_ context.Context, userID uint, offset, limit int) ([]docdomain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []docdomain.Document
	for _, doc := range r.docs {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []docdomain.Document{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryDocumentRepo) Delete(_ context.Context, userID, docID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok || doc.UserID != userID {
		return false, nil
	}
	delete(r.docs, docID)
	return true, nil
}

func (r *memoryDocumentRepo) SearchByEmbedding(_ context.Context, userID uint, embedding []float32, k int) ([]docdomain.RetrievedContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []docdomain.RetrievedContext
	for _, doc := range r.docs {
		if doc.UserID != userID || doc.Embedding == nil {
			continue
		}
		out = append(out, docdomain.RetrievedContext{
			DocID:      doc.ID,
			Name:       doc.Name,
			Content:    doc.Content,
			Similarity: cosine(embedding, doc.Embedding.Slice()),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].DocID < out[j].DocID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type recordingIndex struct {
	upserts   []uint
	deletes   []uint
	ids       []uint
	distances []float64
	err       error
}

func (i *recordingIndex) UpsertDocument(_ context.Context, docID, _ uint, _ string) error {
	i.upserts = append(i.upserts, docID)
	return nil
}

func (i *recordingIndex) DeleteDocument(_ context.Context, docID uint) error {
	i.deletes = append(i.deletes, docID)
	return nil
}

func (i *recordingIndex) SemanticSearch(context.Context, uint, string, int) ([]uint, []float64, error) {
	return i.ids, i.distances, i.err
}
