package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"

	"knowledge-retrieval-platform/internal/vector"
	"knowledge-retrieval-platform/models"
)

// fakeEmbedder produces deterministic bag-of-words vectors so texts sharing
// tokens land near each other in cosine space.
type fakeEmbedder struct {
	dim     int
	failure error
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dim: 16} }

func (f *fakeEmbedder) Dimensions() int { return f.dim }

func (f *fakeEmbedder) embed(text string) []float32 {
	vec := make([]float32, f.dim)
	for _, token := range Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(f.dim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if f.failure != nil {
		return nil, f.failure
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.embed(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.failure != nil {
		return nil, f.failure
	}
	return f.embed(text), nil
}

// fakeVectorStore is an in-memory vector.Store with cosine search and
// injectable failures.
type fakeVectorStore struct {
	mu            sync.Mutex
	points        map[string]vector.Point
	upsertErr     error
	scrollErr     error
	failDeleteIDs map[string]bool
	deleteByErr   error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		points:        make(map[string]vector.Point),
		failDeleteIDs: make(map[string]bool),
	}
}

func (f *fakeVectorStore) Upsert(_ context.Context, points []vector.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, p := range points {
		f.points[p.ID] = p
	}
	return nil
}

func matchesFilter(p vector.Point, filter vector.Filter) bool {
	if filter.OrganizationID != "" && p.Payload.OrganizationID != filter.OrganizationID {
		return false
	}
	if filter.DocumentID != "" && p.Payload.DocumentID != filter.DocumentID {
		return false
	}
	return true
}

func (f *fakeVectorStore) Search(_ context.Context, queryVector []float32, filter vector.Filter, limit int, scoreThreshold float64) ([]vector.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var hits []vector.ScoredPoint
	for _, p := range f.points {
		if !matchesFilter(p, filter) {
			continue
		}
		score := (1 + cosine(queryVector, p.Vector)) / 2
		if score < scoreThreshold {
			continue
		}
		hits = append(hits, vector.ScoredPoint{ID: p.ID, Score: score, Payload: p.Payload})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (f *fakeVectorStore) DeleteByFilter(_ context.Context, filter vector.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteByErr != nil {
		return 0, f.deleteByErr
	}
	var deleted int64
	for id, p := range f.points {
		if matchesFilter(p, filter) {
			delete(f.points, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeVectorStore) DeleteIDs(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if f.failDeleteIDs[id] {
			return fmt.Errorf("delete %s: injected failure", id)
		}
		delete(f.points, id)
	}
	return nil
}

func (f *fakeVectorStore) Count(_ context.Context, filter vector.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.points {
		if matchesFilter(p, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeVectorStore) Scroll(_ context.Context, filter vector.Filter, limit int, cursor string) ([]vector.Point, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scrollErr != nil {
		return nil, "", f.scrollErr
	}

	ids := make([]string, 0, len(f.points))
	for id, p := range f.points {
		if !matchesFilter(p, filter) {
			continue
		}
		if cursor != "" && id <= cursor {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) > limit {
		ids = ids[:limit]
	}
	page := make([]vector.Point, len(ids))
	for i, id := range ids {
		page[i] = f.points[id]
	}
	next := ""
	if len(ids) == limit && limit > 0 {
		next = ids[len(ids)-1]
	}
	return page, next, nil
}

// fakeMetadataStore is an in-memory store.MetadataStore.
type fakeMetadataStore struct {
	mu     sync.Mutex
	docs   map[string]models.Document
	chunks map[string]models.Chunk
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		docs:   make(map[string]models.Document),
		chunks: make(map[string]models.Chunk),
	}
}

func (f *fakeMetadataStore) CreateDocument(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.Status == "" {
		doc.Status = models.StatusPending
	}
	if doc.IndexStatus == "" {
		doc.IndexStatus = models.IndexPending
	}
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeMetadataStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := doc
	return &copied, nil
}

func (f *fakeMetadataStore) DocumentExists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[id]
	return ok, nil
}

func (f *fakeMetadataStore) SetStatus(_ context.Context, id, status, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	doc.Status = status
	doc.ErrorMessage = errorMessage
	f.docs[id] = doc
	return nil
}

func (f *fakeMetadataStore) SetIndexStatus(_ context.Context, id, indexStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	doc.IndexStatus = indexStatus
	f.docs[id] = doc
	return nil
}

func (f *fakeMetadataStore) MarkCompleted(_ context.Context, id string, chunkCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	doc.Status = models.StatusCompleted
	doc.ChunkCount = chunkCount
	f.docs[id] = doc
	return nil
}

func (f *fakeMetadataStore) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.docs, id)
	for chunkID, chunk := range f.chunks {
		if chunk.DocumentID == id {
			delete(f.chunks, chunkID)
		}
	}
	return nil
}

func (f *fakeMetadataStore) InsertChunks(_ context.Context, chunks []models.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, chunk := range chunks {
		if err := chunk.Metadata.Validate(); err != nil {
			return err
		}
		f.chunks[chunk.ID] = chunk
	}
	return nil
}

func (f *fakeMetadataStore) ListChunks(_ context.Context, documentID string) ([]models.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Chunk
	for _, chunk := range f.chunks {
		if chunk.DocumentID == documentID {
			out = append(out, chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *fakeMetadataStore) GetChunks(_ context.Context, ids []string) ([]models.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Chunk
	for _, id := range ids {
		if chunk, ok := f.chunks[id]; ok {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (f *fakeMetadataStore) MatchChunksByTerms(_ context.Context, organizationID string, keywords []string, limit int) ([]models.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keywordSet := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		keywordSet[kw] = true
	}
	var out []models.Chunk
	for _, chunk := range f.chunks {
		if chunk.OrganizationID != organizationID {
			continue
		}
		for _, term := range chunk.Terms {
			if keywordSet[term] {
				out = append(out, chunk)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMetadataStore) ListOrganizations(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var orgs []string
	for _, doc := range f.docs {
		if !seen[doc.OrganizationID] {
			seen[doc.OrganizationID] = true
			orgs = append(orgs, doc.OrganizationID)
		}
	}
	sort.Strings(orgs)
	return orgs, nil
}
