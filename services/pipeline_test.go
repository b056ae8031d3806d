package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"knowledge-retrieval-platform/models"
)

// testPipeline wires the retrieval core onto in-memory fakes.
type testPipeline struct {
	metadata   *fakeMetadataStore
	vectors    *fakeVectorStore
	embedder   *fakeEmbedder
	indexer    *Indexer
	semantic   *SemanticSearch
	keyword    *KeywordSearch
	hybrid     *HybridSearch
	deleter    *Deleter
	reconciler *Reconciler
}

func newTestPipeline() *testPipeline {
	metadata := newFakeMetadataStore()
	vectors := newFakeVectorStore()
	embedder := newFakeEmbedder()

	indexer := NewIndexer(metadata, vectors, embedder, nil)
	semantic := NewSemanticSearch(embedder, vectors, nil, nil)
	keyword := NewKeywordSearch(metadata)
	hybrid := NewHybridSearch(semantic, keyword, metadata, nil, nil)
	deleter := NewDeleter(metadata, vectors)
	reconciler := NewReconciler(metadata, vectors, 2, nil, nil)

	return &testPipeline{
		metadata:   metadata,
		vectors:    vectors,
		embedder:   embedder,
		indexer:    indexer,
		semantic:   semantic,
		keyword:    keyword,
		hybrid:     hybrid,
		deleter:    deleter,
		reconciler: reconciler,
	}
}

// addDocument persists a completed document with one chunk per content
// string and returns it.
func (p *testPipeline) addDocument(t *testing.T, id, organizationID, title string, contents ...string) *models.Document {
	t.Helper()
	ctx := context.Background()

	doc := &models.Document{
		ID:             id,
		OrganizationID: organizationID,
		Title:          title,
		ContentType:    "text/plain",
		Status:         models.StatusCompleted,
		IndexStatus:    models.IndexPending,
		ChunkCount:     len(contents),
		UploadedAt:     time.Now(),
	}
	require.NoError(t, p.metadata.CreateDocument(ctx, doc))

	chunks := make([]models.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = models.Chunk{
			ID:             id + "-chunk-" + string(rune('a'+i)),
			DocumentID:     id,
			OrganizationID: organizationID,
			ChunkIndex:     i,
			Content:        content,
			Terms:          Tokenize(content),
			Metadata: models.ChunkMetadata{
				CharCount: len(content),
			},
		}
	}
	require.NoError(t, p.metadata.InsertChunks(ctx, chunks))
	return doc
}
