package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-retrieval-platform/models"
)

type enqueuedJob struct {
	documentID     string
	organizationID string
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []enqueuedJob
	err  error
}

func (f *fakeEnqueuer) EnqueueIndexDocument(_ context.Context, documentID, organizationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, enqueuedJob{documentID, organizationID})
	return nil
}

func newDocumentService(p *testPipeline, enqueuer IndexEnqueuer) *DocumentService {
	return NewDocumentService(
		p.metadata,
		NewExtractor(),
		NewChunker(1000, 200, 100),
		p.indexer,
		enqueuer,
		nil,
		nil,
	)
}

func TestProcessDocumentLifecycle(t *testing.T) {
	p := newTestPipeline()
	enqueuer := &fakeEnqueuer{}
	ds := newDocumentService(p, enqueuer)
	ctx := context.Background()

	doc, err := ds.CreateDocument(ctx, "org-1", "Onboarding Guide", "text/plain")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, models.StatusPending, doc.Status)
	assert.Equal(t, models.IndexPending, doc.IndexStatus)

	raw := []byte("Retrieval systems split documents into chunks. Each chunk is embedded and stored for search.")
	require.NoError(t, ds.ProcessDocument(ctx, doc.ID, raw))

	stored, err := p.metadata.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, models.IndexPending, stored.IndexStatus)

	chunks, err := p.metadata.ListChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, stored.ChunkCount, len(chunks))
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, "org-1", chunk.OrganizationID)
		assert.NotEmpty(t, chunk.Terms)
	}

	require.Len(t, enqueuer.jobs, 1)
	assert.Equal(t, doc.ID, enqueuer.jobs[0].documentID)
	assert.Equal(t, "org-1", enqueuer.jobs[0].organizationID)
}

func TestProcessDocumentExtractionFailure(t *testing.T) {
	p := newTestPipeline()
	enqueuer := &fakeEnqueuer{}
	ds := newDocumentService(p, enqueuer)
	ctx := context.Background()

	doc, err := ds.CreateDocument(ctx, "org-1", "Broken", "application/octet-stream")
	require.NoError(t, err)

	err = ds.ProcessDocument(ctx, doc.ID, []byte("whatever"))
	require.Error(t, err)
	var extractionErr *models.ExtractionError
	require.ErrorAs(t, err, &extractionErr)

	stored, err := p.metadata.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)
	assert.Empty(t, enqueuer.jobs, "failed document must not be indexed")
}

func TestProcessDocumentUnknownID(t *testing.T) {
	p := newTestPipeline()
	ds := newDocumentService(p, &fakeEnqueuer{})

	err := ds.ProcessDocument(context.Background(), "missing", []byte("text"))
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestProcessDocumentEnqueueFailureDoesNotFailProcessing(t *testing.T) {
	p := newTestPipeline()
	enqueuer := &fakeEnqueuer{err: errors.New("queue down")}
	ds := newDocumentService(p, enqueuer)
	ctx := context.Background()

	doc, err := ds.CreateDocument(ctx, "org-1", "Guide", "text/plain")
	require.NoError(t, err)

	// Chunks are durable even when the indexing job cannot be enqueued;
	// status still reports completed.
	require.NoError(t, ds.ProcessDocument(ctx, doc.ID, []byte("Some document content to persist.")))

	stored, err := p.metadata.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}

func TestProcessedDocumentIsSearchableAfterIndexing(t *testing.T) {
	p := newTestPipeline()
	ds := newDocumentService(p, &fakeEnqueuer{})
	ctx := context.Background()

	doc, err := ds.CreateDocument(ctx, "org-1", "Search Me", "text/plain")
	require.NoError(t, err)
	require.NoError(t, ds.ProcessDocument(ctx, doc.ID,
		[]byte("Kubernetes schedules containers across nodes in a cluster.")))

	// Run the indexing step the queue worker would have picked up
	require.NoError(t, p.indexer.IndexDocument(ctx, doc.ID, "org-1"))

	stored, err := p.metadata.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IndexIndexed, stored.IndexStatus)

	results, err := p.semantic.Search(ctx, "kubernetes containers cluster", "org-1", 5, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, doc.ID, results[0].DocumentID)
	assert.Equal(t, "Search Me", results[0].Title)
}
