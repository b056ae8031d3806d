package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-retrieval-platform/internal/vector"
	"knowledge-retrieval-platform/models"
)

func TestDeleteDocumentRemovesVectorsAndMetadata(t *testing.T) {
	p := newTestPipeline()
	ctx := context.Background()

	p.addDocument(t, "doc-1", "org-1", "Doomed",
		"first chunk of content", "second chunk of content")
	require.NoError(t, p.indexer.IndexDocument(ctx, "doc-1", "org-1"))

	require.NoError(t, p.deleter.DeleteDocument(ctx, "doc-1"))

	_, err := p.metadata.GetDocument(ctx, "doc-1")
	require.ErrorIs(t, err, models.ErrNotFound)

	chunks, err := p.metadata.ListChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	remaining, err := p.vectors.Count(ctx, vector.Filter{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
}

func TestDeleteDocumentProceedsWhenVectorDeleteFails(t *testing.T) {
	p := newTestPipeline()
	ctx := context.Background()

	p.addDocument(t, "doc-1", "org-1", "Doomed", "some content here")
	require.NoError(t, p.indexer.IndexDocument(ctx, "doc-1", "org-1"))

	p.vectors.deleteByErr = errors.New("vector store unavailable")

	require.NoError(t, p.deleter.DeleteDocument(ctx, "doc-1"))

	// Metadata is gone; the stranded vector is the reconciler's problem
	_, err := p.metadata.GetDocument(ctx, "doc-1")
	require.ErrorIs(t, err, models.ErrNotFound)

	stranded, err := p.vectors.Count(ctx, vector.Filter{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stranded)
}

func TestDeleteUnknownDocument(t *testing.T) {
	p := newTestPipeline()

	err := p.deleter.DeleteDocument(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteDocumentVectorsReportsCount(t *testing.T) {
	p := newTestPipeline()
	ctx := context.Background()

	p.addDocument(t, "doc-1", "org-1", "T", "chunk one", "chunk two", "chunk three")
	require.NoError(t, p.indexer.IndexDocument(ctx, "doc-1", "org-1"))

	deleted, err := p.deleter.DeleteDocumentVectors(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

// A failed vector delete strands the document's vectors; a later sweep must
// remove all of them and report a clean run.
func TestDeletionAndReconcileConverge(t *testing.T) {
	p := newTestPipeline()
	ctx := context.Background()

	p.addDocument(t, "doc-1", "org-1", "Doomed",
		"alpine glaciers and moraines",
		"zebra quagga wildebeest migration",
		"harbor cranes and container ships")
	require.NoError(t, p.indexer.IndexDocument(ctx, "doc-1", "org-1"))

	hits, err := p.semantic.Search(ctx, "zebra quagga wildebeest", "org-1", 1, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1-chunk-b", hits[0].ChunkID)
	assert.GreaterOrEqual(t, hits[0].Score, 0.5)

	p.vectors.deleteByErr = errors.New("vector store unavailable")
	require.NoError(t, p.deleter.DeleteDocument(ctx, "doc-1"))
	p.vectors.deleteByErr = nil

	stats, err := p.reconciler.CleanupOrphanedVectors(ctx, "org-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Scanned, 3)
	assert.Equal(t, 3, stats.Orphaned)
	assert.Equal(t, 3, stats.Deleted)
	assert.Equal(t, 0, stats.Errors)

	remaining, err := p.vectors.Count(ctx, vector.Filter{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	results, err := p.semantic.Search(ctx, "zebra quagga wildebeest", "org-1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}
