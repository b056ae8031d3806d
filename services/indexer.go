package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"knowledge-retrieval-platform/internal/ai"
	"knowledge-retrieval-platform/internal/logger"
	"knowledge-retrieval-platform/internal/store"
	"knowledge-retrieval-platform/internal/telemetry"
	"knowledge-retrieval-platform/internal/vector"
	"knowledge-retrieval-platform/models"
)

// Indexer embeds a document's chunks and upserts one vector record per
// chunk. Vector ids are chunk ids, so re-running indexing overwrites
// instead of duplicating; concurrent runs for different documents need no
// coordination.
type Indexer struct {
	store    store.MetadataStore
	vectors  vector.Store
	embedder ai.EmbeddingClient
	metrics  *telemetry.Metrics
}

func NewIndexer(metadataStore store.MetadataStore, vectors vector.Store, embedder ai.EmbeddingClient, metrics *telemetry.Metrics) *Indexer {
	return &Indexer{
		store:    metadataStore,
		vectors:  vectors,
		embedder: embedder,
		metrics:  metrics,
	}
}

// IndexDocument loads the document's chunks in order, embeds their content
// in batches and upserts the vectors. On failure the document's index status
// is set to failed and the error returned; the queue layer decides whether
// to retry.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID, organizationID string) error {
	tracer := otel.Tracer("indexer")
	ctx, span := tracer.Start(ctx, "indexer.index_document")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", documentID),
		attribute.String("document.organization_id", organizationID),
	)
	start := time.Now()

	err := ix.index(ctx, documentID, organizationID)
	if err != nil {
		span.SetAttributes(attribute.Bool("indexer.failed", true))
		if ix.metrics != nil {
			ix.metrics.IndexFailures.Add(ctx, 1)
		}
		if statusErr := ix.store.SetIndexStatus(ctx, documentID, models.IndexFailed); statusErr != nil {
			logger.Error("Failed to record index failure", "document_id", documentID, "error", statusErr)
		}
		return err
	}

	if ix.metrics != nil {
		ix.metrics.IndexDuration.Record(ctx, time.Since(start).Seconds())
	}
	return ix.store.SetIndexStatus(ctx, documentID, models.IndexIndexed)
}

func (ix *Indexer) index(ctx context.Context, documentID, organizationID string) error {
	doc, err := ix.store.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc.OrganizationID != organizationID {
		return fmt.Errorf("document %s: %w", documentID, models.ErrNotFound)
	}

	chunks, err := ix.store.ListChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load chunks for %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedded %d of %d chunks for %s", len(vectors), len(chunks), documentID)
	}
	if ix.metrics != nil {
		ix.metrics.EmbeddingCalls.Add(ctx, 1)
	}

	points := make([]vector.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vector.Point{
			ID:     chunk.ID,
			Vector: vectors[i],
			Payload: vector.Payload{
				DocumentID:     chunk.DocumentID,
				OrganizationID: chunk.OrganizationID,
				Content:        chunk.Content,
				Title:          doc.Title,
				ChunkIndex:     chunk.ChunkIndex,
			},
		}
	}

	if err := ix.vectors.Upsert(ctx, points); err != nil {
		return err
	}

	logger.Info("Document indexed",
		"document_id", documentID,
		"organization_id", organizationID,
		"chunks", len(chunks))
	return nil
}
