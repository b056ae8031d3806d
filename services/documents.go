package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"knowledge-retrieval-platform/internal/logger"
	"knowledge-retrieval-platform/internal/store"
	"knowledge-retrieval-platform/internal/telemetry"
	"knowledge-retrieval-platform/models"
)

// IndexEnqueuer hands indexing jobs to the background queue. When no queue
// is wired the pipeline falls back to a detached goroutine.
type IndexEnqueuer interface {
	EnqueueIndexDocument(ctx context.Context, documentID, organizationID string) error
}

// DocumentService drives the ingest pipeline: extract, chunk, persist,
// then kick off indexing in the background. The caller observes status
// "completed" once chunks are persisted; searchability follows
// asynchronously and is reported via IndexStatus.
type DocumentService struct {
	store     store.MetadataStore
	extractor Extractor
	chunker   *Chunker
	indexer   *Indexer
	enqueuer  IndexEnqueuer
	analytics *Analytics
	metrics   *telemetry.Metrics
}

func NewDocumentService(
	metadataStore store.MetadataStore,
	extractor Extractor,
	chunker *Chunker,
	indexer *Indexer,
	enqueuer IndexEnqueuer,
	analytics *Analytics,
	metrics *telemetry.Metrics,
) *DocumentService {
	return &DocumentService{
		store:     metadataStore,
		extractor: extractor,
		chunker:   chunker,
		indexer:   indexer,
		enqueuer:  enqueuer,
		analytics: analytics,
		metrics:   metrics,
	}
}

// CreateDocument registers a pending document for an organization.
func (ds *DocumentService) CreateDocument(ctx context.Context, organizationID, title, contentType string) (*models.Document, error) {
	doc := &models.Document{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Title:          title,
		ContentType:    contentType,
		Status:         models.StatusPending,
		IndexStatus:    models.IndexPending,
		UploadedAt:     time.Now(),
	}
	if err := ds.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ProcessDocument extracts, chunks and persists a document's content, then
// launches indexing without awaiting it. Extraction failures are recorded on
// the document and returned; indexing failures are not visible here.
func (ds *DocumentService) ProcessDocument(ctx context.Context, documentID string, raw []byte) error {
	doc, err := ds.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := ds.store.SetStatus(ctx, documentID, models.StatusProcessing, ""); err != nil {
		return err
	}

	text, err := ds.extractor.ExtractText(doc.ContentType, raw)
	if err != nil {
		var extractionErr *models.ExtractionError
		if errors.As(err, &extractionErr) {
			if statusErr := ds.store.SetStatus(ctx, documentID, models.StatusFailed, extractionErr.Error()); statusErr != nil {
				logger.Error("Failed to record extraction failure", "document_id", documentID, "error", statusErr)
			}
		}
		return err
	}

	pieces := ds.chunker.Split(text)
	chunks := make([]models.Chunk, len(pieces))
	now := time.Now()
	for i, piece := range pieces {
		chunks[i] = models.Chunk{
			ID:             uuid.NewString(),
			DocumentID:     documentID,
			OrganizationID: doc.OrganizationID,
			ChunkIndex:     i,
			Content:        piece.Content,
			TokenCount:     estimateTokens(piece.Content),
			Terms:          Tokenize(piece.Content),
			Metadata: models.ChunkMetadata{
				Keywords:  TopKeywords(piece.Content, 5),
				CharCount: piece.CharCount,
				WordCount: piece.WordCount,
			},
			CreatedAt: now,
		}
	}

	if err := ds.store.InsertChunks(ctx, chunks); err != nil {
		if statusErr := ds.store.SetStatus(ctx, documentID, models.StatusFailed, err.Error()); statusErr != nil {
			logger.Error("Failed to record chunk persistence failure", "document_id", documentID, "error", statusErr)
		}
		return err
	}

	if err := ds.store.MarkCompleted(ctx, documentID, len(chunks)); err != nil {
		return err
	}

	if ds.metrics != nil {
		ds.metrics.DocumentsProcessed.Add(ctx, 1)
		ds.metrics.ChunksPersisted.Add(ctx, int64(len(chunks)))
	}

	ds.launchIndexing(ctx, documentID, doc.OrganizationID)
	return nil
}

// launchIndexing prefers the job queue (bounded retries, observable).
// Without one it degrades to fire-and-forget: failures are logged, never
// surfaced to the processing caller.
func (ds *DocumentService) launchIndexing(ctx context.Context, documentID, organizationID string) {
	if ds.enqueuer != nil {
		if err := ds.enqueuer.EnqueueIndexDocument(ctx, documentID, organizationID); err != nil {
			logger.Error("Failed to enqueue indexing job",
				"document_id", documentID, "error", err)
		}
		return
	}

	go func() {
		// Detached from the request context on purpose; indexing outlives
		// the caller.
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := ds.indexer.IndexDocument(bgCtx, documentID, organizationID); err != nil {
			logger.Error("Background indexing failed",
				"document_id", documentID,
				"organization_id", organizationID,
				"error", err)
		} else if ds.analytics != nil {
			ds.analytics.RecordDocumentIndexed(bgCtx, organizationID)
		}
	}()
}

// estimateTokens approximates the token count of text (roughly 4 chars per
// token for English).
func estimateTokens(text string) int {
	return len(text) / 4
}
