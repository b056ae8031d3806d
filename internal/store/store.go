package store

import (
	"context"

	"knowledge-retrieval-platform/models"
)

// MetadataStore owns Document and Chunk persistence. It offers single-entity
// guarantees only; there is no cross-store transaction with the vector index.
type MetadataStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// DocumentExists is the reconciler's existence check. It must always hit
	// current store state, never a cached snapshot.
	DocumentExists(ctx context.Context, id string) (bool, error)
	SetStatus(ctx context.Context, id, status, errorMessage string) error
	SetIndexStatus(ctx context.Context, id, indexStatus string) error
	MarkCompleted(ctx context.Context, id string, chunkCount int) error
	// DeleteDocument removes the document and cascades to its chunks.
	DeleteDocument(ctx context.Context, id string) error

	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	// ListChunks returns a document's chunks ordered by chunk index, content
	// decompressed.
	ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]models.Chunk, error)
	// MatchChunksByTerms returns org-scoped chunks whose term set intersects
	// the given keywords.
	MatchChunksByTerms(ctx context.Context, organizationID string, keywords []string, limit int) ([]models.Chunk, error)

	// ListOrganizations returns the distinct organization ids with documents,
	// used to drive per-tenant reconciliation sweeps.
	ListOrganizations(ctx context.Context) ([]string, error)
}
