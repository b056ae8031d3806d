package services

import (
	"context"

	"knowledge-retrieval-platform/internal/logger"
	"knowledge-retrieval-platform/internal/store"
	"knowledge-retrieval-platform/internal/vector"
)

// Deleter coordinates cross-store document deletion. Vector deletion is
// attempted first and is best-effort; metadata deletion is authoritative and
// always proceeds. Vectors that survive a failed delete are orphans for the
// reconciler, not an error for the caller. Making this transactional would
// couple two independently-failing stores.
type Deleter struct {
	store   store.MetadataStore
	vectors vector.Store
}

func NewDeleter(metadataStore store.MetadataStore, vectors vector.Store) *Deleter {
	return &Deleter{store: metadataStore, vectors: vectors}
}

// DeleteDocumentVectors removes all vector records for a document and
// reports how many were deleted.
func (d *Deleter) DeleteDocumentVectors(ctx context.Context, documentID string) (int64, error) {
	return d.vectors.DeleteByFilter(ctx, vector.Filter{DocumentID: documentID})
}

// DeleteDocument removes a document: vectors first (logged, never blocking),
// then the document row cascading to its chunks.
func (d *Deleter) DeleteDocument(ctx context.Context, documentID string) error {
	deleted, err := d.DeleteDocumentVectors(ctx, documentID)
	if err != nil {
		logger.Warn("Vector deletion failed, reconciler will clean up",
			"document_id", documentID, "error", err)
	} else {
		logger.Info("Vectors deleted", "document_id", documentID, "deleted", deleted)
	}

	return d.store.DeleteDocument(ctx, documentID)
}
