package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"knowledge-retrieval-platform/internal/logger"
	"knowledge-retrieval-platform/internal/store"
	"knowledge-retrieval-platform/internal/telemetry"
	"knowledge-retrieval-platform/internal/vector"
)

// CleanupStats summarizes one reconciliation sweep.
type CleanupStats struct {
	Scanned  int `json:"scanned"`
	Orphaned int `json:"orphaned"`
	Deleted  int `json:"deleted"`
	Errors   int `json:"errors"`
}

// Reconciler removes vector records whose owning document no longer exists.
// Orphans are a transient inconsistency, the expected fallout of best-effort
// deletes across two stores; sweeping converges the vector store back onto
// the metadata store.
type Reconciler struct {
	store     store.MetadataStore
	vectors   vector.Store
	pageSize  int
	metrics   *telemetry.Metrics
	analytics *Analytics
}

func NewReconciler(metadataStore store.MetadataStore, vectors vector.Store, pageSize int, metrics *telemetry.Metrics, analytics *Analytics) *Reconciler {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Reconciler{
		store:     metadataStore,
		vectors:   vectors,
		pageSize:  pageSize,
		metrics:   metrics,
		analytics: analytics,
	}
}

// CleanupOrphanedVectors pages through an organization's vector records with
// a bounded cursor and deletes any whose document is gone. Existence is
// re-queried for every page, never cached across pages, so records written
// mid-scan for live documents are never misclassified. Individual delete
// failures are counted and the sweep continues; cancellation is honored
// between pages. Safe to re-run and to run concurrently with live indexing.
func (r *Reconciler) CleanupOrphanedVectors(ctx context.Context, organizationID string) (CleanupStats, error) {
	tracer := otel.Tracer("reconciler")
	ctx, span := tracer.Start(ctx, "reconciler.cleanup_orphans")
	defer span.End()
	span.SetAttributes(attribute.String("reconciler.organization_id", organizationID))

	var stats CleanupStats
	filter := vector.Filter{OrganizationID: organizationID}
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		points, next, err := r.vectors.Scroll(ctx, filter, r.pageSize, cursor)
		if err != nil {
			return stats, err
		}
		stats.Scanned += len(points)

		// Fresh existence lookups per page; a result cached across pages
		// could misclassify a document created or deleted mid-scan.
		exists := make(map[string]bool)
		for _, point := range points {
			docID := point.Payload.DocumentID
			if _, checked := exists[docID]; !checked {
				ok, err := r.store.DocumentExists(ctx, docID)
				if err != nil {
					stats.Errors++
					logger.Warn("Existence check failed, keeping vector",
						"chunk_id", point.ID, "document_id", docID, "error", err)
					// Treat as existing; the next sweep retries
					ok = true
				}
				exists[docID] = ok
			}
			if exists[docID] {
				continue
			}

			stats.Orphaned++
			if err := r.vectors.DeleteIDs(ctx, []string{point.ID}); err != nil {
				stats.Errors++
				logger.Warn("Orphan delete failed",
					"chunk_id", point.ID, "document_id", docID, "error", err)
				continue
			}
			stats.Deleted++
		}

		if next == "" {
			break
		}
		cursor = next
	}

	if r.metrics != nil && stats.Deleted > 0 {
		r.metrics.OrphansRemoved.Add(ctx, int64(stats.Deleted))
	}
	if r.analytics != nil && stats.Deleted > 0 {
		r.analytics.RecordVectorsReclaimed(ctx, organizationID, stats.Deleted)
	}

	logger.Info("Reconciliation sweep finished",
		"organization_id", organizationID,
		"scanned", stats.Scanned,
		"orphaned", stats.Orphaned,
		"deleted", stats.Deleted,
		"errors", stats.Errors)
	span.SetAttributes(
		attribute.Int("reconciler.scanned", stats.Scanned),
		attribute.Int("reconciler.deleted", stats.Deleted),
		attribute.Int("reconciler.errors", stats.Errors),
	)
	return stats, nil
}
