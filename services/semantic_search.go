package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"knowledge-retrieval-platform/internal/ai"
	"knowledge-retrieval-platform/internal/telemetry"
	"knowledge-retrieval-platform/internal/vector"
	"knowledge-retrieval-platform/models"
)

// SemanticSearch runs nearest-neighbor queries against the vector store.
// Every query carries the organization filter; tenant isolation lives at
// this boundary, not in the storage layout.
type SemanticSearch struct {
	embedder  ai.EmbeddingClient
	vectors   vector.Store
	metrics   *telemetry.Metrics
	analytics *Analytics
}

func NewSemanticSearch(embedder ai.EmbeddingClient, vectors vector.Store, metrics *telemetry.Metrics, analytics *Analytics) *SemanticSearch {
	return &SemanticSearch{
		embedder:  embedder,
		vectors:   vectors,
		metrics:   metrics,
		analytics: analytics,
	}
}

// Search embeds the query and returns up to limit results with score >=
// scoreThreshold, sorted by similarity descending. Nothing clearing the
// threshold yields an empty slice, not an error.
func (s *SemanticSearch) Search(ctx context.Context, query, organizationID string, limit int, scoreThreshold float64) ([]models.SearchResult, error) {
	tracer := otel.Tracer("semantic-search")
	ctx, span := tracer.Start(ctx, "search.semantic")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.organization_id", organizationID),
		attribute.Int("search.limit", limit),
		attribute.Float64("search.threshold", scoreThreshold),
	)
	start := time.Now()

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.vectors.Search(ctx, queryVector, vector.Filter{OrganizationID: organizationID}, limit, scoreThreshold)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, models.SearchResult{
			ChunkID:    hit.ID,
			DocumentID: hit.Payload.DocumentID,
			Title:      hit.Payload.Title,
			Content:    hit.Payload.Content,
			ChunkIndex: hit.Payload.ChunkIndex,
			Score:      hit.Score,
		})
	}

	span.SetAttributes(attribute.Int("search.results", len(results)))
	s.metrics.RecordSearch(ctx, "semantic", time.Since(start).Seconds(), len(results))
	if s.analytics != nil {
		s.analytics.RecordSearch(ctx, organizationID, "semantic")
	}
	return results, nil
}
