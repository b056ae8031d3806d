package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"knowledge-retrieval-platform/internal/store"
	"knowledge-retrieval-platform/internal/telemetry"
	"knowledge-retrieval-platform/models"
)

// HybridSearch fuses semantic and keyword result sets.
// hybridScore = semanticScore*w + keywordScore*(1-w), merged by chunk id.
type HybridSearch struct {
	semantic  *SemanticSearch
	keyword   *KeywordSearch
	store     store.MetadataStore
	metrics   *telemetry.Metrics
	analytics *Analytics
}

func NewHybridSearch(semantic *SemanticSearch, keyword *KeywordSearch, metadataStore store.MetadataStore, metrics *telemetry.Metrics, analytics *Analytics) *HybridSearch {
	return &HybridSearch{
		semantic:  semantic,
		keyword:   keyword,
		store:     metadataStore,
		metrics:   metrics,
		analytics: analytics,
	}
}

// Search runs both branches concurrently, over-fetching limit*2 candidates
// from each so the merged ranking has room to reorder. Ties on hybrid score
// break by ascending chunk id for deterministic output.
func (h *HybridSearch) Search(ctx context.Context, query, organizationID string, limit int, semanticWeight, scoreThreshold float64) ([]models.HybridSearchResult, error) {
	if semanticWeight < 0 || semanticWeight > 1 {
		return nil, fmt.Errorf("semantic weight %v outside [0,1]", semanticWeight)
	}
	keywordWeight := 1 - semanticWeight

	tracer := otel.Tracer("hybrid-search")
	ctx, span := tracer.Start(ctx, "search.hybrid")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.organization_id", organizationID),
		attribute.Float64("search.semantic_weight", semanticWeight),
	)
	start := time.Now()

	var (
		semanticHits []models.SearchResult
		keywordHits  []models.KeywordMatch
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		semanticHits, err = h.semantic.Search(gctx, query, organizationID, limit*2, scoreThreshold)
		return err
	})
	g.Go(func() error {
		var err error
		keywordHits, err = h.keyword.Search(gctx, query, organizationID, limit*2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]*models.HybridSearchResult, len(semanticHits)+len(keywordHits))
	for _, hit := range semanticHits {
		merged[hit.ChunkID] = &models.HybridSearchResult{
			ChunkID:       hit.ChunkID,
			DocumentID:    hit.DocumentID,
			Title:         hit.Title,
			Content:       hit.Content,
			ChunkIndex:    hit.ChunkIndex,
			SemanticScore: hit.Score,
			HybridScore:   hit.Score * semanticWeight,
			MatchType:     models.MatchSemantic,
		}
	}

	var keywordOnly []string
	for _, hit := range keywordHits {
		if existing, ok := merged[hit.ChunkID]; ok {
			existing.KeywordScore = hit.Score
			existing.HybridScore = existing.SemanticScore*semanticWeight + hit.Score*keywordWeight
			existing.MatchType = models.MatchHybrid
			continue
		}
		merged[hit.ChunkID] = &models.HybridSearchResult{
			ChunkID:      hit.ChunkID,
			DocumentID:   hit.DocumentID,
			KeywordScore: hit.Score,
			HybridScore:  hit.Score * keywordWeight,
			MatchType:    models.MatchKeyword,
		}
		keywordOnly = append(keywordOnly, hit.ChunkID)
	}

	// Keyword hits carry only chunk id and score; fill in content and titles
	// from the metadata store so no result goes out blank.
	if err := h.backfill(ctx, merged, keywordOnly); err != nil {
		return nil, err
	}

	results := make([]models.HybridSearchResult, 0, len(merged))
	for _, r := range merged {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].HybridScore != results[j].HybridScore {
			return results[i].HybridScore > results[j].HybridScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	span.SetAttributes(attribute.Int("search.results", len(results)))
	h.metrics.RecordSearch(ctx, "hybrid", time.Since(start).Seconds(), len(results))
	if h.analytics != nil {
		h.analytics.RecordSearch(ctx, organizationID, "hybrid")
	}
	return results, nil
}

func (h *HybridSearch) backfill(ctx context.Context, merged map[string]*models.HybridSearchResult, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	chunks, err := h.store.GetChunks(ctx, chunkIDs)
	if err != nil {
		return err
	}

	titles := make(map[string]string)
	for _, chunk := range chunks {
		result, ok := merged[chunk.ID]
		if !ok {
			continue
		}
		result.Content = chunk.Content
		result.ChunkIndex = chunk.ChunkIndex

		title, ok := titles[chunk.DocumentID]
		if !ok {
			doc, err := h.store.GetDocument(ctx, chunk.DocumentID)
			if err == nil {
				title = doc.Title
			}
			titles[chunk.DocumentID] = title
		}
		result.Title = title
	}
	return nil
}
