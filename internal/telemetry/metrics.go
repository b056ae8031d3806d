package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all retrieval pipeline metrics
type Metrics struct {
	DocumentsProcessed metric.Int64Counter
	ChunksPersisted    metric.Int64Counter
	IndexDuration      metric.Float64Histogram
	IndexFailures      metric.Int64Counter
	SearchDuration     metric.Float64Histogram
	SearchResults      metric.Int64Counter
	OrphansRemoved     metric.Int64Counter
	EmbeddingCalls     metric.Int64Counter
}

// InitMetrics initializes all pipeline metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("knowledge-retrieval-platform")

	documentsProcessed, err := meter.Int64Counter(
		"documents.processed.total",
		metric.WithDescription("Documents run through the processing pipeline"),
	)
	if err != nil {
		return nil, err
	}

	chunksPersisted, err := meter.Int64Counter(
		"chunks.persisted.total",
		metric.WithDescription("Chunks written to the metadata store"),
	)
	if err != nil {
		return nil, err
	}

	indexDuration, err := meter.Float64Histogram(
		"indexing.duration",
		metric.WithDescription("Document indexing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	indexFailures, err := meter.Int64Counter(
		"indexing.failures.total",
		metric.WithDescription("Indexing tasks that exhausted retries"),
	)
	if err != nil {
		return nil, err
	}

	searchDuration, err := meter.Float64Histogram(
		"search.duration",
		metric.WithDescription("Search request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchResults, err := meter.Int64Counter(
		"search.results.total",
		metric.WithDescription("Search results returned"),
	)
	if err != nil {
		return nil, err
	}

	orphansRemoved, err := meter.Int64Counter(
		"reconciler.orphans.removed",
		metric.WithDescription("Orphaned vector records removed"),
	)
	if err != nil {
		return nil, err
	}

	embeddingCalls, err := meter.Int64Counter(
		"embeddings.calls.total",
		metric.WithDescription("Calls to the embedding service"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		DocumentsProcessed: documentsProcessed,
		ChunksPersisted:    chunksPersisted,
		IndexDuration:      indexDuration,
		IndexFailures:      indexFailures,
		SearchDuration:     searchDuration,
		SearchResults:      searchResults,
		OrphansRemoved:     orphansRemoved,
		EmbeddingCalls:     embeddingCalls,
	}, nil
}

// RecordSearch records a completed search request
func (m *Metrics) RecordSearch(ctx context.Context, mode string, seconds float64, results int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("search.mode", mode))
	m.SearchDuration.Record(ctx, seconds, attrs)
	m.SearchResults.Add(ctx, int64(results), attrs)
}
