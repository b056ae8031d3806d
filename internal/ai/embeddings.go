package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"knowledge-retrieval-platform/internal/config"
	"knowledge-retrieval-platform/internal/logger"
	"knowledge-retrieval-platform/models"
)

// EmbeddingClient turns text into fixed-dimension vectors. Implementations
// are expected to bound every call with a timeout.
type EmbeddingClient interface {
	// EmbedDocuments embeds a batch of chunk contents, one vector per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimensions reports the fixed output dimensionality.
	Dimensions() int
}

// GeminiEmbedder is the Google Generative AI implementation
// (text-embedding-004 by default, 768 dimensions).
type GeminiEmbedder struct {
	client      *genai.Client
	model       string
	dimensions  int
	batchSize   int
	timeout     time.Duration
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

type embedRateLimits struct {
	RPM int // Requests per minute
}

func embedLimitsForTier(tier string) embedRateLimits {
	switch tier {
	case "free":
		return embedRateLimits{RPM: 100}
	case "tier1":
		return embedRateLimits{RPM: 1500}
	default:
		return embedRateLimits{RPM: 100}
	}
}

func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	limits := embedLimitsForTier(cfg.EmbeddingTier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "EmbeddingAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	batchSize := cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	return &GeminiEmbedder{
		client:      client,
		model:       cfg.GoogleEmbeddingsModel,
		dimensions:  cfg.VectorDimensions,
		batchSize:   batchSize,
		timeout:     cfg.EmbedTimeout,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

func (g *GeminiEmbedder) Dimensions() int { return g.dimensions }

func (g *GeminiEmbedder) Close() error { return g.client.Close() }

// EmbedDocuments embeds chunk contents in API-sized batches. All inputs are
// embedded or none are; a failed batch fails the whole call.
func (g *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	tracer := otel.Tracer("embedding-client")
	ctx, span := tracer.Start(ctx, "embeddings.embed_documents")
	defer span.End()
	span.SetAttributes(
		attribute.Int("embeddings.inputs", len(texts)),
		attribute.String("embeddings.model", g.model),
	)

	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batchVectors, err := g.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, &models.EmbeddingServiceError{Op: "embed_documents", Err: err}
		}
		vectors = append(vectors, batchVectors...)
	}

	return vectors, nil
}

func (g *GeminiEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (interface{}, error) {
		model := g.client.EmbeddingModel(g.model)
		batch := model.NewBatch()
		for _, text := range texts {
			batch.AddContent(genai.Text(text))
		}
		return model.BatchEmbedContents(ctx, batch)
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*genai.BatchEmbedContentsResponse)
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("empty embedding at position %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (g *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("embedding-client")
	ctx, span := tracer.Start(ctx, "embeddings.embed_query")
	defer span.End()
	span.SetAttributes(attribute.String("embeddings.model", g.model))

	if err := g.rateLimiter.Wait(ctx); err != nil {
		return nil, &models.EmbeddingServiceError{Op: "embed_query", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (interface{}, error) {
		model := g.client.EmbeddingModel(g.model)
		return model.EmbedContent(ctx, genai.Text(text))
	})
	if err != nil {
		return nil, &models.EmbeddingServiceError{Op: "embed_query", Err: err}
	}

	resp := result.(*genai.EmbedContentResponse)
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, &models.EmbeddingServiceError{Op: "embed_query", Err: fmt.Errorf("no embedding returned")}
	}

	return resp.Embedding.Values, nil
}
