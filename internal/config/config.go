package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string
	LogLevel string

	// Redis Configuration (asynq queue + analytics counters)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Chunking
	MaxChunkSize int
	ChunkOverlap int
	MinChunkSize int

	// Chunk content is gzip-compressed at rest above this size
	CompressionFloor int

	// Vector search
	VectorCollection string
	VectorIndexName  string
	VectorDimensions int

	// Embeddings configuration
	GeminiAPIKey          string
	EmbeddingsProvider    string // "google" (default)
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	EmbeddingBatchSize    int
	EmbeddingTier         string

	// Bounded timeouts on external collaborators
	EmbedTimeout  time.Duration
	VectorTimeout time.Duration

	// Reconciliation
	ReconcilePageSize int
	ReconcileCron     string

	// Worker
	WorkerConcurrency int
	IndexMaxRetry     int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/knowledge_retrieval"),
		DBName:   getEnv("DB_NAME", "knowledge_retrieval"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MaxChunkSize:     getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize:     getEnvInt("MIN_CHUNK_SIZE", 100),
		CompressionFloor: getEnvInt("COMPRESSION_FLOOR", 2048),

		VectorCollection: getEnv("VECTOR_COLLECTION", "vector_records"),
		VectorIndexName:  getEnv("VECTOR_INDEX_NAME", "vector_records_index"),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbeddingBatchSize:    getEnvInt("EMBEDDING_BATCH_SIZE", 64),
		EmbeddingTier:         getEnv("EMBEDDING_TIER", "free"),

		EmbedTimeout:  getEnvDuration("EMBED_TIMEOUT", 30*time.Second),
		VectorTimeout: getEnvDuration("VECTOR_TIMEOUT", 15*time.Second),

		ReconcilePageSize: getEnvInt("RECONCILE_PAGE_SIZE", 200),
		ReconcileCron:     getEnv("RECONCILE_CRON", "0 3 * * *"),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 10),
		IndexMaxRetry:     getEnvInt("INDEX_MAX_RETRY", 3),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.MaxChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
