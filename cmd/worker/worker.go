package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"knowledge-retrieval-platform/internal/ai"
	"knowledge-retrieval-platform/internal/config"
	"knowledge-retrieval-platform/internal/logger"
	"knowledge-retrieval-platform/internal/queue"
	"knowledge-retrieval-platform/internal/store"
	"knowledge-retrieval-platform/internal/telemetry"
	"knowledge-retrieval-platform/internal/vector"
	"knowledge-retrieval-platform/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("knowledge-retrieval-worker")
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to init metrics:", err)
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.DBName)
	metadataStore := store.NewMongoMetadataStore(db, cfg.CompressionFloor)
	vectorStore := vector.NewMongoStore(db, cfg.VectorCollection, cfg.VectorIndexName, cfg.VectorTimeout)

	// Redis for analytics counters
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	analytics := services.NewAnalytics(rdb)

	// Initialize embedding client
	embedder, err := ai.NewGeminiEmbedder(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedding client:", err)
	}
	defer embedder.Close()

	indexer := services.NewIndexer(metadataStore, vectorStore, embedder, metrics)
	reconciler := services.NewReconciler(metadataStore, vectorStore, cfg.ReconcilePageSize, metrics, analytics)

	// Redis options for Asynq
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Periodic reconciliation sweeps
	enqueuer := queue.NewClient(redisOpt, cfg.IndexMaxRetry)
	defer enqueuer.Close()

	scheduler := services.NewReconcileScheduler(metadataStore, enqueuer, cfg.ReconcileCron)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start reconciliation scheduler:", err)
	}
	defer scheduler.Stop()

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"critical": 6, // 60% of workers
				"default":  3, // 30% of workers
				"low":      1, // 10% of workers
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(indexer, reconciler, analytics)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIndexDocument, processor.HandleIndexDocument)
	mux.HandleFunc(queue.TaskReconcileOrg, processor.HandleReconcile)

	logger.Info("Starting retrieval worker",
		"concurrency", cfg.WorkerConcurrency,
		"redis", cfg.RedisURL)

	// Start the server
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
