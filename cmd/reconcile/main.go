package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"knowledge-retrieval-platform/internal/config"
	"knowledge-retrieval-platform/internal/logger"
	"knowledge-retrieval-platform/internal/store"
	"knowledge-retrieval-platform/internal/vector"
	"knowledge-retrieval-platform/services"
)

// One-shot reconciliation sweep for operators. Runs against a single
// organization or every organization with documents.
func main() {
	org := flag.String("org", "", "organization id to reconcile (default: all)")
	timeout := flag.Duration("timeout", 30*time.Minute, "sweep deadline")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.DBName)
	metadataStore := store.NewMongoMetadataStore(db, cfg.CompressionFloor)
	vectorStore := vector.NewMongoStore(db, cfg.VectorCollection, cfg.VectorIndexName, cfg.VectorTimeout)

	reconciler := services.NewReconciler(metadataStore, vectorStore, cfg.ReconcilePageSize, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	orgs := []string{*org}
	if *org == "" {
		orgs, err = metadataStore.ListOrganizations(ctx)
		if err != nil {
			log.Fatal("Failed to list organizations:", err)
		}
	}

	for _, organizationID := range orgs {
		stats, err := reconciler.CleanupOrphanedVectors(ctx, organizationID)
		if err != nil {
			log.Printf("Sweep aborted for %s: %v", organizationID, err)
			continue
		}
		fmt.Printf("%s: scanned=%d orphaned=%d deleted=%d errors=%d\n",
			organizationID, stats.Scanned, stats.Orphaned, stats.Deleted, stats.Errors)
	}
}
