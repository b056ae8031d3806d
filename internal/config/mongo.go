package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, cfg *Config) error {
	db := client.Database(cfg.DBName)
	ctx := context.Background()

	documentsCollection := db.Collection("documents")
	documentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "uploaded_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "status", Value: 1}},
		},
	}
	if _, err := documentsCollection.Indexes().CreateMany(ctx, documentIndexes); err != nil {
		return err
	}

	chunksCollection := db.Collection("chunks")
	chunkIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "chunk_index", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "terms", Value: 1}},
		},
	}
	if _, err := chunksCollection.Indexes().CreateMany(ctx, chunkIndexes); err != nil {
		return err
	}

	// _id on vector records is the chunk id, so only the tenant/document
	// lookup needs an index.
	vectorsCollection := db.Collection(cfg.VectorCollection)
	vectorIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "document_id", Value: 1}},
		},
	}
	if _, err := vectorsCollection.Indexes().CreateMany(ctx, vectorIndexes); err != nil {
		return err
	}

	return nil
}
