package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"knowledge-retrieval-platform/models"
	"knowledge-retrieval-platform/utils"
)

// MongoMetadataStore implements MetadataStore on two collections:
// documents and chunks. Chunk content above compressionFloor is
// gzip-compressed at rest; reads always return decompressed content.
type MongoMetadataStore struct {
	documents        *mongo.Collection
	chunks           *mongo.Collection
	compressionFloor int
}

func NewMongoMetadataStore(db *mongo.Database, compressionFloor int) *MongoMetadataStore {
	return &MongoMetadataStore{
		documents:        db.Collection("documents"),
		chunks:           db.Collection("chunks"),
		compressionFloor: compressionFloor,
	}
}

func (s *MongoMetadataStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.Status == "" {
		doc.Status = models.StatusPending
	}
	if doc.IndexStatus == "" {
		doc.IndexStatus = models.IndexPending
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	_, err := s.documents.InsertOne(ctx, doc)
	return err
}

func (s *MongoMetadataStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *MongoMetadataStore) DocumentExists(ctx context.Context, id string) (bool, error) {
	err := s.documents.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MongoMetadataStore) SetStatus(ctx context.Context, id, status, errorMessage string) error {
	update := bson.M{"status": status}
	if errorMessage != "" {
		update["error_message"] = errorMessage
	}
	if status == models.StatusFailed {
		update["processed_at"] = time.Now()
	}
	res, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoMetadataStore) SetIndexStatus(ctx context.Context, id, indexStatus string) error {
	res, err := s.documents.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"index_status": indexStatus}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoMetadataStore) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	now := time.Now()
	res, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":       models.StatusCompleted,
		"chunk_count":  chunkCount,
		"processed_at": now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteDocument removes the document row and cascades to its chunks. The
// chunks go first so a crash in between leaves no chunks pointing at a
// missing document.
func (s *MongoMetadataStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": id}); err != nil {
		return fmt.Errorf("delete chunks for document %s: %w", id, err)
	}
	res, err := s.documents.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoMetadataStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		if err := chunk.Metadata.Validate(); err != nil {
			return fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		stored, err := s.compressChunk(chunk)
		if err != nil {
			return fmt.Errorf("compress chunk %s: %w", chunk.ID, err)
		}
		docs = append(docs, stored)
	}

	_, err := s.chunks.InsertMany(ctx, docs)
	return err
}

func (s *MongoMetadataStore) ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	opts := options.Find().SetSort(bson.D{{Key: "chunk_index", Value: 1}})
	cursor, err := s.chunks.Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return s.decodeChunks(ctx, cursor)
}

func (s *MongoMetadataStore) GetChunks(ctx context.Context, ids []string) ([]models.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.chunks.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return s.decodeChunks(ctx, cursor)
}

func (s *MongoMetadataStore) MatchChunksByTerms(ctx context.Context, organizationID string, keywords []string, limit int) ([]models.Chunk, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"organization_id": organizationID,
		"terms":           bson.M{"$in": keywords},
	}
	opts := options.Find().SetLimit(int64(limit))
	cursor, err := s.chunks.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return s.decodeChunks(ctx, cursor)
}

func (s *MongoMetadataStore) ListOrganizations(ctx context.Context) ([]string, error) {
	raw, err := s.documents.Distinct(ctx, "organization_id", bson.M{})
	if err != nil {
		return nil, err
	}
	orgs := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			orgs = append(orgs, id)
		}
	}
	return orgs, nil
}

func (s *MongoMetadataStore) compressChunk(chunk models.Chunk) (models.Chunk, error) {
	if s.compressionFloor <= 0 || len(chunk.Content) < s.compressionFloor {
		return chunk, nil
	}
	compressed, algorithm, err := utils.CompressText(chunk.Content)
	if err != nil {
		return chunk, err
	}
	chunk.Content = base64.StdEncoding.EncodeToString(compressed)
	chunk.Compressed = true
	chunk.Compression = string(algorithm)
	return chunk, nil
}

func decompressChunk(chunk models.Chunk) (models.Chunk, error) {
	if !chunk.Compressed {
		return chunk, nil
	}
	compressed, err := base64.StdEncoding.DecodeString(chunk.Content)
	if err != nil {
		return chunk, fmt.Errorf("failed to decode chunk: %w", err)
	}
	text, err := utils.DecompressText(compressed, utils.CompressionAlgorithm(chunk.Compression))
	if err != nil {
		return chunk, fmt.Errorf("failed to decompress chunk: %w", err)
	}
	chunk.Content = text
	chunk.Compressed = false
	chunk.Compression = ""
	return chunk, nil
}

func (s *MongoMetadataStore) decodeChunks(ctx context.Context, cursor *mongo.Cursor) ([]models.Chunk, error) {
	var stored []models.Chunk
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, 0, len(stored))
	for _, chunk := range stored {
		plain, err := decompressChunk(chunk)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, plain)
	}
	return chunks, nil
}
