package vector

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"knowledge-retrieval-platform/models"
)

// vectorRecord is the persisted shape. _id is the chunk id, which makes
// BulkWrite upserts naturally idempotent and gives Scroll a stable cursor.
type vectorRecord struct {
	ID             string    `bson:"_id"`
	Vector         []float32 `bson:"vector"`
	DocumentID     string    `bson:"document_id"`
	OrganizationID string    `bson:"organization_id"`
	Content        string    `bson:"content"`
	Title          string    `bson:"title"`
	ChunkIndex     int       `bson:"chunk_index"`
	Score          float64   `bson:"score,omitempty"`
}

// MongoStore implements Store on a MongoDB Atlas collection with a
// vectorSearch index over the "vector" field.
type MongoStore struct {
	collection *mongo.Collection
	indexName  string
	timeout    time.Duration
}

func NewMongoStore(db *mongo.Database, collection, indexName string, timeout time.Duration) *MongoStore {
	return &MongoStore{
		collection: db.Collection(collection),
		indexName:  indexName,
		timeout:    timeout,
	}
}

func (s *MongoStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	batch := make([]mongo.WriteModel, 0, len(points))
	for _, p := range points {
		record := vectorRecord{
			ID:             p.ID,
			Vector:         p.Vector,
			DocumentID:     p.Payload.DocumentID,
			OrganizationID: p.Payload.OrganizationID,
			Content:        p.Payload.Content,
			Title:          p.Payload.Title,
			ChunkIndex:     p.Payload.ChunkIndex,
		}
		batch = append(batch, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": p.ID}).
			SetReplacement(record).
			SetUpsert(true))
	}

	_, err := s.collection.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return &models.VectorStoreError{Op: "upsert", Err: err}
	}
	return nil
}

func (s *MongoStore) Search(ctx context.Context, queryVector []float32, filter Filter, limit int, scoreThreshold float64) ([]ScoredPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	search := bson.D{
		{Key: "index", Value: s.indexName},
		{Key: "path", Value: "vector"},
		{Key: "queryVector", Value: queryVector},
		{Key: "numCandidates", Value: limit * 10},
		{Key: "limit", Value: limit},
		{Key: "filter", Value: filterDoc(filter)},
	}
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: search}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &models.VectorStoreError{Op: "search", Err: err}
	}
	defer cursor.Close(ctx)

	var records []vectorRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, &models.VectorStoreError{Op: "search", Err: err}
	}

	results := make([]ScoredPoint, 0, len(records))
	for _, r := range records {
		if r.Score < scoreThreshold {
			continue
		}
		results = append(results, ScoredPoint{
			ID:    r.ID,
			Score: r.Score,
			Payload: Payload{
				DocumentID:     r.DocumentID,
				OrganizationID: r.OrganizationID,
				Content:        r.Content,
				Title:          r.Title,
				ChunkIndex:     r.ChunkIndex,
			},
		})
	}
	return results, nil
}

func (s *MongoStore) DeleteByFilter(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.collection.DeleteMany(ctx, filterDoc(filter))
	if err != nil {
		return 0, &models.VectorStoreError{Op: "delete_by_filter", Err: err}
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return &models.VectorStoreError{Op: "delete_ids", Err: err}
	}
	return nil
}

func (s *MongoStore) Count(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.collection.CountDocuments(ctx, filterDoc(filter))
	if err != nil {
		return 0, &models.VectorStoreError{Op: "count", Err: err}
	}
	return n, nil
}

func (s *MongoStore) Scroll(ctx context.Context, filter Filter, limit int, cursor string) ([]Point, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := filterDoc(filter)
	if cursor != "" {
		query["_id"] = bson.M{"$gt": cursor}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, "", &models.VectorStoreError{Op: "scroll", Err: err}
	}
	defer cur.Close(ctx)

	var records []vectorRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, "", &models.VectorStoreError{Op: "scroll", Err: err}
	}

	points := make([]Point, 0, len(records))
	for _, r := range records {
		points = append(points, Point{
			ID:     r.ID,
			Vector: r.Vector,
			Payload: Payload{
				DocumentID:     r.DocumentID,
				OrganizationID: r.OrganizationID,
				Content:        r.Content,
				Title:          r.Title,
				ChunkIndex:     r.ChunkIndex,
			},
		})
	}

	next := ""
	if len(records) == limit {
		next = records[len(records)-1].ID
	}
	return points, next, nil
}

func filterDoc(f Filter) bson.M {
	doc := bson.M{}
	if f.OrganizationID != "" {
		doc["organization_id"] = f.OrganizationID
	}
	if f.DocumentID != "" {
		doc["document_id"] = f.DocumentID
	}
	return doc
}
