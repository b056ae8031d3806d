package vector

import "context"

// Payload is the denormalized metadata carried on every vector record. It is
// what makes tenant filtering and orphan detection possible without joining
// back to the metadata store on the hot path.
type Payload struct {
	DocumentID     string `bson:"document_id" json:"document_id"`
	OrganizationID string `bson:"organization_id" json:"organization_id"`
	Content        string `bson:"content" json:"content"`
	Title          string `bson:"title" json:"title"`
	ChunkIndex     int    `bson:"chunk_index" json:"chunk_index"`
}

// Point is a single vector record. ID is always the owning chunk's id.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// ScoredPoint is a search hit. Score is cosine-based, normalized to [0,1].
type ScoredPoint struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// Filter scopes queries and deletes. OrganizationID must be set on every
// query-path filter; tenant isolation is enforced here, not by physical
// separation.
type Filter struct {
	OrganizationID string
	DocumentID     string
}

// Store is the similarity index. Upserts are keyed by point id, so re-writing
// the same chunk id overwrites rather than duplicates.
type Store interface {
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, queryVector []float32, filter Filter, limit int, scoreThreshold float64) ([]ScoredPoint, error)
	DeleteByFilter(ctx context.Context, filter Filter) (int64, error)
	DeleteIDs(ctx context.Context, ids []string) error
	Count(ctx context.Context, filter Filter) (int64, error)
	// Scroll pages through records matching the filter. Pass an empty cursor
	// to start; an empty returned cursor means the scan is done.
	Scroll(ctx context.Context, filter Filter, limit int, cursor string) ([]Point, string, error)
}
