package models

import "time"

// Document processing statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Index statuses track the background embedding pipeline separately from
// document processing. A document can be "completed" (chunks persisted)
// while its vectors are still pending or failed.
const (
	IndexPending = "pending"
	IndexIndexed = "indexed"
	IndexFailed  = "failed"
)

// Document represents an ingested document owned by an organization.
type Document struct {
	ID             string     `bson:"_id" json:"id"`
	OrganizationID string     `bson:"organization_id" json:"organization_id"`
	Title          string     `bson:"title" json:"title"`
	ContentType    string     `bson:"content_type" json:"content_type"`
	Status         string     `bson:"status" json:"status"`
	IndexStatus    string     `bson:"index_status" json:"index_status"`
	ChunkCount     int        `bson:"chunk_count" json:"chunk_count"`
	ErrorMessage   string     `bson:"error_message,omitempty" json:"error_message,omitempty"`
	UploadedAt     time.Time  `bson:"uploaded_at" json:"uploaded_at"`
	ProcessedAt    *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}
