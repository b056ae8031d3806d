package models

import (
	"fmt"
	"time"
)

// Chunk is an ordered text segment of a document, the unit of retrieval.
// Chunks are immutable once created and removed only by cascade when the
// owning document is deleted. Terms holds the chunk's distinct lowercase
// tokens so keyword queries never have to scan (possibly compressed) content.
type Chunk struct {
	ID             string        `bson:"_id" json:"id"`
	DocumentID     string        `bson:"document_id" json:"document_id"`
	OrganizationID string        `bson:"organization_id" json:"organization_id"`
	ChunkIndex     int           `bson:"chunk_index" json:"chunk_index"`
	Content        string        `bson:"content" json:"content"`
	Compressed     bool          `bson:"compressed,omitempty" json:"compressed,omitempty"`
	Compression    string        `bson:"compression,omitempty" json:"compression,omitempty"`
	TokenCount     int           `bson:"token_count,omitempty" json:"token_count,omitempty"`
	Terms          []string      `bson:"terms,omitempty" json:"-"`
	Metadata       ChunkMetadata `bson:"metadata" json:"metadata"`
	CreatedAt      time.Time     `bson:"created_at" json:"created_at"`
}

// ChunkMetadata carries named optional fields only. Open-ended maps drift
// silently between the metadata and vector stores, so the schema is fixed
// here and validated on ingest.
type ChunkMetadata struct {
	Page      int      `bson:"page,omitempty" json:"page,omitempty"`
	Language  string   `bson:"language,omitempty" json:"language,omitempty"`
	Keywords  []string `bson:"keywords,omitempty" json:"keywords,omitempty"`
	CharCount int      `bson:"char_count,omitempty" json:"char_count,omitempty"`
	WordCount int      `bson:"word_count,omitempty" json:"word_count,omitempty"`
}

const maxChunkKeywords = 16

// Validate rejects metadata that would break assumptions downstream.
func (m ChunkMetadata) Validate() error {
	if m.Page < 0 {
		return fmt.Errorf("chunk metadata: negative page %d", m.Page)
	}
	if m.CharCount < 0 || m.WordCount < 0 {
		return fmt.Errorf("chunk metadata: negative counts")
	}
	if len(m.Keywords) > maxChunkKeywords {
		return fmt.Errorf("chunk metadata: %d keywords exceeds limit %d", len(m.Keywords), maxChunkKeywords)
	}
	return nil
}
