package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced document or chunk is absent.
var ErrNotFound = errors.New("not found")

// ExtractionError indicates unsupported or corrupt content. It fails
// document processing synchronously and is recorded on the document.
type ExtractionError struct {
	ContentType string
	Reason      string
	Err         error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed for %s: %s: %v", e.ContentType, e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.ContentType, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingServiceError wraps transient embedding service failures caught at
// the indexer/search boundary.
type EmbeddingServiceError struct {
	Op  string
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service: %s: %v", e.Op, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// VectorStoreError wraps transient vector store failures.
type VectorStoreError struct {
	Op  string
	Err error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store: %s: %v", e.Op, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }
