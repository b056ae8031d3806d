package models

// Match types for hybrid results
const (
	MatchSemantic = "semantic"
	MatchKeyword  = "keyword"
	MatchHybrid   = "hybrid"
)

// SearchResult is a single semantic search hit. Score is a cosine-based
// similarity normalized to [0,1]; higher is more relevant.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// KeywordMatch is a keyword search hit before any content backfill.
type KeywordMatch struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// HybridSearchResult fuses a semantic and a keyword hit for the same chunk.
type HybridSearchResult struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	ChunkIndex    int     `json:"chunk_index"`
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score"`
	HybridScore   float64 `json:"hybrid_score"`
	MatchType     string  `json:"match_type"`
}
