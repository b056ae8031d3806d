package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-retrieval-platform/models"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The Quick, quick brown FOX! a an of (jumps)")

	assert.Equal(t, []string{"the", "quick", "brown", "fox", "jumps"}, tokens)
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	assert.Empty(t, Tokenize("a b of to"))
	assert.Empty(t, Tokenize(""))
}

func TestTopKeywords(t *testing.T) {
	text := "kafka kafka kafka stream stream consumer the the the and"
	keywords := TopKeywords(text, 2)

	require.Len(t, keywords, 2)
	assert.Equal(t, "kafka", keywords[0])
	assert.Equal(t, "stream", keywords[1])
}

func seedKeywordChunks(t *testing.T, store *fakeMetadataStore) {
	t.Helper()
	chunks := []models.Chunk{
		{
			ID: "chunk-a", DocumentID: "doc-1", OrganizationID: "org-1",
			Content: "alpha beta something", Terms: []string{"alpha", "beta", "something"},
		},
		{
			ID: "chunk-b", DocumentID: "doc-1", OrganizationID: "org-1",
			Content: "alpha only here", Terms: []string{"alpha", "only", "here"},
		},
		{
			ID: "chunk-c", DocumentID: "doc-2", OrganizationID: "org-2",
			Content: "alpha beta gamma", Terms: []string{"alpha", "beta", "gamma"},
		},
	}
	require.NoError(t, store.InsertChunks(context.Background(), chunks))
}

func TestKeywordSearchScoring(t *testing.T) {
	metadataStore := newFakeMetadataStore()
	seedKeywordChunks(t, metadataStore)

	search := NewKeywordSearch(metadataStore)
	matches, err := search.Search(context.Background(), "alpha beta gamma", "org-1", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// chunk-a matches alpha+beta of three keywords, chunk-b only alpha
	assert.Equal(t, "chunk-a", matches[0].ChunkID)
	assert.InDelta(t, 2.0/3.0, matches[0].Score, 1e-9)
	assert.Equal(t, "chunk-b", matches[1].ChunkID)
	assert.InDelta(t, 1.0/3.0, matches[1].Score, 1e-9)
}

func TestKeywordSearchTenantScoped(t *testing.T) {
	metadataStore := newFakeMetadataStore()
	seedKeywordChunks(t, metadataStore)

	search := NewKeywordSearch(metadataStore)
	matches, err := search.Search(context.Background(), "alpha beta gamma", "org-2", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "chunk-c", matches[0].ChunkID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestKeywordSearchNoUsableTokens(t *testing.T) {
	metadataStore := newFakeMetadataStore()
	seedKeywordChunks(t, metadataStore)

	search := NewKeywordSearch(metadataStore)
	matches, err := search.Search(context.Background(), "a an of", "org-1", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestKeywordSearchLimit(t *testing.T) {
	metadataStore := newFakeMetadataStore()
	seedKeywordChunks(t, metadataStore)

	search := NewKeywordSearch(metadataStore)
	matches, err := search.Search(context.Background(), "alpha", "org-1", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	// Equal scores break ties by ascending chunk id
	assert.Equal(t, "chunk-a", matches[0].ChunkID)
}
