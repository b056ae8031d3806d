package services

import (
	"context"
	"sort"

	"knowledge-retrieval-platform/internal/store"
	"knowledge-retrieval-platform/models"
)

// KeywordSearch matches query tokens against chunk term sets. The score is a
// plain lexical-overlap ratio: distinct matched keywords over total keywords,
// in [0,1]. Deliberately not BM25 or any frequency weighting; the hybrid
// ranker supplies the semantic half.
type KeywordSearch struct {
	store store.MetadataStore
}

func NewKeywordSearch(metadataStore store.MetadataStore) *KeywordSearch {
	return &KeywordSearch{store: metadataStore}
}

// candidate over-fetch relative to the requested limit, so scoring can
// reorder before truncation
const keywordCandidateFactor = 5

// Search returns up to limit keyword matches for the organization, sorted by
// score descending. A query with no usable tokens returns an empty result.
func (k *KeywordSearch) Search(ctx context.Context, query, organizationID string, limit int) ([]models.KeywordMatch, error) {
	keywords := Tokenize(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	chunks, err := k.store.MatchChunksByTerms(ctx, organizationID, keywords, limit*keywordCandidateFactor)
	if err != nil {
		return nil, err
	}

	keywordSet := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		keywordSet[kw] = true
	}

	matches := make([]models.KeywordMatch, 0, len(chunks))
	for _, chunk := range chunks {
		matched := 0
		for _, term := range chunk.Terms {
			if keywordSet[term] {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		matches = append(matches, models.KeywordMatch{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Score:      float64(matched) / float64(len(keywords)),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
