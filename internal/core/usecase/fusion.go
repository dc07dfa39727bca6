package usecase

import (
	"sort"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

// fuseChunksRRF merges several ranked result lists with reciprocal rank
// fusion: each chunk scores sum(1/(rrfK+rank)) over the lists that contain
// it. Chunks are deduplicated on (source, text); within a source the text
// already carries the article heading.
func fuseChunksRRF(lists [][]domain.RetrievedChunk, rrfK int) []domain.RetrievedChunk {
	type fused struct {
		chunk domain.RetrievedChunk
		score float64
		order int
	}

	byKey := make(map[string]*fused)
	order := 0
	for _, list := range lists {
		for rank, chunk := range list {
			key := chunk.Source + "\x00" + chunk.Text
			entry, ok := byKey[key]
			if !ok {
				entry = &fused{chunk: chunk, order: order}
				byKey[key] = entry
				order++
			}
			entry.score += 1.0 / float64(rrfK+rank+1)
		}
	}

	merged := make([]*fused, 0, len(byKey))
	for _, entry := range byKey {
		merged = append(merged, entry)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].order < merged[j].order
	})

	out := make([]domain.RetrievedChunk, len(merged))
	for i, entry := range merged {
		chunk := entry.chunk
		chunk.Score = entry.score
		out[i] = chunk
	}
	return out
}

func trimChunks(chunks []domain.RetrievedChunk, k int) []domain.RetrievedChunk {
	if k > 0 && len(chunks) > k {
		return chunks[:k]
	}
	return chunks
}
