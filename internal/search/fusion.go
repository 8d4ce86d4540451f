package search

import (
	"sort"

	"github.com/hyperjump/banglarag/internal/models"
)

// FusedResult holds a chunk key and fused keyword/semantic scores.
type FusedResult struct {
	Key           string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// chunkKey identifies a chunk across the keyword and vector indexes. Chunks with the same
// key have the same source, position and content, so fusing them is harmless.
func chunkKey(c *models.Chunk) string {
	return c.ChunkID
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(hits []*models.SearchHit) map[string]float64 {
	normalized := make(map[string]float64)
	if len(hits) == 0 {
		return normalized
	}
	maxScore := hits[0].Score
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	for _, h := range hits {
		key := chunkKey(h.Chunk)
		score := 0.0
		if maxScore > 0 {
			score = h.Score / maxScore
		}
		if prev, ok := normalized[key]; !ok || score > prev {
			normalized[key] = score
		}
	}
	return normalized
}

// NormalizeSemanticScores returns cosine scores clamped to [0,1], keeping the best per key.
func NormalizeSemanticScores(hits []*models.SearchHit) map[string]float64 {
	normalized := make(map[string]float64)
	for _, h := range hits {
		score := max(0, min(1, h.Score))
		key := chunkKey(h.Chunk)
		if prev, ok := normalized[key]; !ok || score > prev {
			normalized[key] = score
		}
	}
	return normalized
}

// Fuse merges keyword and semantic score maps with weights and returns sorted FusedResults.
// Ties are broken by key so the order is stable.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult)
	for key, score := range keywordScores {
		scoreMap[key] = &FusedResult{Key: key, KeywordScore: score}
	}
	for key, score := range semanticScores {
		if result, exists := scoreMap[key]; exists {
			result.SemanticScore = score
		} else {
			scoreMap[key] = &FusedResult{Key: key, SemanticScore: score}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = (keywordWeight * result.KeywordScore) + (semanticWeight * result.SemanticScore)
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Key < results[j].Key
	})
	return results
}
