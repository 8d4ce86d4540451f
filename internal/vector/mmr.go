package vector

import (
	"math"

	"github.com/hyperjump/banglarag/pkg/utils"
)

// MMR selects up to k of candidates by maximal marginal relevance and returns their
// positions in selection order. Each step picks the candidate maximizing
// lambda*sim(query, c) - (1-lambda)*max sim(c, selected). lambda 1 is pure relevance,
// 0 pure diversity.
func MMR(query []float32, candidates [][]float32, k int, lambda float64) []int {
	k = min(k, len(candidates))
	if k <= 0 {
		return nil
	}
	toQuery := make([]float64, len(candidates))
	for i, c := range candidates {
		toQuery[i] = utils.Cosine(query, c)
	}

	first := 0
	for i, s := range toQuery {
		if s > toQuery[first] {
			first = i
		}
	}
	selected := []int{first}
	taken := make([]bool, len(candidates))
	taken[first] = true
	// redundancy[i] is the highest similarity of candidate i to anything selected
	redundancy := make([]float64, len(candidates))
	for i, c := range candidates {
		redundancy[i] = utils.Cosine(c, candidates[first])
	}

	for len(selected) < k {
		best, bestScore := -1, math.Inf(-1)
		for i := range candidates {
			if taken[i] {
				continue
			}
			score := lambda*toQuery[i] - (1-lambda)*redundancy[i]
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		selected = append(selected, best)
		taken[best] = true
		for i, c := range candidates {
			if !taken[i] {
				redundancy[i] = math.Max(redundancy[i], utils.Cosine(c, candidates[best]))
			}
		}
	}
	return selected
}
