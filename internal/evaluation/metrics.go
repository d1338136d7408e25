package evaluation

import (
	"math"
	"slices"
)

// Relevance labels are binary: 1 for a relevant retrieved document, 0
// otherwise, in rank order. Every metric returns 0 where its denominator
// would be 0.

// PrecisionAtK is the relevant share of the first min(k, len(labels)).
func PrecisionAtK(labels []int, k int) float64 {
	n := min(k, len(labels))
	if n <= 0 {
		return 0
	}
	return float64(sum(labels[:n])) / float64(n)
}

// RecallAtK is relevant retrieved in the top k over all relevant documents
// in the corpus.
func RecallAtK(labels []int, k, totalRelevant int) float64 {
	if totalRelevant <= 0 || k <= 0 {
		return 0
	}
	return float64(sum(labels[:min(k, len(labels))])) / float64(totalRelevant)
}

// ReciprocalRank is 1/rank of the first relevant result within the top k.
func ReciprocalRank(labels []int, k int) float64 {
	for i, rel := range labels[:max(0, min(k, len(labels)))] {
		if rel > 0 {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// DCG is sum(rel_i / log2(i+1)) with ranks starting at 1.
func DCG(labels []int) float64 {
	var dcg float64
	for i, rel := range labels {
		dcg += float64(rel) / math.Log2(float64(i+2))
	}
	return dcg
}

// NDCGAtK divides the DCG of the retrieved order by the DCG of the same
// labels sorted best first.
func NDCGAtK(labels []int, k int) float64 {
	top := labels[:max(0, min(k, len(labels)))]
	ideal := slices.Clone(top)
	slices.SortFunc(ideal, func(a, b int) int { return b - a })
	idcg := DCG(ideal)
	if idcg == 0 {
		return 0
	}
	return DCG(top) / idcg
}

func sum(labels []int) int {
	n := 0
	for _, l := range labels {
		n += l
	}
	return n
}
