// Package eval provides rank-based evaluation of presentation-model
// predictions.
package eval

import "sort"

// Evaluator is an interface for scoring predictions against hit labels.
type Evaluator interface {
	Score(predictions []float64, hits []bool) float64
	Name() string
}

type positivePredictiveValue struct{}

// PositivePredictiveValue scores the fraction of true hits ranked within the
// top k predicted positions, where k is the number of true hits.
var PositivePredictiveValue = positivePredictiveValue{}

func (positivePredictiveValue) Name() string {
	return "PPV"
}

func (positivePredictiveValue) Score(predictions []float64, hits []bool) float64 {
	k := 0.0
	for _, hit := range hits {
		if hit {
			k++
		}
	}
	if k == 0 {
		return 0.0
	}

	within := 0.0
	for _, rank := range HitRanks(predictions, hits) {
		if rank <= k {
			within++
		}
	}
	return within / k
}

// Ranks assigns a 1-based rank to every prediction, ranking by descending
// value so the largest prediction has rank 1. Tied predictions receive the
// average of the ranks they span, so ranks may be fractional.
func Ranks(predictions []float64) []float64 {
	order := make([]int, len(predictions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return predictions[order[a]] > predictions[order[b]]
	})

	ranks := make([]float64, len(predictions))
	for i := 0; i < len(order); {
		j := i
		for j < len(order) && predictions[order[j]] == predictions[order[i]] {
			j++
		}
		// Rows i..j-1 of the ordering are tied; each takes the mean rank.
		avg := float64(i+j+1) / 2
		for _, row := range order[i:j] {
			ranks[row] = avg
		}
		i = j
	}
	return ranks
}

// HitRanks returns the ranks at which the true hits occur, ascending.
func HitRanks(predictions []float64, hits []bool) []float64 {
	ranks := Ranks(predictions)
	hitRanks := make([]float64, 0, len(ranks))
	for i, rank := range ranks {
		if hits[i] {
			hitRanks = append(hitRanks, rank)
		}
	}
	sort.Float64s(hitRanks)
	return hitRanks
}
