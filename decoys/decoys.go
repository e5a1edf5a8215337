// Package decoys generates synthetic negative examples for discriminative
// training of presentation models.
package decoys

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"

	"github.com/ignatovmg/mhcflurry/dataset"
)

// Strategy models a way to generate decoy peptides for a table of hits. A
// strategy is consumed once per fit; presentation models discard it after
// fitting completes.
type Strategy interface {
	// Decoys returns one synthetic negative row per required decoy. Decoy
	// peptides for an experiment are disjoint from that experiment's hits.
	Decoys(hits *dataset.Peptides) (*dataset.Peptides, error)
}

// UniformRandom samples decoysPerHit peptides per hit, uniformly without
// replacement from a universe of candidate peptides, excluding the hit
// peptides of the same experiment. Sampling is deterministic for a fixed
// seed: experiments are visited in sorted order and the generator is owned
// by the strategy.
type UniformRandom struct {
	universe     []string
	decoysPerHit int
	rng          *rand.Rand
}

// NewUniformRandom creates a uniform decoy sampler over the given peptide
// universe.
func NewUniformRandom(universe []string, decoysPerHit int, seed int64) *UniformRandom {
	sorted := append([]string(nil), universe...)
	sort.Strings(sorted)
	return &UniformRandom{
		universe:     sorted,
		decoysPerHit: decoysPerHit,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

func (s *UniformRandom) Decoys(hits *dataset.Peptides) (*dataset.Peptides, error) {
	if len(s.universe) == 0 {
		return nil, errors.New("decoy universe is empty")
	}

	hitsByExperiment := make(map[string]map[string]bool)
	countByExperiment := make(map[string]int)
	for i := 0; i < hits.Len(); i++ {
		exp := hits.ExperimentName(i)
		if hitsByExperiment[exp] == nil {
			hitsByExperiment[exp] = make(map[string]bool)
		}
		hitsByExperiment[exp][hits.Peptide(i)] = true
		countByExperiment[exp]++
	}

	var experiments, peptides []string
	for _, exp := range hits.Experiments() {
		needed := countByExperiment[exp] * s.decoysPerHit

		candidates := make([]string, 0, len(s.universe))
		for _, p := range s.universe {
			if !hitsByExperiment[exp][p] {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) < needed {
			return nil, errors.Errorf("experiment %s needs %d decoys but only %d candidate peptides remain", exp, needed, len(candidates))
		}

		s.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		for _, p := range candidates[:needed] {
			experiments = append(experiments, exp)
			peptides = append(peptides, p)
		}
	}

	if experiments == nil {
		experiments, peptides = []string{}, []string{}
	}
	return dataset.NewPeptides(experiments, peptides)
}

// MakeHitsAndDecoys assembles the labelled training table for a fit: the
// given hits labelled true, followed by freshly sampled decoys labelled
// false.
func MakeHitsAndDecoys(hits *dataset.Peptides, strategy Strategy) (*dataset.Peptides, error) {
	decoyTable, err := strategy.Decoys(hits)
	if err != nil {
		return nil, errors.Wrap(err, "sampling decoys")
	}

	labelledHits := hits.Select(sequence(hits.Len()))
	if err := labelledHits.SetHits(labels(labelledHits.Len(), true)); err != nil {
		return nil, err
	}
	if err := decoyTable.SetHits(labels(decoyTable.Len(), false)); err != nil {
		return nil, err
	}
	return labelledHits.Concat(decoyTable)
}

func sequence(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func labels(n int, v bool) []bool {
	s := make([]bool, n)
	if v {
		for i := range s {
			s[i] = true
		}
	}
	return s
}
