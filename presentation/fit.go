package presentation

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/ignatovmg/mhcflurry/component"
	"github.com/ignatovmg/mhcflurry/dataset"
	"github.com/ignatovmg/mhcflurry/decoys"
)

// stratifiedFolds partitions the row indices of hits into two disjoint,
// non-empty folds, stratified by experiment name. The partition is
// deterministic for a fixed seed: experiments are visited in sorted order and
// shuffled with a generator seeded once.
func stratifiedFolds(hits *dataset.Peptides, seed int64) ([2][]int, error) {
	var folds [2][]int

	byExperiment := make(map[string][]int)
	for i := 0; i < hits.Len(); i++ {
		exp := hits.ExperimentName(i)
		byExperiment[exp] = append(byExperiment[exp], i)
	}

	rng := rand.New(rand.NewSource(seed))
	start := 0
	for _, exp := range hits.Experiments() {
		idx := byExperiment[exp]
		rng.Shuffle(len(idx), func(i, j int) {
			idx[i], idx[j] = idx[j], idx[i]
		})
		for k, row := range idx {
			folds[(k+start)%2] = append(folds[(k+start)%2], row)
		}
		// Alternate which fold absorbs the odd row so singleton experiments
		// do not all land in one fold.
		start = (start + len(idx)) % 2
	}

	if len(folds[0]) == 0 || len(folds[1]) == 0 {
		return folds, errors.Errorf("two-fold split needs at least two hits, got %d", hits.Len())
	}
	sort.Ints(folds[0])
	sort.Ints(folds[1])
	return folds, nil
}

// Fit trains the final predictor and, when necessary, the component models.
// The hits table must carry experiment_name and peptide columns and must not
// already be fit. The decoy strategy is consumed here and discarded.
func (m *Model) Fit(hits *dataset.Peptides) error {
	if m.HasBeenFit() {
		return ErrAlreadyFit
	}
	if hits == nil || hits.Len() == 0 {
		return errors.New("cannot fit on an empty hits table")
	}
	if m.strategy == nil {
		return errors.New("presentation model has no decoy strategy")
	}

	switch {
	case m.requiresFitting && m.ensembleSize > 0:
		return ErrEnsembleUnimplemented

	case m.requiresFitting:
		// Two-fold fit: component models are fit on one fold and predict on
		// the other, so the final predictor never sees rows that trained its
		// inputs.
		folds, err := stratifiedFolds(hits, m.seed)
		if err != nil {
			return err
		}
		var (
			allTrained    [][]component.Model
			allPredictors []*LogisticRegression
		)
		for _, assignment := range [][2][]int{{folds[0], folds[1]}, {folds[1], folds[0]}} {
			componentTrain := hits.Select(assignment[0])
			predictorTrain := hits.Select(assignment[1])

			trained := make([]component.Model, len(m.components))
			for i, c := range m.components {
				fit, err := c.CloneAndFit(componentTrain)
				if err != nil {
					return errors.Wrapf(err, "fitting component model %s", c.Name())
				}
				trained[i] = fit
			}

			predictor, err := m.fitFinalPredictor(predictorTrain, trained)
			if err != nil {
				return err
			}
			allTrained = append(allTrained, trained)
			allPredictors = append(allPredictors, predictor)
		}
		m.trained = allTrained
		m.predictors = allPredictors

	default:
		// Single-fold fit: no component model needs training, so the full
		// hit set trains the final predictor.
		predictor, err := m.fitFinalPredictor(hits, m.components)
		if err != nil {
			return err
		}
		m.trained = [][]component.Model{m.components}
		m.predictors = []*LogisticRegression{predictor}
	}

	m.fitExperiments = hits.Experiments()
	// The decoy strategy is not needed once fit; dropping it bounds memory
	// and signals that the fitted model no longer samples decoys.
	m.strategy = nil
	return nil
}

// fitFinalPredictor assembles hits and decoys, populates component feature
// columns, evaluates feature expressions and trains one final predictor.
func (m *Model) fitFinalPredictor(hits *dataset.Peptides, components []component.Model) (*LogisticRegression, error) {
	table, err := decoys.MakeHitsAndDecoys(hits, m.strategy)
	if err != nil {
		return nil, err
	}
	if err := m.applyComponents(table, components); err != nil {
		return nil, err
	}

	x, y, err := m.makeFeaturesAndTarget(table)
	if err != nil {
		return nil, err
	}

	predictor := m.predictor.clone()
	if err := predictor.Fit(x, y); err != nil {
		return nil, err
	}
	return predictor, nil
}

// applyComponents attaches every component model's predicted columns to the
// table.
func (m *Model) applyComponents(table *dataset.Peptides, components []component.Model) error {
	for _, c := range components {
		predictions, err := c.Predict(table)
		if err != nil {
			return errors.Wrapf(err, "predicting with component model %s", c.Name())
		}
		for _, col := range c.ColumnNames() {
			values := predictions[col]
			for _, v := range values {
				if math.IsNaN(v) {
					return errors.Errorf("component model %s produced a missing value in column %s", c.Name(), col)
				}
			}
			if err := table.SetColumn(col, values); err != nil {
				return err
			}
		}
	}
	return nil
}

// makeFeaturesAndTarget evaluates the feature expressions over a labelled
// table and returns the design matrix and labels. Rows whose evaluated
// features contain missing values are dropped with a warning; this is the
// only place input rows are discarded.
func (m *Model) makeFeaturesAndTarget(table *dataset.Peptides) (*mat.Dense, []float64, error) {
	hits, err := table.Hits()
	if err != nil {
		return nil, nil, err
	}

	features, err := m.evaluator.Evaluate(table)
	if err != nil {
		return nil, nil, err
	}

	keep := make([]int, 0, table.Len())
	for row := 0; row < table.Len(); row++ {
		ok := true
		for _, col := range features {
			if math.IsNaN(col[row]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, row)
		}
	}
	if dropped := table.Len() - len(keep); dropped > 0 {
		Warnings.Printf("dropped %d of %d rows with missing feature values", dropped, table.Len())
	}
	if len(keep) == 0 {
		return nil, nil, errors.New("all rows were dropped for missing feature values")
	}

	x := mat.NewDense(len(keep), len(features), nil)
	y := make([]float64, len(keep))
	for i, row := range keep {
		for j, col := range features {
			x.Set(i, j, col[row])
		}
		if hits[row] {
			y[i] = 1
		}
	}
	return x, y, nil
}
