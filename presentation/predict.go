package presentation

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ignatovmg/mhcflurry/component"
	"github.com/ignatovmg/mhcflurry/dataset"
	"github.com/ignatovmg/mhcflurry/decoys"
	"github.com/ignatovmg/mhcflurry/eval"
)

// Detailed holds per-fold predictions alongside their mean.
type Detailed struct {
	// PerFold has one prediction column per stored (component set,
	// predictor) pair.
	PerFold [][]float64
	// Mean is the elementwise mean of PerFold, the model's prediction.
	Mean []float64
}

// PredictDetailed predicts for the given peptides table, returning the
// per-fold prediction columns and their mean. When the model was fit in two
// folds, the mean of the two predictors is the two-fold ensembling effect of
// the default fit mode.
func (m *Model) PredictDetailed(peptides *dataset.Peptides) (Detailed, error) {
	if !m.HasBeenFit() {
		return Detailed{}, ErrNotFit
	}
	if peptides == nil {
		return Detailed{}, errors.New("nil peptides table")
	}

	perFold := make([][]float64, len(m.trained))
	for fold := range m.trained {
		predictions, err := m.predictFold(peptides, m.trained[fold], m.predictors[fold])
		if err != nil {
			return Detailed{}, errors.Wrapf(err, "predicting fold %d", fold+1)
		}
		perFold[fold] = predictions
	}

	mean := make([]float64, peptides.Len())
	for _, fold := range perFold {
		floats.Add(mean, fold)
	}
	floats.Scale(1/float64(len(perFold)), mean)

	return Detailed{PerFold: perFold, Mean: mean}, nil
}

// Predict returns the probability that each peptide is presented. The model
// must be fit.
func (m *Model) Predict(peptides *dataset.Peptides) ([]float64, error) {
	detailed, err := m.PredictDetailed(peptides)
	if err != nil {
		return nil, err
	}
	return detailed.Mean, nil
}

func (m *Model) predictFold(peptides *dataset.Peptides, components []component.Model, predictor *LogisticRegression) ([]float64, error) {
	// Component columns are attached to a row copy so prediction never
	// mutates the caller's table.
	table := peptides.Select(sequence(peptides.Len()))
	if err := m.applyComponents(table, components); err != nil {
		return nil, err
	}

	features, err := m.evaluator.Evaluate(table)
	if err != nil {
		return nil, err
	}
	x := mat.NewDense(table.Len(), len(features), nil)
	for j, col := range features {
		for i, v := range col {
			if math.IsNaN(v) {
				return nil, errors.Errorf("feature expression %q produced a missing value at prediction time", m.expressions[j])
			}
			x.Set(i, j, v)
		}
	}
	return predictor.PredictProba(x)
}

// ScoreResult reports rank-based positive-predictive-value scoring.
type ScoreResult struct {
	// Score is the fraction of true hits ranked within the top k predicted
	// positions, where k is the number of true hits. In [0, 1].
	Score float64 `json:"score"`
	// HitIndices are the 1-based ranks at which the true hits occur,
	// ascending. Tied predictions take the average of the ranks they span,
	// so indices may be fractional.
	HitIndices []float64 `json:"hit_indices"`
	// TotalPeptides is the number of scored rows.
	TotalPeptides int `json:"total_peptides"`
}

// Score ranks the labelled peptides table by descending prediction and
// reports the PPV score. The table must carry hit labels.
func (m *Model) Score(peptides *dataset.Peptides) (ScoreResult, error) {
	if !m.HasBeenFit() {
		return ScoreResult{}, ErrNotFit
	}
	hits, err := peptides.Hits()
	if err != nil {
		return ScoreResult{}, err
	}

	predictions, err := m.Predict(peptides)
	if err != nil {
		return ScoreResult{}, err
	}

	return ScoreResult{
		Score:         eval.PositivePredictiveValue.Score(predictions, hits),
		HitIndices:    eval.HitRanks(predictions, hits),
		TotalPeptides: peptides.Len(),
	}, nil
}

// ScoreWithDecoys assembles a scoring table from the given hits and a decoy
// strategy, then scores it. The strategy here is independent of the one
// consumed during fitting.
func (m *Model) ScoreWithDecoys(hits *dataset.Peptides, strategy decoys.Strategy) (ScoreResult, error) {
	if !m.HasBeenFit() {
		return ScoreResult{}, ErrNotFit
	}
	table, err := decoys.MakeHitsAndDecoys(hits, strategy)
	if err != nil {
		return ScoreResult{}, err
	}
	return m.Score(table)
}

func sequence(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
