package presentation

import (
	"bytes"
	"encoding/gob"
	"reflect"

	"github.com/pkg/errors"

	"github.com/ignatovmg/mhcflurry/component"
)

// PredictorFit is the trained-parameter snapshot of one final predictor.
type PredictorFit struct {
	Weights []float64
	Bias    float64
	L2      float64
}

// FitArtifact is a serializable snapshot of a fit presentation model:
// per-fold component-model fits, per-fold final predictors, the experiment
// names seen during fitting and the feature expressions used. Restoring it
// onto a freshly constructed model with the same configuration reproduces
// predictions without retraining.
type FitArtifact struct {
	ComponentFits [][]component.Fit
	Predictors    []PredictorFit
	Experiments   []string
	Expressions   []string
}

// GetFit returns the trained parameters of a fit model.
func (m *Model) GetFit() (FitArtifact, error) {
	if !m.HasBeenFit() {
		return FitArtifact{}, ErrNotFit
	}

	artifact := FitArtifact{
		Experiments: m.fitExperiments,
		Expressions: m.expressions,
	}
	for _, fold := range m.trained {
		fits := make([]component.Fit, len(fold))
		for i, c := range fold {
			fit, err := c.GetFit()
			if err != nil {
				return FitArtifact{}, errors.Wrapf(err, "snapshotting component model %s", c.Name())
			}
			fits[i] = fit
		}
		artifact.ComponentFits = append(artifact.ComponentFits, fits)
	}
	for _, p := range m.predictors {
		artifact.Predictors = append(artifact.Predictors, PredictorFit{
			Weights: p.Weights,
			Bias:    p.Bias,
			L2:      p.L2,
		})
	}
	return artifact, nil
}

// RestoreFit restores trained parameters onto an unfit model with the same
// configuration. A fold-count mismatch between the artifact and this model is
// fatal; a feature-expression mismatch is reported as a warning only.
func (m *Model) RestoreFit(artifact FitArtifact) error {
	if m.HasBeenFit() {
		return ErrAlreadyFit
	}
	if len(artifact.ComponentFits) != m.folds() || len(artifact.Predictors) != m.folds() {
		return errors.Errorf("artifact holds %d component folds and %d predictors, model expects %d",
			len(artifact.ComponentFits), len(artifact.Predictors), m.folds())
	}
	if !reflect.DeepEqual(artifact.Expressions, m.expressions) {
		Warnings.Printf("feature expressions restored from fit %v do not match those of this model %v",
			artifact.Expressions, m.expressions)
	}

	trained := make([][]component.Model, 0, len(artifact.ComponentFits))
	for _, fits := range artifact.ComponentFits {
		if len(fits) != len(m.components) {
			return errors.Errorf("artifact fold holds %d component fits, model has %d components", len(fits), len(m.components))
		}
		fold := make([]component.Model, len(m.components))
		for i, c := range m.components {
			restored, err := c.RestoreFit(fits[i])
			if err != nil {
				return errors.Wrapf(err, "restoring component model %s", c.Name())
			}
			fold[i] = restored
		}
		trained = append(trained, fold)
	}

	predictors := make([]*LogisticRegression, 0, len(artifact.Predictors))
	for _, p := range artifact.Predictors {
		predictors = append(predictors, &LogisticRegression{
			Weights: p.Weights,
			Bias:    p.Bias,
			L2:      p.L2,
		})
	}

	m.trained = trained
	m.predictors = predictors
	m.fitExperiments = artifact.Experiments
	if m.fitExperiments == nil {
		m.fitExperiments = []string{}
	}
	m.strategy = nil
	return nil
}

// Encode gob-encodes the artifact for durable storage.
func (a FitArtifact) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return nil, errors.Wrap(err, "encoding fit artifact")
	}
	return buf.Bytes(), nil
}

// DecodeArtifact decodes a gob-encoded fit artifact.
func DecodeArtifact(data []byte) (FitArtifact, error) {
	var a FitArtifact
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&a); err != nil {
		return FitArtifact{}, errors.Wrap(err, "decoding fit artifact")
	}
	return a, nil
}
