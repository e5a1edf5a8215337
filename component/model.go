// Package component provides the pluggable sub-predictors that feed feature
// columns into a presentation model.
package component

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"

	"github.com/ignatovmg/mhcflurry/dataset"
)

// Fit is a trained parameter snapshot for a single component model. Data
// holds the model's gob-encoded parameters; Name is checked on restore.
type Fit struct {
	Name string
	Data []byte
}

// Model is a sub-predictor producing named feature columns from a peptides
// table. A model may require fitting on training hits before it can predict.
// Every model in one presentation model must declare column names disjoint
// from the others.
type Model interface {
	// Name identifies the model, e.g. for cache keys and fit snapshots.
	Name() string
	// ColumnNames returns the feature columns this model produces.
	ColumnNames() []string
	// RequiresFitting reports whether CloneAndFit must be called before
	// Predict.
	RequiresFitting() bool
	// CloneAndFit returns a copy of the model fit on the given training
	// hits. Models that do not require fitting return themselves.
	CloneAndFit(hits *dataset.Peptides) (Model, error)
	// Predict produces one row-aligned float64 column per declared column
	// name. No value may be NaN.
	Predict(peptides *dataset.Peptides) (map[string][]float64, error)
	// GetFit returns the trained parameters of the model.
	GetFit() (Fit, error)
	// RestoreFit returns a copy of the model with the given trained
	// parameters restored.
	RestoreFit(fit Fit) (Model, error)
	// ResetCache invalidates any memoised predictions. Callers reusing one
	// model instance across experiments with different underlying data must
	// call this, or stale cached predictions will be silently served.
	ResetCache()
}

// EncodeFit gob-encodes model parameters into a Fit snapshot.
func EncodeFit(name string, params interface{}) (Fit, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(params); err != nil {
		return Fit{}, errors.Wrapf(err, "encoding fit for %s", name)
	}
	return Fit{Name: name, Data: buf.Bytes()}, nil
}

// DecodeFit decodes a Fit snapshot into params, checking that the snapshot
// belongs to the named model.
func DecodeFit(name string, fit Fit, params interface{}) error {
	if fit.Name != name {
		return errors.Errorf("fit snapshot belongs to %q, not %q", fit.Name, name)
	}
	if err := gob.NewDecoder(bytes.NewReader(fit.Data)).Decode(params); err != nil {
		return errors.Wrapf(err, "decoding fit for %s", name)
	}
	return nil
}

// checkAligned verifies a prediction map is row-aligned with the input and
// carries every declared column. Shared by the concrete models.
func checkAligned(m Model, peptides *dataset.Peptides, preds map[string][]float64) error {
	for _, col := range m.ColumnNames() {
		values, ok := preds[col]
		if !ok {
			return errors.Errorf("%s did not produce declared column %s", m.Name(), col)
		}
		if len(values) != peptides.Len() {
			return errors.Errorf("%s produced %d values for column %s, want %d", m.Name(), len(values), col, peptides.Len())
		}
	}
	return nil
}
